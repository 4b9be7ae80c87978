package database

import "twitthon/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM
// models, parents before children.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Post{},
		&models.Follow{},
		&models.Like{},
	}
}
