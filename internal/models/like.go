package models

import "time"

// Like records that UserID liked PostID. At most one row exists per pair.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post;index" json:"post_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Post      Post      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
