// Package database opens the GORM connection and manages the schema.
package database

import (
	"fmt"
	"time"

	"twitthon/internal/config"
	"twitthon/internal/middleware"
	"twitthon/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DB is the global database connection instance.
var DB *gorm.DB

// PostgresDSN builds a libpq-style connection string from cfg.
func PostgresDSN(cfg *config.Config) string {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		sslMode,
	)
}

func dialector(cfg *config.Config) gorm.Dialector {
	if cfg.DBDriver == "sqlite" {
		return sqlite.Open(cfg.SQLitePath)
	}
	return postgres.Open(PostgresDSN(cfg))
}

// Open connects with the configured driver and applies pool settings and
// metrics callbacks without touching the schema.
func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(dialector(cfg), &gorm.Config{
		Logger:         NewSlogGormLogger(middleware.Logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}
	if err := observability.RegisterDBMetrics(db); err != nil {
		return nil, fmt.Errorf("failed to register database metrics: %w", err)
	}

	return db, nil
}

// Connect opens the database and, outside production, auto-migrates the
// schema so local and test environments start ready.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	middleware.Logger.Info("Database connected successfully")

	if !cfg.IsProduction() {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	DB = db
	return DB, nil
}

// Migrate brings tables, indexes and checks in line with the models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	middleware.Logger.Info("Database migration completed")
	return nil
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql DB: %w", err)
	}

	maxOpen := cfg.DBMaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.DBMaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.DBConnMaxLifetimeMinutes
	if lifetime <= 0 {
		lifetime = 5
	}

	// SQLite serialises writers; one connection avoids "database is locked".
	if cfg.DBDriver == "sqlite" {
		maxOpen, maxIdle = 1, 1
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(time.Duration(lifetime) * time.Minute)
	return nil
}
