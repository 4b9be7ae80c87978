// Package bootstrap wires the process-wide runtime: database, cache and
// optional demo data.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"twitthon/internal/cache"
	"twitthon/internal/config"
	"twitthon/internal/database"
	"twitthon/internal/repository"
	"twitthon/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty database with fake data.
	SeedDemo bool
	Seed     seed.Options
}

// DefaultDemo is the data set SeedDemo creates.
var DefaultDemo = seed.Options{NumUsers: 20, PostsPerUser: 5, MaxFollows: 8, MaxLikes: 6}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
// Redis is optional: the returned client is nil when it is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if cfg.RedisURL != "" {
		cache.InitRedis(cfg.RedisURL)
	}
	r := cache.GetClient()

	if opts.SeedDemo {
		if err := seedDemo(ctx, cfg, db, opts.Seed); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// seedDemo seeds only into an empty users table and never in production.
func seedDemo(ctx context.Context, cfg *config.Config, db *gorm.DB, opts seed.Options) error {
	if cfg.IsProduction() {
		log.Println("demo seeding skipped in production")
		return nil
	}

	n, err := repository.NewUserRepository(db).Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("demo seeding skipped: %d users already present", n)
		return nil
	}

	if opts.NumUsers == 0 {
		opts = DefaultDemo
	}
	_, err = seed.Seed(ctx, db, opts)
	return err
}
