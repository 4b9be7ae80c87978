// Command seed fills the database with fake data or a YAML fixture.
package main

import (
	"context"
	"flag"
	"log"

	"twitthon/internal/config"
	"twitthon/internal/database"
	"twitthon/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	postsPerUser := flag.Int("posts", 4, "Posts per user")
	maxFollows := flag.Int("follows", 10, "Maximum follows per user")
	maxLikes := flag.Int("likes", 8, "Maximum likes per post")
	clean := flag.Bool("clean", false, "Delete all users, posts, follows and likes first")
	fixture := flag.String("fixture", "", "Load this YAML fixture instead of generating data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	opts := seed.Options{
		NumUsers:     *numUsers,
		PostsPerUser: *postsPerUser,
		MaxFollows:   *maxFollows,
		MaxLikes:     *maxLikes,
		Clean:        *clean,
	}

	var sum *seed.Summary
	if *fixture != "" {
		fx, err := seed.LoadFixture(*fixture)
		if err != nil {
			log.Fatalf("Failed to load fixture: %v", err)
		}
		if *clean {
			if err := seed.Clean(ctx, db); err != nil {
				log.Fatalf("Cleanup failed: %v", err)
			}
		}
		sum, err = seed.Apply(ctx, db, fx, opts)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	} else {
		sum, err = seed.Seed(ctx, db, opts)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Printf("Created %s", sum)
	log.Printf("Generated users have the password: %s", seed.DefaultPassword)
}
