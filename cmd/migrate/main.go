// Command migrate applies the schema derived from the models.
package main

import (
	"flag"
	"fmt"
	"log"

	"twitthon/internal/config"
	"twitthon/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := database.Migrate(db); err != nil {
		return err
	}
	log.Printf("schema up to date (driver=%s env=%s)", cfg.DBDriver, cfg.Env)
	return nil
}
