// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"twitthon/internal/cache"
	"twitthon/internal/config"
	"twitthon/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// TestJWTSecret is long enough to pass production validation.
const TestJWTSecret = "test-secret-0123456789-abcdefghijklmnop"

// Config returns a test configuration backed by a SQLite file and a media
// root inside t.TempDir().
func Config(t testing.TB) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Env:                   "test",
		Port:                  "0",
		JWTSecret:             TestJWTSecret,
		AccessTokenTTLMinutes: 5,
		RefreshTokenTTLHours:  24,
		DBDriver:              "sqlite",
		SQLitePath:            filepath.Join(dir, "test.db"),
		PageSize:              10,
		MediaRoot:             filepath.Join(dir, "media"),
		MediaURL:              "/media",
		ImageMaxUploadSizeMB:  1,
		ImageMaxDimension:     64,
	}
}

// NewDB opens and migrates the SQLite database described by cfg.
func NewDB(t testing.TB, cfg *config.Config) *gorm.DB {
	t.Helper()
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewRedis starts a miniredis server, installs it as the shared cache
// client and restores the previous client on cleanup.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	prev := cache.GetClient()
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(prev)
		_ = rdb.Close()
	})
	return mr, rdb
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
