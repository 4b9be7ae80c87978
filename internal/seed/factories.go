// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"twitthon/internal/models"
	"twitthon/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password every generated account is created with.
const DefaultPassword = "password123"

// Factory builds domain entities with fake data and persists them through
// the repositories.
type Factory struct {
	db        *gorm.DB
	opts      Options
	fake      *gofakeit.Faker
	users     repository.UserRepository
	follows   repository.FollowRepository
	likes     repository.LikeRepository
	usedNames map[string]struct{}
	hash      string
}

// NewFactory creates a Factory bound to db. A zero opts.RandSeed picks a
// time-based seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:        db,
		opts:      opts.withDefaults(),
		fake:      gofakeit.New(seed),
		users:     repository.NewUserRepository(db),
		follows:   repository.NewFollowRepository(db),
		likes:     repository.NewLikeRepository(db),
		usedNames: make(map[string]struct{}),
	}
}

// passwordHash hashes the shared password once per factory.
func (f *Factory) passwordHash(password string) (string, error) {
	if password == "" || password == f.opts.Password {
		if f.hash != "" {
			return f.hash, nil
		}
		password = f.opts.Password
		h, err := bcrypt.GenerateFromPassword([]byte(password), f.opts.BcryptCost)
		if err != nil {
			return "", err
		}
		f.hash = string(h)
		return f.hash, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), f.opts.BcryptCost)
	return string(h), err
}

// uniqueUsername returns a fake username that is valid and not yet used by
// this factory.
func (f *Factory) uniqueUsername() string {
	for {
		base := strings.Map(func(r rune) rune {
			if r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, f.fake.Username())
		name := fmt.Sprintf("%s%d", base, f.fake.Number(100, 9999))
		if len(name) > models.UsernameMaxLength {
			name = name[:models.UsernameMaxLength]
		}
		if _, taken := f.usedNames[name]; !taken {
			f.usedNames[name] = struct{}{}
			return name
		}
	}
}

// BuildUser returns an unsaved user with a hashed DefaultPassword.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash("")
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username: f.uniqueUsername(),
		Email:    f.fake.Email(),
		Password: hash,
	}
	for _, override := range overrides {
		override(user)
	}
	return user, nil
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user, err := f.BuildUser(overrides...)
	if err != nil {
		return nil, err
	}
	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost returns an unsaved post by user with a created_at spread over
// the last MaxDays days.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		UserID:  user.ID,
		Content: truncateRunes(f.fake.Sentence(f.fake.Number(4, 30)), models.PostContentMaxLength),
	}

	back := time.Duration(f.fake.Number(0, f.opts.MaxDays*24*60)) * time.Minute
	post.CreatedAt = time.Now().Add(-back)

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists posts in batches.
func (f *Factory) CreatePostsBatch(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.WithContext(ctx).Omit("User").CreateInBatches(posts, 100).Error
}

// Follow creates the edge follower -> following unless it already exists.
func (f *Factory) Follow(ctx context.Context, follower, following *models.User) (bool, error) {
	return f.follows.Follow(ctx, follower.ID, following.ID)
}

// Like records a like and bumps the post's counter.
func (f *Factory) Like(ctx context.Context, user *models.User, post *models.Post) (bool, error) {
	created, _, err := f.likes.Like(ctx, user.ID, post.ID)
	return created, err
}

// pick returns up to n distinct indexes in [0, size), never including skip.
func (f *Factory) pick(size, n, skip int) []int {
	candidates := make([]int, 0, size)
	for i := range size {
		if i != skip {
			candidates = append(candidates, i)
		}
	}
	for i := len(candidates) - 1; i > 0; i-- {
		j := f.fake.Number(0, i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	if n < len(candidates) {
		candidates = candidates[:n]
	}
	return candidates
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:limit]))
}
