package seed

import (
	"context"
	"fmt"
	"log"

	"twitthon/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the fake-data seeder.
type Options struct {
	NumUsers     int
	PostsPerUser int
	// MaxFollows and MaxLikes cap the random follows per user and likes per
	// post.
	MaxFollows int
	MaxLikes   int
	MaxDays    int
	Password   string
	BcryptCost int
	Clean      bool
	RandSeed   int64
}

func (o Options) withDefaults() Options {
	if o.MaxDays <= 0 {
		o.MaxDays = 30
	}
	if o.Password == "" {
		o.Password = DefaultPassword
	}
	if o.BcryptCost == 0 {
		o.BcryptCost = bcrypt.DefaultCost
	}
	return o
}

// Summary counts what a seeding run created.
type Summary struct {
	Users   int
	Posts   int
	Follows int
	Likes   int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users, %d posts, %d follows, %d likes", s.Users, s.Posts, s.Follows, s.Likes)
}

// Seed populates the database with fake users, posts, follows and likes.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	f := NewFactory(db, opts)
	log.Printf("seeding %d users with %d posts each", opts.NumUsers, opts.PostsPerUser)

	if opts.Clean {
		if err := Clean(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	sum := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for range opts.NumUsers {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return sum, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, u)
		sum.Users++
	}

	posts := make([]*models.Post, 0, len(users)*opts.PostsPerUser)
	for _, u := range users {
		for range opts.PostsPerUser {
			posts = append(posts, f.BuildPost(u))
		}
	}
	if err := f.CreatePostsBatch(ctx, posts); err != nil {
		return sum, fmt.Errorf("failed to create posts: %w", err)
	}
	sum.Posts = len(posts)

	for i, u := range users {
		for _, j := range f.pick(len(users), f.fake.Number(0, opts.MaxFollows), i) {
			created, err := f.Follow(ctx, u, users[j])
			if err != nil {
				return sum, fmt.Errorf("failed to create follow: %w", err)
			}
			if created {
				sum.Follows++
			}
		}
	}

	for _, p := range posts {
		for _, j := range f.pick(len(users), f.fake.Number(0, opts.MaxLikes), -1) {
			created, err := f.Like(ctx, users[j], p)
			if err != nil {
				return sum, fmt.Errorf("failed to create like: %w", err)
			}
			if created {
				sum.Likes++
			}
		}
	}

	log.Printf("seeding completed: %s", sum)
	return sum, nil
}

// Clean removes every like, follow, post and user, children first.
func Clean(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, m := range []any{&models.Like{}, &models.Follow{}, &models.Post{}, &models.User{}} {
			if err := all.Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
