package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"twitthon/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixture is a hand-written data set. Posts are referenced by Key from
// likes; users by username everywhere.
//
//	users:
//	  - username: alice
//	    password: secret
//	posts:
//	  - key: hello
//	    author: alice
//	    content: Hello world
//	follows:
//	  - follower: bob
//	    following: alice
//	likes:
//	  - user: bob
//	    post: hello
type Fixture struct {
	Users   []FixtureUser   `yaml:"users"`
	Posts   []FixturePost   `yaml:"posts"`
	Follows []FixtureFollow `yaml:"follows"`
	Likes   []FixtureLike   `yaml:"likes"`
}

type FixtureUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type FixturePost struct {
	Key     string `yaml:"key"`
	Author  string `yaml:"author"`
	Content string `yaml:"content"`
}

type FixtureFollow struct {
	Follower  string `yaml:"follower"`
	Following string `yaml:"following"`
}

type FixtureLike struct {
	User string `yaml:"user"`
	Post string `yaml:"post"`
}

// LoadFixture reads and validates a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(raw)
}

// ParseFixture decodes a YAML fixture, rejecting unknown fields and
// dangling references.
func ParseFixture(raw []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (fx *Fixture) validate() error {
	users := make(map[string]struct{}, len(fx.Users))
	for _, u := range fx.Users {
		if u.Username == "" {
			return errors.New("fixture: user without username")
		}
		if _, dup := users[u.Username]; dup {
			return fmt.Errorf("fixture: duplicate user %q", u.Username)
		}
		users[u.Username] = struct{}{}
	}

	posts := make(map[string]struct{}, len(fx.Posts))
	for _, p := range fx.Posts {
		if _, ok := users[p.Author]; !ok {
			return fmt.Errorf("fixture: post %q by unknown user %q", p.Key, p.Author)
		}
		if p.Key == "" {
			continue
		}
		if _, dup := posts[p.Key]; dup {
			return fmt.Errorf("fixture: duplicate post key %q", p.Key)
		}
		posts[p.Key] = struct{}{}
	}

	for _, f := range fx.Follows {
		if _, ok := users[f.Follower]; !ok {
			return fmt.Errorf("fixture: follow from unknown user %q", f.Follower)
		}
		if _, ok := users[f.Following]; !ok {
			return fmt.Errorf("fixture: follow of unknown user %q", f.Following)
		}
	}

	for _, l := range fx.Likes {
		if _, ok := users[l.User]; !ok {
			return fmt.Errorf("fixture: like by unknown user %q", l.User)
		}
		if _, ok := posts[l.Post]; !ok {
			return fmt.Errorf("fixture: like of unknown post %q", l.Post)
		}
	}
	return nil
}

// Apply writes the fixture through the same repositories the API uses, so
// self-follows are rejected and like counters stay in step.
func Apply(ctx context.Context, db *gorm.DB, fx *Fixture, opts Options) (*Summary, error) {
	f := NewFactory(db, opts)
	sum := &Summary{}

	users := make(map[string]*models.User, len(fx.Users))
	for _, fu := range fx.Users {
		hash, err := f.passwordHash(fu.Password)
		if err != nil {
			return sum, err
		}
		u := &models.User{Username: fu.Username, Email: fu.Email, Password: hash}
		if err := f.users.Create(ctx, u); err != nil {
			return sum, fmt.Errorf("user %q: %w", fu.Username, err)
		}
		users[u.Username] = u
		sum.Users++
	}

	posts := make(map[string]*models.Post, len(fx.Posts))
	for _, fp := range fx.Posts {
		p := &models.Post{UserID: users[fp.Author].ID, Content: fp.Content}
		if err := f.CreatePostsBatch(ctx, []*models.Post{p}); err != nil {
			return sum, fmt.Errorf("post %q: %w", fp.Key, err)
		}
		if fp.Key != "" {
			posts[fp.Key] = p
		}
		sum.Posts++
	}

	for _, ff := range fx.Follows {
		created, err := f.Follow(ctx, users[ff.Follower], users[ff.Following])
		if err != nil {
			return sum, fmt.Errorf("follow %s -> %s: %w", ff.Follower, ff.Following, err)
		}
		if created {
			sum.Follows++
		}
	}

	for _, fl := range fx.Likes {
		created, err := f.Like(ctx, users[fl.User], posts[fl.Post])
		if err != nil {
			return sum, fmt.Errorf("like %s -> %s: %w", fl.User, fl.Post, err)
		}
		if created {
			sum.Likes++
		}
	}

	return sum, nil
}
