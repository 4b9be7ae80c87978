package service

import (
	"context"
	"errors"
	"testing"

	"twitthon/internal/models"
	"twitthon/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService_Register(t *testing.T) {
	repo := noopUserRepo()
	var created *models.User
	repo.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 11
		created = u
		return nil
	}
	svc := NewUserService(repo)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "  alice ",
		Email:    "alice@example.com",
		Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(11), user.ID)
	assert.Equal(t, "alice", created.Username)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("pw")))
}

func TestUserService_Register_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		in     RegisterInput
		exists bool
	}{
		{"missing username", RegisterInput{Password: "pw"}, false},
		{"missing password", RegisterInput{Username: "alice"}, false},
		{"username with spaces", RegisterInput{Username: "al ice", Password: "pw"}, false},
		{"invalid email", RegisterInput{Username: "alice", Email: "x", Password: "pw"}, false},
		{"taken", RegisterInput{Username: "alice", Password: "pw"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopUserRepo()
			repo.existsByUsernameFn = func(context.Context, string) (bool, error) { return tt.exists, nil }
			repo.createFn = func(context.Context, *models.User) error {
				t.Fatal("create must not be called")
				return nil
			}

			_, err := NewUserService(repo).Register(context.Background(), tt.in)
			assertValidationError(t, err)
		})
	}
}

func TestUserService_Register_RaceOnCreate(t *testing.T) {
	repo := noopUserRepo()
	repo.createFn = func(context.Context, *models.User) error {
		return models.NewValidationError(repository.ErrUsernameTaken)
	}

	_, err := NewUserService(repo).Register(context.Background(), RegisterInput{Username: "alice", Password: "pw"})
	assertValidationError(t, err)
}

func TestUserService_Resolve(t *testing.T) {
	repo := noopUserRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		if id == 5 {
			return &models.User{ID: 5, Username: "five"}, nil
		}
		return nil, models.NewNotFoundError("User", id)
	}
	repo.getByUsernameFn = func(_ context.Context, username string) (*models.User, error) {
		switch username {
		case "alice":
			return &models.User{ID: 1, Username: "alice"}, nil
		case "42":
			return &models.User{ID: 9, Username: "42"}, nil
		}
		return nil, models.NewNotFoundError("User", username)
	}
	svc := NewUserService(repo)
	ctx := context.Background()

	u, err := svc.Resolve(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "five", u.Username)

	u, err = svc.Resolve(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint(1), u.ID)

	u, err = svc.Resolve(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, uint(9), u.ID)

	_, err = svc.Resolve(ctx, "ghost")
	assertAppError(t, err, models.CodeNotFound)

	_, err = svc.Resolve(ctx, " ")
	assertAppError(t, err, models.CodeNotFound)
}

func TestUserService_Resolve_PropagatesStorageErrors(t *testing.T) {
	boom := errors.New("db down")
	repo := noopUserRepo()
	repo.getByIDFn = func(context.Context, uint) (*models.User, error) { return nil, boom }

	_, err := NewUserService(repo).Resolve(context.Background(), "3")
	assert.ErrorIs(t, err, boom)
}
