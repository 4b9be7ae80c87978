package service

import (
	"context"
	"strconv"
	"strings"

	"twitthon/internal/cache"
	"twitthon/internal/models"
	"twitthon/internal/observability"
	"twitthon/internal/repository"
	"twitthon/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo repository.UserRepository
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"omitempty,max=254,email"`
	Password string `json:"password" validate:"required"`
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := validation.ValidateStruct(&in); err != nil {
		observability.RecordSocialEvent("register", "invalid")
		return nil, err
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		observability.RecordSocialEvent("register", "duplicate")
		return nil, models.NewValidationError(repository.ErrUsernameTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
	}
	// Create maps a unique violation from a concurrent insert to the
	// same validation error as the pre-check above.
	if err := s.userRepo.Create(ctx, user); err != nil {
		if models.IsCode(err, models.CodeValidation) {
			observability.RecordSocialEvent("register", "duplicate")
		}
		return nil, err
	}

	cache.InvalidateUser(ctx, user.ID, user.Username)
	observability.RecordSocialEvent("register", "created")
	return user, nil
}

// Resolve looks an identifier up as a user id first when it is numeric and
// falls back to treating it as a username.
func (s *UserService) Resolve(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, models.NewNotFoundError("User", identifier)
	}

	if id, err := strconv.ParseUint(identifier, 10, 32); err == nil && id > 0 {
		user, err := s.userRepo.GetByID(ctx, uint(id))
		if err == nil {
			return user, nil
		}
		if !models.IsCode(err, models.CodeNotFound) {
			return nil, err
		}
	}
	return s.userRepo.GetByUsername(ctx, identifier)
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}
