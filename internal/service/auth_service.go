package service

import (
	"context"

	"twitthon/internal/middleware"
	"twitthon/internal/models"
	"twitthon/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// invalidCredentials is returned for unknown users and wrong passwords alike.
const invalidCredentials = "No active account found with the given credentials"

// dummyHash keeps the unknown-user path doing the same bcrypt work.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("twitthon-dummy-password"), bcrypt.DefaultCost)

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *TokenService
}

func NewAuthService(userRepo repository.UserRepository, tokens *TokenService) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	if username == "" || password == "" {
		return nil, models.NewValidationError("username and password are required")
	}

	user, err := s.userRepo.GetCredentials(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, models.NewUnauthorizedError(invalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError(invalidCredentials)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (string, error) {
	if refresh == "" {
		return "", models.NewValidationError("refresh: This field is required.")
	}
	claims, err := s.tokens.Parse(ctx, refresh, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	access, err := s.tokens.IssueAccess(claims)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return access, nil
}

// Logout revokes the refresh token. Without Redis it succeeds as a no-op.
func (s *AuthService) Logout(ctx context.Context, refresh string) error {
	if refresh == "" {
		return models.NewValidationError("refresh: This field is required.")
	}
	claims, err := s.tokens.Parse(ctx, refresh, TokenTypeRefresh)
	if err != nil {
		return err
	}

	revoked, err := s.tokens.Revoke(ctx, claims)
	if err != nil {
		return models.NewInternalError(err)
	}
	if !revoked {
		middleware.Logger.WarnContext(ctx, "logout without revocation store", "jti", claims.ID)
	}
	return nil
}
