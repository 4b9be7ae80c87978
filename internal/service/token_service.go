package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"twitthon/internal/cache"
	"twitthon/internal/config"
	"twitthon/internal/middleware"
	"twitthon/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TokenIssuer   = "twitthon-api"
	TokenAudience = "twitthon-client"

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the JWT payload for both access and refresh tokens.
type TokenClaims struct {
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *TokenClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid subject claim")
	}
	return uint(id), nil
}

// TokenPair is what a successful login returns.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenService issues and verifies HS256 JWTs. Revocations live in Redis
// under blacklist:<jti>; with no Redis client revocation is disabled.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	redis      *redis.Client
	now        func() time.Time
}

var _ middleware.AccessTokenVerifier = (*TokenService)(nil)

func NewTokenService(cfg *config.Config, rdb *redis.Client) *TokenService {
	return &TokenService{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL(),
		refreshTTL: cfg.RefreshTokenTTL(),
		redis:      rdb,
		now:        time.Now,
	}
}

// IssuePair signs a fresh access and refresh token for user.
func (s *TokenService) IssuePair(user *models.User) (*TokenPair, error) {
	access, err := s.issue(user, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issue(user, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// IssueAccess signs an access token for the subject of a refresh token.
func (s *TokenService) IssueAccess(claims *TokenClaims) (string, error) {
	id, err := claims.UserID()
	if err != nil {
		return "", err
	}
	return s.issue(&models.User{ID: id, Username: claims.Username}, TokenTypeAccess, s.accessTTL)
}

func (s *TokenService) issue(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}

	now := s.now()
	claims := TokenClaims{
		Username:  user.Username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse verifies signature, issuer, audience, expiry, token type and
// revocation. Every failure is an UNAUTHORIZED app error.
func (s *TokenService) Parse(ctx context.Context, raw, wantType string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, models.NewUnauthorizedError("Token is invalid or expired")
	}
	if claims.TokenType != wantType {
		return nil, models.NewUnauthorizedError("Token has wrong type")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, models.NewUnauthorizedError("Token is invalid or expired")
	}

	revoked, err := s.isRevoked(ctx, claims.ID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "revocation check failed", "error", err)
	}
	if revoked {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}
	return claims, nil
}

// VerifyAccessToken implements middleware.AccessTokenVerifier.
func (s *TokenService) VerifyAccessToken(ctx context.Context, raw string) (uint, error) {
	claims, err := s.Parse(ctx, raw, TokenTypeAccess)
	if err != nil {
		return 0, err
	}
	return claims.UserID()
}

// Revoke blacklists the token's jti until the token would have expired
// anyway. It reports false when no Redis client is configured.
func (s *TokenService) Revoke(ctx context.Context, claims *TokenClaims) (bool, error) {
	if s.redis == nil || claims.ID == "" {
		return false, nil
	}

	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return true, nil
	}

	if err := s.redis.Set(ctx, cache.RevokedTokenKey(claims.ID), "1", ttl).Err(); err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return true, nil
}

func (s *TokenService) isRevoked(ctx context.Context, jti string) (bool, error) {
	if s.redis == nil || jti == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, cache.RevokedTokenKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
