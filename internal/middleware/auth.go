package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AccessTokenVerifier resolves a raw access token to the user it was issued for.
type AccessTokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (uint, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// AuthRequired rejects requests without a valid access token. On success the
// user ID is stored in c.Locals("userID") and on the user context.
func AuthRequired(verifier AccessTokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return unauthorized(c, "Authentication credentials were not provided")
		}

		token, ok := BearerToken(c)
		if !ok {
			return unauthorized(c, "Invalid authorization header format")
		}

		userID, err := verifier.VerifyAccessToken(c.UserContext(), token)
		if err != nil {
			return unauthorized(c, "Given token not valid for any token type")
		}

		c.Locals("userID", userID)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
		"code":  "UNAUTHORIZED",
	})
}
