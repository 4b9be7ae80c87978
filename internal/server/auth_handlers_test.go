package server

import (
	"net/http"
	"strings"
	"testing"

	"twitthon/internal/cache"
	"twitthon/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	status, raw := env.do(http.MethodPost, "/api/v1/users/register/", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "pw",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))

	reg := decode[registerResponse](t, raw)
	assert.Equal(t, "User created successfully", reg.Message)
	assert.Equal(t, "alice", reg.User.Username)
	assert.NotZero(t, reg.User.ID)
	assert.NotContains(t, string(raw), "password")

	var stored models.User
	require.NoError(t, env.db.Where("username = ?", "alice").First(&stored).Error)
	assert.NotEqual(t, "pw", stored.Password)
	assert.Contains(t, stored.Password, "$2a$")
}

func TestRegister_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.signup("alice")

	var before int64
	env.db.Model(&models.User{}).Count(&before)

	status, raw := env.do(http.MethodPost, "/api/v1/users/register/", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	body := decode[models.ErrorResponse](t, raw)
	assert.Equal(t, "A user with that username already exists.", body.Error)

	var after int64
	env.db.Model(&models.User{}).Count(&after)
	assert.Equal(t, before, after)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing username", map[string]string{"password": "pw"}},
		{"missing password", map[string]string{"username": "bob"}},
		{"bad username", map[string]string{"username": "bob smith", "password": "pw"}},
		{"bad email", map[string]string{"username": "bob", "email": "nope", "password": "pw"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := env.do(http.MethodPost, "/api/v1/users/register/", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, status, string(raw))
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signup("alice")

	t.Run("wrong password", func(t *testing.T) {
		status, _ := env.do(http.MethodPost, "/api/v1/users/login/", "", map[string]string{
			"username": "alice", "password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("unknown user", func(t *testing.T) {
		status, _ := env.do(http.MethodPost, "/api/v1/users/login/", "", map[string]string{
			"username": "ghost", "password": "s3cret-pass",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("success", func(t *testing.T) {
		status, raw := env.do(http.MethodPost, "/api/v1/users/login/", "", map[string]string{
			"username": "alice", "password": "s3cret-pass",
		})
		require.Equal(t, http.StatusOK, status)
		pair := decode[tokenPair](t, raw)
		assert.NotEmpty(t, pair.Access)
		assert.NotEmpty(t, pair.Refresh)
	})
}

func TestRefreshAndLogout(t *testing.T) {
	env := newTestEnv(t)
	_, pair := env.signup("alice")

	status, raw := env.do(http.MethodPost, "/api/v1/token/refresh/", "", map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, status, string(raw))
	access := decode[map[string]string](t, raw)["access"]
	require.NotEmpty(t, access)

	status, _ = env.do(http.MethodGet, "/api/v1/users/feed/", access, nil)
	assert.Equal(t, http.StatusOK, status)

	t.Run("access token rejected at refresh", func(t *testing.T) {
		status, _ := env.do(http.MethodPost, "/api/v1/token/refresh/", "", map[string]string{"refresh": pair.Access})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("refresh token rejected as access", func(t *testing.T) {
		status, _ := env.do(http.MethodGet, "/api/v1/users/feed/", pair.Refresh, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("missing refresh", func(t *testing.T) {
		status, _ := env.do(http.MethodPost, "/api/v1/token/refresh/", "", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("garbage refresh", func(t *testing.T) {
		status, _ := env.do(http.MethodPost, "/api/v1/token/refresh/", "", map[string]string{"refresh": "not-a-jwt"})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("revoked after logout", func(t *testing.T) {
		status, _ := env.do(http.MethodPost, "/api/v1/users/logout/", "", map[string]string{"refresh": pair.Refresh})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, 1, countRevoked(env))

		status, _ = env.do(http.MethodPost, "/api/v1/token/refresh/", "", map[string]string{"refresh": pair.Refresh})
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func countRevoked(env *testEnv) int {
	n := 0
	for _, k := range env.mr.Keys() {
		if strings.HasPrefix(k, cache.RevokedTokenKey("")) {
			n++
		}
	}
	return n
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/users/feed/", "/api/v1/users/follows/", "/api/v1/users/1/info/"} {
		status, _ := env.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)

		status, _ = env.do(http.MethodGet, path, "bogus", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}
}
