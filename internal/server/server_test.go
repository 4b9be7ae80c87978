package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"twitthon/internal/models"
	"twitthon/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerWithDeps_RequiresDB(t *testing.T) {
	_, err := NewServerWithDeps(testutil.Config(t), nil, nil)
	assert.Error(t, err)

	_, err = NewServerWithDeps(nil, nil, nil)
	assert.Error(t, err)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	status, raw := env.do(http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", decode[map[string]any](t, raw)["status"])

	status, raw = env.do(http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	body := decode[map[string]any](t, raw)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "healthy", checks["redis"])
}

func TestReadiness_DatabaseDown(t *testing.T) {
	env := newTestEnv(t)
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	status, _ := env.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name        string
		origin      string
		allowOrigin string
	}{
		{"allowed origin", "http://localhost:5173", "http://localhost:5173"},
		{"foreign origin", "https://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/login/", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)

			resp, err := env.app.Test(req, -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.allowOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRequestLimiter(t *testing.T) {
	cfg := testutil.Config(t)
	cfg.Env = "production-like"
	db := testutil.NewDB(t, cfg)
	_, rdb := testutil.NewRedis(t)

	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	app := srv.NewApp()

	limited := false
	for range 101 {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil), -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/health/live", "", nil)

	status, raw := env.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "http_requests_total")
}

func TestCredentialRateLimits_FollowConfiguredEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")

	login := func(app *fiber.App) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login/",
			strings.NewReader(`{"username":"ghost","password":"nope"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	t.Run("production counts in redis", func(t *testing.T) {
		cfg := testutil.Config(t)
		cfg.Env = "production"
		_, rdb := testutil.NewRedis(t)
		srv, err := NewServerWithDeps(cfg, testutil.NewDB(t, cfg), rdb)
		require.NoError(t, err)
		app := srv.NewApp()

		for i := 0; i < 10; i++ {
			require.Equal(t, http.StatusUnauthorized, login(app))
		}
		assert.Equal(t, http.StatusTooManyRequests, login(app))
	})

	t.Run("production without redis fails closed", func(t *testing.T) {
		cfg := testutil.Config(t)
		cfg.Env = "production"
		srv, err := NewServerWithDeps(cfg, testutil.NewDB(t, cfg), nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusServiceUnavailable, login(srv.NewApp()))
	})
}

func TestInternalErrorDetails_FollowConfiguredEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")

	for _, env := range []string{"test", "production"} {
		cfg := testutil.Config(t)
		cfg.Env = env
		srv, err := NewServerWithDeps(cfg, testutil.NewDB(t, cfg), nil)
		require.NoError(t, err)
		app := srv.NewApp()
		app.Get("/boom", func(*fiber.Ctx) error { return errors.New("disk on fire") })

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
		require.NoError(t, err)
		var body models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, env)
		if env == "production" {
			assert.Empty(t, body.Details)
		} else {
			assert.Equal(t, "disk on fire", body.Details)
		}
	}
}
