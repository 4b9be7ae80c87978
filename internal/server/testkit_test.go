package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"twitthon/internal/models"
	"twitthon/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv is a full application backed by SQLite and miniredis.
type testEnv struct {
	t   *testing.T
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testutil.Config(t)
	db := testutil.NewDB(t, cfg)
	mr, rdb := testutil.NewRedis(t)

	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	return &testEnv{t: t, srv: srv, app: srv.NewApp(), db: db, mr: mr}
}

// do sends a JSON request (body may be nil) with an optional bearer token
// and returns the status and raw response body.
func (e *testEnv) do(method, path, token string, body any) (int, []byte) {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(req)
}

func (e *testEnv) send(req *http.Request) (int, []byte) {
	e.t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type registerResponse struct {
	User    models.User `json:"user"`
	Message string      `json:"message"`
}

type likeResponse struct {
	Message string `json:"message"`
	Likes   int    `json:"likes"`
}

// signup registers username and logs in, returning the user and tokens.
func (e *testEnv) signup(username string) (models.User, tokenPair) {
	e.t.Helper()

	status, raw := e.do(http.MethodPost, "/api/v1/users/register/", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "s3cret-pass",
	})
	require.Equal(e.t, http.StatusCreated, status, string(raw))
	reg := decode[registerResponse](e.t, raw)

	status, raw = e.do(http.MethodPost, "/api/v1/users/login/", "", map[string]string{
		"username": username,
		"password": "s3cret-pass",
	})
	require.Equal(e.t, http.StatusOK, status, string(raw))
	return reg.User, decode[tokenPair](e.t, raw)
}

// createPost publishes a text post as the token's owner.
func (e *testEnv) createPost(token, content string) PostResponse {
	e.t.Helper()
	status, raw := e.do(http.MethodPost, "/api/v1/posts/", token, map[string]string{"content": content})
	require.Equal(e.t, http.StatusCreated, status, string(raw))
	return decode[PostResponse](e.t, raw)
}

func (e *testEnv) storedPost(id uint) models.Post {
	e.t.Helper()
	var p models.Post
	require.NoError(e.t, e.db.First(&p, id).Error)
	return p
}
