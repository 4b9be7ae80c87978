package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "post ID", humanizeParam("postId"))
	assert.Equal(t, "username", humanizeParam("username"))
}

func TestWritePage(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := Pagination{Page: c.QueryInt("page", 1), Limit: 2}
		p.Offset = (p.Page - 1) * p.Limit
		return writePage(c, p, 5, []int{1, 2})
	})

	get := func(target string) (int, Page[int]) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		var body Page[int]
		if resp.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		}
		return resp.StatusCode, body
	}

	status, first := get("/items?sort=new")
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, first.Next)
	assert.Equal(t, "http://example.com/items?page=2&sort=new", *first.Next)
	assert.Nil(t, first.Previous)

	status, middle := get("/items?page=2&sort=new")
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, middle.Previous)
	assert.Equal(t, "http://example.com/items?sort=new", *middle.Previous)
	require.NotNil(t, middle.Next)

	status, last := get("/items?page=3")
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, last.Next)

	status, _ = get("/items?page=4")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWritePage_EmptyFirstPage(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		return writePage[int](c, Pagination{Page: 1, Limit: 10}, 0, nil)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body Page[int]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotNil(t, body.Results)
	assert.Empty(t, body.Results)
}
