package server

import (
	"errors"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"twitthon/internal/middleware"
	"twitthon/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const msgInvalidPage = "Invalid page."

// Page is the list envelope shared by every paginated endpoint.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Pagination is the window selected by the ?page= query parameter.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// PostResponse is the serialised form of a post.
type PostResponse struct {
	ID        uint      `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
	Liked     bool      `json:"liked"`
}

// respondError writes err with the status its AppError code implies.
// Internal errors are logged with the request context first.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code == models.CodeInternal {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.Respond(c, err)
}

// currentUserID returns the authenticated user set by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if prefix, ok := strings.CutSuffix(param, "Id"); ok {
		return strings.ToLower(prefix) + " ID"
	}
	return param
}

// parsePagination reads ?page= (default 1). A value that is not a positive
// integer writes 404 and returns errResponseWritten.
func (s *Server) parsePagination(c *fiber.Ctx) (Pagination, error) {
	size := s.config.PageSize
	if size <= 0 {
		size = 10
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			_ = invalidPage(c)
			return Pagination{}, errResponseWritten
		}
		page = n
	}

	return Pagination{Page: page, Limit: size, Offset: (page - 1) * size}, nil
}

// writePage sends results in the list envelope. A page past the last one
// is 404; page 1 of an empty list is not.
func writePage[T any](c *fiber.Ctx, p Pagination, total int64, results []T) error {
	lastPage := max(1, int(math.Ceil(float64(total)/float64(p.Limit))))
	if p.Page > lastPage {
		return invalidPage(c)
	}

	env := Page[T]{Count: total, Results: results}
	if env.Results == nil {
		env.Results = []T{}
	}
	if p.Page < lastPage {
		next := pageURL(c, p.Page+1)
		env.Next = &next
	}
	if p.Page > 1 {
		prev := pageURL(c, p.Page-1)
		env.Previous = &prev
	}
	return c.JSON(env)
}

func invalidPage(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusNotFound, &models.AppError{
		Code:    models.CodeNotFound,
		Message: msgInvalidPage,
	})
}

// pageURL rebuilds the request URL for another page, keeping the other
// query parameters. Page 1 drops the parameter entirely.
func pageURL(c *fiber.Ctx, page int) string {
	q, _ := url.ParseQuery(string(c.Request().URI().QueryString()))
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}

	u := c.BaseURL() + c.Path()
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// mediaURL returns the absolute URL for a stored image, or nil.
func (s *Server) mediaURL(c *fiber.Ctx, rel string) *string {
	if rel == "" {
		return nil
	}
	base := s.config.MediaURL
	if base == "" {
		base = "/media"
	}
	u := c.BaseURL() + strings.TrimRight(base, "/") + "/" + strings.TrimLeft(rel, "/")
	return &u
}

func (s *Server) toPostResponse(c *fiber.Ctx, post *models.Post, liked bool) PostResponse {
	return PostResponse{
		ID:        post.ID,
		Author:    post.User.Username,
		Content:   post.Content,
		Image:     s.mediaURL(c, post.Image),
		CreatedAt: post.CreatedAt,
		Likes:     post.Likes,
		Liked:     liked,
	}
}

// toPostResponses serialises posts with the caller's liked flags.
func (s *Server) toPostResponses(c *fiber.Ctx, posts []models.Post) ([]PostResponse, error) {
	liked, err := s.postService.LikedBy(c.UserContext(), currentUserID(c), posts)
	if err != nil {
		return nil, err
	}
	out := make([]PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, s.toPostResponse(c, &posts[i], liked[posts[i].ID]))
	}
	return out, nil
}
