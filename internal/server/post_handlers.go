package server

import (
	"io"
	"strings"

	"twitthon/internal/models"
	"twitthon/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postRequest struct {
	Content string `json:"content" form:"content"`
}

// updatePostRequest leaves Content nil when the key is absent.
type updatePostRequest struct {
	Content *string `json:"content"`
}

// CreatePost handles POST /api/v1/posts. It accepts JSON with content, or
// multipart form data with content and/or an image file.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.CreatePostInput{
		UserID:  currentUserID(c),
		Content: req.Content,
	}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		upload, err := readImageUpload(c)
		if err != nil {
			return respondError(c, err)
		}
		in.Image = upload
	}

	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(s.toPostResponse(c, post, false))
}

// readImageUpload returns the "image" form file, or nil when none was sent.
func readImageUpload(c *fiber.Ctx) (*service.UploadImageInput, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, nil
	}

	src, err := file.Open()
	if err != nil {
		return nil, models.NewValidationError("image: Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, models.NewValidationError("image: Unable to read uploaded file")
	}

	return &service.UploadImageInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

// UpdatePost handles PATCH /api/v1/posts/:id/edit. Only the author may edit.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req updatePostRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	post, err := s.postService.UpdatePost(ctx, service.UpdatePostInput{
		UserID:  userID,
		PostID:  postID,
		Content: req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}

	liked, err := s.postService.LikedBy(ctx, userID, []models.Post{*post})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.toPostResponse(c, post, liked[post.ID]))
}

// DeletePost handles DELETE /api/v1/posts/:id. Only the author may delete.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: currentUserID(c),
		PostID: postID,
	}); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// LikePost handles POST /api/v1/posts/:id/like. A repeat like leaves the
// counter alone and answers 200 instead of 201.
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.likeService.Like(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return respondError(c, err)
	}

	if !result.Changed {
		return c.JSON(fiber.Map{"message": "Already liked", "likes": result.Likes})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Post liked", "likes": result.Likes})
}

// UnlikePost handles DELETE /api/v1/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.likeService.Unlike(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post unliked", "likes": result.Likes})
}

// GetFeed handles GET /api/v1/users/feed: the caller's posts and those of
// everyone they follow, newest first.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page, err := s.parsePagination(c)
	if err != nil {
		return nil
	}

	posts, total, err := s.feedService.Feed(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}

	results, err := s.toPostResponses(c, posts)
	if err != nil {
		return respondError(c, err)
	}
	return writePage(c, page, total, results)
}
