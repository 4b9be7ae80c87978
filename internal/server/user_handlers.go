package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetUserInfo handles GET /api/v1/users/:identifier/info. The identifier
// is tried as a user id when numeric and as a username otherwise.
func (s *Server) GetUserInfo(c *fiber.Ctx) error {
	user, err := s.userService.Resolve(c.UserContext(), c.Params("identifier"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUserPosts handles GET /api/v1/users/:identifier/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page, err := s.parsePagination(c)
	if err != nil {
		return nil
	}

	author, err := s.userService.Resolve(ctx, c.Params("identifier"))
	if err != nil {
		return respondError(c, err)
	}

	posts, total, err := s.postService.ListByAuthor(ctx, author.ID, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}

	results, err := s.toPostResponses(c, posts)
	if err != nil {
		return respondError(c, err)
	}
	return writePage(c, page, total, results)
}

// GetFollowingStatus handles GET /api/v1/users/:identifier/following-status
func (s *Server) GetFollowingStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()
	target, err := s.userService.Resolve(ctx, c.Params("identifier"))
	if err != nil {
		return respondError(c, err)
	}

	following, err := s.followService.IsFollowing(ctx, currentUserID(c), target.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"is_following": following})
}
