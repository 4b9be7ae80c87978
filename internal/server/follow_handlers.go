package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// FollowUser handles POST /api/v1/users/:username/follow. Following an
// account twice is not an error; the second call reports 200.
func (s *Server) FollowUser(c *fiber.Ctx) error {
	result, err := s.followService.Follow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}

	if !result.Created {
		return c.JSON(fiber.Map{
			"message": fmt.Sprintf("You are already following %s", result.Target.Username),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": fmt.Sprintf("You are now following %s", result.Target.Username),
	})
}

// UnfollowUser handles DELETE /api/v1/users/:username/follow
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	target, err := s.followService.Unfollow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("You have unfollowed %s", target.Username),
	})
}

// ListFollows handles GET /api/v1/users/follows
func (s *Server) ListFollows(c *fiber.Ctx) error {
	page, err := s.parsePagination(c)
	if err != nil {
		return nil
	}

	users, total, err := s.followService.ListFollowing(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return writePage(c, page, total, users)
}
