package server

import (
	"twitthon/internal/models"
	"twitthon/internal/service"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Register handles POST /api/v1/users/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":    user,
		"message": "User created successfully",
	})
}

// Login handles POST /api/v1/users/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	pair, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pair)
}

// Refresh handles POST /api/v1/token/refresh
func (s *Server) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	access, err := s.authService.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"access": access})
}

// Logout handles POST /api/v1/users/logout. The refresh token is revoked
// until it would have expired.
func (s *Server) Logout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.authService.Logout(c.UserContext(), req.Refresh); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Successfully logged out"})
}
