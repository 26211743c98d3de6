package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"backend-queueflex/internal/models"
)

// Authenticator checks credentials and issues a token.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (models.LoginResponse, error)
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(a Authenticator) *AuthHandler {
	return &AuthHandler{auth: a}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	resp, err := h.auth.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "login successful",
		"data":    resp,
	})
}

// Logout is stateless; clients drop their token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": "logout successful",
	})
}
