package handlers

import (
	"github.com/filesmanager/api/internal/middleware"
	"github.com/filesmanager/api/internal/services"
	"github.com/filesmanager/api/pkg/logger"
	"github.com/filesmanager/api/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Tokens *services.TokenService
}

func NewAuthHandler(tokens *services.TokenService) *AuthHandler {
	return &AuthHandler{Tokens: tokens}
}

type connectResponse struct {
	Token string `json:"token"`
}

// Connect exchanges Basic credentials for a session token.
func (h *AuthHandler) Connect(c *fiber.Ctx) error {
	email, password, ok := basicCredentials(c.Get(fiber.HeaderAuthorization))
	if !ok {
		logger.Warn("login_failed", map[string]interface{}{
			"ip":     c.IP(),
			"reason": "malformed_credentials",
		})
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	token, err := h.Tokens.Authenticate(c.UserContext(), email, password)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, connectResponse{Token: token})
}

func (h *AuthHandler) Disconnect(c *fiber.Ctx) error {
	if err := h.Tokens.Revoke(c.UserContext(), middleware.GetToken(c)); err != nil {
		return respondError(c, err)
	}

	if user := middleware.GetCurrentUser(c); user != nil {
		logger.InfoWithUser(user.ID.String(), "logout", map[string]interface{}{
			"ip": c.IP(),
		})
	}

	return utils.NoContent(c)
}
