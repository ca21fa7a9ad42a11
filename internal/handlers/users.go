package handlers

import (
	"github.com/filesmanager/api/internal/middleware"
	"github.com/filesmanager/api/internal/models"
	"github.com/filesmanager/api/internal/services"
	"github.com/filesmanager/api/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type UsersHandler struct {
	Users *services.UserService
}

func NewUsersHandler(users *services.UserService) *UsersHandler {
	return &UsersHandler{Users: users}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{ID: user.ID.String(), Email: user.Email}
}

func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.Users.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, toUserResponse(user))
}

func (h *UsersHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, toUserResponse(user))
}
