package handlers

import (
	"github.com/filesmanager/api/internal/middleware"
	"github.com/filesmanager/api/internal/services"
	"github.com/filesmanager/api/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FilesHandler struct {
	Files *services.FileService
}

func NewFilesHandler(files *services.FileService) *FilesHandler {
	return &FilesHandler{Files: files}
}

type uploadRequest struct {
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Data     string     `json:"data"`
	ParentID flexibleID `json:"parentId"`
	IsPublic bool       `json:"isPublic"`
}

func (h *FilesHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req uploadRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	entry, err := h.Files.Create(c.UserContext(), currentUser.ID, services.CreateFileInput{
		Name:     req.Name,
		Type:     req.Type,
		Data:     req.Data,
		ParentID: string(req.ParentID),
		IsPublic: req.IsPublic,
	})
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, entry)
}

func (h *FilesHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	entry, err := h.Files.Get(c.UserContext(), currentUser.ID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, entry)
}

func (h *FilesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	pagination := utils.ParsePagination(c)
	files, err := h.Files.List(c.UserContext(), currentUser.ID, c.Query("parentId"), pagination.Page)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, files)
}

func (h *FilesHandler) Publish(c *fiber.Ctx) error {
	return h.setVisibility(c, true)
}

func (h *FilesHandler) Unpublish(c *fiber.Ctx) error {
	return h.setVisibility(c, false)
}

func (h *FilesHandler) setVisibility(c *fiber.Ctx, isPublic bool) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	entry, err := h.Files.SetVisibility(c.UserContext(), currentUser.ID, c.Params("id"), isPublic)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, entry)
}

// Data streams a record's content, or a thumbnail when ?size= is given.
// Public records need no token.
func (h *FilesHandler) Data(c *fiber.Ctx) error {
	requesterID := uuid.Nil
	if currentUser := middleware.GetCurrentUser(c); currentUser != nil {
		requesterID = currentUser.ID
	}

	content, err := h.Files.Read(c.UserContext(), c.Params("id"), c.Query("size"), requesterID)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, content.ContentType)
	return c.Status(fiber.StatusOK).SendStream(content.Reader, int(content.Size))
}

func (h *FilesHandler) ThumbnailStatus(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	state, err := h.Files.ThumbnailStatus(c.UserContext(), currentUser.ID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if state == nil {
		return utils.Error(c, fiber.StatusNotFound, "Not found")
	}

	return utils.Success(c, fiber.StatusOK, state)
}
