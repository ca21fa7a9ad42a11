package handlers

import (
	"github.com/filesmanager/api/internal/cache"
	"github.com/filesmanager/api/internal/database"
	"github.com/filesmanager/api/internal/services"
	"github.com/filesmanager/api/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Version is the server version, injected at build time:
//
//	go build -ldflags "-X github.com/filesmanager/api/internal/handlers.Version=1.2.3"
var Version = "dev"

const apiVersion = "v1"

type versionResponse struct {
	Version    string `json:"version"`
	APIVersion string `json:"apiVersion"`
}

func GetVersion(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, versionResponse{
		Version:    Version,
		APIVersion: apiVersion,
	})
}

type AppHandler struct {
	DB    *gorm.DB
	Cache *cache.RedisClient
	Users *services.UserService
}

func NewAppHandler(db *gorm.DB, cacheClient *cache.RedisClient, users *services.UserService) *AppHandler {
	return &AppHandler{DB: db, Cache: cacheClient, Users: users}
}

type statusResponse struct {
	Redis bool `json:"redis"`
	DB    bool `json:"db"`
}

func (h *AppHandler) Status(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, statusResponse{
		Redis: h.Cache.IsAlive(c.UserContext()),
		DB:    database.Ping(h.DB),
	})
}

func (h *AppHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.Users.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, stats)
}
