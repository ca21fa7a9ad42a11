package router

import (
	"github.com/filesmanager/api/internal/cache"
	"github.com/filesmanager/api/internal/config"
	"github.com/filesmanager/api/internal/handlers"
	"github.com/filesmanager/api/internal/middleware"
	"github.com/filesmanager/api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type Deps struct {
	Server config.ServerConfig
	DB     *gorm.DB
	Cache  *cache.RedisClient
	Tokens *services.TokenService
	Users  *services.UserService
	Files  *services.FileService
}

// New builds the HTTP application. Authentication is attached per route
// because the data route accepts anonymous readers of public records.
func New(deps Deps) *fiber.App {
	bodyLimit := deps.Server.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 50
	}
	allowOrigins := deps.Server.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "*"
	}

	authHandler := handlers.NewAuthHandler(deps.Tokens)
	usersHandler := handlers.NewUsersHandler(deps.Users)
	filesHandler := handlers.NewFilesHandler(deps.Files)
	appHandler := handlers.NewAppHandler(deps.DB, deps.Cache, deps.Users)

	authMiddleware := middleware.NewAuthMiddleware(deps.Tokens, deps.Users)
	requireAuth := authMiddleware.RequireAuth
	credentialLimiter := middleware.NewRateLimiter(rate.Limit(deps.Server.RateLimitRPS), deps.Server.RateLimitBurst).Handler()

	app := fiber.New(fiber.Config{BodyLimit: bodyLimit * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(allowOrigins))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Get("/version", handlers.GetVersion)
	api.Get("/status", appHandler.Status)
	api.Get("/stats", appHandler.Stats)

	api.Post("/users", credentialLimiter, usersHandler.Register)
	api.Get("/users/me", requireAuth, usersHandler.Me)

	api.Get("/connect", credentialLimiter, authHandler.Connect)
	api.Get("/disconnect", requireAuth, authHandler.Disconnect)

	api.Post("/files", requireAuth, filesHandler.Upload)
	api.Get("/files", requireAuth, filesHandler.List)
	api.Get("/files/:id/data", authMiddleware.OptionalAuth, filesHandler.Data)
	api.Get("/files/:id/thumbnails", requireAuth, filesHandler.ThumbnailStatus)
	api.Put("/files/:id/publish", requireAuth, filesHandler.Publish)
	api.Put("/files/:id/unpublish", requireAuth, filesHandler.Unpublish)
	api.Get("/files/:id", requireAuth, filesHandler.Get)

	return app
}
