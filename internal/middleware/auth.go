package middleware

import (
	"errors"
	"strings"

	"github.com/filesmanager/api/internal/models"
	"github.com/filesmanager/api/internal/services"
	"github.com/filesmanager/api/pkg/logger"
	"github.com/filesmanager/api/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const (
	currentUserKey = "currentUser"
	tokenKey       = "sessionToken"
	userIDKey      = "userID"
)

const TokenHeader = "X-Token"

type AuthMiddleware struct {
	Tokens *services.TokenService
	Users  *services.UserService
}

func NewAuthMiddleware(tokens *services.TokenService, users *services.UserService) *AuthMiddleware {
	return &AuthMiddleware{Tokens: tokens, Users: users}
}

func CORS(allowOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Token",
		AllowMethods: "GET,POST,PUT,OPTIONS",
	})
}

// tokenFromRequest reads X-Token, falling back to a bearer Authorization
// header.
func tokenFromRequest(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Get(TokenHeader)); token != "" {
		return token
	}
	authHeader := c.Get(fiber.HeaderAuthorization)
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	token := tokenFromRequest(c)
	if token == "" {
		logger.Warn("token_missing", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	user, err := a.resolveUser(c, token)
	if err != nil {
		if errors.Is(err, services.ErrServiceUnavailable) {
			logger.Error("token_resolve_failed", err, map[string]interface{}{
				"ip":   c.IP(),
				"path": c.Path(),
			})
			return utils.Error(c, fiber.StatusServiceUnavailable, "service unavailable")
		}
		logger.Warn("token_invalid", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	setCurrentUser(c, user, token)
	return c.Next()
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through otherwise. A token that cannot be checked
// because the session cache is down fails the request rather than
// downgrading the caller to anonymous.
func (a *AuthMiddleware) OptionalAuth(c *fiber.Ctx) error {
	token := tokenFromRequest(c)
	if token == "" {
		return c.Next()
	}

	user, err := a.resolveUser(c, token)
	if err != nil {
		if errors.Is(err, services.ErrServiceUnavailable) {
			logger.Error("token_resolve_failed", err, map[string]interface{}{
				"ip":   c.IP(),
				"path": c.Path(),
			})
			return utils.Error(c, fiber.StatusServiceUnavailable, "service unavailable")
		}
		return c.Next()
	}

	setCurrentUser(c, user, token)
	return c.Next()
}

// A token whose user no longer exists counts as unauthenticated.
func (a *AuthMiddleware) resolveUser(c *fiber.Ctx, token string) (*models.User, error) {
	userID, err := a.Tokens.Resolve(c.UserContext(), token)
	if err != nil {
		return nil, err
	}

	user, err := a.Users.Get(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, services.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

func setCurrentUser(c *fiber.Ctx, user *models.User, token string) {
	c.Locals(currentUserKey, user)
	c.Locals(userIDKey, user.ID.String())
	c.Locals(tokenKey, token)
}

func GetCurrentUser(c *fiber.Ctx) *models.User {
	value := c.Locals(currentUserKey)
	if value == nil {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetToken returns the session token the current request authenticated with.
func GetToken(c *fiber.Ctx) string {
	token, _ := c.Locals(tokenKey).(string)
	return token
}
