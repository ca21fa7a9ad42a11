package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/filesmanager/api/internal/config"
	"github.com/filesmanager/api/internal/models"
	"github.com/filesmanager/api/pkg/logger"
	"github.com/filesmanager/api/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const sessionKeyPrefix = "auth_"

// SessionCache is the subset of the Redis client the token service needs.
type SessionCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type TokenService struct {
	DB    *gorm.DB
	Cache SessionCache
	TTL   time.Duration
}

func NewTokenService(db *gorm.DB, cache SessionCache, ttl time.Duration) *TokenService {
	if ttl <= 0 || ttl > config.MaxSessionTTL {
		ttl = config.MaxSessionTTL
	}
	return &TokenService{DB: db, Cache: cache, TTL: ttl}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// Authenticate checks the credentials and issues a fresh token bound to the
// user. Unknown email and wrong password are indistinguishable to callers.
func (s *TokenService) Authenticate(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("login_failed", map[string]interface{}{
				"email":  email,
				"reason": "user_not_found",
			})
			return "", ErrInvalidCredentials
		}
		return "", unavailable("lookup user", err)
	}

	if !utils.CheckPassword(password, user.PasswordHash) {
		logger.WarnWithUser(user.ID.String(), "login_failed", map[string]interface{}{
			"email":  email,
			"reason": "invalid_password",
		})
		return "", ErrInvalidCredentials
	}

	token := uuid.New().String()
	if err := s.Cache.Set(ctx, sessionKey(token), user.ID.String(), s.TTL); err != nil {
		return "", unavailable("store session", err)
	}

	logger.InfoWithUser(user.ID.String(), "login_success", map[string]interface{}{
		"email":       email,
		"ttl_seconds": int(s.TTL.Seconds()),
	})

	return token, nil
}

// Resolve returns the id of the user the token was issued to.
func (s *TokenService) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, ErrUnauthenticated
	}

	value, ok, err := s.Cache.Get(ctx, sessionKey(token))
	if err != nil {
		return uuid.Nil, unavailable("read session", err)
	}
	if !ok {
		return uuid.Nil, ErrUnauthenticated
	}

	userID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, ErrUnauthenticated
	}
	return userID, nil
}

// Revoke deletes the session. Revoking an unknown token is not an error.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if err := s.Cache.Del(ctx, sessionKey(token)); err != nil {
		return unavailable("delete session", err)
	}
	return nil
}
