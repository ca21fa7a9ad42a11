package services

import (
	"context"
	"errors"
	"strings"

	"github.com/filesmanager/api/internal/models"
	"github.com/filesmanager/api/pkg/logger"
	"github.com/filesmanager/api/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, missingField("email")
	}
	if password == "" {
		return nil, missingField("password")
	}

	db := s.DB.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, unavailable("check email", err)
	}
	if count > 0 {
		return nil, ErrAlreadyExists
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Email: email, PasswordHash: hash}
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, unavailable("create user", err)
	}

	logger.InfoWithUser(user.ID.String(), "user_registered", map[string]interface{}{
		"email": email,
	})

	return user, nil
}

func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("load user", err)
	}
	return &user, nil
}

type Stats struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

func (s *UserService) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	db := s.DB.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&stats.Users).Error; err != nil {
		return Stats{}, unavailable("count users", err)
	}
	if err := db.Model(&models.File{}).Count(&stats.Files).Error; err != nil {
		return Stats{}, unavailable("count files", err)
	}
	return stats, nil
}

// The race between the existence check and the insert surfaces as a unique
// index violation, whose text differs per driver.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
