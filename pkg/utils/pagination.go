package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PageSize is fixed; clients only choose the zero-based page index.
const PageSize = 20

type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

func NewPagination(page int) PaginationParams {
	if page < 0 {
		page = 0
	}
	return PaginationParams{
		Page:   page,
		Limit:  PageSize,
		Offset: page * PageSize,
	}
}

func ParsePagination(c *fiber.Ctx) PaginationParams {
	return NewPagination(parseIntDefault(c.Query("page"), 0))
}

func ApplyPagination(db *gorm.DB, p PaginationParams) *gorm.DB {
	return db.Offset(p.Offset).Limit(p.Limit)
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
