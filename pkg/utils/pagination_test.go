package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func parsePaginationForTest(t *testing.T, query string) PaginationParams {
	t.Helper()

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		params := ParsePagination(c)
		return c.JSON(fiber.Map{
			"page":   params.Page,
			"limit":  params.Limit,
			"offset": params.Offset,
		})
	})

	path := "/"
	if query != "" {
		path = fmt.Sprintf("/?%s", query)
	}

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("pagination request failed for query %q: %v", query, err)
	}
	defer resp.Body.Close()

	var parsed PaginationParams
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("failed to decode pagination response for query %q: %v", query, err)
	}

	return parsed
}

func TestParsePagination(t *testing.T) {
	testCases := []struct {
		name       string
		query      string
		wantPage   int
		wantOffset int
	}{
		{name: "defaults to first page", query: "", wantPage: 0, wantOffset: 0},
		{name: "second page skips twenty", query: "page=1", wantPage: 1, wantOffset: 20},
		{name: "later page", query: "page=4", wantPage: 4, wantOffset: 80},
		{name: "negative page normalized", query: "page=-3", wantPage: 0, wantOffset: 0},
		{name: "invalid page string", query: "page=abc", wantPage: 0, wantOffset: 0},
		{name: "limit cannot be overridden", query: "page=2&limit=500", wantPage: 2, wantOffset: 40},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := parsePaginationForTest(t, tc.query)

			if got.Page != tc.wantPage {
				t.Fatalf("expected page=%d, got %d", tc.wantPage, got.Page)
			}
			if got.Limit != PageSize {
				t.Fatalf("expected limit=%d, got %d", PageSize, got.Limit)
			}
			if got.Offset != tc.wantOffset {
				t.Fatalf("expected offset=%d, got %d", tc.wantOffset, got.Offset)
			}
		})
	}
}

func TestApplyPagination(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 user=test password=test dbname=test port=5432 sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("failed to create dry-run gorm db: %v", err)
	}

	params := NewPagination(1)
	paginatedDB := ApplyPagination(db.Table("files"), params)

	limitClause, ok := paginatedDB.Statement.Clauses["LIMIT"]
	if !ok {
		t.Fatal("expected LIMIT clause to be set by ApplyPagination")
	}

	limitExpr, ok := limitClause.Expression.(clause.Limit)
	if !ok {
		t.Fatalf("expected LIMIT clause expression type %T, got %T", clause.Limit{}, limitClause.Expression)
	}
	if limitExpr.Limit == nil || *limitExpr.Limit != 20 {
		t.Fatalf("expected limit=20, got %v", limitExpr.Limit)
	}
	if limitExpr.Offset != 20 {
		t.Fatalf("expected offset=20, got %d", limitExpr.Offset)
	}
}
