package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/filesmanager/api/internal/cache"
	"github.com/filesmanager/api/internal/middleware"
	"github.com/filesmanager/api/internal/models"
	"github.com/filesmanager/api/internal/queue"
	"github.com/filesmanager/api/internal/services"
	"github.com/filesmanager/api/internal/storage"
	"github.com/filesmanager/api/pkg/logger"
	"github.com/filesmanager/api/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	mr     *miniredis.Miniredis
	store  *storage.LocalStore
	queue  *queue.Queue
	tokens *services.TokenService
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.SetOutput(io.Discard)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(&models.User{}, &models.File{}); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cacheClient := cache.NewFromClient(client)

	store := storage.NewLocalStore(t.TempDir())
	thumbnailQueue := queue.New(client, "thumbnails", queue.Options{PollTimeout: time.Second})

	tokenService := services.NewTokenService(db, cacheClient, 24*time.Hour)
	userService := services.NewUserService(db)
	fileService := services.NewFileService(db, store, thumbnailQueue)

	authHandler := NewAuthHandler(tokenService)
	usersHandler := NewUsersHandler(userService)
	filesHandler := NewFilesHandler(fileService)
	appHandler := NewAppHandler(db, cacheClient, userService)
	authMiddleware := middleware.NewAuthMiddleware(tokenService, userService)

	app := fiber.New(fiber.Config{BodyLimit: 50 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	api := app.Group("/api")
	api.Get("/version", GetVersion)
	api.Get("/status", appHandler.Status)
	api.Get("/stats", appHandler.Stats)
	api.Post("/users", usersHandler.Register)
	api.Get("/users/me", authMiddleware.RequireAuth, usersHandler.Me)
	api.Get("/connect", authHandler.Connect)
	api.Get("/disconnect", authMiddleware.RequireAuth, authHandler.Disconnect)
	api.Post("/files", authMiddleware.RequireAuth, filesHandler.Upload)
	api.Get("/files", authMiddleware.RequireAuth, filesHandler.List)
	api.Get("/files/:id/data", authMiddleware.OptionalAuth, filesHandler.Data)
	api.Get("/files/:id/thumbnails", authMiddleware.RequireAuth, filesHandler.ThumbnailStatus)
	api.Put("/files/:id/publish", authMiddleware.RequireAuth, filesHandler.Publish)
	api.Put("/files/:id/unpublish", authMiddleware.RequireAuth, filesHandler.Unpublish)
	api.Get("/files/:id", authMiddleware.RequireAuth, filesHandler.Get)

	return &testEnv{
		app:    app,
		db:     db,
		mr:     mr,
		store:  store,
		queue:  thumbnailQueue,
		tokens: tokenService,
	}
}

func createTestUser(t *testing.T, env *testEnv, email, password string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{Email: email, PasswordHash: hash}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/connect", nil)
	req.Header.Set("Authorization", basicAuth(email, password))
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	assertStatus(t, resp, fiber.StatusOK)

	body := decodeJSONMap(t, resp)
	data, _ := body["data"].(map[string]any)
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatalf("expected a token in login response, got %+v", body)
	}

	return user, token
}

func basicAuth(email, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(email+":"+password))
}

func authHeaders(token string) map[string]string {
	return map[string]string{"X-Token": token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func dataMap(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %+v", body)
	}
	return data
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d body=%s", expected, resp.StatusCode, raw)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}
