package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/filesmanager/api/internal/cache"
	"github.com/filesmanager/api/internal/models"
	"github.com/filesmanager/api/internal/queue"
	"github.com/filesmanager/api/internal/storage"
	"github.com/filesmanager/api/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.User{}, &models.File{}); err != nil {
		t.Fatalf("failed automigrating: %v", err)
	}

	return db
}

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

type fileEnv struct {
	db      *gorm.DB
	store   *storage.LocalStore
	queue   *queue.Queue
	service *FileService
}

func setupFileEnv(t *testing.T) *fileEnv {
	t.Helper()

	db := setupTestDB(t)
	client, _ := setupRedis(t)
	store := storage.NewLocalStore(t.TempDir())
	q := queue.New(client, "thumbnails", queue.Options{PollTimeout: time.Second})

	return &fileEnv{
		db:      db,
		store:   store,
		queue:   q,
		service: NewFileService(db, store, q),
	}
}

func setupTokenService(t *testing.T, db *gorm.DB) (*TokenService, *miniredis.Miniredis) {
	t.Helper()

	client, mr := setupRedis(t)
	return NewTokenService(db, cache.NewFromClient(client), 24*time.Hour), mr
}

func createUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}
	user := &models.User{Email: email, PasswordHash: hash}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user: %v", err)
	}
	return user
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed encoding png: %v", err)
	}
	return buf.Bytes()
}

func encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

type failingQueue struct{}

func (failingQueue) Enqueue(_ context.Context, job models.ThumbnailJob) (models.ThumbnailJob, error) {
	return job, context.DeadlineExceeded
}

func (failingQueue) StatusByFile(context.Context, string) (*models.ThumbnailJobState, error) {
	return nil, context.DeadlineExceeded
}
