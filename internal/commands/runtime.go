package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/filesmanager/api/internal/cache"
	"github.com/filesmanager/api/internal/config"
	"github.com/filesmanager/api/internal/database"
	"github.com/filesmanager/api/internal/queue"
	"github.com/filesmanager/api/internal/storage"
	"github.com/filesmanager/api/pkg/logger"
	"gorm.io/gorm"
)

// runtime holds the stores shared by the serve and worker processes.
type runtime struct {
	db    *gorm.DB
	cache *cache.RedisClient
	store storage.Store
	queue *queue.Queue
}

func connect(ctx context.Context, cfg *config.Config) (*runtime, error) {
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("redis configuration invalid: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if !redisClient.IsAlive(pingCtx) {
		logger.Warn("redis_unreachable", map[string]interface{}{
			"addr": cfg.Redis.Addr,
		})
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		_ = redisClient.Close()
		_ = database.Close(db)
		return nil, fmt.Errorf("storage initialization failed: %w", err)
	}
	if err := store.EnsureReady(ctx); err != nil {
		_ = redisClient.Close()
		_ = database.Close(db)
		return nil, fmt.Errorf("failed preparing storage: %w", err)
	}

	thumbnailQueue := queue.New(redisClient.Client(), cfg.Thumbnail.QueueName, queue.Options{
		PollTimeout: cfg.Thumbnail.PollTimeout,
		JobTTL:      cfg.Thumbnail.JobTTL,
	})

	return &runtime{
		db:    db,
		cache: redisClient,
		store: store,
		queue: thumbnailQueue,
	}, nil
}

func (r *runtime) Close() {
	if err := r.cache.Close(); err != nil {
		logger.Error("redis_close_failed", err, nil)
	}
	if err := database.Close(r.db); err != nil {
		logger.Error("database_close_failed", err, nil)
	}
}
