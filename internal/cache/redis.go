package cache

import (
	"context"
	"errors"
	"time"

	"github.com/filesmanager/api/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the session cache: string values with per-key expiry.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient builds a client from REDIS_URL when set, otherwise from the
// individual host/port settings. It does not dial; use IsAlive to probe.
func NewRedisClient(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.URL != "" {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, err
		}
		return &RedisClient{client: redis.NewClient(opt)}, nil
	}

	return &RedisClient{client: redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})}, nil
}

func NewFromClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// Client exposes the underlying connection so the job queue can share it.
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

func (r *RedisClient) IsAlive(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

// Get returns ok=false when the key is absent or expired.
func (r *RedisClient) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisClient) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
