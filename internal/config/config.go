package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MaxSessionTTL bounds how long an issued token may stay valid.
const MaxSessionTTL = 24 * time.Hour

type Config struct {
	DB        DBConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Server    ServerConfig
	Session   SessionConfig
	Thumbnail ThumbnailConfig
}

type DBConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string
}

type RedisConfig struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Driver     string
	FolderPath string
	MinIO      MinIOConfig
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type ServerConfig struct {
	Port           string
	BodyLimitMB    int
	AllowOrigins   string
	RateLimitRPS   float64
	RateLimitBurst int
}

type SessionConfig struct {
	TTL time.Duration
}

type ThumbnailConfig struct {
	QueueName   string
	Concurrency int
	PollTimeout time.Duration
	JobTTL      time.Duration
}

// Load reads the process configuration from the environment. A .env file in
// the working directory, when present, is applied first without overriding
// variables that are already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DB: DBConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "files_manager"),
			Password: getEnv("DB_PASSWORD", "files_manager_secret"),
			Name:     getEnv("DB_DATABASE", "files_manager"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_PATH", "files_manager.db"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Addr:     getEnv("REDIS_HOST", "localhost") + ":" + getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
			FolderPath: getEnv("FOLDER_PATH", "/tmp/files_manager"),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
				AccessKey: getEnv("MINIO_ACCESS_KEY", "files_manager"),
				SecretKey: getEnv("MINIO_SECRET_KEY", "files_manager_secret"),
				Bucket:    getEnv("MINIO_BUCKET", "files-manager"),
				UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
			},
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "5000"),
			BodyLimitMB:    getEnvAsInt("BODY_LIMIT_MB", 50),
			AllowOrigins:   getEnv("CORS_ALLOW_ORIGINS", "*"),
			RateLimitRPS:   getEnvAsFloat("AUTH_RATE_LIMIT_RPS", 5),
			RateLimitBurst: getEnvAsInt("AUTH_RATE_LIMIT_BURST", 10),
		},
		Session: SessionConfig{
			TTL: sessionTTL(getEnvAsInt("SESSION_TTL_HOURS", 24)),
		},
		Thumbnail: ThumbnailConfig{
			QueueName:   getEnv("THUMBNAIL_QUEUE", "thumbnails"),
			Concurrency: getEnvAsInt("THUMBNAIL_CONCURRENCY", 4),
			PollTimeout: getEnvAsDuration("THUMBNAIL_POLL_TIMEOUT", 5*time.Second),
			JobTTL:      getEnvAsDuration("THUMBNAIL_JOB_TTL", 24*time.Hour),
		},
	}
}

func sessionTTL(hours int) time.Duration {
	ttl := time.Duration(hours) * time.Hour
	if ttl <= 0 || ttl > MaxSessionTTL {
		return MaxSessionTTL
	}
	return ttl
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
