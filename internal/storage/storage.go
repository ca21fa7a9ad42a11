package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/filesmanager/api/internal/config"
)

// ErrObjectNotFound is returned when a key is absent or does not name a
// regular object.
var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Size        int64
	ContentType string
}

// Store holds file contents as opaque blobs addressed by key. Keys returned
// by NewKey are what File.LocalPath records; derivatives live under
// "<key>_<suffix>".
type Store interface {
	EnsureReady(ctx context.Context) error
	NewKey() string
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalStore(cfg.FolderPath), nil
	case "minio":
		return NewMinIOClient(cfg.MinIO)
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.Driver)
	}
}
