package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/filesmanager/api/pkg/logger"
	"github.com/google/uuid"
)

// LocalStore keeps blobs as plain files under a root folder. Keys are
// absolute paths.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (l *LocalStore) Root() string {
	return l.root
}

func (l *LocalStore) EnsureReady(_ context.Context) error {
	return os.MkdirAll(l.root, 0o755)
}

func (l *LocalStore) NewKey() string {
	return filepath.Join(l.root, uuid.New().String())
}

// Put writes through a temporary file and renames it into place, so a
// reader never sees a half-written blob and rewriting a key replaces it.
func (l *LocalStore) Put(_ context.Context, key string, reader io.Reader, size int64, _ string) error {
	if err := os.MkdirAll(filepath.Dir(key), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(key), ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		logger.Error("local_store_write_failed", err, map[string]interface{}{
			"key":  key,
			"size": size,
		})
		return err
	}

	if err := os.Rename(tmpName, key); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	logger.Info("local_store_write_success", map[string]interface{}{
		"key":  key,
		"size": written,
	})
	return nil
}

func (l *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	info, err := os.Stat(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, err
	}
	if !info.Mode().IsRegular() {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}

	f, err := os.Open(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, err
	}

	return f, ObjectInfo{Size: info.Size()}, nil
}

func (l *LocalStore) Delete(_ context.Context, key string) error {
	err := os.Remove(key)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
