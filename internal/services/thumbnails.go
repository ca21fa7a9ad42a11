package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/filesmanager/api/internal/models"
	"github.com/filesmanager/api/internal/storage"
	"github.com/filesmanager/api/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ThumbnailService is the consumer side of the thumbnail pipeline. It runs
// in the worker process.
type ThumbnailService struct {
	DB      *gorm.DB
	Storage storage.Store
}

func NewThumbnailService(db *gorm.DB, store storage.Store) *ThumbnailService {
	return &ThumbnailService{DB: db, Storage: store}
}

// Process writes one derivative per thumbnail width next to the original.
// Each width is attempted independently; any failure fails the job and the
// widths that succeeded stay in place. Running a job twice overwrites the
// same keys.
func (t *ThumbnailService) Process(ctx context.Context, job models.ThumbnailJob) error {
	if job.FileID == "" {
		return missingField("fileId")
	}
	if job.UserID == "" {
		return missingField("userId")
	}

	fileID, err := uuid.Parse(job.FileID)
	if err != nil {
		return ErrNotFound
	}
	userID, err := uuid.Parse(job.UserID)
	if err != nil {
		return ErrNotFound
	}

	var entry models.File
	if err := t.DB.WithContext(ctx).First(&entry, "id = ? AND user_id = ?", fileID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return unavailable("load file", err)
	}
	if entry.Type != models.FileTypeImage {
		return ErrNotImage
	}
	if entry.LocalPath == nil {
		return ErrNotFound
	}

	src, err := t.decode(ctx, *entry.LocalPath)
	if err != nil {
		return err
	}

	format, err := imaging.FormatFromFilename(entry.Name)
	if err != nil {
		format = imaging.PNG
	}

	var errs []error
	for _, width := range models.ThumbnailWidths {
		if err := t.writeThumbnail(ctx, src, *entry.LocalPath, width, format, contentTypeFor(entry.Name)); err != nil {
			errs = append(errs, fmt.Errorf("width %d: %w", width, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	logger.InfoWithUser(job.UserID, "thumbnails_generated", map[string]interface{}{
		"file_id": job.FileID,
		"widths":  models.ThumbnailWidths,
	})
	return nil
}

func (t *ThumbnailService) decode(ctx context.Context, key string) (image.Image, error) {
	reader, _, err := t.Storage.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("open original", err)
	}
	defer reader.Close()

	img, err := imaging.Decode(reader, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode original: %w", err)
	}
	return img, nil
}

func (t *ThumbnailService) writeThumbnail(ctx context.Context, src image.Image, localPath string, width int, format imaging.Format, contentType string) error {
	resized := imaging.Resize(src, width, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return err
	}

	return t.Storage.Put(ctx, thumbnailKey(localPath, width), &buf, int64(buf.Len()), contentType)
}
