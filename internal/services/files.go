package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/filesmanager/api/internal/models"
	"github.com/filesmanager/api/internal/storage"
	"github.com/filesmanager/api/pkg/logger"
	"github.com/filesmanager/api/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ThumbnailQueue is the producer side of the thumbnail pipeline.
type ThumbnailQueue interface {
	Enqueue(ctx context.Context, job models.ThumbnailJob) (models.ThumbnailJob, error)
	StatusByFile(ctx context.Context, fileID string) (*models.ThumbnailJobState, error)
}

type FileService struct {
	DB      *gorm.DB
	Storage storage.Store
	Queue   ThumbnailQueue
}

func NewFileService(db *gorm.DB, store storage.Store, queue ThumbnailQueue) *FileService {
	return &FileService{DB: db, Storage: store, Queue: queue}
}

// CreateFileInput carries an upload as received. ParentID is a record id,
// or empty or "0" for the root.
type CreateFileInput struct {
	Name     string
	Type     string
	Data     string
	ParentID string
	IsPublic bool
}

type FileContent struct {
	Reader      io.ReadCloser
	Size        int64
	ContentType string
}

// parseParentID maps the root markers to nil. ok is false for a value that
// cannot name any record.
func parseParentID(value string) (parentID *uuid.UUID, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0" {
		return nil, true
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func (s *FileService) Create(ctx context.Context, userID uuid.UUID, input CreateFileInput) (*models.File, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, missingField("name")
	}
	fileType, ok := models.ParseFileType(input.Type)
	if !ok {
		return nil, missingField("type")
	}
	if fileType != models.FileTypeFolder && input.Data == "" {
		return nil, missingField("data")
	}

	db := s.DB.WithContext(ctx)

	parentID, ok := parseParentID(input.ParentID)
	if !ok {
		return nil, ErrParentNotFound
	}
	if parentID != nil {
		var parent models.File
		if err := db.First(&parent, "id = ?", *parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, unavailable("load parent", err)
		}
		if !parent.IsFolder() {
			return nil, ErrParentNotFolder
		}
	}

	entry := models.File{
		UserID:   userID,
		Name:     name,
		Type:     fileType,
		IsPublic: input.IsPublic,
		ParentID: parentID,
	}

	if fileType == models.FileTypeFolder {
		if err := db.Create(&entry).Error; err != nil {
			return nil, unavailable("create folder", err)
		}
		logger.InfoWithUser(userID.String(), "folder_created", map[string]interface{}{
			"file_id":   entry.ID.String(),
			"file_name": name,
			"parent_id": parentID,
		})
		return &entry, nil
	}

	content, err := base64.StdEncoding.DecodeString(input.Data)
	if err != nil {
		return nil, ErrInvalidData
	}

	key := s.Storage.NewKey()
	if err := s.Storage.Put(ctx, key, bytes.NewReader(content), int64(len(content)), contentTypeFor(name)); err != nil {
		return nil, unavailable("write blob", err)
	}
	entry.LocalPath = &key

	if err := db.Create(&entry).Error; err != nil {
		_ = s.Storage.Delete(ctx, key)
		return nil, unavailable("create file", err)
	}

	logger.InfoWithUser(userID.String(), "file_uploaded", map[string]interface{}{
		"file_id":   entry.ID.String(),
		"file_name": name,
		"file_type": string(fileType),
		"file_size": len(content),
		"parent_id": parentID,
	})

	if fileType == models.FileTypeImage {
		s.enqueueThumbnails(ctx, &entry)
	}

	return &entry, nil
}

// enqueueThumbnails is best effort: the upload already succeeded.
func (s *FileService) enqueueThumbnails(ctx context.Context, entry *models.File) {
	if s.Queue == nil {
		return
	}
	_, err := s.Queue.Enqueue(ctx, models.ThumbnailJob{
		UserID: entry.UserID.String(),
		FileID: entry.ID.String(),
		Name:   entry.Name,
	})
	if err != nil {
		logger.ErrorWithUser(entry.UserID.String(), "thumbnail_enqueue_failed", err, map[string]interface{}{
			"file_id": entry.ID.String(),
		})
	}
}

// Get hides records owned by someone else behind ErrNotFound.
func (s *FileService) Get(ctx context.Context, userID uuid.UUID, fileID string) (*models.File, error) {
	id, err := uuid.Parse(strings.TrimSpace(fileID))
	if err != nil {
		return nil, ErrNotFound
	}

	var entry models.File
	if err := s.DB.WithContext(ctx).First(&entry, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("load file", err)
	}
	return &entry, nil
}

// List returns one page of the caller's records directly under parentID.
func (s *FileService) List(ctx context.Context, userID uuid.UUID, parentID string, page int) ([]models.File, error) {
	files := make([]models.File, 0)

	parent, ok := parseParentID(parentID)
	if !ok {
		return files, nil
	}

	query := s.DB.WithContext(ctx).Model(&models.File{}).Where("user_id = ?", userID)
	if parent == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parent)
	}

	query = utils.ApplyPagination(query.Order("created_at ASC").Order("id ASC"), utils.NewPagination(page))
	if err := query.Find(&files).Error; err != nil {
		return nil, unavailable("list files", err)
	}
	return files, nil
}

func (s *FileService) SetVisibility(ctx context.Context, userID uuid.UUID, fileID string, isPublic bool) (*models.File, error) {
	entry, err := s.Get(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Model(entry).Update("is_public", isPublic).Error; err != nil {
		return nil, unavailable("update visibility", err)
	}
	entry.IsPublic = isPublic

	logger.InfoWithUser(userID.String(), "file_visibility_changed", map[string]interface{}{
		"file_id":   entry.ID.String(),
		"is_public": isPublic,
	})

	return entry, nil
}

// Read opens the content of a record, or of one of its thumbnails when size
// is set. requesterID is uuid.Nil for anonymous callers. Private records
// read by anyone but their owner are reported as ErrNotFound.
func (s *FileService) Read(ctx context.Context, fileID, size string, requesterID uuid.UUID) (*FileContent, error) {
	id, err := uuid.Parse(strings.TrimSpace(fileID))
	if err != nil {
		return nil, ErrNotFound
	}

	var entry models.File
	if err := s.DB.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("load file", err)
	}

	if entry.IsFolder() {
		return nil, badRequest("A folder doesn't have content")
	}
	if !entry.IsPublic && (requesterID == uuid.Nil || requesterID != entry.UserID) {
		return nil, ErrNotFound
	}
	if entry.LocalPath == nil {
		return nil, ErrNotFound
	}

	key, err := blobKey(*entry.LocalPath, size)
	if err != nil {
		return nil, err
	}

	reader, info, err := s.Storage.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("open blob", err)
	}

	return &FileContent{
		Reader:      reader,
		Size:        info.Size,
		ContentType: contentTypeFor(entry.Name),
	}, nil
}

// ThumbnailStatus reports the most recent thumbnail job for an owned image.
// It returns nil when no job state is known.
func (s *FileService) ThumbnailStatus(ctx context.Context, userID uuid.UUID, fileID string) (*models.ThumbnailJobState, error) {
	entry, err := s.Get(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	if entry.Type != models.FileTypeImage {
		return nil, ErrNotImage
	}
	if s.Queue == nil {
		return nil, nil
	}

	state, err := s.Queue.StatusByFile(ctx, entry.ID.String())
	if err != nil {
		return nil, unavailable("read thumbnail status", err)
	}
	return state, nil
}

func blobKey(localPath, size string) (string, error) {
	size = strings.TrimSpace(size)
	if size == "" {
		return localPath, nil
	}
	// Only the generated widths name derivatives; any other size has no blob.
	width, err := strconv.Atoi(size)
	if err != nil || !isThumbnailWidth(width) {
		return "", ErrNotFound
	}
	return thumbnailKey(localPath, width), nil
}

func isThumbnailWidth(width int) bool {
	for _, w := range models.ThumbnailWidths {
		if w == width {
			return true
		}
	}
	return false
}

func thumbnailKey(localPath string, width int) string {
	return localPath + "_" + strconv.Itoa(width)
}

func contentTypeFor(name string) string {
	if contentType := mime.TypeByExtension(filepath.Ext(name)); contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}
