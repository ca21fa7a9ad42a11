package models

import "time"

// ThumbnailJobStatus represents the state of a thumbnail generation job.
type ThumbnailJobStatus string

const (
	ThumbnailJobStatusEnqueued   ThumbnailJobStatus = "enqueued"
	ThumbnailJobStatusProcessing ThumbnailJobStatus = "processing"
	ThumbnailJobStatusCompleted  ThumbnailJobStatus = "completed"
	ThumbnailJobStatusFailed     ThumbnailJobStatus = "failed"
)

// ThumbnailJob is the queue payload. It is never stored in the database.
type ThumbnailJob struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	FileID string `json:"fileId"`
	Name   string `json:"name,omitempty"`
}

// ThumbnailJobState is the transient status record kept next to the queue.
type ThumbnailJobState struct {
	JobID     string             `json:"jobId"`
	FileID    string             `json:"fileId"`
	UserID    string             `json:"userId"`
	Status    ThumbnailJobStatus `json:"status"`
	Attempts  int                `json:"attempts"`
	LastError string             `json:"lastError,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
