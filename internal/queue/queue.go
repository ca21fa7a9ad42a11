package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/filesmanager/api/internal/models"
	"github.com/filesmanager/api/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPollTimeout = 5 * time.Second
	defaultJobTTL      = 24 * time.Hour
)

// Handler processes one dequeued job. A returned error marks the job failed;
// failed jobs are not retried.
type Handler func(ctx context.Context, job models.ThumbnailJob) error

type Options struct {
	PollTimeout time.Duration
	JobTTL      time.Duration
}

// Queue is a Redis list based work queue with at-least-once delivery.
// Producers LPUSH onto the pending list; consumers atomically move each
// payload into the processing list and drop it from there once handled, so a
// crashed consumer leaves its job behind for RecoverStale.
type Queue struct {
	client      *redis.Client
	name        string
	pollTimeout time.Duration
	jobTTL      time.Duration
}

func New(client *redis.Client, name string, opts Options) *Queue {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defaultPollTimeout
	}
	if opts.JobTTL <= 0 {
		opts.JobTTL = defaultJobTTL
	}
	return &Queue{
		client:      client,
		name:        name,
		pollTimeout: opts.PollTimeout,
		jobTTL:      opts.JobTTL,
	}
}

func (q *Queue) pendingKey() string    { return "queue:" + q.name + ":pending" }
func (q *Queue) processingKey() string { return "queue:" + q.name + ":processing" }
func (q *Queue) jobKey(id string) string {
	return "queue:" + q.name + ":job:" + id
}
func (q *Queue) fileKey(fileID string) string {
	return "queue:" + q.name + ":file:" + fileID
}

// Enqueue assigns the job an id when it has none, records it as enqueued and
// pushes it onto the pending list.
func (q *Queue) Enqueue(ctx context.Context, job models.ThumbnailJob) (models.ThumbnailJob, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return job, fmt.Errorf("failed encoding job: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.jobKey(job.ID), map[string]interface{}{
			"fileId":    job.FileID,
			"userId":    job.UserID,
			"status":    string(models.ThumbnailJobStatusEnqueued),
			"attempts":  0,
			"error":     "",
			"updatedAt": time.Now().UTC().Format(time.RFC3339Nano),
		})
		pipe.Expire(ctx, q.jobKey(job.ID), q.jobTTL)
		if job.FileID != "" {
			pipe.Set(ctx, q.fileKey(job.FileID), job.ID, q.jobTTL)
		}
		pipe.LPush(ctx, q.pendingKey(), payload)
		return nil
	})
	if err != nil {
		return job, fmt.Errorf("failed enqueuing job: %w", err)
	}

	logger.Info("thumbnail_job_enqueued", map[string]interface{}{
		"job_id":  job.ID,
		"file_id": job.FileID,
		"queue":   q.name,
	})

	return job, nil
}

// Process consumes jobs until ctx is cancelled, running at most concurrency
// handlers at once. Jobs already dequeued when ctx ends still run to
// completion; Process returns after they finish.
func (q *Queue) Process(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency < 1 {
		concurrency = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	jobCtx := context.WithoutCancel(ctx)

	logger.Info("thumbnail_queue_consumer_started", map[string]interface{}{
		"queue":       q.name,
		"concurrency": concurrency,
	})

	for ctx.Err() == nil {
		raw, err := q.client.BRPopLPush(ctx, q.pendingKey(), q.processingKey(), q.pollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("thumbnail_queue_pop_failed", err, map[string]interface{}{
				"queue": q.name,
			})
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		g.Go(func() error {
			q.handle(jobCtx, raw, handler)
			return nil
		})
	}

	err := g.Wait()
	logger.Info("thumbnail_queue_consumer_stopped", map[string]interface{}{
		"queue": q.name,
	})
	return err
}

func (q *Queue) handle(ctx context.Context, raw string, handler Handler) {
	defer q.ack(ctx, raw)

	var job models.ThumbnailJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		logger.Error("thumbnail_job_malformed", err, map[string]interface{}{
			"queue":        q.name,
			"payload_size": len(raw),
		})
		return
	}

	q.setState(ctx, job, models.ThumbnailJobStatusProcessing, "")
	logger.Info("thumbnail_job_started", map[string]interface{}{
		"job_id":  job.ID,
		"file_id": job.FileID,
	})

	if err := runHandler(ctx, handler, job); err != nil {
		q.setState(ctx, job, models.ThumbnailJobStatusFailed, err.Error())
		logger.Error("thumbnail_job_failed", err, map[string]interface{}{
			"job_id":  job.ID,
			"file_id": job.FileID,
			"user_id": job.UserID,
		})
		return
	}

	q.setState(ctx, job, models.ThumbnailJobStatusCompleted, "")
	logger.Info("thumbnail_job_completed", map[string]interface{}{
		"job_id":  job.ID,
		"file_id": job.FileID,
	})
}

func runHandler(ctx context.Context, handler Handler, job models.ThumbnailJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, job)
}

func (q *Queue) ack(ctx context.Context, raw string) {
	if err := q.client.LRem(ctx, q.processingKey(), 1, raw).Err(); err != nil {
		logger.Error("thumbnail_job_ack_failed", err, map[string]interface{}{
			"queue": q.name,
		})
	}
}

func (q *Queue) setState(ctx context.Context, job models.ThumbnailJob, status models.ThumbnailJobStatus, lastError string) {
	if job.ID == "" {
		return
	}

	key := q.jobKey(job.ID)
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			"fileId":    job.FileID,
			"userId":    job.UserID,
			"status":    string(status),
			"error":     lastError,
			"updatedAt": time.Now().UTC().Format(time.RFC3339Nano),
		})
		if status == models.ThumbnailJobStatusProcessing {
			pipe.HIncrBy(ctx, key, "attempts", 1)
		}
		pipe.Expire(ctx, key, q.jobTTL)
		return nil
	})
	if err != nil {
		logger.Error("thumbnail_job_state_update_failed", err, map[string]interface{}{
			"job_id": job.ID,
			"status": string(status),
		})
	}
}

// Status returns nil when the job is unknown or its state has expired.
func (q *Queue) Status(ctx context.Context, jobID string) (*models.ThumbnailJobState, error) {
	fields, err := q.client.HGetAll(ctx, q.jobKey(jobID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	state := &models.ThumbnailJobState{
		JobID:     jobID,
		FileID:    fields["fileId"],
		UserID:    fields["userId"],
		Status:    models.ThumbnailJobStatus(fields["status"]),
		LastError: fields["error"],
	}
	state.Attempts, _ = strconv.Atoi(fields["attempts"])
	state.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updatedAt"])
	return state, nil
}

// StatusByFile returns the state of the most recent job enqueued for fileID.
func (q *Queue) StatusByFile(ctx context.Context, fileID string) (*models.ThumbnailJobState, error) {
	jobID, err := q.client.Get(ctx, q.fileKey(fileID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q.Status(ctx, jobID)
}

// RecoverStale moves every payload left in the processing list back onto
// the pending list. Call it before consuming, while no other consumer of the
// same queue is running.
func (q *Queue) RecoverStale(ctx context.Context) (int, error) {
	recovered := 0
	for {
		raw, err := q.client.RPopLPush(ctx, q.processingKey(), q.pendingKey()).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return recovered, err
		}
		recovered++

		var job models.ThumbnailJob
		if json.Unmarshal([]byte(raw), &job) == nil {
			q.setState(ctx, job, models.ThumbnailJobStatusEnqueued, "")
			logger.Info("thumbnail_job_stale_recovered", map[string]interface{}{
				"job_id":  job.ID,
				"file_id": job.FileID,
			})
		}
	}
	return recovered, nil
}

type Depth struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
}

func (q *Queue) Depth(ctx context.Context) (Depth, error) {
	pending, err := q.client.LLen(ctx, q.pendingKey()).Result()
	if err != nil {
		return Depth{}, err
	}
	processing, err := q.client.LLen(ctx, q.processingKey()).Result()
	if err != nil {
		return Depth{}, err
	}
	return Depth{Pending: pending, Processing: processing}, nil
}
