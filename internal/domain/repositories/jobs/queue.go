package jobs

import (
	"context"
	"encoding/json"
	"time"

	"brightpath/internal/domain/models/jobs"
)

// QueueRepository is the durable record of submitted work items.
//
// ClaimNext is the single concurrency-critical operation: it must move
// exactly one pending job to processing per successful call, even with
// many workers polling at once. Everything else is plain row access.
type QueueRepository interface {
	// Enqueue persists a new job in pending state.
	Enqueue(ctx context.Context, job *jobs.Job) error

	// ClaimNext atomically selects the highest-priority, oldest pending
	// job and transitions it to processing, recording started_at.
	// Returns domain.ErrNoJobAvailable when the queue holds no pending work.
	ClaimNext(ctx context.Context, workerID string) (*jobs.Job, error)

	// GetByID retrieves a job.
	GetByID(ctx context.Context, id string) (*jobs.Job, error)

	// List returns jobs matching the filter, newest first.
	List(ctx context.Context, filter *jobs.ListFilter) ([]jobs.Job, error)

	// UpdateProgress updates progress fields on a processing job. Returns
	// domain.ErrNotFound for unknown jobs and domain.ErrConflict when the
	// job exists but is not in processing.
	UpdateProgress(ctx context.Context, id string, percentage int, message string) error

	// Complete moves a processing job to completed with a result payload.
	// Same error contract as UpdateProgress.
	Complete(ctx context.Context, id string, result json.RawMessage) error

	// Fail moves a processing job to failed with error details.
	// Same error contract as UpdateProgress.
	Fail(ctx context.Context, id string, errorDetails string) error

	// Cancel moves a pending job to cancelled. Returns
	// domain.CannotCancelError if the job was already claimed or terminal.
	Cancel(ctx context.Context, id string) error

	// Stats returns per-status counts and queue-age gauges.
	Stats(ctx context.Context) (*jobs.QueueStats, error)

	// PurgeTerminal deletes terminal jobs finished before the cutoff and
	// returns how many rows were removed.
	PurgeTerminal(ctx context.Context, cutoff time.Time) (int64, error)
}
