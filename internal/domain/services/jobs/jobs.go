package jobs

import (
	"context"
	"encoding/json"

	"brightpath/internal/domain/models/jobs"
)

// SubmitJobRequest is the input to JobService.Submit.
type SubmitJobRequest struct {
	Kind     jobs.Kind       `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
	Priority *int            `json:"priority,omitempty"` // nil = kind default
	UserID   string          `json:"-"`
}

// JobService is the submit/poll/cancel surface over the queue.
// Claiming and terminal write-back belong to the worker, not this service.
type JobService interface {
	// Submit validates the request against the kind registry and enqueues
	// a pending job.
	Submit(ctx context.Context, req *SubmitJobRequest) (*jobs.Job, error)

	// GetJob returns the current state of a job.
	GetJob(ctx context.Context, id string) (*jobs.Job, error)

	// ListJobs returns jobs matching the filter, newest first.
	ListJobs(ctx context.Context, filter *jobs.ListFilter) ([]jobs.Job, error)

	// Cancel moves a pending job to cancelled. Jobs already claimed or
	// terminal are rejected with domain.ErrCannotCancel.
	Cancel(ctx context.Context, id, requester string) error

	// Stats returns the operational queue snapshot.
	Stats(ctx context.Context) (*jobs.QueueStats, error)
}
