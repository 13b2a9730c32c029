package jobs

import (
	"encoding/json"
	"time"
)

// Status is the job lifecycle state. Transitions only move forward:
// pending -> processing -> completed|failed, and pending -> cancelled.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status is final. Terminal jobs are immutable.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Kind identifies the type of work a job carries. The set is closed;
// dispatch happens through the worker's handler table, never by comparing
// free-form strings at call sites.
type Kind string

const (
	// KindGenerateVersion generates a new IEP version for a student/year.
	KindGenerateVersion Kind = "iep.generate_version"

	// KindPurgeJobs deletes terminal jobs older than the configured
	// retention. Housekeeping work scheduled like any other job.
	KindPurgeJobs Kind = "maintenance.purge_jobs"
)

// Job is a unit of asynchronous work tracked through the lifecycle above.
type Job struct {
	ID                 string          `json:"id" db:"id"`
	Kind               Kind            `json:"kind" db:"kind"`
	Payload            json.RawMessage `json:"payload" db:"payload"`
	Status             Status          `json:"status" db:"status"`
	Priority           int             `json:"priority" db:"priority"` // higher = sooner
	ProgressPercentage int             `json:"progress_percentage" db:"progress_percentage"`
	StatusMessage      string          `json:"status_message" db:"status_message"`
	Result             json.RawMessage `json:"result,omitempty" db:"result"`
	ErrorDetails       string          `json:"error_details,omitempty" db:"error_details"`
	CreatedBy          string          `json:"created_by" db:"created_by"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	StartedAt          *time.Time      `json:"started_at,omitempty" db:"started_at"`
	FinishedAt         *time.Time      `json:"finished_at,omitempty" db:"finished_at"`
}

// GenerateVersionPayload is the typed payload for KindGenerateVersion.
type GenerateVersionPayload struct {
	StudentID  string            `json:"student_id"`
	SchoolYear string            `json:"school_year"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// GenerateVersionResult references the version a successful generation
// job produced.
type GenerateVersionResult struct {
	VersionID  string `json:"version_id"`
	Version    int    `json:"version"`
	StudentID  string `json:"student_id"`
	SchoolYear string `json:"school_year"`
}

// PurgeJobsPayload is the typed payload for KindPurgeJobs.
type PurgeJobsPayload struct {
	OlderThanDays int `json:"older_than_days"`
}

// PurgeJobsResult reports how many terminal jobs a purge removed.
type PurgeJobsResult struct {
	Deleted int64 `json:"deleted"`
}

// QueueStats is the operational snapshot returned by the stats query.
type QueueStats struct {
	PendingCount             int64   `json:"pending_count"`
	ProcessingCount          int64   `json:"processing_count"`
	CompletedCount           int64   `json:"completed_count"`
	FailedCount              int64   `json:"failed_count"`
	CancelledCount           int64   `json:"cancelled_count"`
	OldestPendingWaitSeconds float64 `json:"oldest_pending_wait_seconds"`
	// OldestProcessingSeconds surfaces jobs stuck in processing (for
	// example after a worker died mid-execution). The queue never
	// auto-reclaims these; monitoring alerts on this number instead.
	OldestProcessingSeconds float64 `json:"oldest_processing_seconds"`
}

// ListFilter narrows ListJobs results. Zero values mean "no filter".
type ListFilter struct {
	Status    Status
	Kind      Kind
	CreatedBy string
	Limit     int
}
