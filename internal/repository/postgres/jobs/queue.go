package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"brightpath/internal/domain"
	models "brightpath/internal/domain/models/jobs"
	jobsRepo "brightpath/internal/domain/repositories/jobs"
	"brightpath/internal/repository/postgres"
)

// PostgresQueueRepository implements the QueueRepository interface.
//
// All state transitions are conditional updates keyed on the current
// status ("... WHERE id = $1 AND status = 'pending'"), so the database is
// the sole arbiter under concurrent workers. No in-process locks.
type PostgresQueueRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewQueueRepository creates a new job queue repository
func NewQueueRepository(config *postgres.RepositoryConfig) jobsRepo.QueueRepository {
	return &PostgresQueueRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const jobColumns = `id, kind, payload, status, priority, progress_percentage, status_message, result, error_details, created_by, created_at, started_at, finished_at`

func scanJob(row interface{ Scan(...any) error }, j *models.Job) error {
	return row.Scan(
		&j.ID,
		&j.Kind,
		&j.Payload,
		&j.Status,
		&j.Priority,
		&j.ProgressPercentage,
		&j.StatusMessage,
		&j.Result,
		&j.ErrorDetails,
		&j.CreatedBy,
		&j.CreatedAt,
		&j.StartedAt,
		&j.FinishedAt,
	)
}

// Enqueue persists a new job in pending state
func (r *PostgresQueueRepository) Enqueue(ctx context.Context, job *models.Job) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, kind, payload, status, priority, status_message, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, r.tables.Jobs)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		job.ID,
		job.Kind,
		job.Payload,
		models.StatusPending,
		job.Priority,
		job.StatusMessage,
		job.CreatedBy,
	).Scan(&job.CreatedAt)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	job.Status = models.StatusPending

	return nil
}

// ClaimNext atomically claims the highest-priority, oldest pending job.
//
// The inner SELECT uses FOR UPDATE SKIP LOCKED so concurrent workers
// never race for the same row; the outer UPDATE re-checks status so a
// cancel that slipped in between cannot be resurrected. Ordering is
// priority DESC, created_at ASC, id ASC - the trailing id keeps claim
// order deterministic even for equal timestamps.
func (r *PostgresQueueRepository) ClaimNext(ctx context.Context, workerID string) (*models.Job, error) {
	query := fmt.Sprintf(`
		UPDATE %[1]s
		SET status = $1, started_at = now(), status_message = $2
		WHERE id = (
			SELECT id FROM %[1]s
			WHERE status = $3
			ORDER BY priority DESC, created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		AND status = $3
		RETURNING %[2]s
	`, r.tables.Jobs, jobColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	var j models.Job
	err := scanJob(executor.QueryRow(ctx, query,
		models.StatusProcessing,
		"claimed by worker "+workerID,
		models.StatusPending,
	), &j)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, domain.ErrNoJobAvailable
		}
		return nil, fmt.Errorf("claim next job: %w", err)
	}

	return &j, nil
}

// GetByID retrieves a job
func (r *PostgresQueueRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, jobColumns, r.tables.Jobs)

	executor := postgres.GetExecutor(ctx, r.pool)
	var j models.Job
	if err := scanJob(executor.QueryRow(ctx, query, id), &j); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	return &j, nil
}

// List returns jobs matching the filter, newest first
func (r *PostgresQueueRepository) List(ctx context.Context, filter *models.ListFilter) ([]models.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", jobColumns, r.tables.Jobs)

	var conditions []string
	var args []interface{}
	if filter != nil {
		if filter.Status != "" {
			args = append(args, filter.Status)
			conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
		}
		if filter.Kind != "" {
			args = append(args, filter.Kind)
			conditions = append(conditions, "kind = $"+strconv.Itoa(len(args)))
		}
		if filter.CreatedBy != "" {
			args = append(args, filter.CreatedBy)
			conditions = append(conditions, "created_by = $"+strconv.Itoa(len(args)))
		}
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC, id DESC"

	limit := 100
	if filter != nil && filter.Limit > 0 {
		limit = filter.Limit
	}
	args = append(args, limit)
	query += " LIMIT $" + strconv.Itoa(len(args))

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []models.Job
	for rows.Next() {
		var j models.Job
		if err := scanJob(rows, &j); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		result = append(result, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	return result, nil
}

// UpdateProgress updates progress fields on a processing job
func (r *PostgresQueueRepository) UpdateProgress(ctx context.Context, id string, percentage int, message string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET progress_percentage = $2, status_message = $3
		WHERE id = $1 AND status = $4
	`, r.tables.Jobs)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, percentage, message, models.StatusProcessing)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.notProcessing(ctx, id)
	}

	return nil
}

// notProcessing distinguishes "unknown job" from "job exists but is not
// in processing" after a conditional update matched nothing.
func (r *PostgresQueueRepository) notProcessing(ctx context.Context, id string) error {
	job, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("job %s is %s, not processing: %w", id, job.Status, domain.ErrConflict)
}

// Complete moves a processing job to completed with a result payload
func (r *PostgresQueueRepository) Complete(ctx context.Context, id string, result json.RawMessage) error {
	return r.finish(ctx, id, models.StatusCompleted, result, "")
}

// Fail moves a processing job to failed with error details
func (r *PostgresQueueRepository) Fail(ctx context.Context, id string, errorDetails string) error {
	return r.finish(ctx, id, models.StatusFailed, nil, errorDetails)
}

func (r *PostgresQueueRepository) finish(ctx context.Context, id string, status models.Status, result json.RawMessage, errorDetails string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2, result = $3, error_details = $4, finished_at = now()
		WHERE id = $1 AND status = $5
	`, r.tables.Jobs)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, status, result, errorDetails, models.StatusProcessing)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.notProcessing(ctx, id)
	}

	return nil
}

// Cancel moves a pending job to cancelled. The conditional update only
// matches pending rows, so a job the worker already claimed loses the
// race here and the caller gets CannotCancelError.
func (r *PostgresQueueRepository) Cancel(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2, finished_at = now()
		WHERE id = $1 AND status = $3
	`, r.tables.Jobs)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, models.StatusCancelled, models.StatusPending)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing matched: distinguish "unknown job" from "wrong status"
	job, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return &domain.CannotCancelError{JobID: id, Status: string(job.Status)}
}

// Stats returns per-status counts and queue-age gauges
func (r *PostgresQueueRepository) Stats(ctx context.Context) (*models.QueueStats, error) {
	query := fmt.Sprintf(`
		SELECT
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'processing'),
			count(*) FILTER (WHERE status = 'completed'),
			count(*) FILTER (WHERE status = 'failed'),
			count(*) FILTER (WHERE status = 'cancelled'),
			coalesce(extract(epoch FROM now() - min(created_at) FILTER (WHERE status = 'pending')), 0),
			coalesce(extract(epoch FROM now() - min(started_at) FILTER (WHERE status = 'processing')), 0)
		FROM %s
	`, r.tables.Jobs)

	executor := postgres.GetExecutor(ctx, r.pool)
	var stats models.QueueStats
	err := executor.QueryRow(ctx, query).Scan(
		&stats.PendingCount,
		&stats.ProcessingCount,
		&stats.CompletedCount,
		&stats.FailedCount,
		&stats.CancelledCount,
		&stats.OldestPendingWaitSeconds,
		&stats.OldestProcessingSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}

	return &stats, nil
}

// PurgeTerminal deletes terminal jobs finished before the cutoff
func (r *PostgresQueueRepository) PurgeTerminal(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE status IN ('completed', 'failed', 'cancelled')
		AND finished_at < $1
	`, r.tables.Jobs)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge terminal jobs: %w", err)
	}

	return tag.RowsAffected(), nil
}
