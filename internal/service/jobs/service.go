package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"brightpath/internal/domain"
	models "brightpath/internal/domain/models/jobs"
	jobsRepo "brightpath/internal/domain/repositories/jobs"
	jobsSvc "brightpath/internal/domain/services/jobs"
	"brightpath/internal/jobs/kinds"
)

var schoolYearPattern = regexp.MustCompile(`^\d{4}-\d{4}$`)

// jobService implements the JobService interface
type jobService struct {
	queue    jobsRepo.QueueRepository
	registry *kinds.Registry
	logger   *slog.Logger
}

// NewJobService creates a new job service
func NewJobService(queue jobsRepo.QueueRepository, registry *kinds.Registry, logger *slog.Logger) jobsSvc.JobService {
	return &jobService{
		queue:    queue,
		registry: registry,
		logger:   logger,
	}
}

// Submit validates the request against the kind registry and enqueues a
// pending job. Payloads are decoded into their typed form here so a
// malformed request is rejected before anything is stored.
func (s *jobService) Submit(ctx context.Context, req *jobsSvc.SubmitJobRequest) (*models.Job, error) {
	if err := s.validateSubmit(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	settings, err := s.registry.Get(req.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	priority := settings.DefaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}

	job := &models.Job{
		ID:            uuid.NewString(),
		Kind:          req.Kind,
		Payload:       req.Payload,
		Priority:      priority,
		StatusMessage: "queued",
		CreatedBy:     req.UserID,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("job submitted",
		"job_id", job.ID,
		"kind", job.Kind,
		"priority", job.Priority,
		"created_by", job.CreatedBy,
	)

	return job, nil
}

// GetJob returns the current state of a job
func (s *jobService) GetJob(ctx context.Context, id string) (*models.Job, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: job id is required", domain.ErrValidation)
	}
	return s.queue.GetByID(ctx, id)
}

// ListJobs returns jobs matching the filter, newest first
func (s *jobService) ListJobs(ctx context.Context, filter *models.ListFilter) ([]models.Job, error) {
	if filter != nil {
		if filter.Status != "" {
			switch filter.Status {
			case models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusFailed, models.StatusCancelled:
			default:
				return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, filter.Status)
			}
		}
		if filter.Kind != "" && !s.registry.Known(filter.Kind) {
			return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrValidation, filter.Kind)
		}
	}
	return s.queue.List(ctx, filter)
}

// Cancel moves a pending job to cancelled
func (s *jobService) Cancel(ctx context.Context, id, requester string) error {
	if id == "" {
		return fmt.Errorf("%w: job id is required", domain.ErrValidation)
	}

	if err := s.queue.Cancel(ctx, id); err != nil {
		return err
	}

	s.logger.Info("job cancelled", "job_id", id, "requester", requester)
	return nil
}

// Stats returns the operational queue snapshot
func (s *jobService) Stats(ctx context.Context) (*models.QueueStats, error) {
	return s.queue.Stats(ctx)
}

func (s *jobService) validateSubmit(req *jobsSvc.SubmitJobRequest) error {
	if err := (validation.Errors{
		"kind":    validation.Validate(string(req.Kind), validation.Required),
		"payload": validation.Validate([]byte(req.Payload), validation.Required),
	}.Filter()); err != nil {
		return err
	}

	// Decode the payload into its typed form for the declared kind
	switch req.Kind {
	case models.KindGenerateVersion:
		var p models.GenerateVersionPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return fmt.Errorf("malformed payload: %v", err)
		}
		return validation.Errors{
			"payload.student_id":  validation.Validate(p.StudentID, validation.Required, validation.Length(1, 64)),
			"payload.school_year": validation.Validate(p.SchoolYear, validation.Required, validation.Match(schoolYearPattern)),
		}.Filter()
	case models.KindPurgeJobs:
		var p models.PurgeJobsPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return fmt.Errorf("malformed payload: %v", err)
		}
		return validation.Errors{
			"payload.older_than_days": validation.Validate(p.OlderThanDays, validation.Min(1)),
		}.Filter()
	default:
		return fmt.Errorf("unknown job kind: %s", req.Kind)
	}
}
