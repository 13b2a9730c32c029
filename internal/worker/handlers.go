package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"brightpath/internal/domain"
	models "brightpath/internal/domain/models/jobs"
	jobsRepo "brightpath/internal/domain/repositories/jobs"
	"brightpath/internal/domain/services"
	iepSvc "brightpath/internal/domain/services/iep"
	"brightpath/internal/jobs/kinds"
)

// NewHandlerTable wires the dispatch table for every registered job kind.
func NewHandlerTable(
	versions iepSvc.VersionService,
	generator services.Generator,
	queue jobsRepo.QueueRepository,
	registry *kinds.Registry,
	logger *slog.Logger,
) map[models.Kind]Handler {
	return map[models.Kind]Handler{
		models.KindGenerateVersion: NewGenerateVersionHandler(versions, generator, logger),
		models.KindPurgeJobs:       NewPurgeJobsHandler(queue, registry, logger),
	}
}

// GenerateVersionHandler executes iep.generate_version jobs: run the
// generation pipeline for content, then create the next version through
// the allocation protocol. The version service owns conflict retries;
// this handler never re-runs generation on an allocation retry because
// the retry loop sits below the content production.
type GenerateVersionHandler struct {
	versions  iepSvc.VersionService
	generator services.Generator
	logger    *slog.Logger
}

// NewGenerateVersionHandler creates the handler for generation jobs
func NewGenerateVersionHandler(versions iepSvc.VersionService, generator services.Generator, logger *slog.Logger) *GenerateVersionHandler {
	return &GenerateVersionHandler{
		versions:  versions,
		generator: generator,
		logger:    logger,
	}
}

// Handle produces content and commits it as the next version for the key
func (h *GenerateVersionHandler) Handle(ctx context.Context, job *models.Job, progress ProgressFunc) (json.RawMessage, error) {
	var payload models.GenerateVersionPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed generate payload: %v", domain.ErrValidation, err)
	}

	progress(10, "generating document content")
	content, err := h.generator.Generate(ctx, &services.GenerateRequest{
		StudentID:  payload.StudentID,
		SchoolYear: payload.SchoolYear,
		Parameters: payload.Parameters,
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	progress(70, "committing new version")
	version, err := h.versions.CreateVersion(ctx, &iepSvc.CreateVersionRequest{
		StudentID:  payload.StudentID,
		SchoolYear: payload.SchoolYear,
		Content:    content,
		UserID:     job.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	progress(100, fmt.Sprintf("created version %d", version.Version))

	return json.Marshal(&models.GenerateVersionResult{
		VersionID:  version.ID,
		Version:    version.Version,
		StudentID:  version.StudentID,
		SchoolYear: version.SchoolYear,
	})
}

// PurgeJobsHandler executes maintenance.purge_jobs: age-based bulk
// deletion of terminal jobs.
type PurgeJobsHandler struct {
	queue    jobsRepo.QueueRepository
	registry *kinds.Registry
	logger   *slog.Logger
}

// NewPurgeJobsHandler creates the handler for purge jobs
func NewPurgeJobsHandler(queue jobsRepo.QueueRepository, registry *kinds.Registry, logger *slog.Logger) *PurgeJobsHandler {
	return &PurgeJobsHandler{
		queue:    queue,
		registry: registry,
		logger:   logger,
	}
}

// Handle deletes terminal jobs older than the requested retention,
// falling back to the kind's configured retention when unset.
func (h *PurgeJobsHandler) Handle(ctx context.Context, job *models.Job, progress ProgressFunc) (json.RawMessage, error) {
	var payload models.PurgeJobsPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed purge payload: %v", domain.ErrValidation, err)
	}

	days := payload.OlderThanDays
	if days <= 0 {
		settings, err := h.registry.Get(models.KindPurgeJobs)
		if err != nil {
			return nil, err
		}
		days = settings.RetentionDays
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	progress(50, fmt.Sprintf("purging terminal jobs finished before %s", cutoff.Format(time.RFC3339)))

	deleted, err := h.queue.PurgeTerminal(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	h.logger.Info("terminal jobs purged", "deleted", deleted, "older_than_days", days)

	return json.Marshal(&models.PurgeJobsResult{Deleted: deleted})
}
