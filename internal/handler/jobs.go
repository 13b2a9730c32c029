package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	models "brightpath/internal/domain/models/jobs"
	jobsSvc "brightpath/internal/domain/services/jobs"
	"brightpath/internal/httputil"
)

// JobHandler handles job queue HTTP requests
type JobHandler struct {
	jobService jobsSvc.JobService
	logger     *slog.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobService jobsSvc.JobService, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		logger:     logger,
	}
}

// SubmitJob enqueues a new job
// POST /api/jobs
func (h *JobHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req jobsSvc.SubmitJobRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = httputil.GetUserID(r)

	job, err := h.jobService.Submit(r.Context(), &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, job)
}

// GetJob polls the status of a job
// GET /api/jobs/{id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, err := h.jobService.GetJob(r.Context(), id)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, job)
}

// ListJobs returns jobs matching the query filters
// GET /api/jobs?status=&kind=&created_by=&limit=
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := &models.ListFilter{
		Status:    models.Status(q.Get("status")),
		Kind:      models.Kind(q.Get("kind")),
		CreatedBy: q.Get("created_by"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			httputil.RespondError(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		filter.Limit = limit
	}

	result, err := h.jobService.ListJobs(r.Context(), filter)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if result == nil {
		result = []models.Job{}
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  result,
		"total": len(result),
	})
}

// CancelJob cancels a pending job
// POST /api/jobs/{id}/cancel
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	if err := h.jobService.Cancel(r.Context(), id, httputil.GetUserID(r)); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// GetQueueStats returns the operational queue snapshot
// GET /api/jobs/stats
func (h *JobHandler) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.jobService.Stats(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, stats)
}
