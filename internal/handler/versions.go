package handler

import (
	"log/slog"
	"net/http"

	models "brightpath/internal/domain/models/iep"
	iepSvc "brightpath/internal/domain/services/iep"
	"brightpath/internal/httputil"
)

// VersionHandler handles IEP version HTTP requests
type VersionHandler struct {
	versionService iepSvc.VersionService
	logger         *slog.Logger
}

// NewVersionHandler creates a new version handler
func NewVersionHandler(versionService iepSvc.VersionService, logger *slog.Logger) *VersionHandler {
	return &VersionHandler{
		versionService: versionService,
		logger:         logger,
	}
}

// HealthCheck reports liveness
// GET /health
func (h *VersionHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateVersion creates the next version for a student and school year.
// Direct synchronous path; long-running generation goes through the job
// queue instead.
// POST /api/students/{studentID}/years/{year}/versions
func (h *VersionHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	var req iepSvc.CreateVersionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.StudentID = r.PathValue("studentID")
	req.SchoolYear = r.PathValue("year")
	req.UserID = httputil.GetUserID(r)

	version, err := h.versionService.CreateVersion(r.Context(), &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, version)
}

// GetVersionHistory returns all versions for the key, version ascending
// GET /api/students/{studentID}/years/{year}/versions
func (h *VersionHandler) GetVersionHistory(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("studentID")
	year := r.PathValue("year")

	versions, err := h.versionService.GetVersionHistory(r.Context(), studentID, year)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if versions == nil {
		versions = []models.Version{}
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"versions": versions,
		"total":    len(versions),
	})
}

// GetLatestVersion returns the highest-numbered version for the key
// GET /api/students/{studentID}/years/{year}/versions/latest
func (h *VersionHandler) GetLatestVersion(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("studentID")
	year := r.PathValue("year")

	version, err := h.versionService.GetLatestVersion(r.Context(), studentID, year)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, version)
}

// GetVersion returns one version by ID
// GET /api/versions/{id}
func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "version ID is required")
		return
	}

	version, err := h.versionService.GetVersion(r.Context(), id)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, version)
}

// FinalizeVersion marks a draft version final
// POST /api/versions/{id}/finalize
func (h *VersionHandler) FinalizeVersion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "version ID is required")
		return
	}

	version, err := h.versionService.FinalizeVersion(r.Context(), id)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, version)
}
