package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"brightpath/internal/domain"
	"brightpath/internal/httputil"
)

// respondDomainError maps domain errors to HTTP responses. Typed errors
// implementing HTTPError carry their own status; sentinels cover the
// rest; anything unrecognized is a 500 and gets logged.
func respondDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrCannotCancel):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrAllocationFailed):
		// Retry ceiling exhausted under extreme contention; the caller
		// can resubmit, nothing was committed.
		httputil.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
