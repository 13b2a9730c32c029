package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrVersionConflict marks a lost optimistic-concurrency race: another
	// writer committed the same version number first, or the parent row
	// changed underneath the insert. Safe to retry.
	ErrVersionConflict = errors.New("version number already taken")

	// ErrAllocationFailed is surfaced when the version-allocation retry
	// ceiling is exhausted. Not retryable.
	ErrAllocationFailed = errors.New("version allocation failed")

	// ErrCannotCancel is returned when cancelling a job that has already
	// been claimed or reached a terminal state.
	ErrCannotCancel = errors.New("job cannot be cancelled")

	// ErrNoJobAvailable is returned by claim-next when the queue holds no
	// pending work. Workers treat it as "sleep and poll again".
	ErrNoJobAvailable = errors.New("no job available")
)

// CannotCancelError carries the status that blocked a cancel request.
// Implements HTTPError so the handler layer maps it to 409.
type CannotCancelError struct {
	JobID  string
	Status string
}

func (e *CannotCancelError) Error() string {
	return "job " + e.JobID + " cannot be cancelled in status " + e.Status
}

func (e *CannotCancelError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrCannotCancel
func (e *CannotCancelError) Is(target error) bool {
	return target == ErrCannotCancel
}
