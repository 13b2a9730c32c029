// Package retry implements the bounded-retry wrapper shared by the
// version-allocation protocol and the worker's job bodies.
//
// There is deliberately no backoff: the only retryable failure in this
// system is a lost optimistic-concurrency race, and by the time the loser
// observes it the winning writer has already committed, so an immediate
// re-read succeeds. This is a conflict-resolution mechanism for a narrow
// race window, not a resilience layer for flaky dependencies - keep the
// attempt ceiling small (3-5).
package retry

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxAttempts is the ceiling used when a caller passes 0.
const DefaultMaxAttempts = 4

// retryableError tags an error as safe to retry.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable marks err as retryable. Returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err (or anything it wraps) was marked with
// Retryable.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// Executor runs operations with a capped number of attempts.
type Executor struct {
	MaxAttempts int
}

// New returns an Executor with the given attempt ceiling
// (first attempt + maxAttempts-1 retries). 0 selects DefaultMaxAttempts.
func New(maxAttempts int) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Executor{MaxAttempts: maxAttempts}
}

// Do invokes op until it succeeds, fails with a non-retryable error, the
// context is cancelled, or the attempt ceiling is reached. The last
// retryable error is propagated when attempts run out.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= e.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("exhausted %d attempts: %w", e.MaxAttempts, lastErr)
}
