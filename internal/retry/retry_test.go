package retry

import (
	"context"
	"errors"
	"testing"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := New(4).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDoRetriesRetryableUntilSuccess(t *testing.T) {
	conflict := errors.New("lost the race")
	calls := 0
	err := New(4).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(conflict)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 calls, got %d", calls)
	}
}

func TestDoStopsAtCeiling(t *testing.T) {
	conflict := errors.New("lost the race")
	calls := 0
	err := New(4).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(conflict)
	})
	if calls != 4 {
		t.Fatalf("expected exactly 4 calls, got %d", calls)
	}
	if !errors.Is(err, conflict) {
		t.Fatalf("expected final error to wrap the last retryable error, got %v", err)
	}
}

func TestDoDoesNotRetryFatalErrors(t *testing.T) {
	fatal := errors.New("malformed payload")
	calls := 0
	err := New(4).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	})
	if calls != 1 {
		t.Fatalf("fatal error must not be retried, got %d calls", calls)
	}
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error propagated unchanged, got %v", err)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := New(4).Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return Retryable(errors.New("conflict"))
	})
	if calls != 1 {
		t.Fatalf("expected no retry after cancellation, got %d calls", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRetryableClassification(t *testing.T) {
	base := errors.New("boom")
	if IsRetryable(base) {
		t.Fatal("unmarked error must not be retryable")
	}
	marked := Retryable(base)
	if !IsRetryable(marked) {
		t.Fatal("marked error must be retryable")
	}
	if !errors.Is(marked, base) {
		t.Fatal("marking must preserve errors.Is identity")
	}
	if Retryable(nil) != nil {
		t.Fatal("Retryable(nil) must be nil")
	}
}

func TestNewDefaultsCeiling(t *testing.T) {
	if got := New(0).MaxAttempts; got != DefaultMaxAttempts {
		t.Fatalf("expected default ceiling %d, got %d", DefaultMaxAttempts, got)
	}
}
