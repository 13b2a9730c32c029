// Package worker runs the cooperative poll loops that drain the job
// queue. Correctness under multiple workers rests entirely on the
// queue's atomic claim; workers never coordinate with each other.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"brightpath/internal/domain"
	models "brightpath/internal/domain/models/jobs"
	jobsRepo "brightpath/internal/domain/repositories/jobs"
)

// Handler executes the body of one claimed job and returns the result
// payload to record on completion.
type Handler interface {
	Handle(ctx context.Context, job *models.Job, progress ProgressFunc) (json.RawMessage, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *models.Job, progress ProgressFunc) (json.RawMessage, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, job *models.Job, progress ProgressFunc) (json.RawMessage, error) {
	return f(ctx, job, progress)
}

// ProgressFunc reports progress on the job being executed. Reporting is
// best effort; a failed progress write never fails the job.
type ProgressFunc func(percentage int, message string)

// Worker claims and executes jobs in a sleep-poll-claim loop.
type Worker struct {
	id       string
	queue    jobsRepo.QueueRepository
	handlers map[models.Kind]Handler
	interval time.Duration
	logger   *slog.Logger
}

// New creates a worker. The handler table is the closed dispatch surface:
// a claimed job whose kind has no handler is failed, not retried.
func New(id string, queue jobsRepo.QueueRepository, handlers map[models.Kind]Handler, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		id:       id,
		queue:    queue,
		handlers: handlers,
		interval: interval,
		logger:   logger.With("worker_id", id),
	}
}

// Run polls until ctx is cancelled. Cancellation stops the worker, not
// an in-flight job: the stop signal only gates claiming, and a job that
// was already claimed runs to its terminal write on a detached context.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", "poll_interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

// pollOnce claims at most one job and executes it to a terminal state.
func (w *Worker) pollOnce(ctx context.Context) {
	job, err := w.queue.ClaimNext(ctx, w.id)
	if err != nil {
		if err == domain.ErrNoJobAvailable || ctx.Err() != nil {
			return
		}
		w.logger.Error("claim failed", "error", err)
		return
	}

	w.logger.Info("job claimed", "job_id", job.ID, "kind", job.Kind)

	// From here the job must reach a terminal state. Detach from the stop
	// signal so a shutdown mid-execution cannot abort the handler or the
	// terminal write and strand the job in processing.
	jobCtx := context.WithoutCancel(ctx)

	result, err := w.execute(jobCtx, job)
	if err != nil {
		if failErr := w.queue.Fail(jobCtx, job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to record job failure", "job_id", job.ID, "error", failErr)
		}
		w.logger.Warn("job failed", "job_id", job.ID, "kind", job.Kind, "error", err)
		return
	}

	if err := w.queue.Complete(jobCtx, job.ID, result); err != nil {
		w.logger.Error("failed to record job completion", "job_id", job.ID, "error", err)
		return
	}
	w.logger.Info("job completed", "job_id", job.ID, "kind", job.Kind)
}

// execute runs the handler for the job's kind. Panics and errors are
// contained here so one bad job never takes the poll loop down.
func (w *Worker) execute(ctx context.Context, job *models.Job) (result json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("job handler panicked",
				"job_id", job.ID,
				"kind", job.Kind,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()

	handler, ok := w.handlers[job.Kind]
	if !ok {
		return nil, fmt.Errorf("no handler registered for kind %s", job.Kind)
	}

	progress := func(percentage int, message string) {
		if perr := w.queue.UpdateProgress(ctx, job.ID, percentage, message); perr != nil {
			w.logger.Debug("progress update failed", "job_id", job.ID, "error", perr)
		}
	}

	return handler.Handle(ctx, job, progress)
}

// Pool runs a fixed set of workers against the shared queue.
type Pool struct {
	workers []*Worker
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewPool creates size workers named "<prefix>-1".."<prefix>-N".
func NewPool(prefix string, size int, queue jobsRepo.QueueRepository, handlers map[models.Kind]Handler, interval time.Duration, logger *slog.Logger) *Pool {
	p := &Pool{logger: logger}
	for i := 1; i <= size; i++ {
		id := fmt.Sprintf("%s-%d", prefix, i)
		p.workers = append(p.workers, New(id, queue, handlers, interval, logger))
	}
	return p
}

// Start launches every worker's poll loop.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	p.logger.Info("worker pool started", "size", len(p.workers))
}

// Stop signals every worker to exit after its current iteration and
// waits for them.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}
