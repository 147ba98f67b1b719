package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/errs"
)

// Runner drains a queue of job ids through the pipeline with a bounded
// worker pool. Per-job single-flighting lives in the service, so a job id
// enqueued twice costs one run.
type Runner struct {
	svc     *Service
	queue   chan uint64
	workers int

	wg      sync.WaitGroup
	startMu sync.Mutex
	started bool
}

func NewRunner(svc *Service, workers, queueDepth int) *Runner {
	if workers <= 0 {
		workers = 4
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	return &Runner{
		svc:     svc,
		queue:   make(chan uint64, queueDepth),
		workers: workers,
	}
}

// Start launches the workers. They exit when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	r.startMu.Lock()
	defer r.startMu.Unlock()
	if r.started {
		return
	}
	r.started = true

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func(worker int) {
			defer r.wg.Done()
			workerCtx := logging.WithAttrs(ctx, slog.Int("worker", worker))
			for {
				select {
				case <-ctx.Done():
					return
				case jobID := <-r.queue:
					if _, err := r.svc.Process(workerCtx, ProcessInput{JobID: jobID}); err != nil {
						logging.Error(workerCtx, "processing failed",
							slog.Uint64("job_id", jobID),
							slog.Any("error", errs.Loggable(err)),
						)
					}
				}
			}
		}(i)
	}
}

// Enqueue queues a job for processing. It reports false when the queue is
// full or the runner is shutting down rather than blocking the caller.
func (r *Runner) Enqueue(ctx context.Context, jobID uint64) bool {
	select {
	case r.queue <- jobID:
		return true
	case <-ctx.Done():
		return false
	default:
		logging.Warn(ctx, "process queue full, dropping enqueue",
			slog.Uint64("job_id", jobID),
		)
		return false
	}
}

// Wait blocks until all workers have exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}
