package worker

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is a single image to generate for a statement.
type Job struct {
	ID     string
	Prompt string
}

// Result carries the generated image for a job.
type Result struct {
	ID  string
	URL string
}

// Func performs one job and returns the image URL.
type Func func(ctx context.Context, job Job) (string, error)

// WorkerPool runs jobs with a bounded number in flight.
type WorkerPool struct {
	MaxWorkers int
	logger     *zap.Logger
}

// New creates a new WorkerPool.
func New(maxWorkers int, logger *zap.Logger) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{MaxWorkers: maxWorkers, logger: logger}
}

// Run processes every job and calls emit for each success as soon as it
// completes, so emit must be safe for concurrent use. Failed jobs and jobs
// that yield no image are logged and skipped. Run returns once all started
// jobs have finished, with the number of failures and the context error if
// the run was cut short.
func (wp *WorkerPool) Run(ctx context.Context, jobs []Job, fn Func, emit func(Result)) (int, error) {
	var failed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(wp.MaxWorkers)

	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		job := job
		g.Go(func() error {
			url, err := fn(gctx, job)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				wp.logger.Warn("image job failed", zap.String("id", job.ID), zap.Error(err))
				return nil
			}
			if url == "" {
				return nil
			}
			emit(Result{ID: job.ID, URL: url})
			return nil
		})
	}
	_ = g.Wait()
	return int(atomic.LoadInt64(&failed)), ctx.Err()
}
