package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/backdrop/internal/domain"
	"github.com/bnema/backdrop/internal/infrastructure/logger"
	"github.com/bnema/backdrop/internal/pipeline"
	"github.com/bnema/backdrop/internal/port"
)

// WorkerPool consumes the task queue and runs the pipeline. Each job is
// processed independently; the pool is the only pipeline invoker, so job
// records never see more than one writer after creation.
type WorkerPool struct {
	queue    port.TaskQueue
	store    port.JobStore
	blobs    port.BlobStore
	pipeline *pipeline.Pipeline
	workers  int
}

func NewWorkerPool(queue port.TaskQueue, store port.JobStore, blobs port.BlobStore, pl *pipeline.Pipeline, workers int) *WorkerPool {
	return &WorkerPool{
		queue:    queue,
		store:    store,
		blobs:    blobs,
		pipeline: pl,
		workers:  workers,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	// Reset any stalled tasks from previous runs
	if err := wp.queue.ResetStalled(ctx); err != nil {
		logger.Error.Printf("failed to reset stalled tasks: %v", err)
	}

	for i := range wp.workers {
		go wp.runWorker(ctx, i)
	}
	logger.Info.Printf("started %d workers", wp.workers)
}

func (wp *WorkerPool) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			logger.Info.Printf("worker %d shutting down", id)
			return
		default:
		}

		task, err := wp.queue.Claim(ctx)
		if err != nil {
			logger.Error.Printf("worker %d: failed to claim task: %v", id, err)
			time.Sleep(2 * time.Second)
			continue
		}

		if task == nil {
			// No pending tasks, wait before polling again
			time.Sleep(500 * time.Millisecond)
			continue
		}

		logger.Info.Printf("worker %d: processing task %d (job=%s)", id, task.ID, task.JobID)
		wp.processTask(ctx, task)
	}
}

func (wp *WorkerPool) processTask(ctx context.Context, task *domain.Task) {
	if err := wp.runTask(ctx, task); err != nil {
		logger.Error.Printf("task %d failed: %v", task.ID, err)
		if ferr := wp.queue.Fail(ctx, task.ID, err.Error()); ferr != nil {
			logger.Error.Printf("task %d: failed to record task failure: %v", task.ID, ferr)
		}
		return
	}

	if err := wp.queue.Complete(ctx, task.ID); err != nil {
		logger.Error.Printf("task %d: failed to mark complete: %v", task.ID, err)
		return
	}
	logger.Info.Printf("task %d completed", task.ID)
}

func (wp *WorkerPool) runTask(ctx context.Context, task *domain.Task) error {
	job, err := wp.store.Get(ctx, task.JobID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	// A re-queued task for a job that already finished (stalled reset after a
	// crash between finalize and task completion) has nothing left to do.
	if job.Status.IsTerminal() {
		return nil
	}

	original, err := wp.blobs.Get(ctx, port.ContainerOriginals, job.OriginalKey)
	if err != nil {
		msg := "processing failed: original image unavailable"
		if uerr := wp.store.UpdateFailed(ctx, job.ID, msg, 0); uerr != nil {
			logger.Error.Printf("job %s: failed to record failure: %v", job.ID, uerr)
		}
		return fmt.Errorf("load original: %w", err)
	}

	return wp.pipeline.Run(ctx, job, original)
}
