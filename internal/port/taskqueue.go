package port

import (
	"context"

	"github.com/bnema/backdrop/internal/domain"
)

type TaskQueue interface {
	Enqueue(ctx context.Context, jobID string) (*domain.Task, error)
	// Claim atomically takes the oldest pending task, or returns nil when none.
	Claim(ctx context.Context) (*domain.Task, error)
	Complete(ctx context.Context, taskID int64) error
	Fail(ctx context.Context, taskID int64, errMsg string) error
	// ResetStalled returns tasks left running by a dead process to pending.
	ResetStalled(ctx context.Context) error
}
