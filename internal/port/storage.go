package port

import (
	"context"

	"github.com/bnema/backdrop/internal/domain"
)

type JobStore interface {
	Save(ctx context.Context, j *domain.Job) error
	Get(ctx context.Context, id string) (*domain.Job, error)
	Delete(ctx context.Context, id string) error
	ListBySession(ctx context.Context, sessionID string) ([]*domain.Job, error)
	ListExpired(ctx context.Context) ([]*domain.Job, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) error
	UpdateCompleted(ctx context.Context, j *domain.Job) error
	UpdateFailed(ctx context.Context, id string, errMsg string, processingMs int64) error
}
