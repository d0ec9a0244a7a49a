package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bnema/backdrop/internal/domain"
	"github.com/bnema/backdrop/internal/port"
)

// TaskQueue is the sqlite-backed work queue consumed by the worker pool.
// Claiming is a single UPDATE so concurrent workers never take the same task.
type TaskQueue struct {
	db *sql.DB
}

func NewTaskQueue(store *Store) *TaskQueue {
	return &TaskQueue{db: store.db}
}

const taskColumns = `id, job_id, status, error_message, attempts, created_at, started_at, completed_at`

func (q *TaskQueue) Enqueue(ctx context.Context, jobID string) (*domain.Task, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO tasks (job_id, status, created_at)
		VALUES (?, 'pending', ?)
		RETURNING `+taskColumns, jobID, time.Now())
	return scanTask(row)
}

func (q *TaskQueue) Claim(ctx context.Context) (*domain.Task, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET status = 'running', started_at = ?, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM tasks WHERE status = 'pending' ORDER BY created_at, id LIMIT 1
		)
		RETURNING `+taskColumns, time.Now())
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

func (q *TaskQueue) Complete(ctx context.Context, taskID int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'done', completed_at = ? WHERE id = ?`,
		time.Now(), taskID)
	return err
}

func (q *TaskQueue) Fail(ctx context.Context, taskID int64, errMsg string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'failed', error_message = ?, completed_at = ? WHERE id = ?`,
		errMsg, time.Now(), taskID)
	return err
}

func (q *TaskQueue) ResetStalled(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'pending', started_at = NULL WHERE status = 'running'`)
	return err
}

func scanTask(row *sql.Row) (*domain.Task, error) {
	var t domain.Task
	var status string
	err := row.Scan(&t.ID, &t.JobID, &status, &t.ErrorMessage, &t.Attempts,
		&t.CreatedAt, &t.StartedAt, &t.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	return &t, nil
}

var _ port.TaskQueue = (*TaskQueue)(nil)
