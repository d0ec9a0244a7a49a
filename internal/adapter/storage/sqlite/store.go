package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"github.com/bnema/backdrop/internal/domain"
	"github.com/bnema/backdrop/internal/port"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA foreign_keys = ON",
				"PRAGMA cache_size = -8000",    // 8MB
				"PRAGMA mmap_size = 268435456", // 256MB
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

func NewStore(dataDir string) (*Store, error) {
	registerHook()

	dbPath := filepath.Join(dataDir, "backdrop.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection for SQLite (WAL allows concurrent reads but only one writer)
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

const jobColumns = `id, session_id, original_filename, original_key, original_url,
	processed_key, processed_url, status, error_message, file_size, width, height,
	processing_ms, created_at, updated_at, expires_at`

func (s *Store) Save(ctx context.Context, j *domain.Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.SessionID, j.OriginalFilename, j.OriginalKey, j.OriginalURL,
		j.ProcessedKey, j.ProcessedURL, string(j.Status), j.ErrorMessage,
		j.FileSize, j.Width, j.Height, j.ProcessingMs,
		j.CreatedAt, j.UpdatedAt, j.ExpiresAt)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]*domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanJobs(rows)
}

func (s *Store) ListExpired(ctx context.Context) ([]*domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE expires_at < ?`, time.Now())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanJobs(rows)
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now(), id)
	return err
}

func (s *Store) UpdateCompleted(ctx context.Context, j *domain.Job) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, processed_key = ?, processed_url = ?, width = ?, height = ?,
			processing_ms = ?, error_message = '', updated_at = ?
		WHERE id = ?`,
		string(domain.JobStatusCompleted), j.ProcessedKey, j.ProcessedURL,
		j.Width, j.Height, j.ProcessingMs, time.Now(), j.ID)
	return err
}

func (s *Store) UpdateFailed(ctx context.Context, id string, errMsg string, processingMs int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, error_message = ?, processed_key = '', processed_url = '',
			processing_ms = ?, updated_at = ?
		WHERE id = ?`,
		string(domain.JobStatusFailed), errMsg, processingMs, time.Now(), id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var j domain.Job
	var status string
	err := row.Scan(&j.ID, &j.SessionID, &j.OriginalFilename, &j.OriginalKey, &j.OriginalURL,
		&j.ProcessedKey, &j.ProcessedURL, &status, &j.ErrorMessage,
		&j.FileSize, &j.Width, &j.Height, &j.ProcessingMs,
		&j.CreatedAt, &j.UpdatedAt, &j.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	j.Status = domain.JobStatus(status)
	return &j, nil
}

func scanJobs(rows *sql.Rows) ([]*domain.Job, error) {
	var result []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	return result, rows.Err()
}

var _ port.JobStore = (*Store)(nil)
