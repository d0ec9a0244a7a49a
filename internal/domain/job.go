package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions can occur.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job tracks one uploaded image through the processing pipeline. The pipeline
// is the sole writer after creation; clients only read (polling) or delete.
type Job struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	OriginalFilename string    `json:"original_filename"`
	OriginalKey      string    `json:"original_key"`
	OriginalURL      string    `json:"original_url"`
	ProcessedKey     string    `json:"processed_key"`
	ProcessedURL     string    `json:"processed_url"`
	Status           JobStatus `json:"status"`
	ErrorMessage     string    `json:"error_message"`
	FileSize         int64     `json:"file_size"`
	Width            int       `json:"width"`
	Height           int       `json:"height"`
	ProcessingMs     int64     `json:"processing_ms"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

func NewJob(sessionID, originalFilename, originalKey, originalURL string, fileSize int64, width, height int, retention time.Duration) *Job {
	now := time.Now()

	return &Job{
		ID:               uuid.NewString(),
		SessionID:        sessionID,
		OriginalFilename: originalFilename,
		OriginalKey:      originalKey,
		OriginalURL:      originalURL,
		Status:           JobStatusPending,
		FileSize:         fileSize,
		Width:            width,
		Height:           height,
		CreatedAt:        now,
		UpdatedAt:        now,
		ExpiresAt:        now.Add(retention),
	}
}

func (j *Job) IsExpired() bool {
	return time.Now().After(j.ExpiresAt)
}

// MarkProcessing records the single pending -> processing transition.
func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now()
}

// MarkCompleted records the terminal success transition. The processed URL is
// set together with the status so "processedUrl non-empty iff completed" holds
// after the transition.
func (j *Job) MarkCompleted(processedKey, processedURL string, width, height int, elapsed time.Duration) {
	j.Status = JobStatusCompleted
	j.ProcessedKey = processedKey
	j.ProcessedURL = processedURL
	j.Width = width
	j.Height = height
	j.ProcessingMs = elapsed.Milliseconds()
	j.ErrorMessage = ""
	j.UpdatedAt = time.Now()
}

// MarkFailed records the terminal failure transition. The processed URL stays
// empty; the error message is what a polling client eventually observes.
func (j *Job) MarkFailed(err error, elapsed time.Duration) {
	j.Status = JobStatusFailed
	j.ErrorMessage = err.Error()
	j.ProcessedKey = ""
	j.ProcessedURL = ""
	j.ProcessingMs = elapsed.Milliseconds()
	j.UpdatedAt = time.Now()
}
