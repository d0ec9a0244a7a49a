package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	// Decoders for reading the dimensions of accepted uploads.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/google/uuid"

	"github.com/bnema/backdrop/internal/adapter/http/validation"
	"github.com/bnema/backdrop/internal/domain"
	"github.com/bnema/backdrop/internal/infrastructure/logger"
	"github.com/bnema/backdrop/internal/port"
)

type ImageService struct {
	store          port.JobStore
	blobs          port.BlobStore
	queue          port.TaskQueue
	remover        port.BackgroundRemover
	maxUploadBytes int64
	retention      time.Duration
}

func NewImageService(store port.JobStore, blobs port.BlobStore, queue port.TaskQueue, remover port.BackgroundRemover, maxUploadSizeMB int, retention time.Duration) *ImageService {
	return &ImageService{
		store:          store,
		blobs:          blobs,
		queue:          queue,
		remover:        remover,
		maxUploadBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		retention:      retention,
	}
}

type UploadInput struct {
	Filename  string
	SessionID string
	Data      []byte
}

// Upload validates the file, persists the original blob, creates the pending
// job record and enqueues one pipeline run. Validation and configuration
// errors reject before any durable state exists; if the record cannot be
// created after the blob was stored, the blob is deleted again.
func (s *ImageService) Upload(ctx context.Context, in UploadInput) (*domain.Job, error) {
	if len(in.Data) == 0 {
		return nil, &domain.ValidationError{Reason: "empty file"}
	}
	if int64(len(in.Data)) > s.maxUploadBytes {
		return nil, &domain.ValidationError{
			Reason: fmt.Sprintf("file exceeds maximum size of %d MB", s.maxUploadBytes/(1024*1024)),
		}
	}

	mime, allowed, err := validation.ValidateMagicBytes(bytes.NewReader(in.Data))
	if err != nil {
		return nil, fmt.Errorf("detect file type: %w", err)
	}
	if !allowed {
		return nil, &domain.ValidationError{
			Reason: fmt.Sprintf("unsupported file type %s (accepted: JPEG, PNG, WebP, GIF)", mime),
		}
	}

	if err := s.remover.Validate(); err != nil {
		return nil, &domain.ConfigError{Reason: err.Error()}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Data))
	if err != nil {
		return nil, &domain.ValidationError{Reason: "corrupt or unreadable image"}
	}

	key := uuid.NewString() + validation.ExtensionForMIME(mime)
	originalURL, err := s.blobs.Put(ctx, port.ContainerOriginals, key, in.Data, mime)
	if err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}

	job := domain.NewJob(in.SessionID, validation.SanitizeFilename(in.Filename), key, originalURL,
		int64(len(in.Data)), cfg.Width, cfg.Height, s.retention)

	if err := s.store.Save(ctx, job); err != nil {
		// Compensating cleanup so the blob store holds at most one orphan
		// for the shortest possible window.
		if derr := s.blobs.Delete(ctx, port.ContainerOriginals, key); derr != nil {
			logger.Error.Printf("failed to remove orphaned blob %s: %v", key, derr)
		}
		return nil, fmt.Errorf("create job record: %w", err)
	}

	if _, err := s.queue.Enqueue(ctx, job.ID); err != nil {
		msg := "processing failed: could not queue pipeline run"
		if uerr := s.store.UpdateFailed(ctx, job.ID, msg, 0); uerr != nil {
			logger.Error.Printf("job %s: failed to record enqueue failure: %v", job.ID, uerr)
		}
		return nil, fmt.Errorf("enqueue pipeline run: %w", err)
	}

	logger.Info.Printf("job %s created: file=%s session=%s size=%d",
		job.ID, logger.SanitizeForLog(job.OriginalFilename), logger.SanitizeForLog(in.SessionID), job.FileSize)
	return job, nil
}

func (s *ImageService) Get(ctx context.Context, id string) (*domain.Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.IsExpired() {
		return nil, domain.ErrExpired
	}
	return job, nil
}

func (s *ImageService) ListBySession(ctx context.Context, sessionID string) ([]*domain.Job, error) {
	return s.store.ListBySession(ctx, sessionID)
}

// Delete removes the record first; blob removal is best-effort and never
// blocks the record deletion.
func (s *ImageService) Delete(ctx context.Context, id string) error {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.deleteBlobs(ctx, job)
	return nil
}

// Cleanup deletes expired jobs: blobs best-effort, then the record. An orphan
// blob from a skipped run is picked up by the next one.
func (s *ImageService) Cleanup(ctx context.Context) error {
	expired, err := s.store.ListExpired(ctx)
	if err != nil {
		return err
	}

	for _, job := range expired {
		s.deleteBlobs(ctx, job)
		if err := s.store.Delete(ctx, job.ID); err != nil {
			logger.Error.Printf("cleanup: failed to delete job %s: %v", job.ID, err)
			continue
		}
		logger.Info.Printf("cleanup: removed expired job %s", job.ID)
	}

	return nil
}

func (s *ImageService) deleteBlobs(ctx context.Context, job *domain.Job) {
	if job.OriginalKey != "" {
		if err := s.blobs.Delete(ctx, port.ContainerOriginals, job.OriginalKey); err != nil {
			logger.Warn.Printf("job %s: failed to delete original blob: %v", job.ID, err)
		}
	}
	if job.ProcessedKey != "" {
		if err := s.blobs.Delete(ctx, port.ContainerProcessed, job.ProcessedKey); err != nil {
			logger.Warn.Printf("job %s: failed to delete processed blob: %v", job.ID, err)
		}
	}
}
