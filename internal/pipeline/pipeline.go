// Package pipeline turns original image bytes into the final processed output
// and drives a job through its status state machine: exactly one durable
// transition to processing before the first phase, exactly one terminal
// transition at the end, failures recorded on the job record itself.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/backdrop/internal/domain"
	"github.com/bnema/backdrop/internal/infrastructure/logger"
	"github.com/bnema/backdrop/internal/port"
)

// Event is a status transition notification fanned out to observers.
type Event struct {
	Status  domain.JobStatus
	Message string
}

type EventPublisher interface {
	Publish(jobID string, event Event)
}

type Options struct {
	MaxWidth     int
	MaxHeight    int
	OutputFormat string // "png" (default) or "webp"
	Quality      int
}

type Pipeline struct {
	remover port.BackgroundRemover
	blobs   port.BlobStore
	store   port.JobStore
	bus     EventPublisher
	opts    Options
}

func New(remover port.BackgroundRemover, blobs port.BlobStore, store port.JobStore, bus EventPublisher, opts Options) *Pipeline {
	return &Pipeline{
		remover: remover,
		blobs:   blobs,
		store:   store,
		bus:     bus,
		opts:    opts,
	}
}

type result struct {
	key    string
	url    string
	width  int
	height int
}

// Run executes all phases for one job. The job must be pending or processing;
// a single deadline threads through every phase via ctx. No phase is retried.
func (p *Pipeline) Run(ctx context.Context, job *domain.Job, original []byte) error {
	start := time.Now()

	if err := p.store.UpdateStatus(ctx, job.ID, domain.JobStatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	p.publish(job.ID, domain.JobStatusProcessing, "")

	res, err := p.process(ctx, original)
	if err != nil {
		elapsed := time.Since(start)
		msg := "processing failed: " + err.Error()
		if errors.Is(err, domain.ErrProviderTimeout) {
			logger.Warn.Printf("job %s: provider timed out after %s", job.ID, elapsed)
		}
		if uerr := p.store.UpdateFailed(ctx, job.ID, msg, elapsed.Milliseconds()); uerr != nil {
			logger.Error.Printf("job %s: failed to record failure: %v", job.ID, uerr)
		}
		p.publish(job.ID, domain.JobStatusFailed, msg)
		return err
	}

	elapsed := time.Since(start)
	job.MarkCompleted(res.key, res.url, res.width, res.height, elapsed)
	if err := p.store.UpdateCompleted(ctx, job); err != nil {
		return fmt.Errorf("finalize job: %w", err)
	}
	p.publish(job.ID, domain.JobStatusCompleted, "")

	logger.Info.Printf("job %s completed in %s (%dx%d)", job.ID, elapsed, res.width, res.height)
	return nil
}

func (p *Pipeline) process(ctx context.Context, original []byte) (*result, error) {
	if len(original) == 0 {
		return nil, errors.New("empty image")
	}

	// Phase 1: decode and resize within the configured bounds.
	img, _, err := decodeImage(original)
	if err != nil {
		return nil, err
	}
	img = resizeToFit(img, p.opts.MaxWidth, p.opts.MaxHeight)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline canceled: %w", err)
	}

	// Phase 2: background removal by the external provider.
	interchange, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	removed, err := p.remover.Remove(ctx, interchange)
	if err != nil {
		return nil, fmt.Errorf("remove background: %w", err)
	}
	img, _, err = decodeImage(removed)
	if err != nil {
		return nil, fmt.Errorf("provider returned undecodable image: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline canceled: %w", err)
	}

	// Phase 3: horizontal flip.
	img = flipHorizontal(img)

	// Phase 4: encode to the configured output format.
	data, ext, contentType, err := encodeImage(img, p.opts.OutputFormat, p.opts.Quality)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline canceled: %w", err)
	}

	// Phase 5: persist under a fresh key.
	key := uuid.NewString() + ext
	url, err := p.blobs.Put(ctx, port.ContainerProcessed, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store processed image: %w", err)
	}

	b := img.Bounds()
	return &result{key: key, url: url, width: b.Dx(), height: b.Dy()}, nil
}

func (p *Pipeline) publish(jobID string, status domain.JobStatus, message string) {
	if p.bus != nil {
		p.bus.Publish(jobID, Event{Status: status, Message: message})
	}
}
