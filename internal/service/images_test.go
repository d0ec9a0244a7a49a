package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/backdrop/internal/domain"
	"github.com/bnema/backdrop/internal/port"
	"github.com/bnema/backdrop/internal/port/mocks"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func validRemover(t *testing.T) *mocks.BackgroundRemoverMock {
	remover := mocks.NewBackgroundRemoverMock(t)
	remover.On("Validate").Return(nil).Maybe()
	return remover
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending job and enqueues one run", func(t *testing.T) {
		data := pngBytes(t, 500, 500)

		store := mocks.NewJobStoreMock(t)
		blobs := mocks.NewBlobStoreMock(t)
		queue := mocks.NewTaskQueueMock(t)

		blobs.On("Put", mock.Anything, port.ContainerOriginals, mock.Anything, data, "image/png").
			Return("http://x/files/originals/abc.png", nil)

		var saved *domain.Job
		store.On("Save", mock.Anything, mock.AnythingOfType("*domain.Job")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.Job) }).Return(nil)

		queue.On("Enqueue", mock.Anything, mock.AnythingOfType("string")).
			Return(&domain.Task{ID: 1}, nil)

		svc := NewImageService(store, blobs, queue, validRemover(t), 50, 24*time.Hour)

		job, err := svc.Upload(ctx, UploadInput{Filename: "cat.jpg", SessionID: "s1", Data: data})
		require.NoError(t, err)
		require.NotNil(t, saved)

		assert.Equal(t, saved.ID, job.ID)
		assert.Equal(t, domain.JobStatusPending, job.Status)
		assert.Equal(t, "s1", job.SessionID)
		assert.Equal(t, "cat.jpg", job.OriginalFilename)
		assert.Equal(t, int64(len(data)), job.FileSize)
		assert.Equal(t, 500, job.Width)
		assert.Equal(t, 500, job.Height)
		assert.Equal(t, "http://x/files/originals/abc.png", job.OriginalURL)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), job.ExpiresAt, time.Minute)
	})

	t.Run("empty file rejected before any state", func(t *testing.T) {
		svc := NewImageService(mocks.NewJobStoreMock(t), mocks.NewBlobStoreMock(t),
			mocks.NewTaskQueueMock(t), mocks.NewBackgroundRemoverMock(t), 50, time.Hour)

		_, err := svc.Upload(ctx, UploadInput{Filename: "x.png", SessionID: "s1"})

		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("oversized file rejected", func(t *testing.T) {
		svc := NewImageService(mocks.NewJobStoreMock(t), mocks.NewBlobStoreMock(t),
			mocks.NewTaskQueueMock(t), mocks.NewBackgroundRemoverMock(t), 1, time.Hour)

		data := make([]byte, 2*1024*1024)
		_, err := svc.Upload(ctx, UploadInput{Filename: "big.png", SessionID: "s1", Data: data})

		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Reason, "maximum size")
	})

	t.Run("unsupported type rejected", func(t *testing.T) {
		svc := NewImageService(mocks.NewJobStoreMock(t), mocks.NewBlobStoreMock(t),
			mocks.NewTaskQueueMock(t), mocks.NewBackgroundRemoverMock(t), 50, time.Hour)

		_, err := svc.Upload(ctx, UploadInput{Filename: "doc.pdf", SessionID: "s1", Data: []byte("%PDF-1.4 content")})

		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Reason, "unsupported file type")
	})

	t.Run("invalid provider credential rejected before any state", func(t *testing.T) {
		remover := mocks.NewBackgroundRemoverMock(t)
		remover.On("Validate").Return(errors.New("removebg: api key is empty"))

		svc := NewImageService(mocks.NewJobStoreMock(t), mocks.NewBlobStoreMock(t),
			mocks.NewTaskQueueMock(t), remover, 50, time.Hour)

		_, err := svc.Upload(ctx, UploadInput{Filename: "cat.png", SessionID: "s1", Data: pngBytes(t, 4, 4)})

		var configErr *domain.ConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Contains(t, configErr.Reason, "api key")
	})

	t.Run("corrupt image rejected", func(t *testing.T) {
		svc := NewImageService(mocks.NewJobStoreMock(t), mocks.NewBlobStoreMock(t),
			mocks.NewTaskQueueMock(t), validRemover(t), 50, time.Hour)

		// Valid PNG magic, garbage after
		data := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0xff}, 64)...)
		_, err := svc.Upload(ctx, UploadInput{Filename: "broken.png", SessionID: "s1", Data: data})

		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Reason, "corrupt")
	})

	t.Run("record failure deletes the orphaned blob", func(t *testing.T) {
		data := pngBytes(t, 4, 4)

		store := mocks.NewJobStoreMock(t)
		blobs := mocks.NewBlobStoreMock(t)

		var storedKey string
		blobs.On("Put", mock.Anything, port.ContainerOriginals, mock.Anything, data, "image/png").
			Run(func(args mock.Arguments) { storedKey = args.String(2) }).
			Return("http://x/files/originals/abc.png", nil)
		store.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))
		blobs.On("Delete", mock.Anything, port.ContainerOriginals, mock.MatchedBy(func(key string) bool {
			return key == storedKey
		})).Return(nil)

		svc := NewImageService(store, blobs, mocks.NewTaskQueueMock(t), validRemover(t), 50, time.Hour)

		_, err := svc.Upload(ctx, UploadInput{Filename: "cat.png", SessionID: "s1", Data: data})
		require.Error(t, err)
		blobs.AssertCalled(t, "Delete", mock.Anything, port.ContainerOriginals, storedKey)
	})

	t.Run("enqueue failure marks the job failed", func(t *testing.T) {
		data := pngBytes(t, 4, 4)

		store := mocks.NewJobStoreMock(t)
		blobs := mocks.NewBlobStoreMock(t)
		queue := mocks.NewTaskQueueMock(t)

		blobs.On("Put", mock.Anything, port.ContainerOriginals, mock.Anything, data, "image/png").
			Return("u", nil)
		store.On("Save", mock.Anything, mock.Anything).Return(nil)
		queue.On("Enqueue", mock.Anything, mock.Anything).Return(nil, errors.New("queue closed"))
		store.On("UpdateFailed", mock.Anything, mock.Anything,
			"processing failed: could not queue pipeline run", int64(0)).Return(nil)

		svc := NewImageService(store, blobs, queue, validRemover(t), 50, time.Hour)

		_, err := svc.Upload(ctx, UploadInput{Filename: "cat.png", SessionID: "s1", Data: data})
		require.Error(t, err)
	})

	t.Run("filename sanitized on the record", func(t *testing.T) {
		data := pngBytes(t, 4, 4)

		store := mocks.NewJobStoreMock(t)
		blobs := mocks.NewBlobStoreMock(t)
		queue := mocks.NewTaskQueueMock(t)

		blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("u", nil)
		store.On("Save", mock.Anything, mock.Anything).Return(nil)
		queue.On("Enqueue", mock.Anything, mock.Anything).Return(&domain.Task{ID: 1}, nil)

		svc := NewImageService(store, blobs, queue, validRemover(t), 50, time.Hour)

		job, err := svc.Upload(ctx, UploadInput{Filename: "../../etc/cat.png", SessionID: "s1", Data: data})
		require.NoError(t, err)
		assert.Equal(t, ".._.._etc_cat.png", job.OriginalFilename)
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	t.Run("returns live job", func(t *testing.T) {
		job := domain.NewJob("s1", "cat.png", "k", "u", 1, 1, 1, time.Hour)
		store := mocks.NewJobStoreMock(t)
		store.On("Get", mock.Anything, job.ID).Return(job, nil)

		svc := NewImageService(store, mocks.NewBlobStoreMock(t), mocks.NewTaskQueueMock(t),
			mocks.NewBackgroundRemoverMock(t), 50, time.Hour)

		got, err := svc.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
	})

	t.Run("expired job surfaces ErrExpired", func(t *testing.T) {
		job := domain.NewJob("s1", "cat.png", "k", "u", 1, 1, 1, -time.Minute)
		store := mocks.NewJobStoreMock(t)
		store.On("Get", mock.Anything, job.ID).Return(job, nil)

		svc := NewImageService(store, mocks.NewBlobStoreMock(t), mocks.NewTaskQueueMock(t),
			mocks.NewBackgroundRemoverMock(t), 50, time.Hour)

		_, err := svc.Get(ctx, job.ID)
		assert.ErrorIs(t, err, domain.ErrExpired)
	})

	t.Run("unknown id passes through ErrNotFound", func(t *testing.T) {
		store := mocks.NewJobStoreMock(t)
		store.On("Get", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

		svc := NewImageService(store, mocks.NewBlobStoreMock(t), mocks.NewTaskQueueMock(t),
			mocks.NewBackgroundRemoverMock(t), 50, time.Hour)

		_, err := svc.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes record then blobs", func(t *testing.T) {
		job := domain.NewJob("s1", "cat.png", "orig.png", "u", 1, 1, 1, time.Hour)
		job.MarkCompleted("out.png", "http://x/out.png", 1, 1, time.Second)

		store := mocks.NewJobStoreMock(t)
		blobs := mocks.NewBlobStoreMock(t)

		store.On("Get", mock.Anything, job.ID).Return(job, nil)
		store.On("Delete", mock.Anything, job.ID).Return(nil)
		blobs.On("Delete", mock.Anything, port.ContainerOriginals, "orig.png").Return(nil)
		blobs.On("Delete", mock.Anything, port.ContainerProcessed, "out.png").Return(nil)

		svc := NewImageService(store, blobs, mocks.NewTaskQueueMock(t),
			mocks.NewBackgroundRemoverMock(t), 50, time.Hour)

		require.NoError(t, svc.Delete(ctx, job.ID))
	})

	t.Run("blob failure does not fail the delete", func(t *testing.T) {
		job := domain.NewJob("s1", "cat.png", "orig.png", "u", 1, 1, 1, time.Hour)

		store := mocks.NewJobStoreMock(t)
		blobs := mocks.NewBlobStoreMock(t)

		store.On("Get", mock.Anything, job.ID).Return(job, nil)
		store.On("Delete", mock.Anything, job.ID).Return(nil)
		blobs.On("Delete", mock.Anything, port.ContainerOriginals, "orig.png").
			Return(errors.New("io error"))

		svc := NewImageService(store, blobs, mocks.NewTaskQueueMock(t),
			mocks.NewBackgroundRemoverMock(t), 50, time.Hour)

		require.NoError(t, svc.Delete(ctx, job.ID))
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		store := mocks.NewJobStoreMock(t)
		store.On("Get", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

		svc := NewImageService(store, mocks.NewBlobStoreMock(t), mocks.NewTaskQueueMock(t),
			mocks.NewBackgroundRemoverMock(t), 50, time.Hour)

		assert.ErrorIs(t, svc.Delete(ctx, "nope"), domain.ErrNotFound)
	})
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()

	t.Run("removes expired jobs and their blobs", func(t *testing.T) {
		jobA := domain.NewJob("s1", "a.png", "a-orig.png", "u", 1, 1, 1, -time.Hour)
		jobA.MarkCompleted("a-out.png", "http://x/a-out.png", 1, 1, time.Second)
		jobB := domain.NewJob("s2", "b.png", "b-orig.png", "u", 1, 1, 1, -time.Hour)

		store := mocks.NewJobStoreMock(t)
		blobs := mocks.NewBlobStoreMock(t)

		store.On("ListExpired", mock.Anything).Return([]*domain.Job{jobA, jobB}, nil)
		store.On("Delete", mock.Anything, jobA.ID).Return(nil)
		store.On("Delete", mock.Anything, jobB.ID).Return(nil)
		blobs.On("Delete", mock.Anything, port.ContainerOriginals, "a-orig.png").Return(nil)
		blobs.On("Delete", mock.Anything, port.ContainerProcessed, "a-out.png").Return(nil)
		blobs.On("Delete", mock.Anything, port.ContainerOriginals, "b-orig.png").Return(nil)

		svc := NewImageService(store, blobs, mocks.NewTaskQueueMock(t),
			mocks.NewBackgroundRemoverMock(t), 50, time.Hour)

		require.NoError(t, svc.Cleanup(ctx))
	})

	t.Run("nothing expired is a no-op", func(t *testing.T) {
		store := mocks.NewJobStoreMock(t)
		store.On("ListExpired", mock.Anything).Return(nil, nil)

		svc := NewImageService(store, mocks.NewBlobStoreMock(t), mocks.NewTaskQueueMock(t),
			mocks.NewBackgroundRemoverMock(t), 50, time.Hour)

		require.NoError(t, svc.Cleanup(ctx))
	})
}
