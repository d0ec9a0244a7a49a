package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/backdrop/internal/domain"
	"github.com/bnema/backdrop/internal/infrastructure/logger"
	"github.com/bnema/backdrop/internal/port"
	"github.com/bnema/backdrop/internal/service"
)

type ImageService interface {
	Upload(ctx context.Context, in service.UploadInput) (*domain.Job, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	ListBySession(ctx context.Context, sessionID string) ([]*domain.Job, error)
	Delete(ctx context.Context, id string) error
}

type Handlers struct {
	imageSvc  ImageService
	blobs     port.BlobStore
	maxSizeMB int
}

func NewHandlers(imageSvc ImageService, blobs port.BlobStore, maxSizeMB int) *Handlers {
	return &Handlers{
		imageSvc:  imageSvc,
		blobs:     blobs,
		maxSizeMB: maxSizeMB,
	}
}

// dimensionsDTO is the width/height pair reported on status responses.
type dimensionsDTO struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type uploadResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
	SessionID   string `json:"sessionId"`
}

type statusResponse struct {
	ID               string        `json:"id"`
	Status           string        `json:"status"`
	OriginalURL      string        `json:"originalUrl"`
	ProcessedURL     *string       `json:"processedUrl"`
	Error            *string       `json:"error"`
	ProcessingTimeMs int64         `json:"processingTimeMs"`
	Dimensions       dimensionsDTO `json:"dimensions"`
	FileSize         int64         `json:"fileSize"`
	OriginalFilename string        `json:"originalFilename"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

type deleteResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type sessionResponse struct {
	SessionID string           `json:"sessionId"`
	Images    []statusResponse `json:"images"`
	Total     int              `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toStatusResponse(job *domain.Job) statusResponse {
	resp := statusResponse{
		ID:               job.ID,
		Status:           string(job.Status),
		OriginalURL:      job.OriginalURL,
		ProcessingTimeMs: job.ProcessingMs,
		Dimensions:       dimensionsDTO{Width: job.Width, Height: job.Height},
		FileSize:         job.FileSize,
		OriginalFilename: job.OriginalFilename,
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
	}
	if job.ProcessedURL != "" {
		resp.ProcessedURL = &job.ProcessedURL
	}
	if job.ErrorMessage != "" {
		resp.Error = &job.ErrorMessage
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors onto HTTP statuses. Expired jobs are
// indistinguishable from deleted ones for clients.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var configErr *domain.ConfigError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Reason)
	case errors.As(err, &configErr):
		writeError(w, http.StatusInternalServerError, configErr.Reason)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusNotFound, "image not found")
	default:
		logger.Error.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handlers) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxBytes := int64(h.maxSizeMB) * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1024*1024)

		if err := r.ParseMultipartForm(maxBytes); err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer file.Close() //nolint:errcheck

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read upload")
			return
		}

		sessionID := r.FormValue("sessionId")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		job, err := h.imageSvc.Upload(r.Context(), service.UploadInput{
			Filename:  header.Filename,
			SessionID: sessionID,
			Data:      data,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusAccepted, uploadResponse{
			ID:          job.ID,
			Status:      string(job.Status),
			OriginalURL: job.OriginalURL,
			SessionID:   job.SessionID,
		})
	}
}

func (h *Handlers) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing image id")
			return
		}

		job, err := h.imageSvc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toStatusResponse(job))
	}
}

func (h *Handlers) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing image id")
			return
		}

		if err := h.imageSvc.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, deleteResponse{
			Message: "image deleted",
			ID:      id,
		})
	}
}

func (h *Handlers) Session() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("sessionId")
		if sessionID == "" {
			writeError(w, http.StatusBadRequest, "missing session id")
			return
		}

		jobs, err := h.imageSvc.ListBySession(r.Context(), sessionID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		images := make([]statusResponse, 0, len(jobs))
		for _, job := range jobs {
			images = append(images, toStatusResponse(job))
		}

		writeJSON(w, http.StatusOK, sessionResponse{
			SessionID: sessionID,
			Images:    images,
			Total:     len(images),
		})
	}
}

// Blob serves stored image bytes. Keys are opaque UUID-based names so the
// extension is the only trusted type hint.
func (h *Handlers) Blob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		container := r.PathValue("container")
		key := r.PathValue("key")

		if container != port.ContainerOriginals && container != port.ContainerProcessed {
			writeError(w, http.StatusNotFound, "unknown container")
			return
		}

		data, err := h.blobs.Get(r.Context(), container, key)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusNotFound, "file not found")
				return
			}
			logger.Error.Printf("serve blob %s/%s: %v", container, logger.SanitizeForLog(key), err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(key)))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "private, max-age=3600")
		_, _ = w.Write(data)
	}
}
