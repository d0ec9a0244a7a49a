// Package client is a small Go client for the backdrop JSON API, including
// the fixed-interval status polling loop browser clients use.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DefaultPollInterval is the delay between status fetches while a job is
// still pending or processing.
const DefaultPollInterval = 2 * time.Second

type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithHTTPClient allows injecting a custom http.Client (timeouts, proxies,
// test transports).
func NewWithHTTPClient(baseURL string, httpc *http.Client) *Client {
	return &Client{baseURL: baseURL, httpc: httpc}
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type UploadResult struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
	SessionID   string `json:"sessionId"`
}

type JobStatus struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	OriginalURL      string     `json:"originalUrl"`
	ProcessedURL     *string    `json:"processedUrl"`
	Error            *string    `json:"error"`
	ProcessingTimeMs int64      `json:"processingTimeMs"`
	Dimensions       Dimensions `json:"dimensions"`
	FileSize         int64      `json:"fileSize"`
	OriginalFilename string     `json:"originalFilename"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// IsTerminal reports whether polling can stop.
func (s *JobStatus) IsTerminal() bool {
	return s.Status == "completed" || s.Status == "failed"
}

type SessionListing struct {
	SessionID string      `json:"sessionId"`
	Images    []JobStatus `json:"images"`
	Total     int         `json:"total"`
}

type DeleteResult struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Upload sends image bytes as a multipart request and returns the created
// job pointer.
func (c *Client) Upload(ctx context.Context, filename, sessionID string, data []byte) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if sessionID != "" {
		if err := mw.WriteField("sessionId", sessionID); err != nil {
			return nil, fmt.Errorf("build multipart body: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Status fetches the current job projection.
func (c *Client) Status(ctx context.Context, id string) (*JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/images/"+id, nil)
	if err != nil {
		return nil, err
	}

	var result JobStatus
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a job and its stored images.
func (c *Client) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/images/"+id, nil)
	if err != nil {
		return nil, err
	}

	var result DeleteResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListSession fetches all jobs for a session, newest first.
func (c *Client) ListSession(ctx context.Context, sessionID string) (*SessionListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/images/session/"+sessionID, nil)
	if err != nil {
		return nil, err
	}

	var result SessionListing
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PollStatus fetches the status immediately and then on a fixed interval
// until the job reaches a terminal state. Any fetch error ends the loop and
// is returned; the caller can reload and poll again. An interval of zero
// uses DefaultPollInterval.
func (c *Client) PollStatus(ctx context.Context, id string, interval time.Duration) (*JobStatus, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	status, err := c.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	if status.IsTerminal() {
		return status, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			status, err := c.Status(ctx, id)
			if err != nil {
				return nil, err
			}
			if status.IsTerminal() {
				return status, nil
			}
		}
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := resp.Status
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
