package removal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/backdrop/internal/domain"
	"github.com/bnema/backdrop/internal/port"
)

// Client calls one segmentation provider over HTTPS: image bytes as a
// multipart body, credential in a header, image bytes back on success.
// A single failed attempt is final; the pipeline does not re-invoke.
type Client struct {
	name      string
	endpoint  string
	keyHeader string
	apiKey    string
	httpc     *http.Client
	timeout   time.Duration
}

func (c *Client) Name() string {
	return c.name
}

// Validate checks what is knowable without a network round-trip: a credential
// must be present and free of whitespace/control characters (a malformed key
// would otherwise fail every job asynchronously).
func (c *Client) Validate() error {
	key := strings.TrimSpace(c.apiKey)
	if key == "" || key != c.apiKey {
		return fmt.Errorf("%s: missing or malformed API credential", c.name)
	}
	return nil
}

func (c *Client) Remove(ctx context.Context, image []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image_file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("build request body: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return nil, fmt.Errorf("build request body: %w", err)
	}
	if err := mw.WriteField("format", "png"); err != nil {
		return nil, fmt.Errorf("build request body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(c.keyHeader, c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%s: %w", c.name, domain.ErrProviderTimeout)
		}
		return nil, fmt.Errorf("%s: request failed: %w", c.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%s: %w", c.name, domain.ErrProviderTimeout)
		}
		return nil, fmt.Errorf("%s: read response: %w", c.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %s", c.name, remoteError(resp, data))
	}

	return data, nil
}

// remoteError prefers a structured error field from the body, falling back to
// the status line. Both remove.bg ({"errors":[{"title":...}]}) and Clipdrop
// ({"error":...}) shapes are understood.
func remoteError(resp *http.Response, body []byte) string {
	var multi struct {
		Errors []struct {
			Title string `json:"title"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &multi); err == nil && len(multi.Errors) > 0 && multi.Errors[0].Title != "" {
		return multi.Errors[0].Title
	}

	var single struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &single); err == nil && single.Error != "" {
		return single.Error
	}

	return resp.Status
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ port.BackgroundRemover = (*Client)(nil)
