package removal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/backdrop/config"
	"github.com/bnema/backdrop/internal/domain"
)

func testClient(t *testing.T, srv *httptest.Server, timeout time.Duration) *Client {
	t.Helper()
	return &Client{
		name:      "removebg",
		endpoint:  srv.URL,
		keyHeader: "X-Api-Key",
		apiKey:    "test-key",
		httpc:     srv.Client(),
		timeout:   timeout,
	}
}

func TestClient_Remove_Success(t *testing.T) {
	want := []byte("processed-image-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("image_file")
		require.NoError(t, err)
		defer file.Close() //nolint:errcheck

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(want)
	}))
	defer srv.Close()

	client := testClient(t, srv, 5*time.Second)

	got, err := client.Remove(context.Background(), []byte("input"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestClient_Remove_StructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"errors":[{"title":"Insufficient credits"}]}`))
	}))
	defer srv.Close()

	client := testClient(t, srv, 5*time.Second)

	_, err := client.Remove(context.Background(), []byte("input"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Insufficient credits")
	assert.NotErrorIs(t, err, domain.ErrProviderTimeout)
}

func TestClient_Remove_SingleFieldError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"image too large"}`))
	}))
	defer srv.Close()

	client := testClient(t, srv, 5*time.Second)

	_, err := client.Remove(context.Background(), []byte("input"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image too large")
}

func TestClient_Remove_StatusLineFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := testClient(t, srv, 5*time.Second)

	_, err := client.Remove(context.Background(), []byte("input"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_Remove_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := testClient(t, srv, 50*time.Millisecond)

	_, err := client.Remove(context.Background(), []byte("input"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderTimeout)
}

func TestClient_Validate(t *testing.T) {
	c := &Client{name: "removebg", apiKey: "good-key"}
	assert.NoError(t, c.Validate())

	c.apiKey = ""
	assert.Error(t, c.Validate())

	c.apiKey = " padded-key "
	assert.Error(t, c.Validate())
}

func TestMock_Remove_ReturnsInputUnchanged(t *testing.T) {
	m := NewMock()

	in := []byte{0x89, 'P', 'N', 'G'}
	out, err := m.Remove(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.NoError(t, m.Validate())
}

func TestNew_ProviderSelection(t *testing.T) {
	cfg := &config.Config{Provider: "mock", ProviderTimeout: time.Minute}
	r, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", r.Name())

	cfg = &config.Config{Provider: "removebg", RemoveBgAPIKey: "k", ProviderTimeout: time.Minute}
	r, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "removebg", r.Name())

	cfg = &config.Config{Provider: "clipdrop", ClipdropAPIKey: "k", ProviderTimeout: time.Minute}
	r, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "clipdrop", r.Name())
}

func TestNew_MissingCredential(t *testing.T) {
	// Production: hard configuration error.
	cfg := &config.Config{Provider: "removebg", Env: "production", ProviderTimeout: time.Minute}
	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REMOVEBG_API_KEY")

	// Development: silent mock fallback.
	cfg = &config.Config{Provider: "removebg", Env: "development", ProviderTimeout: time.Minute}
	r, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", r.Name())
}
