package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("sets baseline headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/images/abc", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
		assert.Equal(t, "camera=(), microphone=(), geolocation=()", rec.Header().Get("Permissions-Policy"))
	})

	t.Run("csp locks down to self", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/images/abc", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		csp := rec.Header().Get("Content-Security-Policy")
		assert.Contains(t, csp, "default-src 'none'")
		assert.Contains(t, csp, "img-src 'self' data: blob:")
		assert.Contains(t, csp, "frame-ancestors 'none'")
	})

	t.Run("no hsts on plain http", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/images/abc", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("hsts when request is tls", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/images/abc", nil)
		req.TLS = &tls.ConnectionState{}
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("hsts behind proxy via forwarded proto", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/images/abc", nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
	})
}
