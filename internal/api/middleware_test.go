package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(s *Server, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, r)
	return rec
}

func TestRequestID(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("generated", func(t *testing.T) {
		rec := serve(ts.Server, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	})

	t.Run("client supplied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestIDHeader, "abc-123")
		rec := serve(ts.Server, req)
		assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
	})

	t.Run("oversized replaced", func(t *testing.T) {
		long := strings.Repeat("x", maxRequestIDLength+1)
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestIDHeader, long)
		rec := serve(ts.Server, req)
		got := rec.Header().Get(requestIDHeader)
		assert.NotEmpty(t, got)
		assert.NotEqual(t, long, got)
	})
}

func TestRateLimit(t *testing.T) {
	ts := setupTestServerWithOptions(t, Options{RequestsPerMinute: 1, Burst: 2})
	ts.addSet("75192-1", "Millennium Falcon")

	for range 2 {
		rec := serve(ts.Server, httptest.NewRequest(http.MethodGet, "/api/v1/sets/75192-1", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := serve(ts.Server, httptest.NewRequest(http.MethodGet, "/api/v1/sets/75192-1", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), codeRateLimited)

	// Other clients and non-API paths are unaffected.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sets/75192-1", nil)
	req.RemoteAddr = "198.51.100.7:4321"
	assert.Equal(t, http.StatusOK, serve(ts.Server, req).Code)

	rec = serve(ts.Server, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		assert.Equal(t, tt.want, getClientIP(r), tt.remote)
	}
}

func TestCORS(t *testing.T) {
	ts := setupTestServerWithOptions(t, Options{CORSOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := serve(ts.Server, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = serve(ts.Server, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	serve(ts.Server, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := serve(ts.Server, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "brickcomplete_http_requests_total")
}
