package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type docCount uint64

func (c docCount) DocumentCount() (uint64, error) { return uint64(c), nil }

func TestHealth(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("disk gone") })

	tests := []struct {
		name       string
		checks     HealthChecks
		wantStatus int
		wantBody   string
	}{
		{
			name:       "all healthy",
			checks:     HealthChecks{Catalog: ok, UserStore: ok, Search: docCount(12)},
			wantStatus: http.StatusOK,
			wantBody:   statusHealthy,
		},
		{
			name:       "empty index degrades",
			checks:     HealthChecks{Catalog: ok, UserStore: ok, Search: docCount(0)},
			wantStatus: http.StatusOK,
			wantBody:   statusDegraded,
		},
		{
			name:       "missing components degrade",
			checks:     HealthChecks{UserStore: ok},
			wantStatus: http.StatusOK,
			wantBody:   statusDegraded,
		},
		{
			name:       "unreachable store",
			checks:     HealthChecks{Catalog: down, UserStore: ok, Search: docCount(12)},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   statusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServer(t)
			ts.health = tt.checks

			resp := ts.api.Get("/health")
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())

			body := decode[HealthResponse](t, resp)
			assert.Equal(t, tt.wantBody, body.Status)
			assert.Contains(t, body.Components, "catalog")
			assert.Contains(t, body.Components, "user_store")
			assert.Contains(t, body.Components, "search")
		})
	}
}

func TestHealth_UsesBadgerStore(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	body := decode[HealthResponse](t, resp)
	assert.Equal(t, statusHealthy, body.Components["user_store"].Status)
	assert.Equal(t, statusDegraded, body.Components["catalog"].Status)
}
