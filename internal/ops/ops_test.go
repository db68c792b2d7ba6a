package ops

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarchuk/fraudetl/internal/health"
)

func testServer(t *testing.T, registry *health.Registry) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New("127.0.0.1:0", registry, logger, false)
	ts := httptest.NewServer(s.srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz_Healthy(t *testing.T) {
	registry := health.NewRegistry()
	registry.Register("always_ok", func(ctx context.Context) health.Status {
		return health.Status{Name: "always_ok", Healthy: true}
	})

	ts := testServer(t, registry)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"healthy":true`)
}

func TestHealthz_Unhealthy(t *testing.T) {
	registry := health.NewRegistry()
	registry.Register("broken", func(ctx context.Context) health.Status {
		return health.Status{Name: "broken", Healthy: false, Detail: "connection refused"}
	})

	ts := testServer(t, registry)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := testServer(t, health.NewRegistry())
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "fraudetl_") ||
		strings.Contains(string(body), "go_goroutines"))
}
