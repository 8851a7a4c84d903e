package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bridge/engine"
	"github.com/xraph/bridge/observability"
	"github.com/xraph/bridge/router"
)

func newTestServer(t *testing.T, rps float64) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	prom := observability.NewPrometheusExtension(reg)

	d, err := engine.New(engine.WithWorkerCount(2), engine.WithLogger(logger), engine.WithExtension(prom))
	require.NoError(t, err)
	require.NoError(t, prom.WatchGauges(d))
	require.NoError(t, d.Start(context.Background()))

	srv := newServer("", d, router.New(d, greet), reg, rps, logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	})
	return ts
}

func do(t *testing.T, method, url string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServer_Greet(t *testing.T) {
	ts := newTestServer(t, 0)

	resp, body := do(t, http.MethodGet, ts.URL+"/1000-gopher")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello gopher\n", body)
}

func TestServer_GreetTimeout(t *testing.T) {
	ts := newTestServer(t, 0)

	resp, _ := do(t, http.MethodGet, ts.URL+"/50-gopher")
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/0-gopher")
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}

func TestServer_GreetBadPath(t *testing.T) {
	ts := newTestServer(t, 0)

	resp, _ := do(t, http.MethodGet, ts.URL+"/gopher")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, ts.URL+"/soon-gopher")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SubmitInspectCancel(t *testing.T) {
	ts := newTestServer(t, 0)

	resp, body := do(t, http.MethodPost, ts.URL+"/jobs?ms=5000")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &created))

	require.Eventually(t, func() bool {
		_, body := do(t, http.MethodGet, ts.URL+"/jobs/"+created.ID)
		return json.Valid([]byte(body)) && containsState(body, "running")
	}, 2*time.Second, 10*time.Millisecond)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/jobs/"+created.ID)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp, _ := do(t, http.MethodGet, ts.URL+"/jobs/"+created.ID)
		return resp.StatusCode == http.StatusNotFound
	}, 2*time.Second, 10*time.Millisecond)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/jobs/"+created.ID)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func containsState(body, state string) bool {
	var v struct {
		State string `json:"state"`
	}
	return json.Unmarshal([]byte(body), &v) == nil && v.State == state
}

func TestServer_StatsAndMetrics(t *testing.T) {
	ts := newTestServer(t, 0)
	do(t, http.MethodGet, ts.URL+"/1000-a")

	resp, body := do(t, http.MethodGet, ts.URL+"/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		Workers   int               `json:"workers"`
		Submitted uint64            `json:"submitted"`
		Outcomes  map[string]uint64 `json:"outcomes"`
		Pending   int               `json:"pending_requests"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &stats))
	assert.Equal(t, 2, stats.Workers)
	assert.Equal(t, uint64(1), stats.Submitted)
	assert.Equal(t, uint64(1), stats.Outcomes["value"])

	resp, body = do(t, http.MethodGet, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "bridge_jobs_resolved_total")
	assert.Contains(t, body, "bridge_queue_length")
}

func TestServer_RateLimit(t *testing.T) {
	ts := newTestServer(t, 1)

	first, _ := do(t, http.MethodGet, ts.URL+"/stats")
	second, _ := do(t, http.MethodGet, ts.URL+"/stats")
	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}
