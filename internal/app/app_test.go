package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatedash/internal/config"
	"climatedash/internal/shared/testutil"
	"climatedash/pkg/contracts/events"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Paths.InputDir = filepath.Join(dir, "climate_data")
	cfg.Paths.OutputDir = filepath.Join(dir, "out")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")
	cfg.Dashboard.WatchFile = false
	cfg.Security.RateLimit.Enabled = false
	cfg.Telemetry.MetricsEnabled = true
	cfg.Telemetry.TracingEnabled = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts Options) *Application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := NewApplication(cfg, logger, opts)
	require.NoError(t, err)
	return a
}

func writeProcessed(t *testing.T, a *Application) {
	t.Helper()
	testutil.WriteProcessedCSV(t, a.Paths.ProcessedCSV)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewApplicationResolvesPaths(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg, Options{})

	assert.Equal(t, filepath.Join(cfg.Paths.OutputDir, "processed_data.csv"), a.Paths.ProcessedCSV)
	assert.DirExists(t, cfg.Paths.OutputDir)
	assert.NotNil(t, a.OTelProviders.PrometheusHTTP)
	assert.NotNil(t, a.Router)
}

func TestRoutes(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})
	writeProcessed(t, a)
	a.PrepareData(context.Background(), false)
	require.True(t, a.Dataset.Loaded())

	tests := []struct {
		target      string
		status      int
		contentType string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/demo", http.StatusOK, "text/html"},
		{"/demo/chart.svg", http.StatusOK, "image/svg+xml"},
		{"/charts/timeseries.svg?country=China", http.StatusOK, "image/svg+xml"},
		{"/api/options", http.StatusOK, "application/json"},
		{"/api/figures?country=World&metric=Emissions", http.StatusOK, "application/json"},
		{"/api/health", http.StatusOK, "application/json"},
		{"/api/health/ready", http.StatusOK, "application/json"},
		{"/api/health/live", http.StatusOK, "application/json"},
		{"/api/version", http.StatusOK, "application/json"},
		{"/api/pipeline/status", http.StatusOK, "application/json"},
		{"/api/data/download/processed_data.csv", http.StatusOK, "text/csv"},
		{"/api/data/download/summary_statistics.csv", http.StatusNotFound, ""},
		{"/metrics", http.StatusOK, "text/plain"},
		{"/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, a.Router, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			if tt.contentType != "" {
				assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), tt.contentType),
					"content type %q", rec.Header().Get("Content-Type"))
			}
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestDemoOnlyRoutes(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{DemoOnly: true})

	rec := get(t, a.Router, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Test Dash App")

	assert.Equal(t, http.StatusOK, get(t, a.Router, "/demo/chart.svg").Code)
	assert.Equal(t, http.StatusNotFound, get(t, a.Router, "/api/options").Code)
	assert.Equal(t, http.StatusNotFound, get(t, a.Router, "/charts/timeseries.svg").Code)
}

func TestPrepareDataWithoutDataset(t *testing.T) {
	logger, logs := testutil.NewTestLogger(nil)
	a, err := NewApplication(testConfig(t), logger, Options{})
	require.NoError(t, err)
	a.PrepareData(context.Background(), true)

	testutil.AssertLogContains(t, logs, slog.LevelError, "pipeline run failed")
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "dashboard starts without data")

	assert.False(t, a.Dataset.Loaded())
	assert.Equal(t, "failed", a.Pipeline.Status().Status)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, a.Router, "/api/options").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, a.Router, "/api/health/ready").Code)
}

func TestReloadFlushesFigureCache(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})
	writeProcessed(t, a)
	a.PrepareData(context.Background(), false)

	require.Equal(t, http.StatusOK, get(t, a.Router, "/charts/comparison.svg").Code)
	require.Equal(t, 1, a.FigureCache.Len())

	require.NoError(t, a.Dataset.Reload(context.Background(), "test"))
	assert.Equal(t, 0, a.FigureCache.Len())
}

func TestStartStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dashboard.WatchFile = true
	cfg.Dashboard.WatchDebounce = 20 * time.Millisecond
	a := newTestApp(t, cfg, Options{})
	writeProcessed(t, a)
	a.PrepareData(context.Background(), false)

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	resp, err := http.Get(a.URL() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The watcher picks up a rewritten file.
	reloaded := make(chan events.DatasetReloaded, 1)
	a.Dataset.OnReload(func(ev events.DatasetReloaded) {
		select {
		case reloaded <- ev:
		default:
		}
	})
	writeProcessed(t, a)
	select {
	case ev := <-reloaded:
		assert.Equal(t, testutil.ProcessedRows, ev.Rows)
	case <-time.After(5 * time.Second):
		t.Fatal("dataset was not reloaded")
	}

	require.NoError(t, a.Stop(ctx))
	_, err = http.Get(a.URL() + "/api/health")
	assert.Error(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{DemoOnly: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case <-a.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	resp, err := http.Get(a.URL() + "/demo")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
	}
}
