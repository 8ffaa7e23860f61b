package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "climatedash/internal/errors"
	"climatedash/internal/forecast"
	"climatedash/internal/services"
	"climatedash/internal/shared/testutil"
	"climatedash/pkg/contracts/domain"
)

func loadedDataset(t *testing.T) *services.DatasetService {
	t.Helper()
	ds := services.NewDatasetService(testutil.TempProcessedCSV(t), forecast.NewLinearTrend(2, 1.96), nil)
	require.NoError(t, ds.Load(context.Background()))
	return ds
}

func dashboardRouter(h *DashboardHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Page)
	r.Get("/demo", h.Demo)
	r.Get("/demo/chart.svg", h.DemoChart)
	r.Get("/api/options", h.GetOptions)
	r.Get("/api/figures", h.GetFigures)
	r.Get("/charts/{figure}.svg", h.GetChart)
	return r
}

func newDashboardHandler(ds *services.DatasetService, cache *services.FigureCache) *DashboardHandler {
	return NewDashboardHandler(ds, cache, nil, DashboardDefaults{}, nil, apierrors.NewErrorHandler(nil, false))
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSliderMarks(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		want     []int
	}{
		{"single year", 2000, 2000, []int{2000}},
		{"steps of five", 1990, 2012, []int{1990, 1995, 2000, 2005, 2010}},
		{"start is not rounded", 1991, 2001, []int{1991, 1996, 2001}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, sliderMarks(tt.min, tt.max)); diff != "" {
				t.Errorf("sliderMarks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetOptions(t *testing.T) {
	h := newDashboardHandler(loadedDataset(t), nil)
	rec := serve(t, dashboardRouter(h), http.MethodGet, "/api/options")
	require.Equal(t, http.StatusOK, rec.Code)

	var got OptionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"China", domain.World}, got.Countries)
	assert.Equal(t, domain.World, got.DefaultCountry)
	assert.Equal(t, domain.MetricEmissions, got.DefaultMetric)
	assert.Equal(t, 2000, got.MinYear)
	assert.Equal(t, 2005, got.MaxYear)
	assert.Equal(t, []int{2000, 2005}, got.Marks)
	assert.Equal(t, domain.SelectableMetrics, got.Metrics)
}

func TestOptionsDefaultsOverride(t *testing.T) {
	ds := loadedDataset(t)
	h := NewDashboardHandler(ds, nil, nil, DashboardDefaults{
		Country: "China",
		Metric:  domain.MetricGDPPerCapita,
	}, nil, apierrors.NewErrorHandler(nil, false))
	opts := h.Options()
	assert.Equal(t, "China", opts.DefaultCountry)
	assert.Equal(t, domain.MetricGDPPerCapita, opts.DefaultMetric)

	h.defaults = DashboardDefaults{Country: "Atlantis", Metric: "Nope"}
	opts = h.Options()
	assert.Equal(t, domain.World, opts.DefaultCountry)
	assert.Equal(t, domain.MetricEmissions, opts.DefaultMetric)
}

func TestGetOptionsNotLoaded(t *testing.T) {
	ds := services.NewDatasetService(filepath.Join(t.TempDir(), "missing.csv"), nil, nil)
	rec := serve(t, dashboardRouter(newDashboardHandler(ds, nil)), http.MethodGet, "/api/options")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "DATASET_NOT_LOADED")
}

func TestPage(t *testing.T) {
	h := newDashboardHandler(loadedDataset(t), nil)
	rec := serve(t, dashboardRouter(h), http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	for _, want := range []string{
		"<h1>Climate Change Analysis Dashboard</h1>",
		"<h2>Forecasting Results</h2>",
		`id="country-selector"`,
		`id="metric-selector"`,
		`id="year-slider"`,
		`id="time-series-plot"`,
		`id="correlation-plot"`,
		`id="comparative-plot"`,
		`id="forecast-plot"`,
		`<option value="World" selected>World</option>`,
		`<option value="Emissions" selected>Emissions</option>`,
	} {
		assert.Contains(t, body, want)
	}
	assert.NotContains(t, body, "dataset-notice")
}

func TestPageWithoutDataset(t *testing.T) {
	ds := services.NewDatasetService(filepath.Join(t.TempDir(), "missing.csv"), nil, nil)
	rec := serve(t, dashboardRouter(newDashboardHandler(ds, nil)), http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dataset-notice")
}

func TestDemo(t *testing.T) {
	router := dashboardRouter(newDashboardHandler(loadedDataset(t), nil))

	rec := serve(t, router, http.MethodGet, "/demo")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Test Dash App</h1>")
	assert.Contains(t, rec.Body.String(), `src="/demo/chart.svg"`)

	rec = serve(t, router, http.MethodGet, "/demo/chart.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestGetFigures(t *testing.T) {
	h := newDashboardHandler(loadedDataset(t), nil)
	rec := serve(t, dashboardRouter(h), http.MethodGet, "/api/figures?country=China&metric=Emissions&from=2000&to=2001")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Figures
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "China", got.Query.Country)
	assert.Len(t, got.TimeSeries.Points, 2)
	assert.Equal(t, "Emissions Over Time - China", got.TimeSeries.Title)
	assert.Equal(t, 2001, got.Comparison.Year)
}

func TestGetFiguresValidation(t *testing.T) {
	h := newDashboardHandler(loadedDataset(t), nil)
	router := dashboardRouter(h)

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"year not a number", "from=abc", "from"},
		{"reversed range", "from=2003&to=2000", "to"},
		{"unknown metric", "metric=Happiness", "metric"},
		{"unknown country", "country=Atlantis", "country"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, router, http.MethodGet, "/api/figures?"+tt.query)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var problem map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, "VALIDATION_FAILED", problem["error_code"])
			assert.Contains(t, rec.Body.String(), `"field":"`+tt.field+`"`)
		})
	}
}

func TestGetChart(t *testing.T) {
	cache := services.NewFigureCache(0)
	h := newDashboardHandler(loadedDataset(t), cache)
	router := dashboardRouter(h)

	for _, name := range []string{"timeseries", "correlation", "comparison", "forecast"} {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, router, http.MethodGet, "/charts/"+name+".svg?country=World")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
			assert.True(t, strings.Contains(rec.Body.String(), "<svg"))
		})
	}
	assert.Equal(t, 4, cache.Len())

	// A second request is served from the cache.
	first := serve(t, router, http.MethodGet, "/charts/timeseries.svg?country=World")
	second := serve(t, router, http.MethodGet, "/charts/timeseries.svg?country=World")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 4, cache.Len())
}

func TestGetChartErrors(t *testing.T) {
	router := dashboardRouter(newDashboardHandler(loadedDataset(t), nil))

	rec := serve(t, router, http.MethodGet, "/charts/pie.svg")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "NOT_FOUND", problem["error_type"])
	assert.Equal(t, "figure pie not found", problem["detail"])

	rec = serve(t, router, http.MethodGet, "/charts/timeseries.svg?country=Atlantis")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ds := services.NewDatasetService(filepath.Join(t.TempDir(), "missing.csv"), nil, nil)
	rec = serve(t, dashboardRouter(newDashboardHandler(ds, nil)), http.MethodGet, "/charts/timeseries.svg")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
