package handlers

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"climatedash/internal/charts"
	apierrors "climatedash/internal/errors"
	"climatedash/internal/infrastructure"
	"climatedash/internal/middleware"
	"climatedash/internal/services"
	"climatedash/pkg/contracts/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// markStep is the spacing of year-slider marks
const markStep = 5

// DashboardDefaults overrides the initial dropdown values when they exist in
// the dataset
type DashboardDefaults struct {
	Country string
	Metric  domain.Metric
}

// DashboardHandler serves the dashboard page, its options and its figures
type DashboardHandler struct {
	dataset      *services.DatasetService
	cache        *services.FigureCache
	metrics      *infrastructure.BusinessMetrics
	defaults     DashboardDefaults
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a dashboard handler. cache and metrics may be nil.
func NewDashboardHandler(
	dataset *services.DatasetService,
	cache *services.FigureCache,
	metrics *infrastructure.BusinessMetrics,
	defaults DashboardDefaults,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *DashboardHandler {
	return &DashboardHandler{
		dataset:      dataset,
		cache:        cache,
		metrics:      metrics,
		defaults:     defaults,
		validator:    middleware.NewValidator(),
		logger:       infrastructure.WithComponent(logger, "dashboard_handler"),
		errorHandler: errorHandler,
	}
}

// OptionsResponse feeds the dropdowns and the year slider
type OptionsResponse struct {
	Countries      []string              `json:"countries"`
	DefaultCountry string                `json:"default_country"`
	Metrics        []domain.MetricOption `json:"metrics"`
	DefaultMetric  domain.Metric         `json:"default_metric"`
	MinYear        int                   `json:"min_year"`
	MaxYear        int                   `json:"max_year"`
	Marks          []int                 `json:"marks"`
}

// Options builds the current dropdown and slider state
func (h *DashboardHandler) Options() OptionsResponse {
	opts := OptionsResponse{
		Countries:      h.dataset.Countries(),
		DefaultCountry: h.dataset.DefaultCountry(),
		Metrics:        h.dataset.Metrics(),
		DefaultMetric:  domain.MetricEmissions,
	}
	if h.defaults.Country != "" && h.dataset.HasCountry(h.defaults.Country) {
		opts.DefaultCountry = h.defaults.Country
	}
	if _, ok := domain.ParseMetric(string(h.defaults.Metric)); ok {
		opts.DefaultMetric = h.defaults.Metric
	}
	if minYear, maxYear, ok := h.dataset.YearBounds(); ok {
		opts.MinYear, opts.MaxYear = minYear, maxYear
		opts.Marks = sliderMarks(minYear, maxYear)
	}
	return opts
}

// sliderMarks labels every markStep years starting at the first year
func sliderMarks(minYear, maxYear int) []int {
	var marks []int
	for y := minYear; y <= maxYear; y += markStep {
		marks = append(marks, y)
	}
	return marks
}

// Page handles GET /
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	data := struct {
		OptionsResponse
		Loaded bool
	}{
		OptionsResponse: h.Options(),
		Loaded:          h.dataset.Loaded(),
	}
	h.renderPage(w, r, "dashboard.html", data)
}

// Demo handles GET /demo
func (h *DashboardHandler) Demo(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "demo.html", nil)
}

// DemoChart handles GET /demo/chart.svg
func (h *DashboardHandler) DemoChart(w http.ResponseWriter, r *http.Request) {
	svg, err := charts.Demo()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	writeSVG(w, svg)
}

func (h *DashboardHandler) renderPage(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page",
			slog.String("page", name),
			slog.String("error", err.Error()))
	}
}

// GetOptions handles GET /api/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	if !h.dataset.Loaded() {
		h.errorHandler.HandleError(w, r, apierrors.ErrDatasetNotLoaded)
		return
	}
	render.JSON(w, r, h.Options())
}

// GetFigures handles GET /api/figures
func (h *DashboardHandler) GetFigures(w http.ResponseWriter, r *http.Request) {
	q, err := parseFigureQuery(r, h.validator)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	figs, err := h.dataset.Figures(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, figs)
}

// GetChart handles GET /charts/{figure}.svg
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "figure")
	if !charts.IsFigure(name) {
		h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError("figure "+name).WithContext("figure", name))
		return
	}

	q, err := parseFigureQuery(r, h.validator)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q, err = h.dataset.ResolveQuery(q)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	var key string
	if h.cache != nil {
		key = h.cache.Key(name, q)
		if svg, ok := h.cache.Get(key); ok {
			infrastructure.RecordFigure(r.Context(), h.metrics, name, true)
			writeSVG(w, svg)
			return
		}
	}

	svg, err := h.renderFigure(r.Context(), name, q)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	infrastructure.RecordFigure(r.Context(), h.metrics, name, false)
	if h.cache != nil {
		h.cache.Set(key, svg)
	}
	writeSVG(w, svg)
}

func (h *DashboardHandler) renderFigure(ctx context.Context, name string, q domain.FigureQuery) ([]byte, error) {
	switch name {
	case charts.FigureTimeSeries:
		fig, err := h.dataset.TimeSeries(q)
		if err != nil {
			return nil, err
		}
		return charts.TimeSeries(fig)
	case charts.FigureCorrelation:
		fig, err := h.dataset.Correlation(q)
		if err != nil {
			return nil, err
		}
		return charts.Correlation(fig)
	case charts.FigureComparison:
		fig, err := h.dataset.Comparison(q)
		if err != nil {
			return nil, err
		}
		return charts.Comparison(fig)
	default:
		fig, err := h.dataset.ForecastOverlay(ctx, q)
		if err != nil {
			return nil, err
		}
		return charts.Forecast(fig)
	}
}

func writeSVG(w http.ResponseWriter, svg []byte) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}
