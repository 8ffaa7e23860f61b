package forecast

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"climatedash/internal/dataprocessing"
	"climatedash/internal/errors"
	"climatedash/pkg/contracts/domain"
)

// Columns of forecasts.csv.
const (
	ColumnCountry   = "Country"
	ColumnMetric    = "Metric"
	ColumnDate      = "ds"
	ColumnYhat      = "yhat"
	ColumnYhatLower = "yhat_lower"
	ColumnYhatUpper = "yhat_upper"
)

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "2006"}

type seriesKey struct {
	country string
	metric  domain.Metric
}

// FileProvider serves precomputed forecasts read from a CSV file keyed by
// country then metric.
type FileProvider struct {
	path   string
	logger *slog.Logger

	mu        sync.RWMutex
	forecasts map[seriesKey][]domain.ForecastPoint
}

// NewFileProvider creates a provider for path. Call Load before use.
func NewFileProvider(path string, logger *slog.Logger) *FileProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileProvider{
		path:      path,
		logger:    logger,
		forecasts: make(map[seriesKey][]domain.ForecastPoint),
	}
}

// Load (re)reads the file. A missing file leaves the provider empty.
func (p *FileProvider) Load() error {
	if p.path == "" {
		return nil
	}

	df, err := dataprocessing.ReadCSVFile(p.path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			p.logger.Debug("no forecast file", slog.String("path", p.path))
			p.replace(map[seriesKey][]domain.ForecastPoint{})
			return nil
		}
		return errors.NewParsingError("failed to read forecasts", err).WithContext("path", p.path)
	}

	names := make(map[string]bool, df.Ncol())
	for _, n := range df.Names() {
		names[n] = true
	}
	for _, col := range []string{ColumnCountry, ColumnMetric, ColumnDate, ColumnYhat, ColumnYhatLower, ColumnYhatUpper} {
		if !names[col] {
			return errors.NewParsingError(fmt.Sprintf("forecasts file has no %q column", col), nil).WithContext("path", p.path)
		}
	}

	var (
		countries = df.Col(ColumnCountry).Records()
		metrics   = df.Col(ColumnMetric).Records()
		dates     = df.Col(ColumnDate).Records()
		yhat      = df.Col(ColumnYhat).Records()
		lower     = df.Col(ColumnYhatLower).Records()
		upper     = df.Col(ColumnYhatUpper).Records()
	)

	forecasts := make(map[seriesKey][]domain.ForecastPoint)
	skipped := 0
	for i := range countries {
		metric, ok := domain.ParseMetric(strings.TrimSpace(metrics[i]))
		date, dateOK := parseDate(dates[i])
		y, yOK := parseFloat(yhat[i])
		lo, loOK := parseFloat(lower[i])
		hi, hiOK := parseFloat(upper[i])
		if !ok || !dateOK || !yOK || !loOK || !hiOK {
			skipped++
			continue
		}

		key := seriesKey{country: strings.TrimSpace(countries[i]), metric: metric}
		forecasts[key] = append(forecasts[key], domain.ForecastPoint{
			Date:      date,
			Year:      date.Year(),
			Yhat:      y,
			YhatLower: lo,
			YhatUpper: hi,
		})
	}
	for _, points := range forecasts {
		sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	}

	p.replace(forecasts)
	p.logger.Info("forecasts loaded",
		slog.String("path", p.path),
		slog.Int("series", len(forecasts)),
		slog.Int("skipped_rows", skipped))
	return nil
}

func (p *FileProvider) replace(forecasts map[seriesKey][]domain.ForecastPoint) {
	p.mu.Lock()
	p.forecasts = forecasts
	p.mu.Unlock()
}

// Len returns the number of (country, metric) series loaded.
func (p *FileProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.forecasts)
}

// Forecast implements Provider.
func (p *FileProvider) Forecast(_ context.Context, country string, metric domain.Metric, _ []domain.Point) ([]domain.ForecastPoint, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	points, ok := p.forecasts[seriesKey{country: country, metric: metric}]
	if !ok || len(points) == 0 {
		return nil, false
	}
	return append([]domain.ForecastPoint(nil), points...), true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if layout == "2006" {
				return YearEnd(t.Year()), true
			}
			return t, true
		}
	}
	return time.Time{}, false
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}
