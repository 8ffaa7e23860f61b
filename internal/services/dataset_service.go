package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"climatedash/internal/dataprocessing"
	"climatedash/internal/forecast"
	"climatedash/pkg/contracts/domain"
	"climatedash/pkg/contracts/events"
)

// ReloadListener is notified after every successful load
type ReloadListener func(events.DatasetReloaded)

// DatasetService holds the unified table in memory and answers the
// dashboard queries against it
type DatasetService struct {
	path       string
	forecaster forecast.Provider
	logger     *slog.Logger

	mu        sync.RWMutex
	table     domain.Table
	countries []string
	minYear   int
	maxYear   int
	loadedAt  time.Time
	loaded    bool

	listenersMu sync.RWMutex
	listeners   []ReloadListener
}

// NewDatasetService creates a service for the processed CSV at path.
// forecaster may be nil, in which case no forecasts are produced.
func NewDatasetService(path string, forecaster forecast.Provider, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetService{
		path:       path,
		forecaster: forecaster,
		logger:     logger,
	}
}

// Path returns the processed data file
func (s *DatasetService) Path() string {
	return s.path
}

// OnReload registers a listener for successful loads
func (s *DatasetService) OnReload(fn ReloadListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Load reads the processed data file and replaces the in-memory table
func (s *DatasetService) Load(ctx context.Context) error {
	return s.load(ctx, "load")
}

// Reload is Load triggered by a pipeline run or a file change
func (s *DatasetService) Reload(ctx context.Context, source string) error {
	return s.load(ctx, source)
}

func (s *DatasetService) load(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	table, err := dataprocessing.ReadTable(s.path)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load dataset",
			slog.String("path", s.path),
			slog.String("source", source),
			slog.String("error", err.Error()))
		return fmt.Errorf("load %s: %w", s.path, err)
	}

	s.SetTable(table)

	s.mu.RLock()
	ev := events.DatasetReloaded{
		Rows:      s.table.Len(),
		Countries: append([]string(nil), s.countries...),
		MinYear:   s.minYear,
		MaxYear:   s.maxYear,
		LoadedAt:  s.loadedAt,
		Source:    source,
	}
	s.mu.RUnlock()

	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", s.path),
		slog.String("source", source),
		slog.Int("rows", ev.Rows),
		slog.Int("countries", len(ev.Countries)),
		slog.Duration("duration", time.Since(start)))

	s.listenersMu.RLock()
	listeners := append([]ReloadListener(nil), s.listeners...)
	s.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}
	return nil
}

// SetTable replaces the in-memory table without touching the file
func (s *DatasetService) SetTable(table domain.Table) {
	minYear, maxYear, _ := table.YearBounds()
	countries := table.Countries()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
	s.countries = countries
	s.minYear, s.maxYear = minYear, maxYear
	s.loadedAt = time.Now()
	s.loaded = true
}

// Loaded reports whether a table is available
func (s *DatasetService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Stats returns row count and load time
func (s *DatasetService) Stats() (rows int, loadedAt time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Len(), s.loadedAt
}

// Countries returns the unique countries in first-seen order
func (s *DatasetService) Countries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.countries...)
}

// DefaultCountry is World when present, otherwise the first country
func (s *DatasetService) DefaultCountry() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.countries {
		if c == domain.World {
			return c
		}
	}
	if len(s.countries) > 0 {
		return s.countries[0]
	}
	return ""
}

// YearBounds returns the smallest and largest Year
func (s *DatasetService) YearBounds() (minYear, maxYear int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minYear, s.maxYear, s.loaded && s.table.Len() > 0
}

// Metrics returns the selectable metrics
func (s *DatasetService) Metrics() []domain.MetricOption {
	return append([]domain.MetricOption(nil), domain.SelectableMetrics...)
}

// HasCountry reports whether country appears in the table
func (s *DatasetService) HasCountry(country string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.countries {
		if c == country {
			return true
		}
	}
	return false
}

// ResolveQuery fills defaults and checks the query against the table.
// Zero years mean the full range.
func (s *DatasetService) ResolveQuery(q domain.FigureQuery) (domain.FigureQuery, error) {
	if !s.Loaded() {
		return q, ErrNoData
	}

	if q.Country == "" {
		q.Country = s.DefaultCountry()
	}
	if !s.HasCountry(q.Country) {
		return q, fmt.Errorf("%w: %s", ErrUnknownCountry, q.Country)
	}

	if q.Metric == "" {
		q.Metric = domain.MetricEmissions
	}
	if _, ok := domain.ParseMetric(string(q.Metric)); !ok {
		return q, fmt.Errorf("%w: %s", ErrUnknownMetric, q.Metric)
	}

	minYear, maxYear, _ := s.YearBounds()
	if q.FromYear == 0 {
		q.FromYear = minYear
	}
	if q.ToYear == 0 {
		q.ToYear = maxYear
	}
	if q.FromYear > q.ToYear {
		return q, fmt.Errorf("%w: %d > %d", ErrInvalidRange, q.FromYear, q.ToYear)
	}
	return q, nil
}

// Filter returns the rows with Country == country and from <= Year <= to
func (s *DatasetService) Filter(country string, from, to int) []domain.UnifiedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.UnifiedRecord
	for _, rec := range s.table.Records {
		if rec.Country == country && rec.Year >= from && rec.Year <= to {
			out = append(out, rec)
		}
	}
	return out
}

// AtYear returns every row of the given year, whatever the country
func (s *DatasetService) AtYear(year int) []domain.UnifiedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.UnifiedRecord
	for _, rec := range s.table.Records {
		if rec.Year == year {
			out = append(out, rec)
		}
	}
	return out
}
