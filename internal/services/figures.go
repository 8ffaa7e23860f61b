package services

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"climatedash/pkg/contracts/domain"
)

// TimeSeries returns the metric over time for the filtered rows. Missing
// values are reported as gaps.
func (s *DatasetService) TimeSeries(q domain.FigureQuery) (domain.TimeSeriesFigure, error) {
	q, err := s.ResolveQuery(q)
	if err != nil {
		return domain.TimeSeriesFigure{}, err
	}
	return timeSeries(q, s.Filter(q.Country, q.FromYear, q.ToYear)), nil
}

func timeSeries(q domain.FigureQuery, rows []domain.UnifiedRecord) domain.TimeSeriesFigure {
	fig := domain.TimeSeriesFigure{
		Title:   fmt.Sprintf("%s Over Time - %s", q.Metric, q.Country),
		Country: q.Country,
		Metric:  q.Metric,
		Points:  make([]domain.Point, 0, len(rows)),
	}
	for _, rec := range rows {
		if v, ok := rec.Get(q.Metric); ok {
			fig.Points = append(fig.Points, domain.Point{Year: rec.Year, Value: v})
		} else {
			fig.Gaps = append(fig.Gaps, rec.Year)
		}
	}
	return fig
}

// Correlation returns the Pearson correlation matrix of the correlation
// metrics over the filtered rows, using pairwise-complete observations.
func (s *DatasetService) Correlation(q domain.FigureQuery) (domain.CorrelationFigure, error) {
	q, err := s.ResolveQuery(q)
	if err != nil {
		return domain.CorrelationFigure{}, err
	}
	return correlation(q, s.Filter(q.Country, q.FromYear, q.ToYear)), nil
}

func correlation(q domain.FigureQuery, rows []domain.UnifiedRecord) domain.CorrelationFigure {
	metrics := domain.CorrelationMetrics
	fig := domain.CorrelationFigure{
		Title:   fmt.Sprintf("Correlation Matrix - %s", q.Country),
		Country: q.Country,
		Metrics: append([]domain.Metric(nil), metrics...),
		Matrix:  make([][]*float64, len(metrics)),
	}
	for i := range metrics {
		fig.Matrix[i] = make([]*float64, len(metrics))
	}
	for i := range metrics {
		for j := i; j < len(metrics); j++ {
			r := pairwiseCorrelation(rows, metrics[i], metrics[j])
			fig.Matrix[i][j] = r
			fig.Matrix[j][i] = r
		}
	}
	return fig
}

// pairwiseCorrelation is nil with fewer than two complete pairs or when
// either side has no variance.
func pairwiseCorrelation(rows []domain.UnifiedRecord, a, b domain.Metric) *float64 {
	xs := make([]float64, 0, len(rows))
	ys := make([]float64, 0, len(rows))
	for _, rec := range rows {
		x, okX := rec.Get(a)
		y, okY := rec.Get(b)
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return nil
	}
	if stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
		return nil
	}
	return domain.Float(stat.Correlation(xs, ys, nil))
}

// Comparison returns every country's metric value in the latest year of the
// filtered rows. An empty filter yields an empty comparison.
func (s *DatasetService) Comparison(q domain.FigureQuery) (domain.ComparisonFigure, error) {
	q, err := s.ResolveQuery(q)
	if err != nil {
		return domain.ComparisonFigure{}, err
	}
	return s.comparison(q, s.Filter(q.Country, q.FromYear, q.ToYear)), nil
}

func (s *DatasetService) comparison(q domain.FigureQuery, rows []domain.UnifiedRecord) domain.ComparisonFigure {
	fig := domain.ComparisonFigure{Metric: q.Metric}
	if len(rows) == 0 {
		fig.Title = fmt.Sprintf("%s Comparison", q.Metric)
		return fig
	}

	latest := rows[0].Year
	for _, rec := range rows[1:] {
		if rec.Year > latest {
			latest = rec.Year
		}
	}
	fig.Year = latest
	fig.Title = fmt.Sprintf("%s Comparison (%d)", q.Metric, latest)

	for _, rec := range s.AtYear(latest) {
		fig.Bars = append(fig.Bars, domain.ComparisonBar{Country: rec.Country, Value: rec.Values[q.Metric]})
	}
	return fig
}

// ForecastOverlay returns the history with the provider's forecast. Without a
// forecast the figure is empty.
func (s *DatasetService) ForecastOverlay(ctx context.Context, q domain.FigureQuery) (domain.ForecastFigure, error) {
	q, err := s.ResolveQuery(q)
	if err != nil {
		return domain.ForecastFigure{}, err
	}
	return s.forecastOverlay(ctx, q, s.Filter(q.Country, q.FromYear, q.ToYear)), nil
}

func (s *DatasetService) forecastOverlay(ctx context.Context, q domain.FigureQuery, rows []domain.UnifiedRecord) domain.ForecastFigure {
	fig := domain.ForecastFigure{
		Title:   fmt.Sprintf("%s Forecast - %s", q.Metric, q.Country),
		Country: q.Country,
		Metric:  q.Metric,
	}
	if s.forecaster == nil {
		return fig
	}

	history := timeSeries(q, rows).Points
	points, ok := s.forecaster.Forecast(ctx, q.Country, q.Metric, history)
	if !ok || len(points) == 0 {
		return fig
	}
	fig.Historical = history
	fig.Forecast = points
	return fig
}

// Figures computes all four figures from one filter pass
func (s *DatasetService) Figures(ctx context.Context, q domain.FigureQuery) (domain.Figures, error) {
	q, err := s.ResolveQuery(q)
	if err != nil {
		return domain.Figures{}, err
	}
	rows := s.Filter(q.Country, q.FromYear, q.ToYear)

	return domain.Figures{
		Query:       q,
		TimeSeries:  timeSeries(q, rows),
		Correlation: correlation(q, rows),
		Comparison:  s.comparison(q, rows),
		Forecast:    s.forecastOverlay(ctx, q, rows),
	}, nil
}
