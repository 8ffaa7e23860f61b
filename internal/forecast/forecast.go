// Package forecast produces yearly forecasts for a (country, metric) history.
package forecast

import (
	"context"
	"time"

	"climatedash/pkg/contracts/domain"
)

// Provider forecasts a metric. ok is false when it has no forecast for the pair.
type Provider interface {
	Forecast(ctx context.Context, country string, metric domain.Metric, history []domain.Point) (points []domain.ForecastPoint, ok bool)
}

// Chain asks each provider in turn; the first that answers wins.
type Chain []Provider

// Forecast implements Provider.
func (c Chain) Forecast(ctx context.Context, country string, metric domain.Metric, history []domain.Point) ([]domain.ForecastPoint, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if points, ok := p.Forecast(ctx, country, metric, history); ok {
			return points, true
		}
	}
	return nil, false
}

// YearEnd returns Dec 31 of year, the date of a yearly forecast point.
func YearEnd(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}
