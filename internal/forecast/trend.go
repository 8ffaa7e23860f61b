package forecast

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"climatedash/pkg/contracts/domain"
)

// Defaults for LinearTrend.
const (
	DefaultHorizon = 5
	DefaultZ       = 1.96
	minTrendPoints = 3
)

// LinearTrend fits a least-squares line to the history and extends it
// Horizon years past the last observation. The interval is
// yhat ± Z * residual standard deviation.
type LinearTrend struct {
	Horizon int
	Z       float64
}

// NewLinearTrend returns a trend forecaster, substituting defaults for zero values.
func NewLinearTrend(horizon int, z float64) LinearTrend {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if z <= 0 {
		z = DefaultZ
	}
	return LinearTrend{Horizon: horizon, Z: z}
}

// Forecast implements Provider.
func (t LinearTrend) Forecast(ctx context.Context, _ string, _ domain.Metric, history []domain.Point) ([]domain.ForecastPoint, bool) {
	if ctx.Err() != nil || t.Horizon <= 0 {
		return nil, false
	}

	points := make([]domain.Point, 0, len(history))
	for _, p := range history {
		if !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0) {
			points = append(points, p)
		}
	}
	if len(points) < minTrendPoints {
		return nil, false
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Year < points[j].Year })

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.Year)
		ys[i] = p.Value
	}
	if stat.Variance(xs, nil) == 0 {
		return nil, false
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	var sse float64
	for i := range xs {
		r := ys[i] - (alpha + beta*xs[i])
		sse += r * r
	}
	sigma := math.Sqrt(sse / float64(len(xs)-2))
	band := t.Z * sigma

	last := points[len(points)-1].Year
	out := make([]domain.ForecastPoint, 0, t.Horizon)
	for h := 1; h <= t.Horizon; h++ {
		year := last + h
		yhat := alpha + beta*float64(year)
		out = append(out, domain.ForecastPoint{
			Date:      YearEnd(year),
			Year:      year,
			Yhat:      yhat,
			YhatLower: yhat - band,
			YhatUpper: yhat + band,
		})
	}
	return out, true
}
