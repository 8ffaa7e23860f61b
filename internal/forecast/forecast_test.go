package forecast

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatedash/pkg/contracts/domain"
)

func linearHistory(from, to int, slope, intercept float64) []domain.Point {
	var out []domain.Point
	for y := from; y <= to; y++ {
		out = append(out, domain.Point{Year: y, Value: intercept + slope*float64(y)})
	}
	return out
}

func TestLinearTrendExactLine(t *testing.T) {
	trend := NewLinearTrend(0, 0)
	assert.Equal(t, DefaultHorizon, trend.Horizon)
	assert.Equal(t, DefaultZ, trend.Z)

	points, ok := trend.Forecast(context.Background(), "China", domain.MetricEmissions, linearHistory(2000, 2010, 2, -3000))
	require.True(t, ok)
	require.Len(t, points, DefaultHorizon)

	first := points[0]
	assert.Equal(t, 2011, first.Year)
	assert.Equal(t, time.Date(2011, time.December, 31, 0, 0, 0, 0, time.UTC), first.Date)
	assert.InDelta(t, 1022.0, first.Yhat, 1e-6)
	// A perfect fit has no residual spread.
	assert.InDelta(t, first.Yhat, first.YhatLower, 1e-6)
	assert.InDelta(t, first.Yhat, first.YhatUpper, 1e-6)
	assert.Equal(t, 2015, points[4].Year)
}

func TestLinearTrendInterval(t *testing.T) {
	history := []domain.Point{
		{Year: 2000, Value: 1},
		{Year: 2001, Value: 3},
		{Year: 2002, Value: 2},
		{Year: 2003, Value: 4},
	}

	points, ok := LinearTrend{Horizon: 2, Z: 2}.Forecast(context.Background(), "", "", history)
	require.True(t, ok)
	require.Len(t, points, 2)

	// y = 1.3 + 0.8x on x = year-2000; residuals 0.3,-0.9,0.9,-0.3 -> sse 1.8
	band := 2 * 0.9486832980505138
	assert.InDelta(t, 1.3+0.8*4, points[0].Yhat, 1e-9)
	assert.InDelta(t, points[0].Yhat-band, points[0].YhatLower, 1e-9)
	assert.InDelta(t, points[0].Yhat+band, points[0].YhatUpper, 1e-9)
}

func TestLinearTrendNeedsThreePoints(t *testing.T) {
	_, ok := NewLinearTrend(5, 1.96).Forecast(context.Background(), "", "", linearHistory(2000, 2001, 1, 0))
	assert.False(t, ok)

	same := []domain.Point{{Year: 2000, Value: 1}, {Year: 2000, Value: 2}, {Year: 2000, Value: 3}}
	_, ok = NewLinearTrend(5, 1.96).Forecast(context.Background(), "", "", same)
	assert.False(t, ok)
}

func writeForecasts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forecasts.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileProvider(t *testing.T) {
	path := writeForecasts(t, "Country,Metric,ds,yhat,yhat_lower,yhat_upper\n"+
		"China,Emissions,2025-12-31,12,11,13\n"+
		"China,Emissions,2024-12-31,10,9,11\n"+
		"China,Unknown,2024-12-31,1,1,1\n"+
		"India,GDP_per_capita,2024,bad,1,2\n")

	p := NewFileProvider(path, nil)
	require.NoError(t, p.Load())
	assert.Equal(t, 1, p.Len())

	points, ok := p.Forecast(context.Background(), "China", domain.MetricEmissions, nil)
	require.True(t, ok)
	require.Len(t, points, 2)
	assert.Equal(t, 2024, points[0].Year)
	assert.Equal(t, 10.0, points[0].Yhat)
	assert.Equal(t, 13.0, points[1].YhatUpper)

	_, ok = p.Forecast(context.Background(), "India", domain.MetricGDPPerCapita, nil)
	assert.False(t, ok)
}

func TestFileProviderMissingFile(t *testing.T) {
	p := NewFileProvider(filepath.Join(t.TempDir(), "forecasts.csv"), nil)
	require.NoError(t, p.Load())
	assert.Equal(t, 0, p.Len())
}

func TestFileProviderMissingColumn(t *testing.T) {
	p := NewFileProvider(writeForecasts(t, "Country,Metric,ds,yhat\nChina,Emissions,2024-12-31,1\n"), nil)
	assert.Error(t, p.Load())
}

func TestChain(t *testing.T) {
	file := NewFileProvider(writeForecasts(t, "Country,Metric,ds,yhat,yhat_lower,yhat_upper\n"+
		"World,Emissions,2030,1,0,2\n"), nil)
	require.NoError(t, file.Load())

	chain := Chain{nil, file, NewLinearTrend(3, 1.96)}
	history := linearHistory(2000, 2010, 1, 0)

	points, ok := chain.Forecast(context.Background(), domain.World, domain.MetricEmissions, history)
	require.True(t, ok)
	require.Len(t, points, 1)
	assert.Equal(t, YearEnd(2030), points[0].Date)

	points, ok = chain.Forecast(context.Background(), "Japan", domain.MetricEmissions, history)
	require.True(t, ok)
	assert.Len(t, points, 3)

	_, ok = chain.Forecast(context.Background(), "Japan", domain.MetricEmissions, nil)
	assert.False(t, ok)
}
