package charts

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatedash/pkg/contracts/domain"
)

// requireSVG checks a renderer result: requireSVG(t)(TimeSeries(fig)).
func requireSVG(t *testing.T) func(data []byte, err error) string {
	t.Helper()
	return func(data []byte, err error) string {
		t.Helper()
		require.NoError(t, err)
		out := string(data)
		require.Contains(t, out, "<svg")
		return out
	}
}

func TestTimeSeries(t *testing.T) {
	fig := domain.TimeSeriesFigure{
		Title:  "Emissions Over Time - China",
		Metric: domain.MetricEmissions,
		Points: []domain.Point{{Year: 2000, Value: 1}, {Year: 2001, Value: 2}, {Year: 2003, Value: 4}},
		Gaps:   []int{2002},
	}
	out := requireSVG(t)(TimeSeries(fig))
	assert.Contains(t, out, "Emissions Over Time - China")
}

func TestTimeSeriesFlatValues(t *testing.T) {
	fig := domain.TimeSeriesFigure{
		Title:  "Renewable_Share Over Time - World",
		Metric: domain.MetricRenewableShare,
		Points: []domain.Point{{Year: 2000, Value: 7}, {Year: 2001, Value: 7}},
	}
	requireSVG(t)(TimeSeries(fig))
}

func TestTimeSeriesPlaceholder(t *testing.T) {
	fig := domain.TimeSeriesFigure{
		Title:  "Emissions Over Time - India",
		Points: []domain.Point{{Year: 2003, Value: 3}},
	}
	out := requireSVG(t)(TimeSeries(fig))
	assert.Contains(t, out, "Not enough data to draw a line")
}

func TestSegments(t *testing.T) {
	points := []domain.Point{{Year: 2000}, {Year: 2001}, {Year: 2003}, {Year: 2005}, {Year: 2006}}

	tests := []struct {
		name string
		gaps []int
		want [][]int
	}{
		{name: "no gaps", want: [][]int{{2000, 2001, 2003, 2005, 2006}}},
		{name: "one gap", gaps: []int{2002}, want: [][]int{{2000, 2001}, {2003, 2005, 2006}}},
		{name: "unsorted gaps", gaps: []int{2004, 2002}, want: [][]int{{2000, 2001}, {2003}, {2005, 2006}}},
		{name: "leading gap", gaps: []int{1999}, want: [][]int{{2000, 2001, 2003, 2005, 2006}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got [][]int
			for _, seg := range segments(points, tt.gaps) {
				years := make([]int, len(seg))
				for i, p := range seg {
					years[i] = p.Year
				}
				got = append(got, years)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("segments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComparison(t *testing.T) {
	fig := domain.ComparisonFigure{
		Title:  "Emissions Comparison (2003)",
		Metric: domain.MetricEmissions,
		Year:   2003,
		Bars: []domain.ComparisonBar{
			{Country: "China", Value: domain.Float(4)},
			{Country: "India", Value: nil},
			{Country: "World", Value: domain.Float(13)},
		},
	}
	out := requireSVG(t)(Comparison(fig))
	assert.Contains(t, out, "Emissions Comparison (2003)")
	assert.Contains(t, out, "World")
	assert.NotContains(t, out, "India")
}

func TestComparisonPlaceholder(t *testing.T) {
	fig := domain.ComparisonFigure{
		Title: "Emissions Comparison",
		Bars:  []domain.ComparisonBar{{Country: "India"}},
	}
	out := requireSVG(t)(Comparison(fig))
	assert.Contains(t, out, "No values for the selected year")
}

func TestCorrelation(t *testing.T) {
	one := domain.Float(1)
	half := domain.Float(0.5)
	fig := domain.CorrelationFigure{
		Title:   "Correlation Matrix - China",
		Metrics: []domain.Metric{domain.MetricEmissions, domain.MetricGDPPerCapita},
		Matrix:  [][]*float64{{one, half}, {half, nil}},
	}
	out := requireSVG(t)(Correlation(fig))
	assert.Contains(t, out, "0.50")
	assert.Contains(t, out, "GDP_per_capita")
}

func TestCorrelationAllUndefined(t *testing.T) {
	fig := domain.CorrelationFigure{
		Title:   "Correlation Matrix - India",
		Metrics: []domain.Metric{domain.MetricEmissions},
		Matrix:  [][]*float64{{nil}},
	}
	out := requireSVG(t)(Correlation(fig))
	assert.Contains(t, out, "Not enough data to correlate")
}

func TestCorrelationGridOrientation(t *testing.T) {
	a, b, c := domain.Float(1), domain.Float(2), domain.Float(3)
	g := correlationGrid{matrix: [][]*float64{{a, b}, {c, nil}}}

	cols, rows := g.Dims()
	assert.Equal(t, 2, cols)
	assert.Equal(t, 2, rows)
	// Grid row 0 is the bottom of the plot, the last matrix row.
	assert.Equal(t, 3.0, g.Z(0, 0))
	assert.True(t, math.IsNaN(g.Z(1, 0)))
	assert.Equal(t, 2.0, g.Z(1, 1))
}

func TestForecast(t *testing.T) {
	fig := domain.ForecastFigure{
		Title:      "Emissions Forecast - World",
		Metric:     domain.MetricEmissions,
		Historical: []domain.Point{{Year: 2002, Value: 12}, {Year: 2003, Value: 13}},
		Forecast: []domain.ForecastPoint{
			{Year: 2004, Yhat: 14, YhatLower: 13, YhatUpper: 15},
			{Year: 2005, Yhat: 15, YhatLower: 14, YhatUpper: 16},
		},
	}
	out := requireSVG(t)(Forecast(fig))
	assert.Contains(t, out, "Emissions Forecast - World")
	assert.Contains(t, out, "Historical")
	assert.Contains(t, out, "Forecast")
}

func TestForecastPlaceholder(t *testing.T) {
	out := requireSVG(t)(Forecast(domain.ForecastFigure{Title: "Emissions Forecast - India"}))
	assert.Contains(t, out, "No forecast available")
}

func TestRender(t *testing.T) {
	figs := domain.Figures{
		TimeSeries: domain.TimeSeriesFigure{Title: "t"},
		Comparison: domain.ComparisonFigure{Title: "c"},
		Forecast:   domain.ForecastFigure{Title: "f"},
	}
	for _, name := range FigureNames {
		assert.True(t, IsFigure(name))
		requireSVG(t)(Render(name, figs))
	}

	_, err := Render("pie", figs)
	assert.ErrorIs(t, err, ErrUnknownFigure)
	assert.False(t, IsFigure("pie"))
}

func TestDemo(t *testing.T) {
	out := requireSVG(t)(Demo())
	assert.Contains(t, out, "Simple Line Plot")
}
