package charts

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/wcharczuk/go-chart/v2"

	"climatedash/pkg/contracts/domain"
)

// TimeSeries draws the metric history as a line. A missing year breaks the
// line rather than bridging it.
func TimeSeries(fig domain.TimeSeriesFigure) ([]byte, error) {
	if len(fig.Points) < 2 {
		return Placeholder(fig.Title, "Not enough data to draw a line")
	}

	ch := baseChart(fig.Title)
	ch.YAxis = chart.YAxis{Name: string(fig.Metric)}

	style := chart.Style{StrokeColor: colorPrimary, StrokeWidth: 2, DotColor: colorPrimary, DotWidth: 3}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, seg := range segments(fig.Points, fig.Gaps) {
		s := chart.ContinuousSeries{Style: style}
		if i == 0 {
			s.Name = string(fig.Metric)
		}
		for _, p := range seg {
			s.XValues = append(s.XValues, float64(p.Year))
			s.YValues = append(s.YValues, p.Value)
			lo, hi = math.Min(lo, p.Value), math.Max(hi, p.Value)
		}
		ch.Series = append(ch.Series, s)
	}
	ch.YAxis.Range = valueRange(lo, hi)

	return renderChart(ch)
}

// segments splits points at every gap year that falls between two of them.
func segments(points []domain.Point, gaps []int) [][]domain.Point {
	sorted := append([]int(nil), gaps...)
	sort.Ints(sorted)

	var out [][]domain.Point
	var cur []domain.Point
	for _, p := range points {
		if len(cur) > 0 && gapBetween(sorted, cur[len(cur)-1].Year, p.Year) {
			out = append(out, cur)
			cur = nil
		}
		cur = append(cur, p)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func gapBetween(sorted []int, from, to int) bool {
	i := sort.SearchInts(sorted, from+1)
	return i < len(sorted) && sorted[i] < to
}

// Forecast draws the observed history with the dashed forecast and its
// interval.
func Forecast(fig domain.ForecastFigure) ([]byte, error) {
	if fig.Empty() {
		return Placeholder(fig.Title, "No forecast available")
	}

	ch := baseChart(fig.Title)
	ch.YAxis = chart.YAxis{Name: string(fig.Metric)}

	lo, hi := math.Inf(1), math.Inf(-1)
	track := func(v float64) {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}

	if len(fig.Historical) > 0 {
		hist := chart.ContinuousSeries{
			Name:  "Historical",
			Style: chart.Style{StrokeColor: colorPrimary, StrokeWidth: 2},
		}
		for _, p := range fig.Historical {
			hist.XValues = append(hist.XValues, float64(p.Year))
			hist.YValues = append(hist.YValues, p.Value)
			track(p.Value)
		}
		ch.Series = append(ch.Series, hist)
	}

	yhat := chart.ContinuousSeries{
		Name:  "Forecast",
		Style: chart.Style{StrokeColor: colorSecondary, StrokeWidth: 2, StrokeDashArray: []float64{6, 4}, DotColor: colorSecondary, DotWidth: 2},
	}
	bandStyle := chart.Style{StrokeColor: colorBand, StrokeWidth: 1, StrokeDashArray: []float64{2, 3}}
	lower := chart.ContinuousSeries{Name: "Lower bound", Style: bandStyle}
	upper := chart.ContinuousSeries{Name: "Upper bound", Style: bandStyle}
	for _, p := range fig.Forecast {
		x := float64(p.Year)
		yhat.XValues = append(yhat.XValues, x)
		yhat.YValues = append(yhat.YValues, p.Yhat)
		lower.XValues = append(lower.XValues, x)
		lower.YValues = append(lower.YValues, p.YhatLower)
		upper.XValues = append(upper.XValues, x)
		upper.YValues = append(upper.YValues, p.YhatUpper)
		track(p.YhatLower)
		track(p.YhatUpper)
		track(p.Yhat)
	}
	ch.Series = append(ch.Series, yhat, lower, upper)
	ch.YAxis.Range = valueRange(lo, hi)
	if first, last := xBounds(ch.Series); first == last {
		ch.XAxis.Range = valueRange(first, last)
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	return renderChart(ch)
}

func xBounds(series []chart.Series) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		cs, ok := s.(chart.ContinuousSeries)
		if !ok {
			continue
		}
		for _, x := range cs.XValues {
			lo, hi = math.Min(lo, x), math.Max(hi, x)
		}
	}
	return lo, hi
}

// Demo draws the fixed line plot of the standalone demo page.
func Demo() ([]byte, error) {
	ch := chart.Chart{
		Title:      "Simple Line Plot",
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		XAxis:      chart.XAxis{Name: "x"},
		YAxis:      chart.YAxis{Name: "y"},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Line",
				XValues: DemoX,
				YValues: DemoY,
				Style:   chart.Style{StrokeColor: colorPrimary, StrokeWidth: 2, DotColor: colorPrimary, DotWidth: 3},
			},
		},
	}
	return renderChart(ch)
}

// Demo plot data.
var (
	DemoX = []float64{1, 2, 3}
	DemoY = []float64{4, 5, 6}
)

func renderChart(ch chart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := ch.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", ch.Title, err)
	}
	return buf.Bytes(), nil
}
