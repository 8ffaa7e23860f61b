package charts

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"climatedash/pkg/contracts/domain"
)

const (
	barWidth   = 40
	barSpacing = 24
)

// Comparison draws one bar per country. Countries without a value are left
// out.
func Comparison(fig domain.ComparisonFigure) ([]byte, error) {
	bars := make([]chart.Value, 0, len(fig.Bars))
	lo, hi := 0.0, math.Inf(-1)
	for _, b := range fig.Bars {
		if b.Value == nil {
			continue
		}
		v := *b.Value
		bars = append(bars, chart.Value{
			Label: b.Country,
			Value: v,
			Style: chart.Style{FillColor: colorPrimary, StrokeColor: colorPrimary},
		})
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if len(bars) == 0 {
		return Placeholder(fig.Title, "No values for the selected year")
	}

	width := DefaultWidth
	if need := len(bars)*(barWidth+barSpacing) + 120; need > width {
		width = need
	}

	bc := chart.BarChart{
		Title:      fig.Title,
		Width:      width,
		Height:     DefaultHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		YAxis:      chart.YAxis{Name: string(fig.Metric), Range: valueRange(lo, hi)},
		Bars:       bars,
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", fig.Title, err)
	}
	return buf.Bytes(), nil
}
