// Package charts renders dashboard figures as SVG.
//
// Line and bar charts use go-chart; the correlation heat map uses gonum/plot.
// A figure that has nothing drawable renders as a titled placeholder so the
// dashboard never shows a broken image.
package charts

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"climatedash/pkg/contracts/domain"
)

// Default canvas size in pixels.
const (
	DefaultWidth  = 900
	DefaultHeight = 450
)

// Figure names accepted by Render.
const (
	FigureTimeSeries  = "timeseries"
	FigureCorrelation = "correlation"
	FigureComparison  = "comparison"
	FigureForecast    = "forecast"
)

// FigureNames lists the renderable figures in dashboard order.
var FigureNames = []string{FigureTimeSeries, FigureCorrelation, FigureComparison, FigureForecast}

// ErrUnknownFigure is returned by Render for a name not in FigureNames.
var ErrUnknownFigure = errors.New("unknown figure")

var (
	colorPrimary   = drawing.ColorFromHex("636efa")
	colorSecondary = drawing.ColorFromHex("ef553b")
	colorBand      = drawing.ColorFromHex("f4a582")
)

// Render draws one of the four dashboard figures.
func Render(name string, figs domain.Figures) ([]byte, error) {
	switch name {
	case FigureTimeSeries:
		return TimeSeries(figs.TimeSeries)
	case FigureCorrelation:
		return Correlation(figs.Correlation)
	case FigureComparison:
		return Comparison(figs.Comparison)
	case FigureForecast:
		return Forecast(figs.Forecast)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFigure, name)
	}
}

// IsFigure reports whether name is a renderable figure.
func IsFigure(name string) bool {
	for _, n := range FigureNames {
		if n == name {
			return true
		}
	}
	return false
}

func yearFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.Itoa(int(math.Round(f)))
	}
	return ""
}

func baseChart(title string) chart.Chart {
	return chart.Chart{
		Title:      title,
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		XAxis:      chart.XAxis{Name: domain.ColumnYear, ValueFormatter: yearFormatter},
	}
}

// valueRange pads a flat range so go-chart can scale it.
func valueRange(lo, hi float64) *chart.ContinuousRange {
	if lo == hi {
		pad := math.Abs(lo) * 0.1
		if pad == 0 {
			pad = 1
		}
		return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}
