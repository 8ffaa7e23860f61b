package charts

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"climatedash/pkg/contracts/domain"
)

// correlationGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 of
// the matrix is drawn at the top.
type correlationGrid struct {
	matrix [][]*float64
}

func (g correlationGrid) Dims() (c, r int) {
	n := len(g.matrix)
	return n, n
}

func (g correlationGrid) Z(c, r int) float64 {
	v := g.matrix[len(g.matrix)-1-r][c]
	if v == nil {
		return math.NaN()
	}
	return *v
}

func (g correlationGrid) X(c int) float64 { return float64(c) }
func (g correlationGrid) Y(r int) float64 { return float64(r) }

// Correlation draws the matrix as an annotated heat map on a fixed -1..1
// diverging scale. Undefined cells are grey.
func Correlation(fig domain.CorrelationFigure) ([]byte, error) {
	n := len(fig.Matrix)
	if n == 0 || !anyDefined(fig.Matrix) {
		return Placeholder(fig.Title, "Not enough data to correlate")
	}

	p := plot.New()
	p.Title.Text = fig.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	grid := correlationGrid{matrix: fig.Matrix}
	hm := plotter.NewHeatMap(grid, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = color.Gray{Y: 200}
	p.Add(hm)

	var cells plotter.XYLabels
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			z := grid.Z(c, r)
			if math.IsNaN(z) {
				continue
			}
			cells.XYs = append(cells.XYs, plotter.XY{X: grid.X(c), Y: grid.Y(r)})
			cells.Labels = append(cells.Labels, strconv.FormatFloat(z, 'f', 2, 64))
		}
	}
	labels, err := plotter.NewLabels(cells)
	if err != nil {
		return nil, fmt.Errorf("correlation labels: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YCenter
	}
	p.Add(labels)

	names := make([]string, n)
	for i, m := range fig.Metrics {
		if i < n {
			names[i] = string(m)
		}
	}
	reversed := make([]string, n)
	for i := range names {
		reversed[n-1-i] = names[i]
	}
	p.NominalX(names...)
	p.NominalY(reversed...)

	return savePlot(p, DefaultWidth, DefaultHeight+150)
}

func anyDefined(matrix [][]*float64) bool {
	for _, row := range matrix {
		for _, v := range row {
			if v != nil {
				return true
			}
		}
	}
	return false
}

func savePlot(p *plot.Plot, width, height int) ([]byte, error) {
	wt, err := p.WriterTo(vg.Points(float64(width)*0.75), vg.Points(float64(height)*0.75), "svg")
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", p.Title.Text, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", p.Title.Text, err)
	}
	return buf.Bytes(), nil
}
