package charts

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
)

// Placeholder renders an empty figure carrying the title and a short notice.
func Placeholder(title, message string) ([]byte, error) {
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()

	notice, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: 0.5, Y: 0.5}},
		Labels: []string{message},
	})
	if err != nil {
		return nil, err
	}
	notice.TextStyle[0].XAlign = text.XCenter
	notice.TextStyle[0].YAlign = text.YCenter
	p.Add(notice)
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	return savePlot(p, DefaultWidth, DefaultHeight)
}
