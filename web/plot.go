package web

import (
	"fmt"
	"io"
	"strings"

	"github.com/jnb666/mlptrain/nnet"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// screen resolution used to convert pixel sizes to plot lengths
const dpi = 96

// LossPlot plots the training and test loss for each epoch.
func LossPlot(stats []nnet.Stats, headers []string) (*plot.Plot, error) {
	p := newPlot()
	for i, name := range headers {
		if !strings.HasSuffix(name, "loss") {
			continue
		}
		line, err := newLinePlot(stats, i, 1)
		if err != nil {
			return nil, err
		}
		p.Add(line)
		p.Legend.Add(name+" ", line)
	}
	return p, nil
}

// ErrorPlot plots the classification error percentage for each epoch.
func ErrorPlot(stats []nnet.Stats, headers []string) (*plot.Plot, error) {
	p := newPlot()
	for i, name := range headers {
		if strings.HasSuffix(name, "loss") {
			continue
		}
		line, err := newLinePlot(stats, i, 100)
		if err != nil {
			return nil, err
		}
		p.Add(line)
		p.Legend.Add(name+" % ", line)
	}
	return p, nil
}

// ClassifyPlot is a horizontal bar chart of the probability for each class.
func ClassifyPlot(probs []float32, classes []string) (*plot.Plot, error) {
	if len(probs) != len(classes) {
		return nil, fmt.Errorf("plot: have %d probabilities for %d classes", len(probs), len(classes))
	}
	p := newPlot()
	vals := make(plotter.Values, len(probs))
	for i, v := range probs {
		vals[i] = float64(v)
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(12))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.LineStyle.Width = 0
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalY(classes...)
	p.X.Min, p.X.Max = 0, 1.1
	p.X.Label.Text = "class probability"
	return p, nil
}

// WriteSVG renders the plot in SVG format with the given size in pixels.
func WriteSVG(w io.Writer, p *plot.Plot, width, height int) error {
	wt, err := p.WriterTo(pixels(width), pixels(height), "svg")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePlot writes the plot to file, format is taken from the file extension.
func SavePlot(p *plot.Plot, width, height int, file string) error {
	return p.Save(pixels(width), pixels(height), file)
}

func pixels(n int) vg.Length {
	return vg.Length(n) * vg.Inch / dpi
}

func newPlot() *plot.Plot {
	p := plot.New()
	p.X.Padding, p.Y.Padding = 0, 0
	p.X.Tick.Label.Font.Size = vg.Points(10)
	p.Y.Tick.Label.Font.Size = vg.Points(10)
	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(12)
	p.Add(plotter.NewGrid())
	return p
}

func newLinePlot(stats []nnet.Stats, ix int, scale float64) (linePlot, error) {
	var pts plotter.XYs
	xmax, ymax := 1.0, 0.0
	for _, s := range stats {
		if ix >= len(s.Values) {
			continue
		}
		pt := plotter.XY{X: float64(s.Epoch), Y: s.Values[ix] * scale}
		pts = append(pts, pt)
		xmax = max(xmax, pt.X)
		ymax = max(ymax, pt.Y)
	}
	if len(pts) == 0 {
		pts = plotter.XYs{{X: 1, Y: 0}}
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return linePlot{}, err
	}
	l.Width = 2
	l.Color = plotutil.Color(ix)
	return linePlot{Line: l, xmin: 1, xmax: xmax, ymin: 0, ymax: ymax}, nil
}

// modified plotter.Line with a fixed scale
type linePlot struct {
	*plotter.Line
	xmin, xmax, ymin, ymax float64
}

func (l linePlot) DataRange() (xmin, xmax, ymin, ymax float64) {
	return l.xmin, l.xmax, l.ymin, l.ymax
}
