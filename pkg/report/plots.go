package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"famreg/pkg/model"
	"famreg/pkg/stats"
)

// Plot geometry and smoothing defaults.
const (
	plotWidth   = 6 * vg.Inch
	plotHeight  = 4 * vg.Inch
	gridPoints  = 256
	lowessSpan  = 2.0 / 3
	lowessIters = 3
)

var familyColors = map[model.Family]color.RGBA{
	model.Poisson: {R: 230, G: 85, B: 13, A: 255},
	model.Gamma:   {R: 49, G: 163, B: 84, A: 255},
	model.Weibull: {R: 117, G: 107, B: 177, A: 255},
}

var observedColor = color.RGBA{A: 255}

// Series is a named sample drawn as one density curve.
type Series struct {
	Name   string
	Values []float64
	Color  color.Color
}

// finitePairs drops every index where x or y is NaN or infinite.
func finitePairs(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(x))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
	}
	return pts
}

func finite(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// DensityPlot overlays Gaussian kernel density estimates of every series on
// a shared grid and saves the figure.
func DensityPlot(path, title, xlabel string, series []Series) error {
	var pooled []float64
	clean := make([][]float64, len(series))
	for i, s := range series {
		clean[i] = finite(s.Values)
		pooled = append(pooled, clean[i]...)
	}
	if len(pooled) < 2 {
		return fmt.Errorf("density plot %s: not enough finite values", path)
	}
	grid := stats.Grid(pooled, stats.Silverman(pooled), gridPoints)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Density"
	p.Legend.Top = true

	for i, s := range series {
		if len(clean[i]) < 2 {
			continue
		}
		dens := stats.KDE(clean[i], stats.Silverman(clean[i]), grid)
		l, err := plotter.NewLine(finitePairs(grid, dens))
		if err != nil {
			return err
		}
		l.Color = s.Color
		l.LineStyle.Width = vg.Points(1.5)
		if i == 0 {
			l.LineStyle.Width = vg.Points(2.5)
		} else {
			l.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
		}
		p.Add(l)
		p.Legend.Add(s.Name, l)
	}
	return p.Save(plotWidth, plotHeight, path)
}

// ResidualPlot scatters residuals against x with a zero reference line and
// a LOWESS trend.
func ResidualPlot(path, title, xlabel string, x, resid []float64, c color.Color) error {
	pts := finitePairs(x, resid)
	if len(pts) < 2 {
		return fmt.Errorf("residual plot %s: not enough finite points", path)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Pearson residual"

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.Color = c
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(s)

	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, pt := range pts {
		xs[i], ys[i] = pt.X, pt.Y
	}
	lo, hi := stats.MinMax(xs)
	zero, err := plotter.NewLine(plotter.XYs{{X: lo, Y: 0}, {X: hi, Y: 0}})
	if err != nil {
		return err
	}
	zero.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	zero.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(zero)

	sx, sy := stats.Lowess(xs, ys, lowessSpan, lowessIters)
	trend, err := plotter.NewLine(finitePairs(sx, sy))
	if err != nil {
		return err
	}
	trend.Color = color.RGBA{R: 215, G: 25, B: 28, A: 255}
	trend.LineStyle.Width = vg.Points(2)
	p.Add(trend)
	p.Legend.Add("LOWESS", trend)

	return p.Save(plotWidth, plotHeight, path)
}
