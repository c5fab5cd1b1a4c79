// Package report renders a pipeline run as terminal tables, CSV files and
// diagnostic plots.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"famreg/pkg/data"
	"famreg/pkg/logging"
	"famreg/pkg/pipeline"
)

// Output file names.
const (
	ComparisonFile   = "comparison.csv"
	CoefficientsFile = "coefficients.csv"
	ResidualsFile    = "residuals.csv"
	DensityFile      = "density.png"
)

// Reporter writes the artifacts of a run.
type Reporter struct {
	outDir string
	plots  bool
	out    io.Writer
	log    *logging.Logger
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithPlots turns PNG output on or off.
func WithPlots(on bool) Option { return func(r *Reporter) { r.plots = on } }

// WithWriter sets where the text report goes; nil skips it.
func WithWriter(w io.Writer) Option { return func(r *Reporter) { r.out = w } }

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option { return func(r *Reporter) { r.log = l } }

// New returns a Reporter writing into outDir. An empty outDir writes only
// the text report.
func New(outDir string, opts ...Option) *Reporter {
	r := &Reporter{outDir: outDir, plots: true, out: os.Stdout, log: logging.Nop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Write renders the text report and, when an output directory is set,
// the CSV files and plots. It returns the paths of every file written.
func (r *Reporter) Write(res *pipeline.Result) ([]string, error) {
	if r.out != nil {
		if err := Render(r.out, res); err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
	}
	if r.outDir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	var files []string
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{ComparisonFile, func(w io.Writer) error { return WriteComparisonCSV(w, res.Comparison) }},
		{CoefficientsFile, func(w io.Writer) error { return WriteCoefficientsCSV(w, res.Families) }},
		{ResidualsFile, func(w io.Writer) error { return WriteResidualsCSV(w, res) }},
	}
	for _, wr := range writers {
		path := filepath.Join(r.outDir, wr.name)
		if err := writeFile(path, wr.write); err != nil {
			return files, fmt.Errorf("report: %s: %w", wr.name, err)
		}
		files = append(files, path)
	}

	if r.plots {
		plotted, err := r.writePlots(res)
		files = append(files, plotted...)
		if err != nil {
			return files, fmt.Errorf("report: %w", err)
		}
	}
	r.log.Info("report written", "dir", r.outDir, "files", len(files))
	return files, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, f.Close()) }()
	return write(f)
}

// writePlots draws the density overlay and two residual plots per fitted
// model. A plot that cannot be drawn is logged and skipped.
func (r *Reporter) writePlots(res *pipeline.Result) ([]string, error) {
	observed, ok := res.Dataset.Float(res.Schema.Response)
	if !ok {
		return nil, fmt.Errorf("no response column %q", res.Schema.Response)
	}
	var files []string
	keep := func(path string, err error) {
		if err != nil {
			r.log.Warn("plot skipped", "path", path, "error", err)
			return
		}
		files = append(files, path)
	}

	series := []Series{{Name: "observed", Values: observed, Color: observedColor}}
	for _, fr := range res.Families {
		if fr.Err == nil && fr.Model != nil {
			series = append(series, Series{Name: fr.Family.String(), Values: fr.Predictions.Values, Color: familyColors[fr.Family]})
		}
	}
	path := filepath.Join(r.outDir, DensityFile)
	keep(path, DensityPlot(path, "Observed vs predicted "+res.Schema.Response, res.Schema.Response, series))

	months, hasMonths := res.Dataset.Float(data.ColMonthsSinceM)
	for _, fr := range res.Families {
		if fr.Err != nil || fr.Model == nil {
			continue
		}
		name := strings.ToLower(fr.Family.String())
		c := familyColors[fr.Family]
		if hasMonths {
			path := filepath.Join(r.outDir, "residuals_months_"+name+".png")
			keep(path, ResidualPlot(path, fr.Family.String()+" residuals vs "+data.ColMonthsSinceM, data.ColMonthsSinceM, months, fr.Residuals, c))
		}
		path := filepath.Join(r.outDir, "residuals_fitted_"+name+".png")
		keep(path, ResidualPlot(path, fr.Family.String()+" residuals vs fitted", "Fitted value", fr.Predictions.Values, fr.Residuals, c))
	}
	return files, nil
}
