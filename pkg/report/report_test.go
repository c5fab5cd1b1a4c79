package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famreg/pkg/config"
	"famreg/pkg/data"
	"famreg/pkg/eval"
	"famreg/pkg/model"
	"famreg/pkg/pipeline"
)

func run(t *testing.T, rows [][]string, mutate func(*config.Config)) *pipeline.Result {
	t.Helper()
	tbl, err := data.NewTable("test", data.RequiredColumns, rows)
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := pipeline.New(cfg, nil)
	require.NoError(t, err)
	res, err := p.Run(context.Background(), tbl)
	require.NoError(t, err)
	return res
}

func exampleRows() [][]string {
	return [][]string{
		{"1", "15to18", "yes", "12"},
		{"3", "20to22", "no", "48"},
	}
}

func familyRows(n int) [][]string {
	r := rand.New(rand.NewPCG(5, 8))
	rows := make([][]string, n)
	for i := range rows {
		lit := "yes"
		if r.Float64() < 0.4 {
			lit = "no"
		}
		months := 10 + r.Float64()*250
		children := int(months/60 + 2*r.Float64())
		rows[i] = []string{strconv.Itoa(children), "20to22", lit, strconv.FormatFloat(months, 'f', 0, 64)}
	}
	return rows
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestCoefficientRows(t *testing.T) {
	m := &model.FittedModel{
		Family: model.Poisson,
		Coefficients: []model.Coefficient{
			{Term: "(Intercept)", Estimate: 1.23456, StdError: 0.0123, Statistic: 100.37, PValue: 0},
			{Term: "literacy", Estimate: -0.2, StdError: 0.1, Statistic: -2, PValue: 0.0455},
			{Term: "monthsSinceM", Aliased: true},
		},
		Stats: model.FitStats{StatisticName: "z value"},
	}
	rows := CoefficientRows(m)
	assert.Equal(t, []string{"(Intercept)", "1.23", "0.0123", "100", "< 2.2e-16"}, rows[0])
	assert.Equal(t, []string{"literacy", "-0.2", "0.1", "-2", "0.0455"}, rows[1])
	assert.Equal(t, []string{"monthsSinceM", "NA", "NA", "NA", "NA"}, rows[2])
	assert.Equal(t, "Pr(>|z|)", PValueHeader(m))

	out := CoefficientTable(m)
	assert.Contains(t, out, "z value")
	assert.Contains(t, out, "< 2.2e-16")
}

func TestComparisonRows(t *testing.T) {
	c := eval.Comparison{
		Columns: eval.Columns,
		Rows: []eval.Row{
			{Family: model.Poisson, AIC: 1234.5678, BIC: 1240.01, LogLik: -615.28, RMSE: 1.23456},
			{Family: model.Weibull, AIC: math.NaN(), BIC: math.NaN(), LogLik: math.NaN(), RMSE: math.NaN(), Err: errors.New("saturated")},
			{Family: model.Gamma, AIC: math.NaN(), BIC: math.NaN(), LogLik: math.NaN(), RMSE: 0.5, Err: errors.New("saturated")},
		},
	}
	rows := ComparisonRows(c)
	assert.Equal(t, []string{"Poisson", "1230", "1240", "-615", "1.23"}, rows[0])
	assert.Equal(t, []string{"Weibull", FailedCell, FailedCell, FailedCell, FailedCell}, rows[1])
	assert.Equal(t, []string{"Gamma", FailedCell, FailedCell, FailedCell, "0.5"}, rows[2])
	assert.Contains(t, ComparisonTable(c), "Log-Likelihood")
}

func TestRender_PartialRun(t *testing.T) {
	res := run(t, exampleRows(), nil)
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, res))
	out := buf.String()
	for _, want := range []string{"Poisson", "Gamma", "Weibull", "RMSE", FailedCell, "saturated", "indicative only", res.RunID} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Weibull coefficients")
}

func TestReporter_WritesFiles(t *testing.T) {
	res := run(t, familyRows(150), func(c *config.Config) { c.CVFolds = 3 })
	dir := filepath.Join(t.TempDir(), "out")
	var buf bytes.Buffer

	files, err := New(dir, WithWriter(&buf)).Write(res)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Cross-validation")

	for _, name := range []string{
		ComparisonFile, CoefficientsFile, ResidualsFile, DensityFile,
		"residuals_months_poisson.png", "residuals_fitted_weibull.png",
	} {
		path := filepath.Join(dir, name)
		assert.Contains(t, files, path)
		info, err := os.Stat(path)
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	cmp := readCSV(t, filepath.Join(dir, ComparisonFile))
	require.Len(t, cmp, 4)
	assert.Equal(t, []string{"model", "AIC", "BIC", "Log-Likelihood", "RMSE", "error"}, cmp[0])
	assert.Equal(t, "Poisson", cmp[1][0])
	aic, err := strconv.ParseFloat(cmp[1][1], 64)
	require.NoError(t, err)
	assert.Equal(t, res.Comparison.Rows[0].AIC, aic)

	resid := readCSV(t, filepath.Join(dir, ResidualsFile))
	assert.Len(t, resid, 151)
	assert.Equal(t, "Gamma_pearson", resid[0][7])

	coefs := readCSV(t, filepath.Join(dir, CoefficientsFile))
	// three terms for each GLM, four for the Weibull model
	assert.Len(t, coefs, 1+3+3+4)
}

func TestReporter_NoPlotsAndFailedRow(t *testing.T) {
	res := run(t, exampleRows(), nil)
	dir := t.TempDir()
	files, err := New(dir, WithPlots(false), WithWriter(nil)).Write(res)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	cmp := readCSV(t, filepath.Join(dir, ComparisonFile))
	weibull := cmp[3]
	assert.Equal(t, "Weibull", weibull[0])
	assert.Empty(t, weibull[1])
	// the location-only fit still scores an RMSE
	rmse, err := strconv.ParseFloat(weibull[4], 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, rmse, 1e-9)
	assert.True(t, strings.Contains(weibull[5], "saturated"))

	_, err = os.Stat(filepath.Join(dir, DensityFile))
	assert.True(t, os.IsNotExist(err))
}

func TestSummaryTable(t *testing.T) {
	res := run(t, familyRows(40), func(c *config.Config) { c.Families = []string{"poisson"} })
	out := SummaryTable(res.Dataset)
	assert.Contains(t, out, data.ColFamilySize)
	assert.Contains(t, out, "20to22")
	assert.Contains(t, out, "Outliers")
}
