package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famreg/pkg/dataprep"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRun_WritesReport(t *testing.T) {
	dir := t.TempDir()
	stdout, stderr, err := execute(t, "run",
		"--data", filepath.Join("testdata", "portugal_sample.csv"),
		"--out", dir,
		"--parallel",
		"--cv-folds", "3",
		"--no-plots",
		"--log-json",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Poisson")
	assert.Contains(t, stdout, "Weibull coefficients")
	assert.Contains(t, stdout, "Cross-validation")
	assert.Contains(t, stderr, `"msg":"model fitted"`)

	for _, name := range []string{"comparison.csv", "coefficients.csv", "residuals.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(dir, "density.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_ConfigFileAndFlagOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "famreport.yaml")
	body := "data: " + filepath.Join("testdata", "portugal_sample.csv") + "\nfamilies: [gamma]\nplots: false\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	stdout, _, err := execute(t, "run", "--config", cfgPath, "--out", dir, "--families", "poisson")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Poisson coefficients")
	assert.NotContains(t, stdout, "Gamma coefficients")
}

func TestRun_MalformedRows(t *testing.T) {
	path := filepath.Join("testdata", "malformed.csv")
	_, stderr, err := execute(t, "run", "--data", path, "--out", t.TempDir(), "--no-plots")
	require.Error(t, err)
	assert.ErrorIs(t, err, dataprep.ErrCoercion)
	assert.Contains(t, stderr, "run failed")

	stdout, stderr, err := execute(t, "run", "--data", path, "--out", t.TempDir(), "--no-plots", "--drop-invalid", "--families", "poisson,gamma")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 rows dropped")
	assert.Contains(t, stderr, "row dropped")
}

func TestRun_Errors(t *testing.T) {
	_, _, err := execute(t, "run")
	assert.Error(t, err)

	_, _, err = execute(t, "run", "--data", "testdata/missing.csv")
	assert.Error(t, err)

	_, _, err = execute(t, "run", "--data", "testdata/portugal_sample.csv", "--families", "binomial")
	assert.Error(t, err)

	_, _, err = execute(t, "--log-level", "loud", "run", "--data", "testdata/portugal_sample.csv")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	stdout, _, err := execute(t, "summary", "--data", filepath.Join("testdata", "portugal_sample.csv"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "family_size")
	assert.Contains(t, stdout, "monthsSinceM")
	assert.Contains(t, stdout, "ageMarried")

	_, _, err = execute(t, "summary")
	assert.Error(t, err)
}
