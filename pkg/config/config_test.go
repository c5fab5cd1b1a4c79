package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famreg/pkg/dataprep"
	"famreg/pkg/logging"
	"famreg/pkg/model"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "famreport.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	fams, err := cfg.ModelFamilies()
	require.NoError(t, err)
	assert.Equal(t, model.Families(), fams)
	assert.Equal(t, "family_size", cfg.Response)
	assert.Equal(t, []string{"literacy", "monthsSinceM"}, cfg.Predictors)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, dataprep.PolicyAbort, p)
	assert.False(t, cfg.AbortOnConvergenceError)
	assert.Len(t, cfg.FitOptions(), 2)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeFile(t, `
families: [poisson, weibull]
coercion_policy: drop
max_iter: 50
parallel: true
cv_folds: 5
log:
  level: debug
  json: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	fams, err := cfg.ModelFamilies()
	require.NoError(t, err)
	assert.Equal(t, []model.Family{model.Poisson, model.Weibull}, fams)
	assert.Equal(t, 50, cfg.MaxIter)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, 5, cfg.CVFolds)
	// untouched keys keep their defaults
	assert.Equal(t, "family_size", cfg.Response)
	assert.True(t, cfg.Plots)

	lc := cfg.Logging()
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.True(t, lc.JSON)
}

func TestLoad_RoundTrip(t *testing.T) {
	raw, err := DefaultConfig().Marshal()
	require.NoError(t, err)
	cfg, err := Load(writeFile(t, string(raw)))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "families: [poisson\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown family", func(c *Config) { c.Families = []string{"binomial"} }},
		{"duplicate family", func(c *Config) { c.Families = []string{"gamma", "Gamma"} }},
		{"no families", func(c *Config) { c.Families = nil }},
		{"bad policy", func(c *Config) { c.CoercionPolicy = "ignore" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"negative iterations", func(c *Config) { c.MaxIter = -1 }},
		{"negative tolerance", func(c *Config) { c.Tolerance = -1e-3 }},
		{"single fold", func(c *Config) { c.CVFolds = 1 }},
		{"no predictors", func(c *Config) { c.Predictors = nil }},
		{"no response", func(c *Config) { c.Response = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
