// Package config holds the run configuration, loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"famreg/pkg/data"
	"famreg/pkg/dataprep"
	"famreg/pkg/logging"
	"famreg/pkg/model"
	"famreg/pkg/optim"
)

// LogConfig is the logging section.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Config is everything a run needs besides the data itself.
type Config struct {
	Data      string   `yaml:"data"`
	OutputDir string   `yaml:"output_dir"`
	Families  []string `yaml:"families"`

	Response   string   `yaml:"response"`
	Predictors []string `yaml:"predictors"`

	CoercionPolicy string `yaml:"coercion_policy"`

	// zero means the fitter's own default
	MaxIter   int     `yaml:"max_iter"`
	Tolerance float64 `yaml:"tolerance"`

	Parallel bool   `yaml:"parallel"`
	CVFolds  int    `yaml:"cv_folds"`
	Seed     uint64 `yaml:"seed"`

	AbortOnConvergenceError bool `yaml:"abort_on_convergence_error"`

	Plots bool      `yaml:"plots"`
	Log   LogConfig `yaml:"log"`
}

// DefaultConfig models family_size ~ literacy + monthsSinceM with all three
// families, aborting on malformed rows.
func DefaultConfig() Config {
	fams := make([]string, 0, 3)
	for _, f := range model.Families() {
		fams = append(fams, f.String())
	}
	return Config{
		OutputDir:      "famreport-out",
		Families:       fams,
		Response:       data.ColFamilySize,
		Predictors:     []string{data.ColLiteracy, data.ColMonthsSinceM},
		CoercionPolicy: dataprep.PolicyAbort.String(),
		MaxIter:        0,
		Tolerance:      optim.DefaultTolerance,
		Seed:           1,
		Plots:          true,
		Log:            LogConfig{Level: "info"},
	}
}

// Load reads a YAML file on top of DefaultConfig and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.ModelFamilies(); err != nil {
		errs = append(errs, err)
	}
	if _, err := dataprep.ParsePolicy(c.CoercionPolicy); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Response == "" {
		errs = append(errs, errors.New("response must be set"))
	}
	if len(c.Predictors) == 0 {
		errs = append(errs, errors.New("at least one predictor is required"))
	}
	if c.MaxIter < 0 {
		errs = append(errs, fmt.Errorf("max_iter must be positive, got %d", c.MaxIter))
	}
	if c.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("tolerance must be positive, got %g", c.Tolerance))
	}
	if c.CVFolds < 0 || c.CVFolds == 1 {
		errs = append(errs, fmt.Errorf("cv_folds must be 0 (off) or at least 2, got %d", c.CVFolds))
	}
	return errors.Join(errs...)
}

// ModelFamilies parses Families, rejecting unknown names and duplicates.
func (c Config) ModelFamilies() ([]model.Family, error) {
	if len(c.Families) == 0 {
		return nil, errors.New("no model families requested")
	}
	seen := map[model.Family]bool{}
	out := make([]model.Family, 0, len(c.Families))
	for _, s := range c.Families {
		f, err := model.ParseFamily(s)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			return nil, fmt.Errorf("family %s listed twice", f)
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

// Policy parses CoercionPolicy.
func (c Config) Policy() (dataprep.Policy, error) {
	return dataprep.ParsePolicy(c.CoercionPolicy)
}

// FitOptions turns the iteration budget into fitter options.
func (c Config) FitOptions() []model.Option {
	return []model.Option{model.WithMaxIter(c.MaxIter), model.WithTolerance(c.Tolerance)}
}

// Logging builds the logging config from the log section.
func (c Config) Logging() logging.Config {
	lvl, _ := logging.ParseLevel(c.Log.Level)
	return logging.Config{Level: lvl, JSON: c.Log.JSON, Service: "famreport"}
}
