package model

import (
	"fmt"
	"slices"
	"strings"

	"famreg/pkg/data"
	"famreg/pkg/optim"
)

// Family tags the distribution a model was fitted with.
type Family int

const (
	Poisson Family = iota
	Gamma
	Weibull
)

// Families returns every supported family in report order.
func Families() []Family { return []Family{Poisson, Gamma, Weibull} }

func (f Family) String() string {
	switch f {
	case Poisson:
		return "Poisson"
	case Gamma:
		return "Gamma"
	case Weibull:
		return "Weibull"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// ParseFamily accepts a family name in any case.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "poisson":
		return Poisson, nil
	case "gamma":
		return Gamma, nil
	case "weibull", "aft":
		return Weibull, nil
	}
	return 0, fmt.Errorf("unknown model family %q", s)
}

// Fitter fits one model family against a Dataset.
type Fitter interface {
	Family() Family
	Fit(ds *data.Dataset, predictors []string, response string) (*FittedModel, error)
}

// Option tunes the iteration budget of a Fitter.
type Option func(*optim.Settings)

// WithMaxIter caps the number of IRLS or Newton iterations.
func WithMaxIter(n int) Option {
	return func(s *optim.Settings) {
		if n > 0 {
			s.MaxIter = n
		}
	}
}

// WithTolerance sets the convergence tolerance.
func WithTolerance(tol float64) Option {
	return func(s *optim.Settings) {
		if tol > 0 {
			s.Tolerance = tol
		}
	}
}

// NewFitter returns the fitting strategy for a family.
func NewFitter(f Family, opts ...Option) (Fitter, error) {
	switch f {
	case Poisson:
		return newGLM(poissonFamily{}, opts...), nil
	case Gamma:
		return newGLM(gammaFamily{}, opts...), nil
	case Weibull:
		return NewWeibullAFT(opts...), nil
	}
	return nil, fmt.Errorf("no fitter for %v", f)
}

// Coefficient is one row of a coefficient table.
type Coefficient struct {
	Term      string
	Estimate  float64
	StdError  float64
	Statistic float64
	PValue    float64
	Aliased   bool
}

// FitStats holds likelihood-based fit statistics. Params counts every
// estimated parameter, including a dispersion or scale estimated by ML.
type FitStats struct {
	NObs          int
	Rank          int
	Params        int
	DFResidual    int
	LogLik        float64
	AIC           float64
	BIC           float64
	Deviance      float64
	Dispersion    float64
	Iterations    int
	StatisticName string
}

// FittedModel is an immutable fit result.
type FittedModel struct {
	Family       Family
	Response     string
	Predictors   []string
	Coefficients []Coefficient
	Stats        FitStats
	// Scale is the Weibull σ; zero for the GLMs.
	Scale float64
	// Dataset is the snapshot the model was trained on.
	Dataset *data.Dataset

	beta   []float64
	fitted []float64
}

// Beta returns the coefficient vector in term order; aliased terms are NaN.
func (m *FittedModel) Beta() []float64 { return slices.Clone(m.beta) }

// Coefficient looks up a term by name.
func (m *FittedModel) Coefficient(term string) (Coefficient, bool) {
	for _, c := range m.Coefficients {
		if c.Term == term {
			return c, true
		}
	}
	return Coefficient{}, false
}
