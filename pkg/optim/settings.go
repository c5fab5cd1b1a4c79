package optim

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Settings bounds an iterative maximum-likelihood fit.
type Settings struct {
	MaxIter   int
	Tolerance float64
}

// Default iteration budgets.
const (
	DefaultIRLSMaxIter   = 25
	DefaultNewtonMaxIter = 100
	DefaultTolerance     = 1e-8

	// StationaryTolerance bounds the per-observation gradient of a result
	// accepted after the line search gives up.
	StationaryTolerance = 1e-6
)

// IRLSDefaults returns the default GLM budget.
func IRLSDefaults() Settings {
	return Settings{MaxIter: DefaultIRLSMaxIter, Tolerance: DefaultTolerance}
}

// NewtonDefaults returns the default budget for direct likelihood optimisation.
func NewtonDefaults() Settings {
	return Settings{MaxIter: DefaultNewtonMaxIter, Tolerance: DefaultTolerance}
}

// DevianceConverged is the relative deviance change test used by IRLS:
// |dev - old| / (|dev| + 0.1) < tol.
func DevianceConverged(dev, old, tol float64) bool {
	return math.Abs(dev-old)/(math.Abs(dev)+0.1) < tol
}

// Optimize translates the budget into gonum optimize settings. The
// gradient threshold assumes the objective is averaged over observations,
// so it does not grow with the sample size.
func (s Settings) Optimize() *optimize.Settings {
	return &optimize.Settings{
		GradientThreshold: s.Tolerance,
		MajorIterations:   s.MaxIter,
	}
}

// Converged reports whether a gonum optimize status is a successful stop.
func Converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence,
		optimize.StepConvergence, optimize.MethodConverge:
		return true
	}
	return false
}

// Stationary reports whether every gradient component is within tol of zero.
// A failed line search next to the optimum leaves such a point behind.
func Stationary(grad []float64, tol float64) bool {
	if len(grad) == 0 {
		return false
	}
	for _, g := range grad {
		if math.IsNaN(g) || math.Abs(g) > tol {
			return false
		}
	}
	return true
}
