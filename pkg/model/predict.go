package model

import (
	"errors"
	"math"
	"slices"

	"famreg/pkg/core"
	"famreg/pkg/data"
)

// PredictionSet holds response-scale predictions aligned row for row with
// the Dataset they were computed from.
type PredictionSet struct {
	Family Family
	Values []float64
}

// Len returns the number of predictions.
func (p PredictionSet) Len() int { return len(p.Values) }

// Predict returns exp(Xβ) for every row of ds. For the GLMs this is the
// fitted mean; for the Weibull model it is the scale of T, exp(η).
// A missing predictor column yields a PredictionError.
func (m *FittedModel) Predict(ds *data.Dataset) (PredictionSet, error) {
	X, err := core.Matrix(ds, m.Predictors)
	if err != nil {
		var mc *core.MissingColumnError
		if errors.As(err, &mc) {
			return PredictionSet{}, &PredictionError{Family: m.Family, Column: mc.Name}
		}
		if ds.Len() == 0 {
			return PredictionSet{Family: m.Family, Values: []float64{}}, nil
		}
		return PredictionSet{}, err
	}
	eta := core.LinearPredictor(X, m.beta)
	out := make([]float64, len(eta))
	for i, e := range eta {
		out[i] = math.Exp(e)
	}
	return PredictionSet{Family: m.Family, Values: out}, nil
}

// Fitted returns the predictions on the training Dataset.
func (m *FittedModel) Fitted() []float64 { return slices.Clone(m.fitted) }

// Mean maps a response-scale prediction to the distribution mean.
// The GLM prediction already is the mean; the Weibull mean is
// exp(η)·Γ(1+σ).
func (m *FittedModel) Mean(pred float64) float64 {
	if m.Family == Weibull {
		return pred * math.Gamma(1+m.Scale)
	}
	return pred
}

// Variance is Var(Y) at mean mu, including the dispersion.
func (m *FittedModel) Variance(mu float64) float64 {
	switch m.Family {
	case Poisson:
		return mu
	case Gamma:
		return m.Stats.Dispersion * mu * mu
	case Weibull:
		g1 := math.Gamma(1 + m.Scale)
		g2 := math.Gamma(1 + 2*m.Scale)
		return mu * mu * (g2/(g1*g1) - 1)
	}
	return math.NaN()
}
