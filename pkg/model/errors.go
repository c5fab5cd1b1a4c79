package model

import (
	"errors"
	"fmt"
)

var (
	ErrConvergence = errors.New("model did not converge")
	ErrPrediction  = errors.New("prediction failed")
)

// ConvergenceError reports an optimiser that stopped without a valid optimum.
type ConvergenceError struct {
	Family     Family
	Iterations int
	Reason     string
	// Partial, when set, is a location-only fit that can still predict.
	// Its likelihood statistics are NaN.
	Partial *FittedModel
}

func (e *ConvergenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s after %d iterations: %s", e.Family, ErrConvergence.Error(), e.Iterations, e.Reason)
}

func (e *ConvergenceError) Unwrap() error { return ErrConvergence }

// PredictionError reports a Dataset that does not carry a required predictor.
type PredictionError struct {
	Family Family
	Column string
}

func (e *PredictionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s: dataset has no predictor column %q", e.Family, ErrPrediction.Error(), e.Column)
}

func (e *PredictionError) Unwrap() error { return ErrPrediction }
