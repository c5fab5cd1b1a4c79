// Package eval scores fitted models against observed family sizes.
package eval

import (
	"errors"
	"fmt"
	"math"

	"famreg/pkg/model"
)

// Column names of a Comparison, in display order.
const (
	ColAIC    = "AIC"
	ColBIC    = "BIC"
	ColLogLik = "Log-Likelihood"
	ColRMSE   = "RMSE"
)

// Columns is the fixed column set of every Comparison.
var Columns = []string{ColAIC, ColBIC, ColLogLik, ColRMSE}

// Outcome is what one family produced: a model and its predictions on the
// training data, or the error that stopped it.
type Outcome struct {
	Family      model.Family
	Model       *model.FittedModel
	Predictions model.PredictionSet
	Err         error
}

// Row is one line of the comparison table. A failed fit keeps its row with
// Err set and NaN likelihood metrics; RMSE is filled when the failed fit
// still produced predictions.
type Row struct {
	Family model.Family
	AIC    float64
	BIC    float64
	LogLik float64
	RMSE   float64
	Err    error
}

// Value returns the metric for a column name.
func (r Row) Value(col string) float64 {
	switch col {
	case ColAIC:
		return r.AIC
	case ColBIC:
		return r.BIC
	case ColLogLik:
		return r.LogLik
	case ColRMSE:
		return r.RMSE
	}
	return math.NaN()
}

// Comparison is the model comparison table.
type Comparison struct {
	Columns []string
	Rows    []Row
}

var errNoModel = errors.New("no fitted model")

// Compare builds one row per outcome, in outcome order. AIC, BIC and the
// log-likelihood come from the fit; RMSE from the predictions.
func Compare(observed []float64, outcomes []Outcome) Comparison {
	c := Comparison{Columns: append([]string(nil), Columns...)}
	for _, o := range outcomes {
		row := Row{Family: o.Family, AIC: math.NaN(), BIC: math.NaN(), LogLik: math.NaN(), RMSE: math.NaN()}
		switch {
		case o.Err != nil:
			row.Err = o.Err
			// a failed fit may still leave usable predictions behind
			if n := len(observed); n > 0 && o.Predictions.Len() == n {
				row.RMSE = model.RMSE(observed, o.Predictions.Values)
			}
		case o.Model == nil:
			row.Err = errNoModel
		case o.Predictions.Len() != len(observed):
			row.Err = fmt.Errorf("%s: %d predictions for %d observations", o.Family, o.Predictions.Len(), len(observed))
		default:
			s := o.Model.Stats
			row.AIC, row.BIC, row.LogLik = s.AIC, s.BIC, s.LogLik
			row.RMSE = model.RMSE(observed, o.Predictions.Values)
		}
		c.Rows = append(c.Rows, row)
	}
	return c
}

// Row looks up the row for a family.
func (c Comparison) Row(f model.Family) (Row, bool) {
	for _, r := range c.Rows {
		if r.Family == f {
			return r, true
		}
	}
	return Row{}, false
}

// Best returns the family that wins on a column: lowest AIC, BIC and RMSE,
// highest log-likelihood. Failed rows and NaN values never win.
func (c Comparison) Best(col string) (model.Family, bool) {
	var (
		best  model.Family
		score float64
		found bool
	)
	for _, r := range c.Rows {
		v := r.Value(col)
		if r.Err != nil || math.IsNaN(v) {
			continue
		}
		if col == ColLogLik {
			v = -v
		}
		if !found || v < score {
			best, score, found = r.Family, v, true
		}
	}
	return best, found
}

// PearsonResiduals returns (y - μ)/sqrt(V(μ)) for the training predictions
// of fm, where μ is the family mean and V its variance.
func PearsonResiduals(observed []float64, fm *model.FittedModel) ([]float64, error) {
	fitted := fm.Fitted()
	if len(fitted) != len(observed) {
		return nil, fmt.Errorf("pearson residuals: %d fitted values for %d observations", len(fitted), len(observed))
	}
	out := make([]float64, len(observed))
	for i, y := range observed {
		mu := fm.Mean(fitted[i])
		out[i] = (y - mu) / math.Sqrt(fm.Variance(mu))
	}
	return out, nil
}
