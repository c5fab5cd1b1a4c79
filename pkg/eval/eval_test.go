package eval

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famreg/pkg/data"
	"famreg/pkg/model"
)

var predictors = []string{data.ColLiteracy, data.ColMonthsSinceM}

func synthetic(t *testing.T, n int) *data.Dataset {
	t.Helper()
	r := rand.New(rand.NewPCG(21, 4))
	lit := make([]float64, n)
	months := make([]float64, n)
	fs := make([]float64, n)
	for i := range n {
		if r.Float64() < 0.5 {
			lit[i] = 1
		}
		months[i] = 12 + r.Float64()*240
		fs[i] = math.Round(2 + math.Exp(0.3-0.2*lit[i]+0.005*months[i])*(0.5+r.Float64()))
	}
	ds, err := data.FromColumns([]data.Column{
		{Name: data.ColLiteracy, Values: lit},
		{Name: data.ColMonthsSinceM, Values: months},
		{Name: data.ColFamilySize, Values: fs},
	}, nil)
	require.NoError(t, err)
	return ds
}

func outcome(t *testing.T, f model.Family, ds *data.Dataset) Outcome {
	t.Helper()
	fitter, err := model.NewFitter(f)
	require.NoError(t, err)
	m, err := fitter.Fit(ds, predictors, data.ColFamilySize)
	if err != nil {
		return Outcome{Family: f, Err: err}
	}
	p, err := m.Predict(ds)
	require.NoError(t, err)
	return Outcome{Family: f, Model: m, Predictions: p}
}

func TestCompare(t *testing.T) {
	ds := synthetic(t, 300)
	y, _ := ds.Float(data.ColFamilySize)
	var outs []Outcome
	for _, f := range model.Families() {
		outs = append(outs, outcome(t, f, ds))
	}
	failed := errors.New("boom")
	outs = append(outs, Outcome{Family: model.Gamma, Err: failed})

	c := Compare(y, outs)
	assert.Equal(t, []string{"AIC", "BIC", "Log-Likelihood", "RMSE"}, c.Columns)
	require.Len(t, c.Rows, 4)
	for i, f := range model.Families() {
		r := c.Rows[i]
		assert.Equal(t, f, r.Family)
		require.NoError(t, r.Err)
		s := outs[i].Model.Stats
		assert.Equal(t, s.AIC, r.AIC)
		assert.Equal(t, s.BIC, r.BIC)
		assert.Equal(t, s.LogLik, r.Value(ColLogLik))
		assert.InDelta(t, model.RMSE(y, outs[i].Predictions.Values), r.RMSE, 1e-12)
	}
	bad := c.Rows[3]
	assert.ErrorIs(t, bad.Err, failed)
	assert.True(t, math.IsNaN(bad.AIC))
	assert.True(t, math.IsNaN(bad.RMSE))

	best, ok := c.Best(ColAIC)
	require.True(t, ok)
	lowest := c.Rows[0]
	for _, r := range c.Rows[:3] {
		if r.AIC < lowest.AIC {
			lowest = r
		}
	}
	assert.Equal(t, lowest.Family, best)
}

func TestCompare_FailedFitWithPredictions(t *testing.T) {
	y := []float64{3, 5}
	failed := errors.New("saturated")
	c := Compare(y, []Outcome{{
		Family:      model.Weibull,
		Err:         failed,
		Predictions: model.PredictionSet{Family: model.Weibull, Values: []float64{3, 4}},
	}})
	r := c.Rows[0]
	assert.ErrorIs(t, r.Err, failed)
	assert.True(t, math.IsNaN(r.AIC))
	assert.True(t, math.IsNaN(r.LogLik))
	assert.InDelta(t, math.Sqrt(0.5), r.RMSE, 1e-12)

	// failed rows never win
	_, ok := c.Best(ColRMSE)
	assert.False(t, ok)
}

func TestCompare_LengthMismatch(t *testing.T) {
	ds := synthetic(t, 50)
	o := outcome(t, model.Poisson, ds)
	c := Compare([]float64{1, 2, 3}, []Outcome{o, {Family: model.Gamma}})
	assert.Error(t, c.Rows[0].Err)
	assert.Error(t, c.Rows[1].Err)
	_, ok := c.Best(ColRMSE)
	assert.False(t, ok)
}

func TestPearsonResiduals(t *testing.T) {
	ds := synthetic(t, 200)
	y, _ := ds.Float(data.ColFamilySize)
	for _, f := range model.Families() {
		o := outcome(t, f, ds)
		require.NoError(t, o.Err)
		r, err := PearsonResiduals(y, o.Model)
		require.NoError(t, err)
		require.Len(t, r, len(y))
		fitted := o.Model.Fitted()
		for i := range r {
			mu := o.Model.Mean(fitted[i])
			assert.InDelta(t, (y[i]-mu)/math.Sqrt(o.Model.Variance(mu)), r[i], 1e-12)
		}
	}

	o := outcome(t, model.Poisson, ds)
	_, err := PearsonResiduals(y[:10], o.Model)
	assert.Error(t, err)
}

func TestPearsonResiduals_Poisson(t *testing.T) {
	ds := synthetic(t, 100)
	y, _ := ds.Float(data.ColFamilySize)
	o := outcome(t, model.Poisson, ds)
	r, err := PearsonResiduals(y, o.Model)
	require.NoError(t, err)
	mu := o.Model.Fitted()
	assert.InDelta(t, (y[0]-mu[0])/math.Sqrt(mu[0]), r[0], 1e-12)
}

func TestCrossValidate(t *testing.T) {
	ds := synthetic(t, 200)
	fitter, err := model.NewFitter(model.Poisson)
	require.NoError(t, err)

	a, err := CrossValidate(fitter, ds, predictors, data.ColFamilySize, 5, 9)
	require.NoError(t, err)
	assert.Equal(t, model.Poisson, a.Family)
	assert.Len(t, a.FoldRMSE, 5)
	assert.Greater(t, a.RMSE, 0.0)
	assert.LessOrEqual(t, a.MAE, a.RMSE)

	b, err := CrossValidate(fitter, ds, predictors, data.ColFamilySize, 5, 9)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = CrossValidate(fitter, ds, predictors, data.ColFamilySize, 1, 9)
	assert.Error(t, err)
}
