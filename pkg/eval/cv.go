package eval

import (
	"fmt"

	"famreg/pkg/data"
	"famreg/pkg/loader"
	"famreg/pkg/model"
	"famreg/pkg/stats"
)

// CVResult is the out-of-sample error of one family under k-fold
// cross-validation.
type CVResult struct {
	Family   model.Family
	Folds    int
	RMSE     float64
	MAE      float64
	FoldRMSE []float64
}

// CrossValidate refits the family on every training split and scores the
// held-out rows. Folds come from a seeded shuffle, so results repeat.
func CrossValidate(fitter model.Fitter, ds *data.Dataset, predictors []string, response string, k int, seed uint64) (CVResult, error) {
	folds, err := loader.KFoldSplit(ds.Len(), k, seed)
	if err != nil {
		return CVResult{}, err
	}
	res := CVResult{Family: fitter.Family(), Folds: k}
	var rmse, mae []float64
	for i, f := range folds {
		train, err := ds.Subset(f.Train)
		if err != nil {
			return CVResult{}, err
		}
		test, err := ds.Subset(f.Test)
		if err != nil {
			return CVResult{}, err
		}
		m, err := fitter.Fit(train, predictors, response)
		if err != nil {
			return CVResult{}, fmt.Errorf("fold %d: %w", i+1, err)
		}
		pred, err := m.Predict(test)
		if err != nil {
			return CVResult{}, fmt.Errorf("fold %d: %w", i+1, err)
		}
		y, ok := test.Float(response)
		if !ok {
			return CVResult{}, fmt.Errorf("fold %d: no response column %q", i+1, response)
		}
		rmse = append(rmse, model.RMSE(y, pred.Values))
		mae = append(mae, model.MAE(y, pred.Values))
	}
	res.FoldRMSE = rmse
	res.RMSE = stats.Mean(rmse)
	res.MAE = stats.Mean(mae)
	return res, nil
}
