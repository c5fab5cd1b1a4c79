package report

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"famreg/pkg/eval"
	"famreg/pkg/pipeline"
)

func num(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// WriteComparisonCSV writes the comparison at full precision, with an error
// column for failed fits.
func WriteComparisonCSV(w io.Writer, c eval.Comparison) error {
	cw := csv.NewWriter(w)
	header := append([]string{"model"}, c.Columns...)
	if err := cw.Write(append(header, "error")); err != nil {
		return err
	}
	for _, r := range c.Rows {
		rec := []string{r.Family.String()}
		for _, col := range c.Columns {
			if v := r.Value(col); r.Err == nil || !math.IsNaN(v) {
				rec = append(rec, num(v))
				continue
			}
			rec = append(rec, "")
		}
		msg := ""
		if r.Err != nil {
			msg = r.Err.Error()
		}
		if err := cw.Write(append(rec, msg)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCoefficientsCSV writes every coefficient of every fitted model.
func WriteCoefficientsCSV(w io.Writer, fams []pipeline.FamilyResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"model", "term", "estimate", "std_error", "statistic", "p_value", "aliased"}); err != nil {
		return err
	}
	for _, fr := range fams {
		if fr.Model == nil {
			continue
		}
		for _, c := range fr.Model.Coefficients {
			rec := []string{
				fr.Family.String(), c.Term,
				num(c.Estimate), num(c.StdError), num(c.Statistic), num(c.PValue),
				strconv.FormatBool(c.Aliased),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResidualsCSV writes one line per family with the observed response,
// the predictors, and each model's prediction and Pearson residual.
func WriteResidualsCSV(w io.Writer, res *pipeline.Result) error {
	cw := csv.NewWriter(w)
	cols := append([]string{res.Schema.Response}, res.Schema.Predictors...)
	header := append([]string{"row"}, cols...)
	var fitted []pipeline.FamilyResult
	for _, fr := range res.Families {
		if fr.Model == nil || fr.Err != nil {
			continue
		}
		fitted = append(fitted, fr)
		name := fr.Family.String()
		header = append(header, name+"_predicted", name+"_pearson")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	values := make([][]float64, len(cols))
	for j, c := range cols {
		values[j], _ = res.Dataset.Float(c)
	}
	for i := 0; i < res.Dataset.Len(); i++ {
		rec := []string{strconv.Itoa(i + 1)}
		for j := range cols {
			rec = append(rec, num(values[j][i]))
		}
		for _, fr := range fitted {
			rec = append(rec, num(fr.Predictions.Values[i]), num(fr.Residuals[i]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

