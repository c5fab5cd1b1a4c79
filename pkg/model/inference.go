package model

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// WaldPValue returns the two-sided p-value of a Wald statistic. df < 0
// selects the standard normal reference; df > 0 a Student t on df degrees
// of freedom; df == 0 yields NaN.
func WaldPValue(stat float64, df int) float64 {
	if math.IsNaN(stat) {
		return math.NaN()
	}
	a := math.Abs(stat)
	switch {
	case df < 0:
		return 2 * distuv.UnitNormal.Survival(a)
	case df == 0:
		return math.NaN()
	default:
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
		return 2 * t.Survival(a)
	}
}

func coefficientTable(terms []string, aliased []bool, est, se []float64, df int) []Coefficient {
	out := make([]Coefficient, len(terms))
	for j, term := range terms {
		c := Coefficient{Term: term, Aliased: aliased[j]}
		if aliased[j] {
			c.Estimate, c.StdError, c.Statistic, c.PValue = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		} else {
			c.Estimate = est[j]
			c.StdError = se[j]
			c.Statistic = est[j] / se[j]
			c.PValue = WaldPValue(c.Statistic, df)
		}
		out[j] = c
	}
	return out
}
