package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean computes the average of a slice; zero when empty.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Variance computes the population variance of a slice.
func Variance(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.PopVariance(x, nil)
}

// SampleVariance uses the n-1 denominator. NaN for fewer than two values.
func SampleVariance(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.Variance(x, nil)
}

// Std computes the standard deviation of a slice.
func Std(x []float64) float64 {
	return math.Sqrt(Variance(x))
}

// SampleStd is the square root of SampleVariance.
func SampleStd(x []float64) float64 {
	return math.Sqrt(SampleVariance(x))
}

// MinMax returns the minimum and maximum values in the slice.
func MinMax(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	return floats.Min(x), floats.Max(x)
}

// Sum returns the sum of all elements in the slice.
func Sum(x []float64) float64 { return floats.Sum(x) }

// Median returns the median value of the slice (allocates a copy).
func Median(x []float64) float64 {
	return Percentile(x, 50)
}

// Percentile returns the p-th percentile value of the slice (0 <= p <= 100)
// with linear interpolation between order statistics.
func Percentile(x []float64, p float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	min, max := MinMax(x)
	if p <= 0 {
		return min
	}
	if p >= 100 {
		return max
	}
	cp := make([]float64, n)
	copy(cp, x)
	sort.Float64s(cp)
	rank := p / 100 * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)
	if upper >= n {
		return cp[lower]
	}
	return cp[lower]*(1-weight) + cp[upper]*weight
}

// IQR is the interquartile range.
func IQR(x []float64) float64 {
	return Percentile(x, 75) - Percentile(x, 25)
}

// Summary is a five-number summary plus moments for one column.
type Summary struct {
	N                   int
	Mean, Std           float64
	Min, Q1, Median, Q3 float64
	Max                 float64
	Outliers            int
}

// Summarize describes x. Std is the sample standard deviation.
func Summarize(x []float64) Summary {
	s := Summary{N: len(x)}
	if s.N == 0 {
		return s
	}
	s.Mean = Mean(x)
	s.Std = SampleStd(x)
	s.Min, s.Max = MinMax(x)
	s.Q1 = Percentile(x, 25)
	s.Median = Median(x)
	s.Q3 = Percentile(x, 75)
	s.Outliers = CountOutliers(x, 1.5)
	return s
}
