package stats

import "math"

// Silverman returns the rule-of-thumb Gaussian kernel bandwidth
// 0.9·min(sd, IQR/1.34)·n^(-1/5), falling back to sd, |x₀| and then 1
// when the spread is zero.
func Silverman(x []float64) float64 {
	n := len(x)
	if n < 2 {
		return 1
	}
	lo := SampleStd(x)
	if iqr := IQR(x) / 1.34; iqr < lo {
		lo = iqr
	}
	if lo == 0 {
		lo = SampleStd(x)
	}
	if lo == 0 {
		lo = math.Abs(x[0])
	}
	if lo == 0 {
		lo = 1
	}
	return 0.9 * lo * math.Pow(float64(n), -0.2)
}

// Grid returns m evenly spaced points covering [min-3bw, max+3bw].
func Grid(x []float64, bw float64, m int) []float64 {
	if m < 2 {
		m = 2
	}
	min, max := MinMax(x)
	lo, hi := min-3*bw, max+3*bw
	step := (hi - lo) / float64(m-1)
	out := make([]float64, m)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// KDE evaluates a Gaussian kernel density estimate of x at every point of at.
func KDE(x []float64, bw float64, at []float64) []float64 {
	out := make([]float64, len(at))
	if len(x) == 0 || !(bw > 0) {
		return out
	}
	norm := 1 / (float64(len(x)) * bw * math.Sqrt(2*math.Pi))
	for i, a := range at {
		s := 0.0
		for _, v := range x {
			u := (a - v) / bw
			s += math.Exp(-0.5 * u * u)
		}
		out[i] = s * norm
	}
	return out
}
