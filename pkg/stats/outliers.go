package stats

// Fences returns Tukey's fences Q1 - k·IQR and Q3 + k·IQR.
func Fences(x []float64, k float64) (lo, hi float64) {
	q1, q3 := Percentile(x, 25), Percentile(x, 75)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr
}

// CountOutliers counts values outside the k·IQR fences.
func CountOutliers(x []float64, k float64) int {
	if len(x) == 0 {
		return 0
	}
	lo, hi := Fences(x, k)
	n := 0
	for _, v := range x {
		if v < lo || v > hi {
			n++
		}
	}
	return n
}
