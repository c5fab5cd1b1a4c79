package stats

import (
	"math"
	"sort"
)

// Lowess smooths y against x with Cleveland's robust locally weighted
// linear regression. f is the span as a fraction of n and iter the number
// of robustifying passes. The result is sorted by x.
func Lowess(x, y []float64, f float64, iter int) (xs, ys []float64) {
	n := len(x)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
	xs = make([]float64, n)
	sy := make([]float64, n)
	for i, j := range idx {
		xs[i], sy[i] = x[j], y[j]
	}
	ys = make([]float64, n)
	if n < 2 {
		copy(ys, sy)
		return xs, ys
	}

	k := int(math.Round(f * float64(n)))
	k = max(2, min(k, n))
	delta := 0.01 * (xs[n-1] - xs[0])
	rw := make([]float64, n)
	for i := range rw {
		rw[i] = 1
	}
	res := make([]float64, n)
	for it := 0; it <= iter; it++ {
		lowessPass(xs, sy, ys, rw, k, delta)
		if it == iter {
			break
		}
		for i := range res {
			res[i] = math.Abs(sy[i] - ys[i])
		}
		cmad := 6 * Median(res)
		if cmad < 1e-7*Mean(res) || cmad == 0 {
			break
		}
		for i := range rw {
			u := res[i] / cmad
			if u < 1 {
				rw[i] = (1 - u*u) * (1 - u*u)
			} else {
				rw[i] = 0
			}
		}
	}
	return xs, ys
}

// lowessPass fits every point, skipping those within delta of the last fit
// and interpolating them linearly.
func lowessPass(x, y, out, rw []float64, k int, delta float64) {
	n := len(x)
	left, right := 0, k-1
	last := -1
	i := 0
	for {
		for right < n-1 && x[i]-x[left] > x[right+1]-x[i] {
			left++
			right++
		}
		out[i] = lowessPoint(x, y, rw, i, left, right)
		if last < i-1 {
			span := x[i] - x[last]
			for j := last + 1; j < i; j++ {
				t := (x[j] - x[last]) / span
				out[j] = t*out[i] + (1-t)*out[last]
			}
		}
		last = i
		if last >= n-1 {
			return
		}
		cut := x[last] + delta
		for i = last + 1; i < n; i++ {
			if x[i] > cut {
				break
			}
			if x[i] == x[last] {
				out[i] = out[last]
				last = i
			}
		}
		i = max(last+1, i-1)
		if last >= n-1 {
			return
		}
	}
}

func lowessPoint(x, y, rw []float64, i, left, right int) float64 {
	xi := x[i]
	h := math.Max(xi-x[left], x[right]-xi)
	var sw, swx float64
	w := make([]float64, right-left+1)
	for j := left; j <= right; j++ {
		r := math.Abs(x[j] - xi)
		var wt float64
		switch {
		case h == 0 || r <= 0.001*h:
			wt = 1
		case r < 0.999*h:
			q := r / h
			q = 1 - q*q*q
			wt = q * q * q
		}
		wt *= rw[j]
		w[j-left] = wt
		sw += wt
		swx += wt * x[j]
	}
	if sw <= 0 {
		return y[i]
	}
	xbar := swx / sw
	var sxx, sxy, sy float64
	for j := left; j <= right; j++ {
		wt := w[j-left] / sw
		d := x[j] - xbar
		sxx += wt * d * d
		sxy += wt * d * y[j]
		sy += wt * y[j]
	}
	rng := x[len(x)-1] - x[0]
	if math.Sqrt(sxx) > 0.001*rng {
		return sy + sxy/sxx*(xi-xbar)
	}
	return sy
}
