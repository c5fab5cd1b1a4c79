package stats

// Scaling maps a column to zero mean and unit variance: (v - Center) / Scale.
type Scaling struct {
	Center float64
	Scale  float64
}

// Standardizer fits a Scaling to one column. A constant column keeps
// Scale 1 so Apply never divides by zero.
func Standardizer(x []float64) Scaling {
	s := Scaling{Center: Mean(x), Scale: Std(x)}
	if !(s.Scale > 0) {
		s.Scale = 1
	}
	return s
}

// Identity leaves values unchanged.
func Identity() Scaling { return Scaling{Scale: 1} }

func (s Scaling) Apply(v float64) float64 { return (v - s.Center) / s.Scale }

// ApplyAll returns a scaled copy of x.
func (s Scaling) ApplyAll(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = s.Apply(v)
	}
	return out
}
