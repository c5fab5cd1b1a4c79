package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"famreg/pkg/data"
)

// Intercept is the term name of the constant column.
const Intercept = "(Intercept)"

// AliasTolerance is the relative residual norm below which a column is
// treated as a linear combination of the columns before it.
const AliasTolerance = 1e-7

// MissingColumnError is returned when a predictor is absent from a Dataset.
type MissingColumnError struct{ Name string }

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("design: dataset has no column %q", e.Name)
}

// Design is a model matrix: an intercept column followed by the predictors
// in the order given.
type Design struct {
	X       *mat.Dense
	Terms   []string
	Aliased []bool
}

// NewDesign builds the model matrix for predictors and flags aliased columns.
func NewDesign(ds *data.Dataset, predictors []string) (*Design, error) {
	X, err := Matrix(ds, predictors)
	if err != nil {
		return nil, err
	}
	terms := append([]string{Intercept}, predictors...)
	return &Design{X: X, Terms: terms, Aliased: DetectAliased(X, AliasTolerance)}, nil
}

// Matrix returns [1 | predictors] as an n×(p+1) dense matrix.
func Matrix(ds *data.Dataset, predictors []string) (*mat.Dense, error) {
	n := ds.Len()
	cols := make([][]float64, len(predictors))
	for j, name := range predictors {
		v, ok := ds.Float(name)
		if !ok {
			return nil, &MissingColumnError{Name: name}
		}
		cols[j] = v
	}
	if n == 0 {
		return nil, fmt.Errorf("design: empty dataset")
	}
	X := mat.NewDense(n, len(predictors)+1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		for j := range cols {
			X.Set(i, j+1, cols[j][i])
		}
	}
	return X, nil
}

// Active returns the indices of the non-aliased columns.
func (d *Design) Active() []int {
	var idx []int
	for j, a := range d.Aliased {
		if !a {
			idx = append(idx, j)
		}
	}
	return idx
}

// Rank is the number of non-aliased columns.
func (d *Design) Rank() int { return len(d.Active()) }

// Reduced returns the matrix restricted to the active columns.
func (d *Design) Reduced() *mat.Dense {
	idx := d.Active()
	n, _ := d.X.Dims()
	out := mat.NewDense(n, len(idx), nil)
	for k, j := range idx {
		out.SetCol(k, mat.Col(nil, j, d.X))
	}
	return out
}

// Expand scatters reduced coefficients back to the full term list,
// filling aliased positions with NaN.
func (d *Design) Expand(reduced []float64) []float64 {
	full := make([]float64, len(d.Terms))
	k := 0
	for j := range full {
		if d.Aliased[j] {
			full[j] = math.NaN()
			continue
		}
		full[j] = reduced[k]
		k++
	}
	return full
}

// DetectAliased runs a modified Gram-Schmidt pass over the columns of X,
// left to right, and flags every column whose residual norm falls below
// tol times its original norm.
func DetectAliased(X mat.Matrix, tol float64) []bool {
	n, p := X.Dims()
	aliased := make([]bool, p)
	basis := make([]*mat.VecDense, 0, p)
	for j := 0; j < p; j++ {
		v := mat.NewVecDense(n, mat.Col(nil, j, X))
		orig := mat.Norm(v, 2)
		if orig == 0 {
			aliased[j] = true
			continue
		}
		for _, q := range basis {
			v.AddScaledVec(v, -mat.Dot(q, v), q)
		}
		r := mat.Norm(v, 2)
		if r <= tol*orig {
			aliased[j] = true
			continue
		}
		v.ScaleVec(1/r, v)
		basis = append(basis, v)
	}
	return aliased
}

// LinearPredictor returns X·beta. NaN (aliased) coefficients contribute zero.
func LinearPredictor(X mat.Matrix, beta []float64) []float64 {
	n, p := X.Dims()
	eta := make([]float64, n)
	for i := 0; i < n; i++ {
		s := 0.0
		for j := 0; j < p; j++ {
			if math.IsNaN(beta[j]) {
				continue
			}
			s += X.At(i, j) * beta[j]
		}
		eta[i] = s
	}
	return eta
}

// WeightedGram returns Xᵀ diag(w) X.
func WeightedGram(X mat.Matrix, w []float64) *mat.SymDense {
	n, p := X.Dims()
	g := mat.NewSymDense(p, nil)
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			s := 0.0
			for i := 0; i < n; i++ {
				s += w[i] * X.At(i, a) * X.At(i, b)
			}
			g.SetSym(a, b, s)
		}
	}
	return g
}

// WeightedCross returns Xᵀ diag(w) z.
func WeightedCross(X mat.Matrix, w, z []float64) *mat.VecDense {
	n, p := X.Dims()
	out := mat.NewVecDense(p, nil)
	for j := 0; j < p; j++ {
		s := 0.0
		for i := 0; i < n; i++ {
			s += w[i] * X.At(i, j) * z[i]
		}
		out.SetVec(j, s)
	}
	return out
}
