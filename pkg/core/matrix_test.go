package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"famreg/pkg/data"
)

func dataset(t *testing.T, cols ...data.Column) *data.Dataset {
	t.Helper()
	ds, err := data.FromColumns(cols, nil)
	require.NoError(t, err)
	return ds
}

func TestNewDesign(t *testing.T) {
	ds := dataset(t,
		data.Column{Name: "a", Values: []float64{1, 0, 1, 0}},
		data.Column{Name: "b", Values: []float64{2, 4, 5, 9}},
	)
	d, err := NewDesign(ds, []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, []string{Intercept, "a", "b"}, d.Terms)
	assert.Equal(t, []bool{false, false, false}, d.Aliased)
	assert.Equal(t, 3, d.Rank())
	assert.Equal(t, 1.0, d.X.At(2, 0))
	assert.Equal(t, 5.0, d.X.At(2, 2))
}

func TestNewDesign_MissingColumn(t *testing.T) {
	ds := dataset(t, data.Column{Name: "a", Values: []float64{1}})
	_, err := NewDesign(ds, []string{"a", "literacy"})
	var mc *MissingColumnError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, "literacy", mc.Name)
}

func TestDetectAliased(t *testing.T) {
	// two rows, three columns: the third is a combination of the first two
	X := mat.NewDense(2, 3, []float64{
		1, 1, 12,
		1, 0, 48,
	})
	assert.Equal(t, []bool{false, false, true}, DetectAliased(X, AliasTolerance))

	Z := mat.NewDense(3, 2, []float64{1, 0, 1, 0, 1, 0})
	assert.Equal(t, []bool{false, true}, DetectAliased(Z, AliasTolerance))
}

func TestExpandAndReduced(t *testing.T) {
	X := mat.NewDense(2, 3, []float64{1, 1, 12, 1, 0, 48})
	d := &Design{X: X, Terms: []string{Intercept, "a", "b"}, Aliased: []bool{false, false, true}}

	r := d.Reduced()
	rows, cols := r.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)

	full := d.Expand([]float64{0.5, 0.25})
	assert.Equal(t, 0.5, full[0])
	assert.Equal(t, 0.25, full[1])
	assert.True(t, math.IsNaN(full[2]))

	eta := LinearPredictor(X, full)
	assert.InDeltaSlice(t, []float64{0.75, 0.5}, eta, 1e-12)
}

func TestWeightedGramAndCross(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 1, 1, 2, 1, 3})
	w := []float64{1, 2, 1}
	g := WeightedGram(X, w)
	assert.Equal(t, 4.0, g.At(0, 0))
	assert.Equal(t, 8.0, g.At(0, 1))
	assert.Equal(t, 18.0, g.At(1, 1))

	c := WeightedCross(X, w, []float64{1, 1, 1})
	assert.Equal(t, 4.0, c.AtVec(0))
	assert.Equal(t, 8.0, c.AtVec(1))
}
