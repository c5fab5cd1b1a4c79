package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := FromColumns(
		[]Column{
			{Name: ColChildren, Values: []float64{1, 3}},
			{Name: ColMonthsSinceM, Values: []float64{12, 48}},
		},
		[]Labels{
			{Name: ColAgeMarried, Values: []string{"15to18", "20to22"}},
			{Name: LiteracyLabelColumn, Values: []string{"yes", "no"}},
		},
	)
	require.NoError(t, err)
	return ds
}

func TestFromColumns_LengthMismatch(t *testing.T) {
	_, err := FromColumns([]Column{
		{Name: "a", Values: []float64{1, 2}},
		{Name: "b", Values: []float64{1}},
	}, nil)
	assert.Error(t, err)
}

func TestFromColumns_Duplicate(t *testing.T) {
	_, err := FromColumns([]Column{{Name: "a", Values: []float64{1}}}, []Labels{{Name: "a", Values: []string{"x"}}})
	assert.Error(t, err)
}

func TestDataset_WithColumnIsSnapshot(t *testing.T) {
	ds := newTestDataset(t)
	next, err := ds.WithColumn(ColFamilySize, []float64{3, 5})
	require.NoError(t, err)

	assert.False(t, ds.Has(ColFamilySize), "receiver must not change")
	assert.True(t, next.Has(ColFamilySize))
	assert.Equal(t, []string{ColChildren, ColMonthsSinceM, ColFamilySize}, next.Names())

	_, err = ds.WithColumn("short", []float64{1})
	assert.Error(t, err)
}

func TestDataset_FloatReturnsCopy(t *testing.T) {
	ds := newTestDataset(t)
	v, ok := ds.Float(ColChildren)
	require.True(t, ok)
	v[0] = 100
	again, _ := ds.Float(ColChildren)
	assert.Equal(t, 1.0, again[0])
}

func TestDataset_Without(t *testing.T) {
	ds := newTestDataset(t)
	out := ds.Without(ColMonthsSinceM).Without(ColAgeMarried)
	assert.False(t, out.Has(ColMonthsSinceM))
	_, ok := out.Labels(ColAgeMarried)
	assert.False(t, ok)
	assert.True(t, ds.Has(ColMonthsSinceM))
	assert.Equal(t, 2, out.Len())
}

func TestDataset_Subset(t *testing.T) {
	ds := newTestDataset(t)
	sub, err := ds.Subset([]int{1})
	require.NoError(t, err)
	assert.Equal(t, 1, sub.Len())
	o := sub.Observation(0)
	assert.Equal(t, Observation{Children: 3, AgeMarried: "20to22", Literacy: "no", MonthsSinceM: 48}, o)

	_, err = ds.Subset([]int{2})
	assert.Error(t, err)
}
