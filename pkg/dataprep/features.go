package dataprep

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"famreg/pkg/data"
)

// ParentsBaseline is added to the child count to obtain family size.
const ParentsBaseline = 2

// Dropped records a row removed under PolicyDrop.
type Dropped struct {
	Row int
	Err *CoercionError
}

// Derived is the outcome of Derive.
type Derived struct {
	Dataset *data.Dataset
	Dropped []Dropped
}

// Option configures Derive.
type Option func(*deriver)

type deriver struct {
	policy Policy
	onDrop func(Dropped)
}

// WithPolicy selects the coercion failure policy.
func WithPolicy(p Policy) Option { return func(d *deriver) { d.policy = p } }

// WithDropHook is called for every row removed under PolicyDrop.
func WithDropHook(fn func(Dropped)) Option { return func(d *deriver) { d.onDrop = fn } }

// Derive coerces the raw table into a typed Dataset and adds family_size.
//
// Columns produced: children, literacy (0/1), monthsSinceM, family_size,
// plus categorical ageMarried and literacy labels.
func Derive(t *data.Table, opts ...Option) (*Derived, error) {
	d := &deriver{policy: PolicyAbort}
	for _, o := range opts {
		o(d)
	}

	n := t.Len()
	children := make([]float64, 0, n)
	literacy := make([]float64, 0, n)
	months := make([]float64, 0, n)
	ages := make([]string, 0, n)
	labels := make([]string, 0, n)
	var dropped []Dropped

	for i := 0; i < n; i++ {
		obs, cerr := coerceRow(t, i)
		if cerr != nil {
			if d.policy == PolicyAbort {
				return nil, cerr
			}
			dr := Dropped{Row: cerr.Row, Err: cerr}
			dropped = append(dropped, dr)
			if d.onDrop != nil {
				d.onDrop(dr)
			}
			continue
		}
		children = append(children, float64(obs.Children))
		_, code, _ := EncodeLiteracy(obs.Literacy)
		literacy = append(literacy, code)
		months = append(months, obs.MonthsSinceM)
		ages = append(ages, obs.AgeMarried)
		labels = append(labels, obs.Literacy)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("derive: no usable rows (%d read, %d dropped)", n, len(dropped))
	}

	base, err := data.FromColumns(
		[]data.Column{
			{Name: data.ColChildren, Values: children},
			{Name: data.ColLiteracy, Values: literacy},
			{Name: data.ColMonthsSinceM, Values: months},
		},
		[]data.Labels{
			{Name: data.ColAgeMarried, Values: ages},
			{Name: data.LiteracyLabelColumn, Values: labels},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	ds, err := base.WithColumn(data.ColFamilySize, FamilySize(children))
	if err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	return &Derived{Dataset: ds, Dropped: dropped}, nil
}

// FamilySize returns children + ParentsBaseline for every entry.
func FamilySize(children []float64) []float64 {
	out := make([]float64, len(children))
	for i, c := range children {
		out[i] = c + ParentsBaseline
	}
	return out
}

func coerceRow(t *data.Table, i int) (data.Observation, *CoercionError) {
	row := i + 1
	var obs data.Observation
	fail := func(col, val, reason string) *CoercionError {
		return &CoercionError{Row: row, Column: col, Value: val, Reason: reason}
	}

	raw, _ := t.Value(i, data.ColChildren)
	if IsMissing(raw) {
		return obs, fail(data.ColChildren, raw, "missing")
	}
	c, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		// "3.0" style integers are accepted, fractional counts are not
		f, ferr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return obs, fail(data.ColChildren, raw, "not an integer")
		}
		if math.Abs(f) > math.MaxInt32 {
			return obs, fail(data.ColChildren, raw, "count too large")
		}
		c = int(f)
	}
	if c < 0 {
		return obs, fail(data.ColChildren, raw, "negative count")
	}
	if c > math.MaxInt32 {
		return obs, fail(data.ColChildren, raw, "count too large")
	}
	obs.Children = c

	raw, _ = t.Value(i, data.ColMonthsSinceM)
	if IsMissing(raw) {
		return obs, fail(data.ColMonthsSinceM, raw, "missing")
	}
	m, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(m) || math.IsInf(m, 0) {
		return obs, fail(data.ColMonthsSinceM, raw, "not a finite number")
	}
	if m < 0 {
		return obs, fail(data.ColMonthsSinceM, raw, "negative duration")
	}
	obs.MonthsSinceM = m

	raw, _ = t.Value(i, data.ColLiteracy)
	label, _, ok := EncodeLiteracy(raw)
	if !ok {
		return obs, fail(data.ColLiteracy, raw, "expected yes or no")
	}
	obs.Literacy = label

	raw, _ = t.Value(i, data.ColAgeMarried)
	if LevelIndex(raw) < 0 {
		return obs, fail(data.ColAgeMarried, raw, "unknown bucket")
	}
	obs.AgeMarried = strings.TrimSpace(raw)
	obs.FamilySize = float64(c + ParentsBaseline)
	return obs, nil
}
