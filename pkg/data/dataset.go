package data

import (
	"fmt"
	"slices"
)

// Observation is one family unit after coercion.
type Observation struct {
	Children     int
	AgeMarried   string
	Literacy     string
	MonthsSinceM float64
	FamilySize   float64
}

// Column is a named numeric column.
type Column struct {
	Name   string
	Values []float64
}

// Labels is a named categorical column.
type Labels struct {
	Name   string
	Values []string
}

// Dataset is an ordered, read-only, columnar snapshot.
// Every transformation returns a new Dataset; the receiver is never modified.
type Dataset struct {
	n        int
	numNames []string
	num      map[string][]float64
	catNames []string
	cat      map[string][]string
}

// FromColumns builds a Dataset. All columns must share the same length and
// names must be unique across numeric and categorical columns.
func FromColumns(num []Column, cat []Labels) (*Dataset, error) {
	ds := &Dataset{n: -1, num: map[string][]float64{}, cat: map[string][]string{}}
	seen := map[string]bool{}
	check := func(name string, n int) error {
		if name == "" {
			return fmt.Errorf("dataset: empty column name")
		}
		if seen[name] {
			return fmt.Errorf("dataset: duplicate column %q", name)
		}
		seen[name] = true
		if ds.n == -1 {
			ds.n = n
		} else if n != ds.n {
			return fmt.Errorf("dataset: column %q has %d rows, want %d", name, n, ds.n)
		}
		return nil
	}
	for _, c := range num {
		if err := check(c.Name, len(c.Values)); err != nil {
			return nil, err
		}
		ds.numNames = append(ds.numNames, c.Name)
		ds.num[c.Name] = slices.Clone(c.Values)
	}
	for _, c := range cat {
		if err := check(c.Name, len(c.Values)); err != nil {
			return nil, err
		}
		ds.catNames = append(ds.catNames, c.Name)
		ds.cat[c.Name] = slices.Clone(c.Values)
	}
	if ds.n == -1 {
		ds.n = 0
	}
	return ds, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.n }

// Names returns numeric column names in insertion order.
func (d *Dataset) Names() []string { return slices.Clone(d.numNames) }

// LabelNames returns categorical column names in insertion order.
func (d *Dataset) LabelNames() []string { return slices.Clone(d.catNames) }

// Has reports whether a numeric column exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.num[name]
	return ok
}

// Float returns a copy of the numeric column.
func (d *Dataset) Float(name string) ([]float64, bool) {
	v, ok := d.num[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

// At returns a single numeric cell without copying the column.
func (d *Dataset) At(i int, name string) (float64, bool) {
	v, ok := d.num[name]
	if !ok || i < 0 || i >= d.n {
		return 0, false
	}
	return v[i], true
}

// Labels returns a copy of the categorical column.
func (d *Dataset) Labels(name string) ([]string, bool) {
	v, ok := d.cat[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

// WithColumn returns a new Dataset with the numeric column added or replaced.
func (d *Dataset) WithColumn(name string, values []float64) (*Dataset, error) {
	if len(values) != d.n {
		return nil, fmt.Errorf("dataset: column %q has %d rows, want %d", name, len(values), d.n)
	}
	if _, ok := d.cat[name]; ok {
		return nil, fmt.Errorf("dataset: %q is a categorical column", name)
	}
	out := d.clone()
	if _, ok := out.num[name]; !ok {
		out.numNames = append(out.numNames, name)
	}
	out.num[name] = slices.Clone(values)
	return out, nil
}

// Without returns a new Dataset lacking the named column (numeric or categorical).
func (d *Dataset) Without(name string) *Dataset {
	out := d.clone()
	if _, ok := out.num[name]; ok {
		delete(out.num, name)
		out.numNames = slices.DeleteFunc(out.numNames, func(s string) bool { return s == name })
	}
	if _, ok := out.cat[name]; ok {
		delete(out.cat, name)
		out.catNames = slices.DeleteFunc(out.catNames, func(s string) bool { return s == name })
	}
	return out
}

// Subset returns the rows at idx, in the order given.
func (d *Dataset) Subset(idx []int) (*Dataset, error) {
	for _, i := range idx {
		if i < 0 || i >= d.n {
			return nil, fmt.Errorf("dataset: row %d out of range [0,%d)", i, d.n)
		}
	}
	out := &Dataset{
		n:        len(idx),
		numNames: slices.Clone(d.numNames),
		num:      make(map[string][]float64, len(d.num)),
		catNames: slices.Clone(d.catNames),
		cat:      make(map[string][]string, len(d.cat)),
	}
	for name, col := range d.num {
		v := make([]float64, len(idx))
		for k, i := range idx {
			v[k] = col[i]
		}
		out.num[name] = v
	}
	for name, col := range d.cat {
		v := make([]string, len(idx))
		for k, i := range idx {
			v[k] = col[i]
		}
		out.cat[name] = v
	}
	return out, nil
}

// Observation reassembles row i. Columns that are absent stay zero.
func (d *Dataset) Observation(i int) Observation {
	var o Observation
	if v, ok := d.At(i, ColChildren); ok {
		o.Children = int(v)
	}
	if v, ok := d.At(i, ColMonthsSinceM); ok {
		o.MonthsSinceM = v
	}
	if v, ok := d.At(i, ColFamilySize); ok {
		o.FamilySize = v
	}
	if v, ok := d.cat[ColAgeMarried]; ok && i < len(v) {
		o.AgeMarried = v[i]
	}
	if v, ok := d.cat[LiteracyLabelColumn]; ok && i < len(v) {
		o.Literacy = v[i]
	}
	return o
}

// LiteracyLabelColumn holds the raw yes/no strings; the numeric "literacy"
// column carries the 0/1 encoding used by the models.
const LiteracyLabelColumn = "literacyLabel"

func (d *Dataset) clone() *Dataset {
	out := &Dataset{
		n:        d.n,
		numNames: slices.Clone(d.numNames),
		num:      make(map[string][]float64, len(d.num)),
		catNames: slices.Clone(d.catNames),
		cat:      make(map[string][]string, len(d.cat)),
	}
	// column slices are never written after construction, so sharing is safe
	for k, v := range d.num {
		out.num[k] = v
	}
	for k, v := range d.cat {
		out.cat[k] = v
	}
	return out
}
