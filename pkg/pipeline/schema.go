package pipeline

import (
	"fmt"

	"famreg/pkg/data"
)

// Schema names the response and predictor columns of the models.
type Schema struct {
	Response   string
	Predictors []string
}

// DefaultSchema is family_size ~ literacy + monthsSinceM.
func DefaultSchema() Schema {
	return Schema{
		Response:   data.ColFamilySize,
		Predictors: []string{data.ColLiteracy, data.ColMonthsSinceM},
	}
}

// Formula renders the schema as "y ~ a + b".
func (s Schema) Formula() string {
	f := s.Response + " ~"
	for i, p := range s.Predictors {
		if i > 0 {
			f += " +"
		}
		f += " " + p
	}
	return f
}

// Check verifies that every schema column is a numeric column of ds.
func (s Schema) Check(ds *data.Dataset) error {
	for _, name := range append([]string{s.Response}, s.Predictors...) {
		if !ds.Has(name) {
			return fmt.Errorf("schema %q: dataset has no numeric column %q", s.Formula(), name)
		}
	}
	return nil
}
