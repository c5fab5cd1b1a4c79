package dataprep

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCoercion is the sentinel wrapped by every CoercionError.
var ErrCoercion = errors.New("coercion failed")

// CoercionError names the offending row (1-based, as in the source file)
// together with the column and raw value that could not be converted.
type CoercionError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *CoercionError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: row %d column %q value %q", ErrCoercion.Error(), e.Row, e.Column, e.Value)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *CoercionError) Unwrap() error { return ErrCoercion }

// Policy decides what happens to a row that fails coercion.
type Policy int

const (
	// PolicyAbort fails the whole derivation on the first bad row.
	PolicyAbort Policy = iota
	// PolicyDrop removes bad rows and records them in Derived.Dropped.
	PolicyDrop
)

func (p Policy) String() string {
	switch p {
	case PolicyAbort:
		return "abort"
	case PolicyDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// ParsePolicy accepts "abort" or "drop".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return PolicyAbort, nil
	case "drop":
		return PolicyDrop, nil
	default:
		return PolicyAbort, fmt.Errorf("unknown coercion policy %q", s)
	}
}

// IsMissing reports whether a raw cell is one of the missing-value tokens.
func IsMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "NA", "NaN", "N/A", "null":
		return true
	}
	return false
}
