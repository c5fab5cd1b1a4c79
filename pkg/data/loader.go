package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Required columns every family table must carry.
const (
	ColChildren     = "children"
	ColAgeMarried   = "ageMarried"
	ColLiteracy     = "literacy"
	ColMonthsSinceM = "monthsSinceM"
	ColFamilySize   = "family_size"
)

// RequiredColumns lists the columns a source table must provide.
var RequiredColumns = []string{ColChildren, ColAgeMarried, ColLiteracy, ColMonthsSinceM}

// ErrLoad is the sentinel wrapped by every LoadError.
var ErrLoad = errors.New("load failed")

// LoadError reports an unreadable source or a missing required column.
type LoadError struct {
	Source string
	Msg    string
	Err    error
}

func (e *LoadError) Error() string {
	if e == nil {
		return ""
	}
	msg := ErrLoad.Error()
	if e.Source != "" {
		msg += " (" + e.Source + ")"
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrLoad, e.Err}
	}
	return []error{ErrLoad}
}

// Table holds raw, untyped records exactly as read from the source.
type Table struct {
	Source string
	Header []string
	Rows   [][]string
	index  map[string]int
}

// NewTable validates header and rows and returns a Table.
// Row widths must match the header and every required column must be present.
func NewTable(source string, header []string, rows [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, &LoadError{Source: source, Msg: "empty header"}
	}
	h := make([]string, len(header))
	for i, name := range header {
		h[i] = strings.TrimSpace(strings.Trim(name, "\ufeff"))
	}
	t := &Table{Source: source, Header: h, index: make(map[string]int, len(h))}
	for i, name := range h {
		if name == "" {
			// unnamed row-index column written by data-frame exporters
			continue
		}
		if _, dup := t.index[name]; dup {
			return nil, &LoadError{Source: source, Msg: fmt.Sprintf("duplicate column %q", name)}
		}
		t.index[name] = i
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := t.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &LoadError{Source: source, Msg: "missing required column(s) " + strings.Join(missing, ", ")}
	}
	t.Rows = make([][]string, len(rows))
	for i, r := range rows {
		if len(r) != len(h) {
			return nil, &LoadError{Source: source, Msg: fmt.Sprintf("row %d has %d fields, header has %d", i+1, len(r), len(h))}
		}
		cp := make([]string, len(r))
		copy(cp, r)
		t.Rows[i] = cp
	}
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Value returns the raw cell for row i and column name.
func (t *Table) Value(i int, name string) (string, bool) {
	j, ok := t.index[name]
	if !ok || i < 0 || i >= len(t.Rows) {
		return "", false
	}
	return t.Rows[i][j], true
}

// Column returns a copy of the named raw column.
func (t *Table) Column(name string) ([]string, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, &LoadError{Source: t.Source, Msg: fmt.Sprintf("missing column %q", name)}
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[j]
	}
	return out, nil
}

// ReadCSV reads a header row followed by data rows.
func ReadCSV(r io.Reader, source string) (*Table, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &LoadError{Source: source, Msg: "malformed csv", Err: err}
	}
	if len(records) == 0 {
		return nil, &LoadError{Source: source, Msg: "no header row"}
	}
	return NewTable(source, records[0], records[1:])
}

// LoadFile opens path and reads it as CSV.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Msg: "cannot open", Err: err}
	}
	defer f.Close()
	return ReadCSV(f, path)
}
