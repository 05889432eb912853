// Package table models the ERDDAP dataset info table: one row per variable and one row per
// attribute, as served at /erddap/info/<dataset>/index.csv.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Global is the variable name ERDDAP uses for dataset-level attributes.
const Global = "NC_GLOBAL"

// Column headers of the info CSV.
const (
	ColumnRowType       = "Row Type"
	ColumnVariableName  = "Variable Name"
	ColumnAttributeName = "Attribute Name"
	ColumnDataType      = "Data Type"
	ColumnValue         = "Value"
)

type RowType string

const (
	RowTypeAttribute RowType = "attribute"
	RowTypeVariable  RowType = "variable"
)

// Row is a single line of the info table.
type Row struct {
	Type          RowType
	VariableName  string
	AttributeName string
	DataType      string
	Value         string
}

// Table is an immutable snapshot of a dataset's info rows.
type Table struct {
	rows []Row
}

// New builds a table from rows. The slice is copied.
func New(rows ...Row) *Table {
	cp := make([]Row, len(rows))
	copy(cp, rows)
	return &Table{rows: cp}
}

// Attribute is shorthand for an attribute row.
func Attribute(variable, attribute, value string) Row {
	return Row{Type: RowTypeAttribute, VariableName: variable, AttributeName: attribute, Value: value}
}

// Variable is shorthand for a variable row.
func Variable(name, dataType string) Row {
	return Row{Type: RowTypeVariable, VariableName: name, DataType: dataType}
}

// Read parses an info CSV. Columns are matched by header name so their order does not matter.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("info table is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{ColumnRowType, ColumnVariableName, ColumnAttributeName, ColumnValue} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("info table is missing column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		rows = append(rows, Row{
			Type:          RowType(strings.TrimSpace(field(rec, ColumnRowType))),
			VariableName:  field(rec, ColumnVariableName),
			AttributeName: field(rec, ColumnAttributeName),
			DataType:      field(rec, ColumnDataType),
			Value:         field(rec, ColumnValue),
		})
	}

	return &Table{rows: rows}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns a copy of all rows.
func (t *Table) Rows() []Row {
	cp := make([]Row, len(t.rows))
	copy(cp, t.rows)
	return cp
}

// Filter returns the rows for which keep returns true, in table order.
func (t *Table) Filter(keep func(Row) bool) []Row {
	var out []Row
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Attributes returns attribute rows named attribute. An empty variable matches any variable.
func (t *Table) Attributes(variable, attribute string) []Row {
	return t.Filter(func(r Row) bool {
		return r.Type == RowTypeAttribute &&
			r.AttributeName == attribute &&
			(variable == "" || r.VariableName == variable)
	})
}

// Lookup returns the single distinct value of an attribute. found is false when the attribute
// is absent; an error is returned when it carries more than one distinct value.
func (t *Table) Lookup(variable, attribute string) (value string, found bool, err error) {
	values := Distinct(t.Attributes(variable, attribute), func(r Row) string { return r.Value })
	switch len(values) {
	case 0:
		return "", false, nil
	case 1:
		return values[0], true, nil
	default:
		return "", false, &AmbiguousMetadataError{Variable: variable, Attribute: attribute, Values: values}
	}
}

// Require is Lookup that treats a missing attribute as an error.
func (t *Table) Require(variable, attribute string) (string, error) {
	value, found, err := t.Lookup(variable, attribute)
	if err != nil {
		return "", err
	}
	if !found {
		return "", &MissingAttributeError{Variable: variable, Attribute: attribute}
	}
	return value, nil
}

// Global is Require on the NC_GLOBAL pseudo-variable.
func (t *Table) Global(attribute string) (string, error) {
	return t.Require(Global, attribute)
}

// Distinct projects rows with key and returns the unique keys in first-seen order.
func Distinct(rows []Row, key func(Row) string) []string {
	seen := make(map[string]struct{}, len(rows))
	var out []string
	for _, r := range rows {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
