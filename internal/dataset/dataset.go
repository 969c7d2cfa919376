// Package dataset holds the row and column model shown by the table, the
// sources rows are loaded from, and the accessor functions used to read a
// field out of a row.
package dataset

import (
	"fmt"
	"strings"
)

// Row is one record of the dataset.
type Row struct {
	ID     string
	Fields map[string]string
}

// Field returns the raw value of a field.
func (r Row) Field(id string) string {
	return r.Fields[id]
}

// Column describes one table column.
type Column struct {
	ID       string
	Label    string
	Width    int
	Sortable bool
	Disabled bool
}

// Header returns the label, or the upper-cased ID when no label is set.
func (c Column) Header() string {
	if c.Label != "" {
		return c.Label
	}
	return strings.ToUpper(c.ID)
}

// CopyColumns returns a deep copy of cols so callers can mutate the result
// without touching the caller-owned slice.
func CopyColumns(cols []Column) []Column {
	if cols == nil {
		return nil
	}
	out := make([]Column, len(cols))
	copy(out, cols)
	return out
}

// EnabledColumns returns the columns that are not disabled.
func EnabledColumns(cols []Column) []Column {
	out := make([]Column, 0, len(cols))
	for _, c := range cols {
		if !c.Disabled {
			out = append(out, c)
		}
	}
	return out
}

// ColumnsFromHeader builds sortable columns from a CSV header line.
func ColumnsFromHeader(header []string) []Column {
	cols := make([]Column, 0, len(header))
	for _, h := range header {
		h = strings.TrimSpace(h)
		cols = append(cols, Column{ID: h, Label: strings.ToUpper(h), Width: max(len(h)+2, 10), Sortable: true})
	}
	return cols
}

// Getter reads a field value from a row.
type Getter func(row Row, field string) string

var accessors = map[string]Getter{
	"field": func(row Row, field string) string { return row.Field(field) },
	"lower": func(row Row, field string) string { return strings.ToLower(row.Field(field)) },
	"upper": func(row Row, field string) string { return strings.ToUpper(row.Field(field)) },
	"trim":  func(row Row, field string) string { return strings.TrimSpace(row.Field(field)) },
}

// RowKey returns the stable key of row: the trackBy field read through get,
// or the row ID when trackBy is empty or the field has no value.
func RowKey(row Row, trackBy string, get Getter) string {
	if trackBy == "" {
		return row.ID
	}
	if get == nil {
		get = DefaultGetter()
	}
	if key := get(row, trackBy); key != "" {
		return key
	}
	return row.ID
}

// DefaultGetter reads Row.Fields directly.
func DefaultGetter() Getter {
	return accessors["field"]
}

// LookupGetter resolves a named accessor. An empty name resolves to the
// default getter.
func LookupGetter(name string) (Getter, error) {
	if name == "" {
		return DefaultGetter(), nil
	}
	g, ok := accessors[name]
	if !ok {
		return nil, fmt.Errorf("unknown getter %q", name)
	}
	return g, nil
}

// RegisterGetter adds a named accessor. It is meant to be called from init
// functions; registering the same name twice panics.
func RegisterGetter(name string, g Getter) {
	if _, exists := accessors[name]; exists {
		panic(fmt.Sprintf("dataset: getter %q already registered", name))
	}
	if g == nil {
		panic(fmt.Sprintf("dataset: getter %q is nil", name))
	}
	accessors[name] = g
}
