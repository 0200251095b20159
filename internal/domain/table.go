package domain

import (
	"errors"
	"fmt"
	"slices"

	geojson "github.com/paulmach/go.geojson"
)

// ErrColumnNotFound is returned when an operation references a column the table does not have.
var ErrColumnNotFound = errors.New("column not found")

// Row is one record. Columns absent from Values read as null.
type Row struct {
	Values   map[string]Value
	Geometry *geojson.Geometry
}

// Get returns the value of column, or null when the row does not carry it.
func (r Row) Get(column string) Value {
	return r.Values[column]
}

// Table is an ordered set of columns and the rows holding them. Tables are
// treated as read-only snapshots: every transformation returns a new Table.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given column order.
func NewTable(name string, columns []string) *Table {
	return &Table{Name: name, Columns: slices.Clone(columns)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether column is part of the table's schema.
func (t *Table) HasColumn(column string) bool {
	return slices.Contains(t.Columns, column)
}

// HasGeometry reports whether any row carries a geometry.
func (t *Table) HasGeometry() bool {
	for _, r := range t.Rows {
		if r.Geometry != nil {
			return true
		}
	}
	return false
}

// Append adds a row. Values for columns outside the schema are kept on the
// row but never surface in column-ordered output.
func (t *Table) Append(values map[string]Value, geometry *geojson.Geometry) {
	t.Rows = append(t.Rows, Row{Values: values, Geometry: geometry})
}

// RequireColumns returns an error naming every missing column.
func (t *Table) RequireColumns(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %q: %w: %v", t.Name, ErrColumnNotFound, missing)
	}
	return nil
}

// RenameColumn renames a column in the schema and on every row. Renaming onto
// an existing column replaces it.
func (t *Table) RenameColumn(from, to string) error {
	if from == to {
		if !t.HasColumn(from) {
			return fmt.Errorf("rename %q: %w", from, ErrColumnNotFound)
		}
		return nil
	}
	idx := slices.Index(t.Columns, from)
	if idx < 0 {
		return fmt.Errorf("rename %q: %w", from, ErrColumnNotFound)
	}

	cols := make([]string, 0, len(t.Columns))
	for i, c := range t.Columns {
		switch {
		case i == idx:
			cols = append(cols, to)
		case c == to:
			// replaced by the renamed column
		default:
			cols = append(cols, c)
		}
	}
	t.Columns = cols

	for i := range t.Rows {
		v, ok := t.Rows[i].Values[from]
		delete(t.Rows[i].Values, from)
		if ok {
			t.Rows[i].Values[to] = v
		} else {
			delete(t.Rows[i].Values, to)
		}
	}
	return nil
}

// Distinct returns the distinct non-null values of column in first-seen order.
func (t *Table) Distinct(column string) []Value {
	seen := make(map[Value]struct{})
	var out []Value
	for _, r := range t.Rows {
		v := r.Get(column)
		if v.IsNull() {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Column returns the values of column in row order.
func (t *Table) Column(column string) []Value {
	out := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Get(column)
	}
	return out
}

// Records returns the rows as plain maps in schema order, without geometry.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, r := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for _, c := range t.Columns {
			rec[c] = r.Get(c).Interface()
		}
		out[i] = rec
	}
	return out
}

// Clone returns a deep copy of the table's schema and row values. Geometries
// are shared since they are never modified after load.
func (t *Table) Clone() *Table {
	out := NewTable(t.Name, t.Columns)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = Row{Values: copyValues(r.Values), Geometry: r.Geometry}
	}
	return out
}

func copyValues(in map[string]Value) map[string]Value {
	out := make(map[string]Value, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
