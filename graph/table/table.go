// Package table provides the columnar table abstraction the execution
// engine reads from. A Table exposes named columns of equal length and
// cheap row materialization; the engine never mutates one.
package table

import (
	"fmt"
	"strings"

	"github.com/leiyuou/lance-graph/graph"
)

// Table is the read-only columnar data source bound to a node label or
// relationship type.
type Table interface {
	// Columns returns the column names in declaration order.
	Columns() []string

	// NumRows returns the number of rows.
	NumRows() int

	// Column returns the values of a named column.
	// The second return is false if the column does not exist.
	Column(name string) ([]graph.Value, bool)

	// Row materializes row i in column declaration order.
	Row(i int) []graph.Value
}

// Column is one named column used to construct a MemoryTable.
type Column struct {
	Name   string
	Values []graph.Value
}

// MemoryTable is the in-memory Table implementation. All columns have
// equal length; construction is the only mutation.
type MemoryTable struct {
	names  []string
	data   map[string][]graph.Value
	length int
}

// NewMemoryTable builds a table from columns. Every column must have the
// same length and a unique name.
func NewMemoryTable(cols ...Column) (*MemoryTable, error) {
	t := &MemoryTable{
		data: make(map[string][]graph.Value, len(cols)),
	}
	for i, col := range cols {
		if col.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if _, dup := t.data[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", col.Name)
		}
		if i == 0 {
			t.length = len(col.Values)
		} else if len(col.Values) != t.length {
			return nil, fmt.Errorf("column %q has %d values, want %d",
				col.Name, len(col.Values), t.length)
		}
		t.names = append(t.names, col.Name)
		t.data[col.Name] = col.Values
	}
	return t, nil
}

// MustMemoryTable is NewMemoryTable that panics on error, for fixtures.
func MustMemoryTable(cols ...Column) *MemoryTable {
	t, err := NewMemoryTable(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *MemoryTable) Columns() []string { return t.names }

func (t *MemoryTable) NumRows() int { return t.length }

func (t *MemoryTable) Column(name string) ([]graph.Value, bool) {
	vals, ok := t.data[name]
	return vals, ok
}

func (t *MemoryTable) Row(i int) []graph.Value {
	row := make([]graph.Value, len(t.names))
	for j, name := range t.names {
		row[j] = t.data[name][i]
	}
	return row
}

// String returns a compact schema summary
func (t *MemoryTable) String() string {
	return fmt.Sprintf("MemoryTable([%s], %d rows)",
		strings.Join(t.names, " "), t.length)
}

// Ints builds a column of int64 values.
func Ints(name string, vals ...int64) Column {
	col := Column{Name: name, Values: make([]graph.Value, len(vals))}
	for i, v := range vals {
		col.Values[i] = v
	}
	return col
}

// Floats builds a column of float64 values.
func Floats(name string, vals ...float64) Column {
	col := Column{Name: name, Values: make([]graph.Value, len(vals))}
	for i, v := range vals {
		col.Values[i] = v
	}
	return col
}

// Strings builds a column of string values.
func Strings(name string, vals ...string) Column {
	col := Column{Name: name, Values: make([]graph.Value, len(vals))}
	for i, v := range vals {
		col.Values[i] = v
	}
	return col
}

// Bools builds a column of bool values.
func Bools(name string, vals ...bool) Column {
	col := Column{Name: name, Values: make([]graph.Value, len(vals))}
	for i, v := range vals {
		col.Values[i] = v
	}
	return col
}

// Datasets maps node-label and relationship-type names to their bound
// tables. Lookup is case-insensitive to match catalog normalization.
type Datasets map[string]Table

// Resolve finds the table bound to a name, ignoring case.
func (d Datasets) Resolve(name string) (Table, bool) {
	if t, ok := d[name]; ok {
		return t, true
	}
	for key, t := range d {
		if strings.EqualFold(key, name) {
			return t, true
		}
	}
	return nil, false
}
