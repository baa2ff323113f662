package ingest

import (
	"fmt"
	"iter"
	"strings"
)

// DefaultStamp is the timestamp column appended to every snapshot row.
const DefaultStamp = "fetched_at"

// Relation names an append-only snapshot table.
type Relation struct {
	Schema string
	Table  string
	// Stamp is the column receiving the insertion time; DefaultStamp when empty.
	Stamp string
	// Key lists the columns identifying the entity a row describes. It is not
	// enforced by the store; mirrors use it to address the latest row.
	Key []string
}

// StampColumn returns the effective timestamp column.
func (r Relation) StampColumn() string {
	if strings.TrimSpace(r.Stamp) == "" {
		return DefaultStamp
	}
	return r.Stamp
}

func (r Relation) String() string {
	if r.Schema == "" {
		return r.Table
	}
	return r.Schema + "." + r.Table
}

// Column is one target column and the value bound to it.
type Column struct {
	Name  string
	Value any
}

// Col is shorthand for building a Column.
func Col(name string, value any) Column {
	return Column{Name: name, Value: value}
}

// Row is a normalized, ordered set of column values. Column order is the
// insert order.
type Row []Column

// Names returns the column names in order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}

// Values returns the bound values in column order.
func (r Row) Values() []any {
	values := make([]any, len(r))
	for i, c := range r {
		values[i] = c.Value
	}
	return values
}

// Get returns the value bound to name.
func (r Row) Get(name string) (any, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// Validate rejects rows that cannot be turned into a single INSERT.
func (r Row) Validate() error {
	if len(r) == 0 {
		return fmt.Errorf("ingest: empty row")
	}
	seen := make(map[string]struct{}, len(r))
	for _, c := range r {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("ingest: row has unnamed column")
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("ingest: duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// One yields a single row.
func One(row Row) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		yield(row)
	}
}

// None yields nothing.
func None() iter.Seq[Row] {
	return func(func(Row) bool) {}
}
