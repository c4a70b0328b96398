// Package table implements columnar node and relationship tables:
// per-column typed value vectors sharing a row index, a primary-key
// hash index for node tables, and insertion/scan operations. The
// validate-then-append insert and pull-style Scan callback shape
// carries over from row-oriented heap storage, generalized here to
// column-parallel in-memory vectors.
package table

import (
	"fmt"

	"github.com/tuannm99/graphdb/internal/value"
)

// RowId is the ordinal position of a row within a table's column
// vectors.
type RowId uint64

// Column is a typed, append-only vector of values. All entries share
// the column's declared type or are Null.
type Column struct {
	name   string
	typ    value.Kind
	values []value.Value
}

// NewColumn returns an empty column of the given name and type.
func NewColumn(name string, typ value.Kind) *Column {
	return &Column{name: name, typ: typ}
}

// Name returns the column's name.
func (c *Column) Name() string { return c.name }

// Type returns the column's declared logical type.
func (c *Column) Type() value.Kind { return c.typ }

// Len returns the number of entries.
func (c *Column) Len() int { return len(c.values) }

// Get returns the value at position i.
func (c *Column) Get(i int) value.Value { return c.values[i] }

// Push appends v, failing with value.ErrTypeMismatch if v is neither
// Null nor of the column's declared type.
func (c *Column) Push(v value.Value) error {
	if err := value.CheckType(v, c.typ); err != nil {
		return fmt.Errorf("column %s: %w", c.name, err)
	}
	c.values = append(c.values, v)
	return nil
}

// truncate drops the last n entries, used to unwind a partially
// appended row when a later column in the same insert fails
// validation (tables validate before committing, so this only
// matters for callers that append incrementally; NodeTable/RelTable
// validate everything up front and never need it, but it is kept as
// the column-level safety net).
func (c *Column) truncate(n int) {
	c.values = c.values[:len(c.values)-n]
}
