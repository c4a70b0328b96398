package table

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/graphdb/internal/catalog"
	"github.com/tuannm99/graphdb/internal/value"
)

// ErrEndpointNotFound is returned when a relationship's declared
// source or destination row id does not exist in the endpoint table
// at insertion time.
var ErrEndpointNotFound = errors.New("table: relationship endpoint row not found")

// RelTable stores (src_row_id, dst_row_id, property values) rows for
// one relationship type. Shape mirrors NodeTable plus two fixed
// endpoint-id columns.
type RelTable struct {
	Schema   *catalog.RelTableSchema
	srcRowID []RowId
	dstRowID []RowId
	columns  []*Column
}

// NewRelTable constructs an empty relationship table for schema.
func NewRelTable(schema *catalog.RelTableSchema) *RelTable {
	t := &RelTable{
		Schema:  schema,
		columns: make([]*Column, len(schema.Columns)),
	}
	for i, c := range schema.Columns {
		t.columns[i] = NewColumn(c.Name, c.Type)
	}
	return t
}

// NumRows returns the relationship table's row count.
func (t *RelTable) NumRows() int { return len(t.srcRowID) }

// ColumnByName returns the property column named name, or nil.
func (t *RelTable) ColumnByName(name string) *Column {
	if i := t.Schema.ColumnIndex(name); i >= 0 {
		return t.columns[i]
	}
	return nil
}

// Insert validates that src/dst reference existing rows in their
// declared endpoint tables, then appends. src and dst must be the
// NodeTable instances backing Schema.SrcTable / Schema.DstTable.
func (t *RelTable) Insert(src, dst *NodeTable, srcRowID, dstRowID RowId, props map[string]value.Value) (RowId, error) {
	if int(srcRowID) >= src.NumRows() {
		return 0, fmt.Errorf("%w: src row %d in %s", ErrEndpointNotFound, srcRowID, t.Schema.SrcTable)
	}
	if int(dstRowID) >= dst.NumRows() {
		return 0, fmt.Errorf("%w: dst row %d in %s", ErrEndpointNotFound, dstRowID, t.Schema.DstTable)
	}

	for key := range props {
		if t.Schema.ColumnIndex(key) < 0 {
			return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, key)
		}
	}

	resolved := make([]value.Value, len(t.columns))
	for i, c := range t.Schema.Columns {
		v, ok := props[c.Name]
		if !ok {
			v = value.Null()
		}
		if err := value.CheckType(v, c.Type); err != nil {
			return 0, fmt.Errorf("rel table %s: column %s: %w", t.Schema.Name, c.Name, err)
		}
		resolved[i] = v
	}

	for i, v := range resolved {
		_ = t.columns[i].Push(v)
	}
	t.srcRowID = append(t.srcRowID, srcRowID)
	t.dstRowID = append(t.dstRowID, dstRowID)
	rowID := RowId(len(t.srcRowID) - 1)
	slog.Debug("table: inserted relationship row", "table", t.Schema.Name, "row", rowID, "src", srcRowID, "dst", dstRowID)
	return rowID, nil
}

// RelRow is a lightweight positional view over a relationship row.
type RelRow struct {
	ID     RowId
	Src    RowId
	Dst    RowId
	cols   []*Column
}

// Get returns the value of property column index i for this row.
func (r RelRow) Get(i int) value.Value { return r.cols[i].Get(int(r.ID)) }

// Scan calls fn for every relationship row in insertion order,
// stopping (without error) if fn returns false.
func (t *RelTable) Scan(fn func(RelRow) bool) {
	slog.Debug("table: relationship scan started", "table", t.Schema.Name, "rows", t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		row := RelRow{ID: RowId(i), Src: t.srcRowID[i], Dst: t.dstRowID[i], cols: t.columns}
		if !fn(row) {
			return
		}
	}
}
