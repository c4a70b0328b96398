package table

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tuannm99/graphdb/internal/catalog"
	"github.com/tuannm99/graphdb/internal/value"
)

var (
	// ErrPKNull is returned when a primary-key column value is Null.
	// NULL in the PK column is rejected at insert, not deferred to
	// index build.
	ErrPKNull = errors.New("table: primary key value is null")
	// ErrPKDuplicate is returned on a primary-key collision.
	ErrPKDuplicate = errors.New("table: duplicate primary key")
	// ErrUnknownColumn is returned for a row field absent from the schema.
	ErrUnknownColumn = errors.New("table: unknown column")
)

// NodeTable is a row-parallel set of typed columns sharing a row
// index, plus a PK hash index from PK tuple to row id.
type NodeTable struct {
	Schema  *catalog.NodeTableSchema
	columns []*Column
	pkCols  []int // indices into columns/Schema.Columns
	pkIndex map[string]RowId
}

// NewNodeTable constructs an empty table for schema.
func NewNodeTable(schema *catalog.NodeTableSchema) *NodeTable {
	t := &NodeTable{
		Schema:  schema,
		columns: make([]*Column, len(schema.Columns)),
		pkIndex: make(map[string]RowId),
	}
	for i, c := range schema.Columns {
		t.columns[i] = NewColumn(c.Name, c.Type)
	}
	for _, pk := range schema.PrimaryKey {
		idx := schema.ColumnIndex(pk)
		if idx < 0 {
			panic(fmt.Sprintf("table: primary key column %q not in schema", pk))
		}
		t.pkCols = append(t.pkCols, idx)
	}
	return t
}

// NumRows returns the table's row count.
func (t *NodeTable) NumRows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Len()
}

// Column returns the column at schema position i.
func (t *NodeTable) Column(i int) *Column { return t.columns[i] }

// ColumnByName returns the column named name, or nil.
func (t *NodeTable) ColumnByName(name string) *Column {
	if i := t.Schema.ColumnIndex(name); i >= 0 {
		return t.columns[i]
	}
	return nil
}

func (t *NodeTable) pkKey(row map[string]value.Value) (string, error) {
	var sb strings.Builder
	for _, idx := range t.pkCols {
		name := t.Schema.Columns[idx].Name
		v, ok := row[name]
		if !ok || v.IsNull() {
			return "", fmt.Errorf("%w: column %s", ErrPKNull, name)
		}
		sb.WriteString(strconv.Itoa(idx))
		sb.WriteByte(':')
		sb.WriteString(v.String())
		sb.WriteByte('\x00')
	}
	return sb.String(), nil
}

// Insert validates types and primary-key uniqueness before appending
// a new row. On any failure, no column is mutated.
func (t *NodeTable) Insert(row map[string]value.Value) (RowId, error) {
	for key := range row {
		if t.Schema.ColumnIndex(key) < 0 {
			return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, key)
		}
	}

	resolved := make([]value.Value, len(t.columns))
	for i, c := range t.Schema.Columns {
		v, ok := row[c.Name]
		if !ok {
			v = value.Null()
		}
		if err := value.CheckType(v, c.Type); err != nil {
			return 0, fmt.Errorf("table %s: column %s: %w", t.Schema.Name, c.Name, err)
		}
		resolved[i] = v
	}

	key, err := t.pkKey(row)
	if err != nil {
		return 0, err
	}
	if _, exists := t.pkIndex[key]; exists {
		slog.Debug("table: duplicate primary key on insert", "table", t.Schema.Name)
		return 0, fmt.Errorf("%w: table %s", ErrPKDuplicate, t.Schema.Name)
	}

	// All validation passed: commit by appending to every column.
	for i, v := range resolved {
		// Push cannot fail here: types were already validated above.
		_ = t.columns[i].Push(v)
	}
	rowID := RowId(t.NumRows() - 1)
	t.pkIndex[key] = rowID
	slog.Debug("table: inserted row", "table", t.Schema.Name, "row", rowID)
	return rowID, nil
}

// LookupByPK probes the PK index for the given primary-key values, in
// schema PrimaryKey order.
func (t *NodeTable) LookupByPK(pk []value.Value) (RowId, bool) {
	if len(pk) != len(t.pkCols) {
		return 0, false
	}
	row := make(map[string]value.Value, len(pk))
	for i, idx := range t.pkCols {
		row[t.Schema.Columns[idx].Name] = pk[i]
	}
	key, err := t.pkKey(row)
	if err != nil {
		return 0, false
	}
	id, ok := t.pkIndex[key]
	return id, ok
}

// Row is a lightweight positional view over a table row.
type Row struct {
	ID   RowId
	cols []*Column
}

// Get returns the value of column index i for this row.
func (r Row) Get(i int) value.Value { return r.cols[i].Get(int(r.ID)) }

// Scan calls fn for every row in insertion order, stopping (without
// error) if fn returns false.
func (t *NodeTable) Scan(fn func(Row) bool) {
	n := t.NumRows()
	slog.Debug("table: scan started", "table", t.Schema.Name, "rows", n)
	for i := 0; i < n; i++ {
		if !fn(Row{ID: RowId(i), cols: t.columns}) {
			return
		}
	}
}
