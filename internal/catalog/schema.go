// Package catalog holds named schemas for node and relationship
// tables and persists that metadata across a reserved chain of
// catalog pages: JSON-serialized per-table metadata, generalized from
// one file per table to a single page-backed chain.
package catalog

import "github.com/tuannm99/graphdb/internal/value"

// ColumnDef names one column and its declared logical type.
type ColumnDef struct {
	Name string     `json:"name"`
	Type value.Kind `json:"type"`
}

// NodeTableSchema describes one node table: its name, ordered column
// list, and primary-key column set.
type NodeTableSchema struct {
	Name       string      `json:"name"`
	Columns    []ColumnDef `json:"columns"`
	PrimaryKey []string    `json:"primary_key"`
}

// ColumnIndex returns the position of name in Columns, or -1.
func (s *NodeTableSchema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the ColumnDef for name and whether it was found.
func (s *NodeTableSchema) Column(name string) (ColumnDef, bool) {
	i := s.ColumnIndex(name)
	if i < 0 {
		return ColumnDef{}, false
	}
	return s.Columns[i], true
}

// RelTableSchema describes one relationship table: its type name,
// endpoint node-table names, and property columns. src_row_id/
// dst_row_id are implicit fixed columns, not listed here.
type RelTableSchema struct {
	Name      string      `json:"name"`
	SrcTable  string      `json:"src_table"`
	DstTable  string      `json:"dst_table"`
	Columns   []ColumnDef `json:"columns"`
}

// ColumnIndex returns the position of name in Columns, or -1.
func (s *RelTableSchema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the ColumnDef for name and whether it was found.
func (s *RelTableSchema) Column(name string) (ColumnDef, bool) {
	i := s.ColumnIndex(name)
	if i < 0 {
		return ColumnDef{}, false
	}
	return s.Columns[i], true
}
