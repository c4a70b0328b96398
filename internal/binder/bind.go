// Package binder resolves a parsed Statement against a Catalog: table
// and relationship-type names become concrete schemas, pattern
// variables are registered and checked for collisions, and every
// property reference and literal is type-checked against its column.
// It is its own stage in the parse → bind → plan → execute pipeline,
// generalizing the column type-resolution step every later stage
// needs into one place.
package binder

import (
	"errors"
	"fmt"

	"github.com/tuannm99/graphdb/internal/catalog"
	"github.com/tuannm99/graphdb/internal/parser"
	"github.com/tuannm99/graphdb/internal/value"
)

var (
	ErrUnknownTable      = errors.New("binder: unknown table or relationship type")
	ErrDuplicateVariable = errors.New("binder: duplicate pattern variable")
	ErrUnknownProperty   = errors.New("binder: unknown property")
	ErrTypeMismatch      = errors.New("binder: type mismatch")
)

// BoundStatement is the tagged-variant result of binding.
type BoundStatement interface{ boundNode() }

// BoundColumnRef is a var.property reference resolved to a concrete
// column type.
type BoundColumnRef struct {
	Var      string
	Property string
	Type     value.Kind
}

// BoundExpression is a resolved WHERE-clause predicate.
type BoundExpression struct {
	Column  BoundColumnRef
	Op      parser.ComparisonOp
	Literal value.Value
}

// BoundAggregate is a resolved RETURN-clause aggregate; Input is nil
// for COUNT(*).
type BoundAggregate struct {
	Function parser.AggregateFunction
	Input    *BoundColumnRef
}

// BoundReturnItem is a resolved RETURN-clause item.
type BoundReturnItem struct {
	Column    *BoundColumnRef
	Aggregate *BoundAggregate
}

// BoundOrderByItem is a resolved ORDER BY key.
type BoundOrderByItem struct {
	Column    BoundColumnRef
	Ascending bool
}

// BoundNodeRef is a resolved node-pattern occurrence: its pattern
// variable (may be empty), its concrete table, and any property
// equality filters with literals type-checked against their columns.
type BoundNodeRef struct {
	Var             string
	TableName       string
	PropertyFilters map[string]value.Value
}

type BoundCreateNodeTable struct {
	TableName  string
	Columns    []catalog.ColumnDef
	PrimaryKey []string
}

func (*BoundCreateNodeTable) boundNode() {}

type BoundCreateRelTable struct {
	TableName string
	SrcTable  string
	DstTable  string
	Columns   []catalog.ColumnDef
}

func (*BoundCreateRelTable) boundNode() {}

type BoundCreateNode struct {
	TableName string
	Values    map[string]value.Value
}

func (*BoundCreateNode) boundNode() {}

type BoundMatchCreate struct {
	Src      BoundNodeRef
	Dst      BoundNodeRef
	RelTable string
	Values   map[string]value.Value
}

func (*BoundMatchCreate) boundNode() {}

type BoundMatch struct {
	Node        BoundNodeRef
	Filter      *BoundExpression
	Projections []BoundReturnItem
	OrderBy     []BoundOrderByItem
	Skip, Limit *int64
}

func (*BoundMatch) boundNode() {}

type BoundMatchRel struct {
	Src         BoundNodeRef
	RelVar      string
	RelTable    string
	Dst         BoundNodeRef
	Filter      *BoundExpression
	Projections []BoundReturnItem
	OrderBy     []BoundOrderByItem
	Skip, Limit *int64
	PathBounds  *parser.PathBounds
}

func (*BoundMatchRel) boundNode() {}

type BoundCopy struct {
	TableName string
	FilePath  string
	Options   parser.CopyOptions
}

func (*BoundCopy) boundNode() {}

type BoundExplain struct{ Inner BoundStatement }

func (*BoundExplain) boundNode() {}

// Bind resolves stmt against cat, a single shared pass used for every
// statement kind.
func Bind(stmt parser.Statement, cat *catalog.Catalog) (BoundStatement, error) {
	switch s := stmt.(type) {
	case *parser.CreateNodeTable:
		return bindCreateNodeTable(s)
	case *parser.CreateRelTable:
		return bindCreateRelTable(s, cat)
	case *parser.CreateNode:
		return bindCreateNode(s, cat)
	case *parser.MatchCreate:
		return bindMatchCreate(s, cat)
	case *parser.Match:
		return bindMatch(s, cat)
	case *parser.MatchRel:
		return bindMatchRel(s, cat)
	case *parser.Copy:
		return bindCopy(s, cat)
	case *parser.Explain:
		inner, err := Bind(s.Inner, cat)
		if err != nil {
			return nil, err
		}
		return &BoundExplain{Inner: inner}, nil
	default:
		return nil, fmt.Errorf("binder: unsupported statement %T", stmt)
	}
}

func columnType(name string) (value.Kind, error) {
	switch name {
	case "INT64":
		return value.KindInt64, nil
	case "STRING":
		return value.KindString, nil
	case "BOOL":
		return value.KindBool, nil
	default:
		return 0, fmt.Errorf("binder: unsupported column type %q", name)
	}
}

func bindCreateNodeTable(s *parser.CreateNodeTable) (BoundStatement, error) {
	cols := make([]catalog.ColumnDef, len(s.Columns))
	for i, c := range s.Columns {
		t, err := columnType(c.Type)
		if err != nil {
			return nil, err
		}
		cols[i] = catalog.ColumnDef{Name: c.Name, Type: t}
	}
	return &BoundCreateNodeTable{TableName: s.TableName, Columns: cols, PrimaryKey: s.PrimaryKey}, nil
}

func bindCreateRelTable(s *parser.CreateRelTable, cat *catalog.Catalog) (BoundStatement, error) {
	if _, ok := cat.GetNodeTable(s.SrcTable); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, s.SrcTable)
	}
	if _, ok := cat.GetNodeTable(s.DstTable); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, s.DstTable)
	}
	cols := make([]catalog.ColumnDef, len(s.Columns))
	for i, c := range s.Columns {
		t, err := columnType(c.Type)
		if err != nil {
			return nil, err
		}
		cols[i] = catalog.ColumnDef{Name: c.Name, Type: t}
	}
	return &BoundCreateRelTable{TableName: s.TableName, SrcTable: s.SrcTable, DstTable: s.DstTable, Columns: cols}, nil
}

func literalValue(lit parser.Literal) value.Value {
	switch l := lit.(type) {
	case parser.StringLiteral:
		return value.String(l.Value)
	case parser.IntLiteral:
		return value.Int64(l.Value)
	default:
		return value.Null()
	}
}

// bindPropEntries type-checks a pattern's literal property map against
// schema and returns it as a Value map.
func bindPropEntries(schemaName string, schema *catalog.NodeTableSchema, entries []parser.PropEntry) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(entries))
	for _, e := range entries {
		col, ok := schema.Column(e.Key)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownProperty, schemaName, e.Key)
		}
		v := literalValue(e.Value)
		if err := value.CheckType(v, col.Type); err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrTypeMismatch, schemaName, e.Key, err)
		}
		out[e.Key] = v
	}
	return out, nil
}

func bindRelPropEntries(schemaName string, schema *catalog.RelTableSchema, entries []parser.PropEntry) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(entries))
	for _, e := range entries {
		col, ok := schema.Column(e.Key)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownProperty, schemaName, e.Key)
		}
		v := literalValue(e.Value)
		if err := value.CheckType(v, col.Type); err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrTypeMismatch, schemaName, e.Key, err)
		}
		out[e.Key] = v
	}
	return out, nil
}

func bindCreateNode(s *parser.CreateNode, cat *catalog.Catalog) (BoundStatement, error) {
	schema, ok := cat.GetNodeTable(s.Label)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, s.Label)
	}
	vals, err := bindPropEntries(s.Label, schema, s.Properties)
	if err != nil {
		return nil, err
	}
	return &BoundCreateNode{TableName: s.Label, Values: vals}, nil
}

// bindNodeFilter resolves a NodeFilter's label to a schema and its
// property filters to type-checked values.
func bindNodeFilter(nf parser.NodeFilter, cat *catalog.Catalog) (BoundNodeRef, *catalog.NodeTableSchema, error) {
	schema, ok := cat.GetNodeTable(nf.Label)
	if !ok {
		return BoundNodeRef{}, nil, fmt.Errorf("%w: %s", ErrUnknownTable, nf.Label)
	}
	filters, err := bindPropEntries(nf.Label, schema, nf.PropertyFilters)
	if err != nil {
		return BoundNodeRef{}, nil, err
	}
	return BoundNodeRef{Var: nf.Var, TableName: nf.Label, PropertyFilters: filters}, schema, nil
}

func checkDistinctVars(vars ...string) error {
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if v == "" {
			continue
		}
		if seen[v] {
			return fmt.Errorf("%w: %s", ErrDuplicateVariable, v)
		}
		seen[v] = true
	}
	return nil
}

func bindMatchCreate(s *parser.MatchCreate, cat *catalog.Catalog) (BoundStatement, error) {
	if err := checkDistinctVars(s.SrcNode.Var, s.DstNode.Var); err != nil {
		return nil, err
	}
	src, _, err := bindNodeFilter(s.SrcNode, cat)
	if err != nil {
		return nil, err
	}
	dst, _, err := bindNodeFilter(s.DstNode, cat)
	if err != nil {
		return nil, err
	}

	relKind, ok := cat.Kind(s.RelType)
	if !ok || relKind != catalog.KindRel {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, s.RelType)
	}
	relSchema, _ := cat.GetRelTable(s.RelType)
	if relSchema.SrcTable != src.TableName || relSchema.DstTable != dst.TableName {
		return nil, fmt.Errorf("%w: %s does not connect %s to %s", ErrUnknownTable, s.RelType, src.TableName, dst.TableName)
	}

	vals, err := bindRelPropEntries(s.RelType, relSchema, s.RelProps)
	if err != nil {
		return nil, err
	}

	return &BoundMatchCreate{Src: src, Dst: dst, RelTable: s.RelType, Values: vals}, nil
}

// columnResolver looks up var.property across whichever node/rel
// schemas are in scope for a single pattern, reporting
// ErrUnknownProperty or a scope error via ErrUnknownTable for an
// unrecognized variable.
type columnResolver struct {
	nodes map[string]*catalog.NodeTableSchema
	rels  map[string]*catalog.RelTableSchema
}

func (r columnResolver) resolve(v, prop string) (BoundColumnRef, error) {
	if schema, ok := r.nodes[v]; ok {
		col, ok := schema.Column(prop)
		if !ok {
			return BoundColumnRef{}, fmt.Errorf("%w: %s.%s", ErrUnknownProperty, v, prop)
		}
		return BoundColumnRef{Var: v, Property: prop, Type: col.Type}, nil
	}
	if schema, ok := r.rels[v]; ok {
		col, ok := schema.Column(prop)
		if !ok {
			return BoundColumnRef{}, fmt.Errorf("%w: %s.%s", ErrUnknownProperty, v, prop)
		}
		return BoundColumnRef{Var: v, Property: prop, Type: col.Type}, nil
	}
	return BoundColumnRef{}, fmt.Errorf("%w: unbound variable %s", ErrUnknownTable, v)
}

func bindExpr(e *parser.Expression, r columnResolver) (*BoundExpression, error) {
	if e == nil {
		return nil, nil
	}
	col, err := r.resolve(e.Var, e.Property)
	if err != nil {
		return nil, err
	}
	lit := literalValue(e.Value)
	if err := value.CheckType(lit, col.Type); err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrTypeMismatch, e.Var, e.Property, err)
	}
	return &BoundExpression{Column: col, Op: e.Op, Literal: lit}, nil
}

func bindReturnList(items []parser.ReturnItem, r columnResolver) ([]BoundReturnItem, error) {
	out := make([]BoundReturnItem, len(items))
	for i, it := range items {
		switch {
		case it.Projection != nil:
			col, err := r.resolve(it.Projection.Var, it.Projection.Property)
			if err != nil {
				return nil, err
			}
			out[i] = BoundReturnItem{Column: &col}
		case it.Aggregate != nil:
			if it.Aggregate.Input == nil {
				out[i] = BoundReturnItem{Aggregate: &BoundAggregate{Function: it.Aggregate.Function}}
				continue
			}
			col, err := r.resolve(it.Aggregate.Input.Var, it.Aggregate.Input.Property)
			if err != nil {
				return nil, err
			}
			out[i] = BoundReturnItem{Aggregate: &BoundAggregate{Function: it.Aggregate.Function, Input: &col}}
		default:
			return nil, fmt.Errorf("binder: empty return item")
		}
	}
	return out, nil
}

func bindOrderBy(items []parser.OrderByItem, r columnResolver) ([]BoundOrderByItem, error) {
	out := make([]BoundOrderByItem, len(items))
	for i, it := range items {
		col, err := r.resolve(it.Var, it.Property)
		if err != nil {
			return nil, err
		}
		out[i] = BoundOrderByItem{Column: col, Ascending: it.Ascending}
	}
	return out, nil
}

func bindMatch(s *parser.Match, cat *catalog.Catalog) (BoundStatement, error) {
	ref, _, err := bindNodeFilter(parser.NodeFilter{Var: s.Var, Label: s.Label}, cat)
	if err != nil {
		return nil, err
	}
	schema, _ := cat.GetNodeTable(s.Label)
	r := columnResolver{nodes: map[string]*catalog.NodeTableSchema{s.Var: schema}}

	filter, err := bindExpr(s.Filter, r)
	if err != nil {
		return nil, err
	}
	projections, err := bindReturnList(s.Projections, r)
	if err != nil {
		return nil, err
	}
	orderBy, err := bindOrderBy(s.OrderBy, r)
	if err != nil {
		return nil, err
	}

	return &BoundMatch{
		Node: ref, Filter: filter, Projections: projections,
		OrderBy: orderBy, Skip: s.Skip, Limit: s.Limit,
	}, nil
}

func bindMatchRel(s *parser.MatchRel, cat *catalog.Catalog) (BoundStatement, error) {
	if err := checkDistinctVars(s.SrcNode.Var, s.RelVar, s.DstNode.Var); err != nil {
		return nil, err
	}

	src, _, err := bindNodeFilter(s.SrcNode, cat)
	if err != nil {
		return nil, err
	}
	dst, _, err := bindNodeFilter(s.DstNode, cat)
	if err != nil {
		return nil, err
	}

	relKind, ok := cat.Kind(s.RelType)
	if !ok || relKind != catalog.KindRel {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, s.RelType)
	}
	relSchema, _ := cat.GetRelTable(s.RelType)
	if relSchema.SrcTable != src.TableName || relSchema.DstTable != dst.TableName {
		return nil, fmt.Errorf("%w: %s does not connect %s to %s", ErrUnknownTable, s.RelType, src.TableName, dst.TableName)
	}

	srcSchema, _ := cat.GetNodeTable(src.TableName)
	dstSchema, _ := cat.GetNodeTable(dst.TableName)
	r := columnResolver{
		nodes: map[string]*catalog.NodeTableSchema{s.SrcNode.Var: srcSchema, s.DstNode.Var: dstSchema},
		rels:  map[string]*catalog.RelTableSchema{s.RelVar: relSchema},
	}

	filter, err := bindExpr(s.Filter, r)
	if err != nil {
		return nil, err
	}
	projections, err := bindReturnList(s.Projections, r)
	if err != nil {
		return nil, err
	}
	orderBy, err := bindOrderBy(s.OrderBy, r)
	if err != nil {
		return nil, err
	}

	return &BoundMatchRel{
		Src: src, RelVar: s.RelVar, RelTable: s.RelType, Dst: dst,
		Filter: filter, Projections: projections, OrderBy: orderBy,
		Skip: s.Skip, Limit: s.Limit, PathBounds: s.PathBounds,
	}, nil
}

func bindCopy(s *parser.Copy, cat *catalog.Catalog) (BoundStatement, error) {
	if _, ok := cat.GetNodeTable(s.TableName); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, s.TableName)
	}
	return &BoundCopy{TableName: s.TableName, FilePath: s.FilePath, Options: s.Options}, nil
}
