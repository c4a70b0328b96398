// Package planner turns a bound statement into an executable plan
// tree. DDL/DML statements become single-step plans
// (CreateNodeTablePlan, CreateRelTablePlan, CreateNodePlan,
// CreateRelPlan, CopyPlan); MATCH statements become a tree of
// row-producing LogicalNodes so that relationship traversal,
// aggregation, and ordering can compose.
package planner

import (
	"github.com/tuannm99/graphdb/internal/binder"
	"github.com/tuannm99/graphdb/internal/catalog"
	"github.com/tuannm99/graphdb/internal/parser"
	"github.com/tuannm99/graphdb/internal/value"
)

// Plan is the root interface for every executable plan, row-producing
// or not.
type Plan interface{ planNode() }

// ----- DDL plans -----

type CreateNodeTablePlan struct {
	TableName  string
	Columns    []catalog.ColumnDef
	PrimaryKey []string
}

func (*CreateNodeTablePlan) planNode() {}

type CreateRelTablePlan struct {
	TableName string
	SrcTable  string
	DstTable  string
	Columns   []catalog.ColumnDef
}

func (*CreateRelTablePlan) planNode() {}

// ----- DML plans -----

type CreateNodePlan struct {
	TableName string
	Values    map[string]value.Value
}

func (*CreateNodePlan) planNode() {}

type CreateRelPlan struct {
	SrcTable, DstTable, RelTable string
	SrcFilters, DstFilters       map[string]value.Value
	Values                       map[string]value.Value
}

func (*CreateRelPlan) planNode() {}

type CopyPlan struct {
	TableName string
	FilePath  string
	Options   parser.CopyOptions
}

func (*CopyPlan) planNode() {}

// ExplainPlan wraps another plan for plan-text rendering instead of
// execution.
type ExplainPlan struct{ Inner Plan }

func (*ExplainPlan) planNode() {}

// ----- Query (row-producing) plans -----

// QueryPlan wraps a LogicalNode tree so it satisfies Plan.
type QueryPlan struct{ Root LogicalNode }

func (*QueryPlan) planNode() {}

// LogicalNode is one operator in a row-producing plan tree. Binding
// metadata (which variable occupies which output column) lives on the
// concrete node types, but every node also exposes OutputSchema so a
// plan's column shape can be inspected without executing it: Filter,
// OrderBy, and SkipLimit report exactly their child's schema, Project
// and Aggregate report their declared RETURN-list shape, and NodeScan/
// Expand derive theirs from the catalog.
type LogicalNode interface {
	logicalNode()

	// OutputSchema returns the ordered column name/type pairs this
	// node produces. It is stable across repeated calls for the same
	// node and catalog.
	OutputSchema(cat *catalog.Catalog) ([]catalog.ColumnDef, error)
}

// NodeScan is a leaf producing every row of TableName, optionally
// restricted to rows whose columns exactly match Filters.
type NodeScan struct {
	Var       string
	TableName string
	Filters   map[string]value.Value
}

func (*NodeScan) logicalNode() {}

// Expand produces one additional hop: for each row flowing from
// Input, it joins through RelTable on the source endpoint and
// produces one output row per matching relationship, extended with
// the destination node's row. The last hop in a chain binds RelVar
// (if non-empty) and DstVar; interior hops bind only the position
// needed to chain further.
type Expand struct {
	Input        LogicalNode
	RelTable     string
	RelVar       string // bound only on the final hop of a chain
	DstTableName string
	DstVar       string
	DstFilters   map[string]value.Value
	BindRelVar   bool
}

func (*Expand) logicalNode() {}

// Union concatenates the rows of several alternative plans that share
// the same output shape — used to flatten a variable-length
// relationship pattern's hop-count alternatives into one result set.
type Union struct{ Inputs []LogicalNode }

func (*Union) logicalNode() {}

// Filter keeps only rows where Column's value compares to Literal
// under Op.
type Filter struct {
	Input   LogicalNode
	Column  binder.BoundColumnRef
	Op      parser.ComparisonOp
	Literal value.Value
}

func (*Filter) logicalNode() {}

// Project evaluates each ReturnItem into exactly one output column.
type Project struct {
	Input LogicalNode
	Items []binder.BoundReturnItem
}

func (*Project) logicalNode() {}

// Aggregate collapses all of Input's rows into a single output row,
// one column per item; there is no GROUP BY, so a RETURN list mixing
// aggregate and plain items is rejected before this node is built.
type Aggregate struct {
	Input LogicalNode
	Items []binder.BoundReturnItem
}

func (*Aggregate) logicalNode() {}

// OrderBy sorts Input's rows by Keys, first key major.
type OrderBy struct {
	Input LogicalNode
	Keys  []binder.BoundOrderByItem
}

func (*OrderBy) logicalNode() {}

// SkipLimit discards the first Skip rows then yields at most Limit
// more. Either bound may be nil.
type SkipLimit struct {
	Input LogicalNode
	Skip  *int64
	Limit *int64
}

func (*SkipLimit) logicalNode() {}

// Empty is a leaf that produces zero rows while still reporting a
// declared output schema, for plan shapes whose column shape must be
// known even though no row source backs them.
type Empty struct{ Schema []catalog.ColumnDef }

func (*Empty) logicalNode() {}
