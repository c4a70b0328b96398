package parser

// Statement is the tagged-variant root of the AST.
type Statement interface{ stmtNode() }

// Literal is a literal value: String | Int64.
type Literal interface{ litNode() }

type StringLiteral struct{ Value string }

func (StringLiteral) litNode() {}

type IntLiteral struct{ Value int64 }

func (IntLiteral) litNode() {}

// ColDef is one "name TYPE" entry in a CREATE TABLE column list.
type ColDef struct {
	Name string
	Type string // "INT64" | "STRING" | "BOOL"
}

// CreateNodeTable is 'CREATE NODE TABLE name(cols, PRIMARY KEY(ids))'.
type CreateNodeTable struct {
	TableName  string
	Columns    []ColDef
	PrimaryKey []string
}

func (*CreateNodeTable) stmtNode() {}

// CreateRelTable is 'CREATE REL TABLE name(FROM a TO b, cols...)'.
type CreateRelTable struct {
	TableName string
	SrcTable  string
	DstTable  string
	Columns   []ColDef
}

func (*CreateRelTable) stmtNode() {}

// PropEntry is one "key:literal" pair inside a node/rel pattern's
// property map.
type PropEntry struct {
	Key   string
	Value Literal
}

// CreateNode is 'CREATE (:Label {props})'.
type CreateNode struct {
	Label      string
	Properties []PropEntry
}

func (*CreateNode) stmtNode() {}

// NodeFilter is one node pattern occurrence: an optional variable, a
// label, and zero or more property-equality filters used to locate
// existing rows (as opposed to CreateNode's property list, which
// supplies values for a new row).
type NodeFilter struct {
	Var             string // may be empty (anonymous)
	Label           string
	PropertyFilters []PropEntry
}

// MatchCreate is 'MATCH (a),(b) CREATE (a)-[:Type {props}]->(b)'.
type MatchCreate struct {
	SrcNode    NodeFilter
	DstNode    NodeFilter
	RelType    string
	RelProps   []PropEntry
}

func (*MatchCreate) stmtNode() {}

// ComparisonOp is a WHERE-clause comparison operator.
type ComparisonOp uint8

const (
	OpGt ComparisonOp = iota
	OpLt
	OpEq
	OpGte
	OpLte
	OpNeq
)

// ParseComparisonOp maps operator text to a ComparisonOp.
func ParseComparisonOp(s string) (ComparisonOp, bool) {
	switch s {
	case ">":
		return OpGt, true
	case "<":
		return OpLt, true
	case "=":
		return OpEq, true
	case ">=":
		return OpGte, true
	case "<=":
		return OpLte, true
	case "<>":
		return OpNeq, true
	default:
		return 0, false
	}
}

// Expression is a WHERE-clause predicate: var.property OP literal.
type Expression struct {
	Var      string
	Property string
	Op       ComparisonOp
	Value    Literal
}

// AggregateFunction names a RETURN-clause aggregate function.
type AggregateFunction uint8

const (
	AggCount AggregateFunction = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

// ParseAggregateFunction maps an uppercased function name to an
// AggregateFunction.
func ParseAggregateFunction(s string) (AggregateFunction, bool) {
	switch s {
	case "COUNT":
		return AggCount, true
	case "SUM":
		return AggSum, true
	case "AVG":
		return AggAvg, true
	case "MIN":
		return AggMin, true
	case "MAX":
		return AggMax, true
	default:
		return 0, false
	}
}

// AggregateExpr is one aggregate RETURN item, e.g. COUNT(*) or
// SUM(p.age). Input is nil for COUNT(*).
type AggregateExpr struct {
	Function AggregateFunction
	Input    *VarProperty
}

// VarProperty is a "var.property" reference.
type VarProperty struct {
	Var      string
	Property string
}

// ReturnItem is one RETURN-clause item: a projection or an aggregate.
type ReturnItem struct {
	Projection *VarProperty
	Aggregate  *AggregateExpr
}

// OrderByItem is one ORDER BY key.
type OrderByItem struct {
	Var       string
	Property  string
	Ascending bool
}

// Match is a node-only MATCH ... RETURN statement.
type Match struct {
	Var         string
	Label       string
	Filter      *Expression
	Projections []ReturnItem
	OrderBy     []OrderByItem
	Skip        *int64
	Limit       *int64
}

func (*Match) stmtNode() {}

// PathBounds is the [min,max] hop count for a variable-length
// relationship pattern ('*min..max'). Max == nil means unbounded,
// which the planner rejects since it only ever unrolls a finite
// number of hops.
type PathBounds struct {
	Min int64
	Max *int64
}

// MatchRel is a single-hop-or-variable-length relationship MATCH.
type MatchRel struct {
	SrcNode     NodeFilter
	RelVar      string // may be empty
	RelType     string
	DstNode     NodeFilter
	Filter      *Expression
	Projections []ReturnItem
	OrderBy     []OrderByItem
	Skip        *int64
	Limit       *int64
	PathBounds  *PathBounds // nil means a single hop
}

func (*MatchRel) stmtNode() {}

// CopyOptions holds COPY command options. The core engine validates
// these; actually reading the CSV file is the bulk-load front end's job.
type CopyOptions struct {
	HasHeader *bool
	Delimiter *byte
}

// Copy is 'COPY table FROM 'path' (options)'.
type Copy struct {
	TableName string
	FilePath  string
	Options   CopyOptions
}

func (*Copy) stmtNode() {}

// Explain wraps another statement for plan-only execution.
type Explain struct {
	Inner Statement
}

func (*Explain) stmtNode() {}
