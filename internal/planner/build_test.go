package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/graphdb/internal/binder"
	"github.com/tuannm99/graphdb/internal/catalog"
	"github.com/tuannm99/graphdb/internal/parser"
	"github.com/tuannm99/graphdb/internal/value"
)

func bind(t *testing.T, query string, cat *catalog.Catalog) binder.BoundStatement {
	t.Helper()
	stmt, err := parser.Parse(query)
	require.NoError(t, err)
	bound, err := binder.Bind(stmt, cat)
	require.NoError(t, err)
	return bound
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	require.NoError(t, cat.CreateNodeTable(catalog.NodeTableSchema{
		Name: "Person", PrimaryKey: []string{"id"},
		Columns: []catalog.ColumnDef{{Name: "id", Type: value.KindInt64}, {Name: "name", Type: value.KindString}, {Name: "age", Type: value.KindInt64}},
	}))
	require.NoError(t, cat.CreateRelTable(catalog.RelTableSchema{
		Name: "Knows", SrcTable: "Person", DstTable: "Person",
		Columns: []catalog.ColumnDef{{Name: "since", Type: value.KindInt64}},
	}))
	return cat
}

func TestBuildMatchSimple(t *testing.T) {
	cat := testCatalog(t)
	bound := bind(t, `MATCH (p:Person) WHERE p.age > 18 RETURN p.name LIMIT 5`, cat)
	plan, err := Build(bound)
	require.NoError(t, err)
	qp, ok := plan.(*QueryPlan)
	require.True(t, ok)

	sl, ok := qp.Root.(*SkipLimit)
	require.True(t, ok)
	require.NotNil(t, sl.Limit)

	proj, ok := sl.Input.(*Project)
	require.True(t, ok)

	filter, ok := proj.Input.(*Filter)
	require.True(t, ok)

	scan, ok := filter.Input.(*NodeScan)
	require.True(t, ok)
	require.Equal(t, "Person", scan.TableName)
}

func TestBuildMatchAggregate(t *testing.T) {
	cat := testCatalog(t)
	bound := bind(t, `MATCH (p:Person) RETURN COUNT(*)`, cat)
	plan, err := Build(bound)
	require.NoError(t, err)
	qp := plan.(*QueryPlan)
	_, ok := qp.Root.(*Aggregate)
	require.True(t, ok)
}

func TestBuildMatchRejectsMixedReturn(t *testing.T) {
	cat := testCatalog(t)
	stmt, err := parser.Parse(`MATCH (p:Person) RETURN p.name, COUNT(*)`)
	require.NoError(t, err)
	bound, err := binder.Bind(stmt, cat)
	require.NoError(t, err)
	_, err = Build(bound)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestBuildMatchRelSingleHop(t *testing.T) {
	cat := testCatalog(t)
	bound := bind(t, `MATCH (a:Person)-[r:Knows]->(b:Person) RETURN b.name`, cat)
	plan, err := Build(bound)
	require.NoError(t, err)
	qp := plan.(*QueryPlan)
	proj := qp.Root.(*Project)
	expand, ok := proj.Input.(*Expand)
	require.True(t, ok)
	require.Equal(t, "b", expand.DstVar)
	require.True(t, expand.BindRelVar)
	_, ok = expand.Input.(*NodeScan)
	require.True(t, ok)
}

func TestBuildMatchRelVariableLengthUnrollsUnion(t *testing.T) {
	cat := testCatalog(t)
	bound := bind(t, `MATCH (a:Person)-[:Knows*1..2]->(b:Person) RETURN b.name`, cat)
	plan, err := Build(bound)
	require.NoError(t, err)
	qp := plan.(*QueryPlan)
	proj := qp.Root.(*Project)
	union, ok := proj.Input.(*Union)
	require.True(t, ok)
	require.Len(t, union.Inputs, 2)

	oneHop := union.Inputs[0].(*Expand)
	_, ok = oneHop.Input.(*NodeScan)
	require.True(t, ok)

	twoHop := union.Inputs[1].(*Expand)
	_, ok = twoHop.Input.(*Expand)
	require.True(t, ok)
}

func TestBuildMatchRelUnboundedPathRejected(t *testing.T) {
	cat := testCatalog(t)
	bound := bind(t, `MATCH (a:Person)-[:Knows*1..]->(b:Person) RETURN b.name`, cat)
	_, err := Build(bound)
	require.ErrorIs(t, err, ErrUnboundedPath)
}

func TestBuildCreateNodeTable(t *testing.T) {
	bound := bind(t, `CREATE NODE TABLE City(id INT64, PRIMARY KEY(id))`, catalog.New())
	plan, err := Build(bound)
	require.NoError(t, err)
	p, ok := plan.(*CreateNodeTablePlan)
	require.True(t, ok)
	require.Equal(t, "City", p.TableName)
}

func TestNodeScanOutputSchemaPrefixesVariable(t *testing.T) {
	cat := testCatalog(t)
	scan := &NodeScan{Var: "p", TableName: "Person"}
	schema, err := scan.OutputSchema(cat)
	require.NoError(t, err)
	require.Equal(t, []catalog.ColumnDef{
		{Name: "p.id", Type: value.KindInt64},
		{Name: "p.name", Type: value.KindString},
		{Name: "p.age", Type: value.KindInt64},
	}, schema)
}

func TestFilterPreservesInputSchema(t *testing.T) {
	cat := testCatalog(t)
	scan := &NodeScan{Var: "p", TableName: "Person"}
	scanSchema, err := scan.OutputSchema(cat)
	require.NoError(t, err)

	filter := &Filter{Input: scan}
	filterSchema, err := filter.OutputSchema(cat)
	require.NoError(t, err)
	require.Equal(t, scanSchema, filterSchema)
}

func TestProjectProducesDeclaredSchema(t *testing.T) {
	cat := testCatalog(t)
	bound := bind(t, `MATCH (p:Person) RETURN p.name, p.age`, cat)
	plan, err := Build(bound)
	require.NoError(t, err)
	qp := plan.(*QueryPlan)

	schema, err := qp.Root.OutputSchema(cat)
	require.NoError(t, err)
	require.Equal(t, []catalog.ColumnDef{
		{Name: "p.name", Type: value.KindString},
		{Name: "p.age", Type: value.KindInt64},
	}, schema)
}

func TestLimitPreservesInputSchema(t *testing.T) {
	cat := testCatalog(t)
	scan := &NodeScan{Var: "p", TableName: "Person"}
	scanSchema, err := scan.OutputSchema(cat)
	require.NoError(t, err)

	limited := &SkipLimit{Input: scan, Limit: int64Ptr(10)}
	limitSchema, err := limited.OutputSchema(cat)
	require.NoError(t, err)
	require.Equal(t, scanSchema, limitSchema)
}

func TestEmptyUsesDeclaredSchema(t *testing.T) {
	declared := []catalog.ColumnDef{
		{Name: "col1", Type: value.KindInt64},
		{Name: "col2", Type: value.KindString},
	}
	empty := &Empty{Schema: declared}
	schema, err := empty.OutputSchema(nil)
	require.NoError(t, err)
	require.Equal(t, declared, schema)
}

func int64Ptr(v int64) *int64 { return &v }

func TestBuildExplainWraps(t *testing.T) {
	cat := testCatalog(t)
	bound := bind(t, `EXPLAIN MATCH (p:Person) RETURN p.name`, cat)
	plan, err := Build(bound)
	require.NoError(t, err)
	ep, ok := plan.(*ExplainPlan)
	require.True(t, ok)
	_, ok = ep.Inner.(*QueryPlan)
	require.True(t, ok)
}
