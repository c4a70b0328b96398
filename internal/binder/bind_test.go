package binder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/graphdb/internal/catalog"
	"github.com/tuannm99/graphdb/internal/parser"
	"github.com/tuannm99/graphdb/internal/value"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	require.NoError(t, cat.CreateNodeTable(catalog.NodeTableSchema{
		Name:       "Person",
		Columns:    []catalog.ColumnDef{{Name: "id", Type: value.KindInt64}, {Name: "name", Type: value.KindString}, {Name: "age", Type: value.KindInt64}},
		PrimaryKey: []string{"id"},
	}))
	require.NoError(t, cat.CreateRelTable(catalog.RelTableSchema{
		Name:     "Knows",
		SrcTable: "Person",
		DstTable: "Person",
		Columns:  []catalog.ColumnDef{{Name: "since", Type: value.KindInt64}},
	}))
	return cat
}

func TestBindCreateNodeTable(t *testing.T) {
	stmt, err := parser.Parse(`CREATE NODE TABLE City(id INT64, name STRING, PRIMARY KEY(id))`)
	require.NoError(t, err)
	bound, err := Bind(stmt, catalog.New())
	require.NoError(t, err)
	cnt, ok := bound.(*BoundCreateNodeTable)
	require.True(t, ok)
	require.Equal(t, "City", cnt.TableName)
	require.Equal(t, value.KindInt64, cnt.Columns[0].Type)
}

func TestBindCreateRelTableRequiresKnownEndpoints(t *testing.T) {
	stmt, err := parser.Parse(`CREATE REL TABLE Likes(FROM Person TO City)`)
	require.NoError(t, err)
	_, err = Bind(stmt, testCatalog(t))
	require.ErrorIs(t, err, ErrUnknownTable)
}

func TestBindMatchUnknownLabel(t *testing.T) {
	stmt, err := parser.Parse(`MATCH (p:Company) RETURN p.name`)
	require.NoError(t, err)
	_, err = Bind(stmt, testCatalog(t))
	require.ErrorIs(t, err, ErrUnknownTable)
}

func TestBindMatchUnknownProperty(t *testing.T) {
	stmt, err := parser.Parse(`MATCH (p:Person) RETURN p.salary`)
	require.NoError(t, err)
	_, err = Bind(stmt, testCatalog(t))
	require.ErrorIs(t, err, ErrUnknownProperty)
}

func TestBindMatchTypeMismatchInWhere(t *testing.T) {
	stmt, err := parser.Parse(`MATCH (p:Person) WHERE p.age > 'old' RETURN p.name`)
	require.NoError(t, err)
	_, err = Bind(stmt, testCatalog(t))
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestBindMatchOK(t *testing.T) {
	stmt, err := parser.Parse(`MATCH (p:Person) WHERE p.age > 18 RETURN p.name ORDER BY p.name LIMIT 5`)
	require.NoError(t, err)
	bound, err := Bind(stmt, testCatalog(t))
	require.NoError(t, err)
	m, ok := bound.(*BoundMatch)
	require.True(t, ok)
	require.Equal(t, "Person", m.Node.TableName)
	require.Equal(t, value.KindInt64, m.Filter.Column.Type)
	require.Len(t, m.Projections, 1)
}

func TestBindMatchRelRequiresMatchingEndpoints(t *testing.T) {
	cat := testCatalog(t)
	require.NoError(t, cat.CreateNodeTable(catalog.NodeTableSchema{Name: "City", Columns: []catalog.ColumnDef{{Name: "id", Type: value.KindInt64}}, PrimaryKey: []string{"id"}}))

	stmt, err := parser.Parse(`MATCH (p:Person)-[r:Knows]->(c:City) RETURN p.name`)
	require.NoError(t, err)
	_, err = Bind(stmt, cat)
	require.ErrorIs(t, err, ErrUnknownTable)
}

func TestBindMatchRelOK(t *testing.T) {
	stmt, err := parser.Parse(`MATCH (a:Person)-[r:Knows]->(b:Person) WHERE r.since > 2000 RETURN a.name, b.name`)
	require.NoError(t, err)
	bound, err := Bind(stmt, testCatalog(t))
	require.NoError(t, err)
	mr, ok := bound.(*BoundMatchRel)
	require.True(t, ok)
	require.Equal(t, "Knows", mr.RelTable)
	require.Equal(t, "r", mr.Filter.Column.Var)
	require.Len(t, mr.Projections, 2)
}

func TestBindMatchCreateDuplicateVariable(t *testing.T) {
	stmt, err := parser.Parse(`MATCH (a:Person),(a:Person) CREATE (a)-[:Knows]->(a)`)
	require.NoError(t, err)
	_, err = Bind(stmt, testCatalog(t))
	require.ErrorIs(t, err, ErrDuplicateVariable)
}

func TestBindCreateNodePropertyTypeMismatch(t *testing.T) {
	stmt, err := parser.Parse(`CREATE (:Person {id: 'not-a-number'})`)
	require.NoError(t, err)
	_, err = Bind(stmt, testCatalog(t))
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestBindCopyUnknownTable(t *testing.T) {
	stmt, err := parser.Parse(`COPY Ghost FROM '/tmp/x.csv'`)
	require.NoError(t, err)
	_, err = Bind(stmt, testCatalog(t))
	require.ErrorIs(t, err, ErrUnknownTable)
}
