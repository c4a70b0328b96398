package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCreateNodeTable(t *testing.T) {
	stmt, err := Parse(`CREATE NODE TABLE Person(id INT64, name STRING, PRIMARY KEY(id))`)
	require.NoError(t, err)
	ct, ok := stmt.(*CreateNodeTable)
	require.True(t, ok)
	require.Equal(t, "Person", ct.TableName)
	require.Equal(t, []ColDef{{Name: "id", Type: "INT64"}, {Name: "name", Type: "STRING"}}, ct.Columns)
	require.Equal(t, []string{"id"}, ct.PrimaryKey)
}

func TestParseCreateRelTable(t *testing.T) {
	stmt, err := Parse(`CREATE REL TABLE Knows(FROM Person TO Person, since INT64)`)
	require.NoError(t, err)
	rt, ok := stmt.(*CreateRelTable)
	require.True(t, ok)
	require.Equal(t, "Knows", rt.TableName)
	require.Equal(t, "Person", rt.SrcTable)
	require.Equal(t, "Person", rt.DstTable)
	require.Equal(t, []ColDef{{Name: "since", Type: "INT64"}}, rt.Columns)
}

func TestParseCreateNode(t *testing.T) {
	stmt, err := Parse(`CREATE (:Person {id: 1, name: 'Alice'})`)
	require.NoError(t, err)
	cn, ok := stmt.(*CreateNode)
	require.True(t, ok)
	require.Equal(t, "Person", cn.Label)
	require.Equal(t, []PropEntry{
		{Key: "id", Value: IntLiteral{Value: 1}},
		{Key: "name", Value: StringLiteral{Value: "Alice"}},
	}, cn.Properties)
}

func TestParseMatchCreate(t *testing.T) {
	stmt, err := Parse(`MATCH (a:Person {id: 1}),(b:Person {id: 2}) CREATE (a)-[:Knows {since: 2020}]->(b)`)
	require.NoError(t, err)
	mc, ok := stmt.(*MatchCreate)
	require.True(t, ok)
	require.Equal(t, "a", mc.SrcNode.Var)
	require.Equal(t, "b", mc.DstNode.Var)
	require.Equal(t, "Knows", mc.RelType)
	require.Equal(t, []PropEntry{{Key: "since", Value: IntLiteral{Value: 2020}}}, mc.RelProps)
}

func TestParseMatchReturnWithWhereOrderLimit(t *testing.T) {
	stmt, err := Parse(`MATCH (p:Person) WHERE p.age > 18 RETURN p.name ORDER BY p.name ASC LIMIT 10`)
	require.NoError(t, err)
	m, ok := stmt.(*Match)
	require.True(t, ok)
	require.Equal(t, "p", m.Var)
	require.Equal(t, "Person", m.Label)
	require.NotNil(t, m.Filter)
	require.Equal(t, OpGt, m.Filter.Op)
	require.Len(t, m.Projections, 1)
	require.Equal(t, "name", m.Projections[0].Projection.Property)
	require.Len(t, m.OrderBy, 1)
	require.NotNil(t, m.Limit)
	require.Equal(t, int64(10), *m.Limit)
}

func TestParseMatchRelWithPathBounds(t *testing.T) {
	stmt, err := Parse(`MATCH (a:Person)-[r:Knows*1..3]->(b:Person) RETURN COUNT(*)`)
	require.NoError(t, err)
	mr, ok := stmt.(*MatchRel)
	require.True(t, ok)
	require.Equal(t, "r", mr.RelVar)
	require.NotNil(t, mr.PathBounds)
	require.Equal(t, int64(1), mr.PathBounds.Min)
	require.NotNil(t, mr.PathBounds.Max)
	require.Equal(t, int64(3), *mr.PathBounds.Max)
	require.Len(t, mr.Projections, 1)
	require.NotNil(t, mr.Projections[0].Aggregate)
	require.Equal(t, AggCount, mr.Projections[0].Aggregate.Function)
	require.Nil(t, mr.Projections[0].Aggregate.Input)
}

func TestParseMatchRelUnboundedPath(t *testing.T) {
	stmt, err := Parse(`MATCH (a:Person)-[:Knows*1..]->(b:Person) RETURN a.name`)
	require.NoError(t, err)
	mr := stmt.(*MatchRel)
	require.NotNil(t, mr.PathBounds)
	require.Nil(t, mr.PathBounds.Max)
}

func TestParseAggregateOnProperty(t *testing.T) {
	stmt, err := Parse(`MATCH (p:Person) RETURN SUM(p.age)`)
	require.NoError(t, err)
	m := stmt.(*Match)
	require.NotNil(t, m.Projections[0].Aggregate)
	require.Equal(t, AggSum, m.Projections[0].Aggregate.Function)
	require.Equal(t, "age", m.Projections[0].Aggregate.Input.Property)
}

func TestParseCopyWithOptions(t *testing.T) {
	stmt, err := Parse(`COPY Person FROM '/tmp/people.csv' (HEADER, DELIMITER='|')`)
	require.NoError(t, err)
	c, ok := stmt.(*Copy)
	require.True(t, ok)
	require.Equal(t, "Person", c.TableName)
	require.Equal(t, "/tmp/people.csv", c.FilePath)
	require.NotNil(t, c.Options.HasHeader)
	require.True(t, *c.Options.HasHeader)
	require.NotNil(t, c.Options.Delimiter)
	require.Equal(t, byte('|'), *c.Options.Delimiter)
}

func TestParseExplain(t *testing.T) {
	stmt, err := Parse(`EXPLAIN MATCH (p:Person) RETURN p.name`)
	require.NoError(t, err)
	ex, ok := stmt.(*Explain)
	require.True(t, ok)
	require.IsType(t, &Match{}, ex.Inner)
}

func TestParseErrorReportsBytePosition(t *testing.T) {
	_, err := Parse(`CREATE NODE Person(id INT64)`)
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	require.Equal(t, 12, pe.Position)
}

func TestParseErrorUnterminatedString(t *testing.T) {
	_, err := Parse(`CREATE (:Person {name: 'Alice})`)
	require.Error(t, err)
	_, ok := err.(*ParseError)
	require.True(t, ok)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := Parse(`CREATE NODE TABLE Person(id INT64, PRIMARY KEY(id)) garbage`)
	require.Error(t, err)
}

func TestParseKeywordsCaseInsensitive(t *testing.T) {
	stmt, err := Parse(`match (p:Person) where p.age > 1 return p.name`)
	require.NoError(t, err)
	require.IsType(t, &Match{}, stmt)
}
