package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/graphdb/internal/binder"
	"github.com/tuannm99/graphdb/internal/catalog"
	"github.com/tuannm99/graphdb/internal/parser"
	"github.com/tuannm99/graphdb/internal/planner"
	"github.com/tuannm99/graphdb/internal/value"
)

func run(t *testing.T, env *Env, query string) *QueryResult {
	t.Helper()
	stmt, err := parser.Parse(query)
	require.NoError(t, err)
	bound, err := binder.Bind(stmt, env.Catalog)
	require.NoError(t, err)
	plan, err := planner.Build(bound)
	require.NoError(t, err)
	res, err := Execute(plan, env)
	require.NoError(t, err)
	return res
}

func setupPeople(t *testing.T) *Env {
	t.Helper()
	env := NewEnv()
	run(t, env, `CREATE NODE TABLE Person(id INT64, name STRING, age INT64, PRIMARY KEY(id))`)
	run(t, env, `CREATE REL TABLE Knows(FROM Person TO Person, since INT64)`)
	run(t, env, `CREATE (:Person {id: 1, name: 'Alice', age: 30})`)
	run(t, env, `CREATE (:Person {id: 2, name: 'Bob', age: 25})`)
	run(t, env, `CREATE (:Person {id: 3, name: 'Carol', age: 40})`)
	run(t, env, `MATCH (a:Person {id: 1}), (b:Person {id: 2}) CREATE (a)-[:Knows {since: 2020}]->(b)`)
	run(t, env, `MATCH (a:Person {id: 2}), (b:Person {id: 3}) CREATE (a)-[:Knows {since: 2021}]->(b)`)
	return env
}

func TestExecuteCreateNodeTableAndInsert(t *testing.T) {
	env := NewEnv()
	res := run(t, env, `CREATE NODE TABLE Person(id INT64, name STRING, PRIMARY KEY(id))`)
	require.Equal(t, int64(0), res.RowsAffected)

	res = run(t, env, `CREATE (:Person {id: 1, name: 'Alice'})`)
	require.Equal(t, int64(1), res.RowsAffected)
	require.Equal(t, 1, env.Nodes["Person"].NumRows())
}

func TestExecuteMatchReturnsProjectedRows(t *testing.T) {
	env := setupPeople(t)
	res := run(t, env, `MATCH (p:Person) WHERE p.age > 26 RETURN p.name`)
	require.Equal(t, []string{"p.name"}, res.Columns)
	require.Len(t, res.Rows, 2)
	names := []string{res.Rows[0][0].AsString(), res.Rows[1][0].AsString()}
	require.ElementsMatch(t, []string{"Alice", "Carol"}, names)
}

func TestExecuteMatchOrderByAndLimit(t *testing.T) {
	env := setupPeople(t)
	res := run(t, env, `MATCH (p:Person) RETURN p.name ORDER BY p.age LIMIT 2`)
	require.Len(t, res.Rows, 2)
	require.Equal(t, "Bob", res.Rows[0][0].AsString())
	require.Equal(t, "Alice", res.Rows[1][0].AsString())
}

func TestExecuteMatchRelSingleHop(t *testing.T) {
	env := setupPeople(t)
	res := run(t, env, `MATCH (a:Person)-[:Knows]->(b:Person) RETURN a.name, b.name`)
	require.Len(t, res.Rows, 2)
}

func TestExecuteMatchRelVariableLength(t *testing.T) {
	env := setupPeople(t)
	res := run(t, env, `MATCH (a:Person {id: 1})-[:Knows*1..2]->(b:Person) RETURN b.name`)
	names := make([]string, len(res.Rows))
	for i, r := range res.Rows {
		names[i] = r[0].AsString()
	}
	require.ElementsMatch(t, []string{"Bob", "Carol"}, names)
}

func TestExecuteAggregateCount(t *testing.T) {
	env := setupPeople(t)
	res := run(t, env, `MATCH (p:Person) RETURN COUNT(*)`)
	require.Len(t, res.Rows, 1)
	require.Equal(t, int64(3), res.Rows[0][0].AsInt64())
}

func TestExecuteAggregateAvgAndMinMax(t *testing.T) {
	env := setupPeople(t)
	res := run(t, env, `MATCH (p:Person) RETURN AVG(p.age)`)
	require.Equal(t, int64(31), res.Rows[0][0].AsInt64())

	res = run(t, env, `MATCH (p:Person) RETURN MIN(p.age)`)
	require.Equal(t, int64(25), res.Rows[0][0].AsInt64())

	res = run(t, env, `MATCH (p:Person) RETURN MAX(p.age)`)
	require.Equal(t, int64(40), res.Rows[0][0].AsInt64())
}

func TestExecuteExplainRendersPlanTree(t *testing.T) {
	env := setupPeople(t)
	res := run(t, env, `EXPLAIN MATCH (p:Person) WHERE p.age > 18 RETURN p.name`)
	require.Equal(t, []string{"plan"}, res.Columns)
	require.NotEmpty(t, res.Rows)
	require.Contains(t, res.Rows[0][0].AsString(), "Project")
}

func TestExecuteCreateRelMissingEndpointFails(t *testing.T) {
	env := NewEnv()
	run(t, env, `CREATE NODE TABLE Person(id INT64, PRIMARY KEY(id))`)
	run(t, env, `CREATE REL TABLE Knows(FROM Person TO Person)`)
	run(t, env, `CREATE (:Person {id: 1})`)

	stmt, err := parser.Parse(`MATCH (a:Person {id: 1}), (b:Person {id: 99}) CREATE (a)-[:Knows]->(b)`)
	require.NoError(t, err)
	bound, err := binder.Bind(stmt, env.Catalog)
	require.NoError(t, err)
	plan, err := planner.Build(bound)
	require.NoError(t, err)
	_, err = Execute(plan, env)
	require.ErrorIs(t, err, ErrRowNotFound)
}

func TestAggAccumulatorSumRequiresNumericColumn(t *testing.T) {
	var acc aggAccumulator
	err := acc.add(parser.AggSum, value.String("nope"), true)
	require.ErrorIs(t, err, value.ErrTypeMismatch)
}

func TestExecuteAggregateSumOnEmptyTableIsNull(t *testing.T) {
	env := NewEnv()
	run(t, env, `CREATE NODE TABLE Person(id INT64, age INT64, PRIMARY KEY(id))`)

	res := run(t, env, `MATCH (p:Person) RETURN SUM(p.age)`)
	require.Len(t, res.Rows, 1)
	require.True(t, res.Rows[0][0].IsNull())
}
