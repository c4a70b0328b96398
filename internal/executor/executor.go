// Package executor runs a planner.Plan to completion. Row-producing
// plans are walked as a small tree of pull-based Open/Next/Close
// operators so that relationship traversal, filtering, aggregation,
// and ordering over graph patterns can compose freely.
package executor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/graphdb/internal/catalog"
	"github.com/tuannm99/graphdb/internal/parser"
	"github.com/tuannm99/graphdb/internal/planner"
	"github.com/tuannm99/graphdb/internal/table"
	"github.com/tuannm99/graphdb/internal/value"
)

var (
	ErrDivideByZero = errors.New("executor: division by zero")
	ErrUnsupported  = errors.New("executor: unsupported plan")
	ErrRowNotFound  = errors.New("executor: no row matches the given properties")
)

// Env is the execution-time view of the database: the catalog plus
// the live, in-memory table instances backing it. The graphdb façade
// owns the real instance; tests can build a minimal one directly.
type Env struct {
	Catalog *catalog.Catalog
	Nodes   map[string]*table.NodeTable
	Rels    map[string]*table.RelTable
}

// NewEnv builds an empty environment over an empty catalog.
func NewEnv() *Env {
	return &Env{Catalog: catalog.New(), Nodes: map[string]*table.NodeTable{}, Rels: map[string]*table.RelTable{}}
}

// QueryResult is the generic result of executing any statement: the
// output columns and rows for a query, or the affected-row count for
// DDL/DML.
type QueryResult struct {
	Columns      []string
	Rows         [][]value.Value
	RowsAffected int64
}

// Execute runs p to completion against env.
func Execute(p planner.Plan, env *Env) (*QueryResult, error) {
	switch plan := p.(type) {
	case *planner.CreateNodeTablePlan:
		return execCreateNodeTable(plan, env)
	case *planner.CreateRelTablePlan:
		return execCreateRelTable(plan, env)
	case *planner.CreateNodePlan:
		return execCreateNode(plan, env)
	case *planner.CreateRelPlan:
		return execCreateRel(plan, env)
	case *planner.CopyPlan:
		return execCopy(plan)
	case *planner.ExplainPlan:
		return execExplain(plan)
	case *planner.QueryPlan:
		return execQuery(plan, env)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, p)
	}
}

func execCreateNodeTable(p *planner.CreateNodeTablePlan, env *Env) (*QueryResult, error) {
	schema := catalog.NodeTableSchema{Name: p.TableName, Columns: p.Columns, PrimaryKey: p.PrimaryKey}
	if err := env.Catalog.CreateNodeTable(schema); err != nil {
		return nil, err
	}
	got, _ := env.Catalog.GetNodeTable(p.TableName)
	env.Nodes[p.TableName] = table.NewNodeTable(got)
	return &QueryResult{}, nil
}

func execCreateRelTable(p *planner.CreateRelTablePlan, env *Env) (*QueryResult, error) {
	schema := catalog.RelTableSchema{Name: p.TableName, SrcTable: p.SrcTable, DstTable: p.DstTable, Columns: p.Columns}
	if err := env.Catalog.CreateRelTable(schema); err != nil {
		return nil, err
	}
	got, _ := env.Catalog.GetRelTable(p.TableName)
	env.Rels[p.TableName] = table.NewRelTable(got)
	return &QueryResult{}, nil
}

func execCreateNode(p *planner.CreateNodePlan, env *Env) (*QueryResult, error) {
	nt, ok := env.Nodes[p.TableName]
	if !ok {
		return nil, fmt.Errorf("executor: table %s has no live instance", p.TableName)
	}
	if _, err := nt.Insert(p.Values); err != nil {
		return nil, err
	}
	return &QueryResult{RowsAffected: 1}, nil
}

// findRow scans nt for the single row whose columns equal every entry
// in filters. It is a full scan rather than an index probe: filters
// need not name the primary key.
func findRow(nt *table.NodeTable, filters map[string]value.Value) (table.RowId, bool) {
	var found table.RowId
	ok := false
	nt.Scan(func(r table.Row) bool {
		for name, want := range filters {
			col := nt.ColumnByName(name)
			if col == nil || !value.Equal(col.Get(int(r.ID)), want) {
				return true
			}
		}
		found, ok = r.ID, true
		return false
	})
	return found, ok
}

func execCreateRel(p *planner.CreateRelPlan, env *Env) (*QueryResult, error) {
	srcTable, ok := env.Nodes[p.SrcTable]
	if !ok {
		return nil, fmt.Errorf("executor: table %s has no live instance", p.SrcTable)
	}
	dstTable, ok := env.Nodes[p.DstTable]
	if !ok {
		return nil, fmt.Errorf("executor: table %s has no live instance", p.DstTable)
	}
	relTable, ok := env.Rels[p.RelTable]
	if !ok {
		return nil, fmt.Errorf("executor: relationship table %s has no live instance", p.RelTable)
	}

	srcRow, ok := findRow(srcTable, p.SrcFilters)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRowNotFound, p.SrcTable)
	}
	dstRow, ok := findRow(dstTable, p.DstFilters)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRowNotFound, p.DstTable)
	}

	if _, err := relTable.Insert(srcTable, dstTable, srcRow, dstRow, p.Values); err != nil {
		return nil, err
	}
	slog.Debug("executor: created relationship", "table", p.RelTable, "src", p.SrcTable, "dst", p.DstTable)
	return &QueryResult{RowsAffected: 1}, nil
}

// execCopy returns an empty result. The binder has already checked
// that the target table exists, and reading the CSV file itself is
// handled by the bulk-load front end.
func execCopy(p *planner.CopyPlan) (*QueryResult, error) {
	return &QueryResult{}, nil
}

func execExplain(p *planner.ExplainPlan) (*QueryResult, error) {
	text := explainText(p.Inner, 0)
	return &QueryResult{Columns: []string{"plan"}, Rows: rowsOfLines(text)}, nil
}

func rowsOfLines(lines []string) [][]value.Value {
	rows := make([][]value.Value, len(lines))
	for i, l := range lines {
		rows[i] = []value.Value{value.String(l)}
	}
	return rows
}

func execQuery(p *planner.QueryPlan, env *Env) (*QueryResult, error) {
	schema, err := p.Root.OutputSchema(env.Catalog)
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(schema))
	for i, c := range schema {
		columns[i] = c.Name
	}
	slog.Debug("executor: query opened", "root", fmt.Sprintf("%T", p.Root), "columns", columns)

	op, err := buildOperator(p.Root, env)
	if err != nil {
		return nil, err
	}
	if err := op.Open(); err != nil {
		return nil, err
	}
	defer func() {
		if err := op.Close(); err != nil {
			slog.Warn("executor: operator close failed (best-effort cleanup)", "err", err)
		}
	}()

	result := &QueryResult{Columns: columns}
	for {
		r, ok, err := op.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		result.Rows = append(result.Rows, r.values)
	}
	result.RowsAffected = int64(len(result.Rows))
	slog.Debug("executor: query complete", "rows", result.RowsAffected)
	return result, nil
}

func aggregateFuncName(f parser.AggregateFunction) string {
	switch f {
	case parser.AggCount:
		return "COUNT"
	case parser.AggSum:
		return "SUM"
	case parser.AggAvg:
		return "AVG"
	case parser.AggMin:
		return "MIN"
	case parser.AggMax:
		return "MAX"
	default:
		return "?"
	}
}
