package planner

import (
	"errors"
	"fmt"

	"github.com/tuannm99/graphdb/internal/binder"
)

var (
	// ErrUnsupported is returned for a bound statement shape the
	// planner has no rule for (e.g. mixing aggregate and plain
	// projections in one RETURN list, which would need GROUP BY to be
	// well defined).
	ErrUnsupported = errors.New("planner: unsupported statement shape")
	// ErrUnboundedPath is returned for a variable-length relationship
	// pattern with no upper hop bound ('*1..'); the planner only ever
	// unrolls a finite number of hops.
	ErrUnboundedPath = errors.New("planner: unbounded variable-length path")
)

// Build converts a bound statement into an executable plan.
func Build(stmt binder.BoundStatement) (Plan, error) {
	switch s := stmt.(type) {
	case *binder.BoundCreateNodeTable:
		return &CreateNodeTablePlan{TableName: s.TableName, Columns: s.Columns, PrimaryKey: s.PrimaryKey}, nil
	case *binder.BoundCreateRelTable:
		return &CreateRelTablePlan{TableName: s.TableName, SrcTable: s.SrcTable, DstTable: s.DstTable, Columns: s.Columns}, nil
	case *binder.BoundCreateNode:
		return &CreateNodePlan{TableName: s.TableName, Values: s.Values}, nil
	case *binder.BoundMatchCreate:
		return &CreateRelPlan{
			SrcTable: s.Src.TableName, DstTable: s.Dst.TableName, RelTable: s.RelTable,
			SrcFilters: s.Src.PropertyFilters, DstFilters: s.Dst.PropertyFilters, Values: s.Values,
		}, nil
	case *binder.BoundCopy:
		return &CopyPlan{TableName: s.TableName, FilePath: s.FilePath, Options: s.Options}, nil
	case *binder.BoundMatch:
		return buildMatch(s)
	case *binder.BoundMatchRel:
		return buildMatchRel(s)
	case *binder.BoundExplain:
		inner, err := Build(s.Inner)
		if err != nil {
			return nil, err
		}
		return &ExplainPlan{Inner: inner}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, stmt)
	}
}

// validateReturnList rejects mixing aggregate and plain projection
// items: without GROUP BY the combination has no defined grouping.
func validateReturnList(items []binder.BoundReturnItem) (anyAggregate bool, err error) {
	sawAgg, sawProj := false, false
	for _, it := range items {
		if it.Aggregate != nil {
			sawAgg = true
		} else {
			sawProj = true
		}
	}
	if sawAgg && sawProj {
		return false, fmt.Errorf("%w: cannot mix aggregate and plain RETURN items without GROUP BY", ErrUnsupported)
	}
	return sawAgg, nil
}

// buildProjectionAndTail wraps root (a binding-row producer) with, in
// order: ORDER BY — evaluated against the pattern's bound variables,
// not the RETURN list, so a column may be sorted on without being
// projected — then the RETURN projection or aggregate, then SKIP/LIMIT.
func buildProjectionAndTail(root LogicalNode, orderBy []binder.BoundOrderByItem, projections []binder.BoundReturnItem, skip, limit *int64) (LogicalNode, error) {
	if len(orderBy) > 0 {
		root = &OrderBy{Input: root, Keys: orderBy}
	}

	isAgg, err := validateReturnList(projections)
	if err != nil {
		return nil, err
	}
	if isAgg {
		root = &Aggregate{Input: root, Items: projections}
	} else {
		root = &Project{Input: root, Items: projections}
	}

	if skip != nil || limit != nil {
		root = &SkipLimit{Input: root, Skip: skip, Limit: limit}
	}
	return root, nil
}

func buildMatch(s *binder.BoundMatch) (Plan, error) {
	var root LogicalNode = &NodeScan{Var: s.Node.Var, TableName: s.Node.TableName, Filters: s.Node.PropertyFilters}

	if s.Filter != nil {
		root = &Filter{Input: root, Column: s.Filter.Column, Op: s.Filter.Op, Literal: s.Filter.Literal}
	}

	root, err := buildProjectionAndTail(root, s.OrderBy, s.Projections, s.Skip, s.Limit)
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Root: root}, nil
}

func buildMatchRel(s *binder.BoundMatchRel) (Plan, error) {
	minHops, maxHops := int64(1), int64(1)
	if s.PathBounds != nil {
		if s.PathBounds.Max == nil {
			return nil, ErrUnboundedPath
		}
		minHops, maxHops = s.PathBounds.Min, *s.PathBounds.Max
	}
	if minHops < 1 {
		minHops = 1
	}

	var alternatives []LogicalNode
	for hops := minHops; hops <= maxHops; hops++ {
		chain := buildHopChain(s, int(hops))
		alternatives = append(alternatives, chain)
	}

	var root LogicalNode
	if len(alternatives) == 1 {
		root = alternatives[0]
	} else {
		root = &Union{Inputs: alternatives}
	}

	if s.Filter != nil {
		root = &Filter{Input: root, Column: s.Filter.Column, Op: s.Filter.Op, Literal: s.Filter.Literal}
	}

	root, err := buildProjectionAndTail(root, s.OrderBy, s.Projections, s.Skip, s.Limit)
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Root: root}, nil
}

// buildHopChain builds a chain of exactly hops Expand nodes over a
// NodeScan seeded at s.Src, all traversing s.RelTable. The final hop
// carries the destination's property filters, its bound variable,
// and (if present) the relationship pattern variable.
func buildHopChain(s *binder.BoundMatchRel, hops int) LogicalNode {
	var root LogicalNode = &NodeScan{Var: s.Src.Var, TableName: s.Src.TableName, Filters: s.Src.PropertyFilters}
	for h := 1; h <= hops; h++ {
		last := h == hops
		expand := &Expand{
			Input:        root,
			RelTable:     s.RelTable,
			DstTableName: s.Dst.TableName,
		}
		if last {
			expand.DstVar = s.Dst.Var
			expand.DstFilters = s.Dst.PropertyFilters
			expand.RelVar = s.RelVar
			expand.BindRelVar = s.RelVar != ""
		}
		root = expand
	}
	return root
}
