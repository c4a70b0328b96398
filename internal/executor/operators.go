package executor

import (
	"fmt"
	"sort"

	"github.com/tuannm99/graphdb/internal/binder"
	"github.com/tuannm99/graphdb/internal/parser"
	"github.com/tuannm99/graphdb/internal/planner"
	"github.com/tuannm99/graphdb/internal/table"
	"github.com/tuannm99/graphdb/internal/value"
)

// row is the operator pipeline's unit of data. Before Project or
// Aggregate runs, a row carries pattern-variable bindings (which node
// or relationship table row each variable occupies, plus the
// most-recently-visited node for chaining relationship hops); after
// Project or Aggregate runs, a row instead carries its final output
// values in RETURN order. An operator never sees both forms at once.
type row struct {
	nodeRowID map[string]table.RowId
	nodeTable map[string]string
	relRowID  map[string]table.RowId
	relTable  map[string]string

	current      table.RowId
	currentTable string

	values []value.Value
}

func (r row) clone() row {
	c := row{
		nodeRowID:    make(map[string]table.RowId, len(r.nodeRowID)),
		nodeTable:    make(map[string]string, len(r.nodeTable)),
		relRowID:     make(map[string]table.RowId, len(r.relRowID)),
		relTable:     make(map[string]string, len(r.relTable)),
		current:      r.current,
		currentTable: r.currentTable,
	}
	for k, v := range r.nodeRowID {
		c.nodeRowID[k] = v
	}
	for k, v := range r.nodeTable {
		c.nodeTable[k] = v
	}
	for k, v := range r.relRowID {
		c.relRowID[k] = v
	}
	for k, v := range r.relTable {
		c.relTable[k] = v
	}
	return c
}

// operator is a pull-based Open/Next/Close node. NodeScan, Expand and
// OrderBy materialize their output in Open and stream it back through
// Next; Filter, Project, SkipLimit and Union pull from their inputs
// lazily in Next; Aggregate consumes its whole input on the first Next.
type operator interface {
	Open() error
	Next() (row, bool, error)
	Close() error
}

func buildOperator(n planner.LogicalNode, env *Env) (operator, error) {
	switch node := n.(type) {
	case *planner.NodeScan:
		return &nodeScanOp{node: node, env: env}, nil
	case *planner.Expand:
		input, err := buildOperator(node.Input, env)
		if err != nil {
			return nil, err
		}
		return &expandOp{node: node, input: input, env: env}, nil
	case *planner.Union:
		inputs := make([]operator, len(node.Inputs))
		for i, in := range node.Inputs {
			op, err := buildOperator(in, env)
			if err != nil {
				return nil, err
			}
			inputs[i] = op
		}
		return &unionOp{inputs: inputs}, nil
	case *planner.Filter:
		input, err := buildOperator(node.Input, env)
		if err != nil {
			return nil, err
		}
		return &filterOp{node: node, input: input, env: env}, nil
	case *planner.OrderBy:
		input, err := buildOperator(node.Input, env)
		if err != nil {
			return nil, err
		}
		return &orderByOp{node: node, input: input, env: env}, nil
	case *planner.Project:
		input, err := buildOperator(node.Input, env)
		if err != nil {
			return nil, err
		}
		return &projectOp{node: node, input: input, env: env}, nil
	case *planner.Aggregate:
		input, err := buildOperator(node.Input, env)
		if err != nil {
			return nil, err
		}
		return &aggregateOp{node: node, input: input, env: env}, nil
	case *planner.SkipLimit:
		input, err := buildOperator(node.Input, env)
		if err != nil {
			return nil, err
		}
		return &skipLimitOp{node: node, input: input}, nil
	case *planner.Empty:
		return &emptyOp{}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, n)
	}
}

// ---- Empty ----

// emptyOp produces zero rows, the operator-side counterpart of a
// planner.Empty node.
type emptyOp struct{}

func (op *emptyOp) Open() error              { return nil }
func (op *emptyOp) Close() error             { return nil }
func (op *emptyOp) Next() (row, bool, error) { return row{}, false, nil }

// ---- NodeScan ----

type nodeScanOp struct {
	node *planner.NodeScan
	env  *Env
	rows []row
	pos  int
}

func (op *nodeScanOp) Open() error {
	nt, ok := op.env.Nodes[op.node.TableName]
	if !ok {
		return fmt.Errorf("executor: table %s has no live instance", op.node.TableName)
	}
	nt.Scan(func(r table.Row) bool {
		if !rowMatchesFilters(nt, r.ID, op.node.Filters) {
			return true
		}
		out := row{current: r.ID, currentTable: op.node.TableName}
		if op.node.Var != "" {
			out.nodeRowID = map[string]table.RowId{op.node.Var: r.ID}
			out.nodeTable = map[string]string{op.node.Var: op.node.TableName}
		}
		op.rows = append(op.rows, out)
		return true
	})
	return nil
}

func rowMatchesFilters(nt *table.NodeTable, id table.RowId, filters map[string]value.Value) bool {
	for name, want := range filters {
		col := nt.ColumnByName(name)
		if col == nil || !value.Equal(col.Get(int(id)), want) {
			return false
		}
	}
	return true
}

func (op *nodeScanOp) Next() (row, bool, error) {
	if op.pos >= len(op.rows) {
		return row{}, false, nil
	}
	r := op.rows[op.pos]
	op.pos++
	return r, true, nil
}

func (op *nodeScanOp) Close() error { op.rows = nil; return nil }

// ---- Expand ----

type expandOp struct {
	node  *planner.Expand
	input operator
	env   *Env
	rows  []row
	pos   int
}

func (op *expandOp) Open() error {
	if err := op.input.Open(); err != nil {
		return err
	}
	defer op.input.Close()

	dstTable, ok := op.env.Nodes[op.node.DstTableName]
	if !ok {
		return fmt.Errorf("executor: table %s has no live instance", op.node.DstTableName)
	}
	relTable, ok := op.env.Rels[op.node.RelTable]
	if !ok {
		return fmt.Errorf("executor: relationship table %s has no live instance", op.node.RelTable)
	}

	for {
		in, ok, err := op.input.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		relTable.Scan(func(rel table.RelRow) bool {
			if rel.Src != in.current {
				return true
			}
			if !rowMatchesFilters(dstTable, rel.Dst, op.node.DstFilters) {
				return true
			}
			out := in.clone()
			out.current = rel.Dst
			out.currentTable = op.node.DstTableName
			if op.node.DstVar != "" {
				out.nodeRowID[op.node.DstVar] = rel.Dst
				out.nodeTable[op.node.DstVar] = op.node.DstTableName
			}
			if op.node.BindRelVar {
				out.relRowID[op.node.RelVar] = rel.ID
				out.relTable[op.node.RelVar] = op.node.RelTable
			}
			op.rows = append(op.rows, out)
			return true
		})
	}
	return nil
}

func (op *expandOp) Next() (row, bool, error) {
	if op.pos >= len(op.rows) {
		return row{}, false, nil
	}
	r := op.rows[op.pos]
	op.pos++
	return r, true, nil
}

func (op *expandOp) Close() error { op.rows = nil; return nil }

// ---- Union ----

type unionOp struct {
	inputs []operator
	cur    int
}

func (op *unionOp) Open() error {
	for _, in := range op.inputs {
		if err := in.Open(); err != nil {
			return err
		}
	}
	return nil
}

func (op *unionOp) Next() (row, bool, error) {
	for op.cur < len(op.inputs) {
		r, ok, err := op.inputs[op.cur].Next()
		if err != nil {
			return row{}, false, err
		}
		if ok {
			return r, true, nil
		}
		op.cur++
	}
	return row{}, false, nil
}

func (op *unionOp) Close() error {
	for _, in := range op.inputs {
		in.Close()
	}
	return nil
}

// ---- Filter ----

type filterOp struct {
	node  *planner.Filter
	input operator
	env   *Env
}

func (op *filterOp) Open() error  { return op.input.Open() }
func (op *filterOp) Close() error { return op.input.Close() }

func (op *filterOp) Next() (row, bool, error) {
	for {
		r, ok, err := op.input.Next()
		if err != nil || !ok {
			return row{}, false, err
		}
		got, err := getValue(op.env, r, op.node.Column)
		if err != nil {
			return row{}, false, err
		}
		if evalComparison(got, op.node.Op, op.node.Literal) {
			return r, true, nil
		}
	}
}

// evalComparison applies op under three-valued logic: a comparison
// against or involving a Null value is unknown, which filters treat
// as false.
func evalComparison(a value.Value, op parser.ComparisonOp, b value.Value) bool {
	if op == parser.OpEq {
		return !a.IsNull() && !b.IsNull() && value.Equal(a, b)
	}
	if op == parser.OpNeq {
		return !a.IsNull() && !b.IsNull() && !value.Equal(a, b)
	}
	ord, ok := value.Compare(a, b)
	if !ok {
		return false
	}
	switch op {
	case parser.OpGt:
		return ord == value.Greater
	case parser.OpLt:
		return ord == value.Less
	case parser.OpGte:
		return ord == value.Greater || ord == value.Equal
	case parser.OpLte:
		return ord == value.Less || ord == value.Equal
	default:
		return false
	}
}

func getValue(env *Env, r row, ref binder.BoundColumnRef) (value.Value, error) {
	if tbl, ok := r.nodeTable[ref.Var]; ok {
		nt := env.Nodes[tbl]
		col := nt.ColumnByName(ref.Property)
		if col == nil {
			return value.Value{}, fmt.Errorf("executor: unknown column %s.%s", tbl, ref.Property)
		}
		return col.Get(int(r.nodeRowID[ref.Var])), nil
	}
	if tbl, ok := r.relTable[ref.Var]; ok {
		rt := env.Rels[tbl]
		col := rt.ColumnByName(ref.Property)
		if col == nil {
			return value.Value{}, fmt.Errorf("executor: unknown column %s.%s", tbl, ref.Property)
		}
		return col.Get(int(r.relRowID[ref.Var])), nil
	}
	return value.Value{}, fmt.Errorf("executor: unbound variable %s", ref.Var)
}

// ---- OrderBy ----

type orderByOp struct {
	node  *planner.OrderBy
	input operator
	env   *Env
	rows  []row
	pos   int
}

func (op *orderByOp) Open() error {
	if err := op.input.Open(); err != nil {
		return err
	}
	defer op.input.Close()
	for {
		r, ok, err := op.input.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		op.rows = append(op.rows, r)
	}

	var sortErr error
	sort.SliceStable(op.rows, func(i, j int) bool {
		for _, key := range op.node.Keys {
			a, err := getValue(op.env, op.rows[i], key.Column)
			if err != nil {
				sortErr = err
				return false
			}
			b, err := getValue(op.env, op.rows[j], key.Column)
			if err != nil {
				sortErr = err
				return false
			}
			ord, ok := value.Compare(a, b)
			if !ok || ord == value.Equal {
				continue
			}
			if key.Ascending {
				return ord == value.Less
			}
			return ord == value.Greater
		}
		return false
	})
	return sortErr
}

func (op *orderByOp) Next() (row, bool, error) {
	if op.pos >= len(op.rows) {
		return row{}, false, nil
	}
	r := op.rows[op.pos]
	op.pos++
	return r, true, nil
}

func (op *orderByOp) Close() error { op.rows = nil; return nil }

// ---- Project ----

type projectOp struct {
	node  *planner.Project
	input operator
	env   *Env
}

func (op *projectOp) Open() error  { return op.input.Open() }
func (op *projectOp) Close() error { return op.input.Close() }

func (op *projectOp) Next() (row, bool, error) {
	r, ok, err := op.input.Next()
	if err != nil || !ok {
		return row{}, false, err
	}
	vals := make([]value.Value, len(op.node.Items))
	for i, item := range op.node.Items {
		if item.Column == nil {
			return row{}, false, fmt.Errorf("%w: plain projection expected, got an aggregate", ErrUnsupported)
		}
		v, err := getValue(op.env, r, *item.Column)
		if err != nil {
			return row{}, false, err
		}
		vals[i] = v
	}
	return row{values: vals}, true, nil
}

// ---- Aggregate ----

type aggregateOp struct {
	node  *planner.Aggregate
	input operator
	env   *Env
	done  bool
}

func (op *aggregateOp) Open() error  { return op.input.Open() }
func (op *aggregateOp) Close() error { return op.input.Close() }

func (op *aggregateOp) Next() (row, bool, error) {
	if op.done {
		return row{}, false, nil
	}
	op.done = true

	accs := make([]aggAccumulator, len(op.node.Items))
	for i, item := range op.node.Items {
		if item.Aggregate != nil {
			accs[i].fn = item.Aggregate.Function
		}
	}
	for {
		r, ok, err := op.input.Next()
		if err != nil {
			return row{}, false, err
		}
		if !ok {
			break
		}
		for i, item := range op.node.Items {
			if item.Aggregate == nil {
				return row{}, false, fmt.Errorf("%w: aggregate projection expected, got a plain column", ErrUnsupported)
			}
			var v value.Value
			if item.Aggregate.Input != nil {
				v, err = getValue(op.env, r, *item.Aggregate.Input)
				if err != nil {
					return row{}, false, err
				}
			}
			if err := accs[i].add(item.Aggregate.Function, v, item.Aggregate.Input != nil); err != nil {
				return row{}, false, err
			}
		}
	}

	vals := make([]value.Value, len(accs))
	for i, a := range accs {
		v, err := a.result()
		if err != nil {
			return row{}, false, err
		}
		vals[i] = v
	}
	return row{values: vals}, true, nil
}

type aggAccumulator struct {
	fn     parser.AggregateFunction
	count  int64
	sum    int64
	hasMin bool
	min    value.Value
	hasMax bool
	max    value.Value
}

func (a *aggAccumulator) add(fn parser.AggregateFunction, v value.Value, hasInput bool) error {
	a.fn = fn
	if fn == parser.AggCount && !hasInput {
		a.count++
		return nil
	}
	if v.IsNull() {
		return nil
	}
	switch fn {
	case parser.AggCount:
		a.count++
	case parser.AggSum, parser.AggAvg:
		if v.Kind() != value.KindInt64 {
			return fmt.Errorf("%w: %s requires a numeric column", value.ErrTypeMismatch, aggregateFuncName(fn))
		}
		a.sum += v.AsInt64()
		a.count++
	case parser.AggMin:
		if !a.hasMin {
			a.min, a.hasMin = v, true
			return nil
		}
		if ord, ok := value.Compare(v, a.min); ok && ord == value.Less {
			a.min = v
		}
	case parser.AggMax:
		if !a.hasMax {
			a.max, a.hasMax = v, true
			return nil
		}
		if ord, ok := value.Compare(v, a.max); ok && ord == value.Greater {
			a.max = v
		}
	}
	return nil
}

func (a *aggAccumulator) result() (value.Value, error) {
	switch a.fn {
	case parser.AggCount:
		return value.Int64(a.count), nil
	case parser.AggSum:
		if a.count == 0 {
			return value.Null(), nil
		}
		return value.Int64(a.sum), nil
	case parser.AggAvg:
		if a.count == 0 {
			return value.Null(), nil
		}
		return value.Int64(a.sum / a.count), nil
	case parser.AggMin:
		if !a.hasMin {
			return value.Null(), nil
		}
		return a.min, nil
	case parser.AggMax:
		if !a.hasMax {
			return value.Null(), nil
		}
		return a.max, nil
	default:
		return value.Null(), nil
	}
}

// ---- SkipLimit ----

type skipLimitOp struct {
	node    *planner.SkipLimit
	input   operator
	skipped int64
	emitted int64
}

func (op *skipLimitOp) Open() error  { return op.input.Open() }
func (op *skipLimitOp) Close() error { return op.input.Close() }

func (op *skipLimitOp) Next() (row, bool, error) {
	skip := int64(0)
	if op.node.Skip != nil {
		skip = *op.node.Skip
	}
	for op.skipped < skip {
		_, ok, err := op.input.Next()
		if err != nil || !ok {
			return row{}, false, err
		}
		op.skipped++
	}
	if op.node.Limit != nil && op.emitted >= *op.node.Limit {
		return row{}, false, nil
	}
	r, ok, err := op.input.Next()
	if err != nil || !ok {
		return row{}, false, err
	}
	op.emitted++
	return r, true, nil
}
