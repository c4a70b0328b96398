package planner

import (
	"fmt"

	"github.com/tuannm99/graphdb/internal/binder"
	"github.com/tuannm99/graphdb/internal/catalog"
	"github.com/tuannm99/graphdb/internal/parser"
	"github.com/tuannm99/graphdb/internal/value"
)

// OutputSchema for NodeScan prefixes every column of its table with
// the pattern variable, e.g. Person(id, name) scanned as "p" reports
// p.id, p.name.
func (n *NodeScan) OutputSchema(cat *catalog.Catalog) ([]catalog.ColumnDef, error) {
	schema, ok := cat.GetNodeTable(n.TableName)
	if !ok {
		return nil, fmt.Errorf("planner: unknown table %s", n.TableName)
	}
	out := make([]catalog.ColumnDef, len(schema.Columns))
	for i, c := range schema.Columns {
		out[i] = catalog.ColumnDef{Name: n.Var + "." + c.Name, Type: c.Type}
	}
	return out, nil
}

// OutputSchema for Expand extends its input's schema with the
// relationship's property columns (only on the hop that binds
// RelVar) and the destination table's columns (only on the hop that
// binds DstVar), matching which columns are actually live on an
// Expand operator's output row.
func (n *Expand) OutputSchema(cat *catalog.Catalog) ([]catalog.ColumnDef, error) {
	out, err := n.Input.OutputSchema(cat)
	if err != nil {
		return nil, err
	}
	if n.BindRelVar {
		relSchema, ok := cat.GetRelTable(n.RelTable)
		if !ok {
			return nil, fmt.Errorf("planner: unknown relationship table %s", n.RelTable)
		}
		for _, c := range relSchema.Columns {
			out = append(out, catalog.ColumnDef{Name: n.RelVar + "." + c.Name, Type: c.Type})
		}
	}
	if n.DstVar != "" {
		dstSchema, ok := cat.GetNodeTable(n.DstTableName)
		if !ok {
			return nil, fmt.Errorf("planner: unknown table %s", n.DstTableName)
		}
		for _, c := range dstSchema.Columns {
			out = append(out, catalog.ColumnDef{Name: n.DstVar + "." + c.Name, Type: c.Type})
		}
	}
	return out, nil
}

// OutputSchema for Union reports its first alternative's schema: a
// Union only ever joins alternatives built from the same hop pattern,
// so every alternative already shares the same shape.
func (n *Union) OutputSchema(cat *catalog.Catalog) ([]catalog.ColumnDef, error) {
	if len(n.Inputs) == 0 {
		return nil, nil
	}
	return n.Inputs[0].OutputSchema(cat)
}

// OutputSchema for Filter reports exactly its child's schema: a
// filter never adds, removes, or renames columns.
func (n *Filter) OutputSchema(cat *catalog.Catalog) ([]catalog.ColumnDef, error) {
	return n.Input.OutputSchema(cat)
}

// OutputSchema for Project reports the declared RETURN-list shape:
// one column per item, named and typed from its bound reference.
func (n *Project) OutputSchema(cat *catalog.Catalog) ([]catalog.ColumnDef, error) {
	out := make([]catalog.ColumnDef, len(n.Items))
	for i, it := range n.Items {
		out[i] = returnItemSchema(it)
	}
	return out, nil
}

// OutputSchema for Aggregate reports the declared RETURN-list shape,
// same as Project: one column per aggregate/plain item.
func (n *Aggregate) OutputSchema(cat *catalog.Catalog) ([]catalog.ColumnDef, error) {
	out := make([]catalog.ColumnDef, len(n.Items))
	for i, it := range n.Items {
		out[i] = returnItemSchema(it)
	}
	return out, nil
}

// OutputSchema for OrderBy reports exactly its child's schema:
// sorting never changes a row's columns.
func (n *OrderBy) OutputSchema(cat *catalog.Catalog) ([]catalog.ColumnDef, error) {
	return n.Input.OutputSchema(cat)
}

// OutputSchema for SkipLimit reports exactly its child's schema:
// skipping/limiting never changes a row's columns.
func (n *SkipLimit) OutputSchema(cat *catalog.Catalog) ([]catalog.ColumnDef, error) {
	return n.Input.OutputSchema(cat)
}

// OutputSchema for Empty reports the schema it was constructed with.
func (n *Empty) OutputSchema(cat *catalog.Catalog) ([]catalog.ColumnDef, error) {
	return n.Schema, nil
}

func returnItemSchema(it binder.BoundReturnItem) catalog.ColumnDef {
	if it.Column != nil {
		return catalog.ColumnDef{Name: it.Column.Var + "." + it.Column.Property, Type: it.Column.Type}
	}
	return catalog.ColumnDef{Name: aggregateItemName(it.Aggregate), Type: aggregateItemType(it.Aggregate)}
}

func aggregateItemName(agg *binder.BoundAggregate) string {
	fn := aggregateFuncName(agg.Function)
	if agg.Input == nil {
		return fn + "(*)"
	}
	return fmt.Sprintf("%s(%s.%s)", fn, agg.Input.Var, agg.Input.Property)
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

// aggregateItemType reports the declared output type of an aggregate:
// COUNT is always Int64; MIN/MAX pass through their input column's
// type; SUM/AVG only ever accept numeric input, so Int64.
func aggregateItemType(agg *binder.BoundAggregate) value.Kind {
	switch agg.Function {
	case parser.AggMin, parser.AggMax:
		if agg.Input != nil {
			return agg.Input.Type
		}
		return value.KindInt64
	default:
		return value.KindInt64
	}
}
