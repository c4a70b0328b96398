package executor

import (
	"fmt"
	"strings"

	"github.com/tuannm99/graphdb/internal/planner"
)

// explainText renders p as an indented plan tree, one line per node,
// children indented two spaces under their parent.
func explainText(p planner.Plan, indent int) []string {
	switch plan := p.(type) {
	case *planner.CreateNodeTablePlan:
		return []string{line(indent, "CreateNodeTable %s", plan.TableName)}
	case *planner.CreateRelTablePlan:
		return []string{line(indent, "CreateRelTable %s (%s -> %s)", plan.TableName, plan.SrcTable, plan.DstTable)}
	case *planner.CreateNodePlan:
		return []string{line(indent, "CreateNode %s", plan.TableName)}
	case *planner.CreateRelPlan:
		return []string{line(indent, "CreateRel %s (%s -> %s)", plan.RelTable, plan.SrcTable, plan.DstTable)}
	case *planner.CopyPlan:
		return []string{line(indent, "Copy %s <- %s", plan.TableName, plan.FilePath)}
	case *planner.ExplainPlan:
		return explainText(plan.Inner, indent)
	case *planner.QueryPlan:
		return explainLogical(plan.Root, indent)
	default:
		return []string{line(indent, "%T", p)}
	}
}

func explainLogical(n planner.LogicalNode, indent int) []string {
	switch node := n.(type) {
	case *planner.NodeScan:
		return []string{line(indent, "NodeScan %s:%s", node.Var, node.TableName)}
	case *planner.Expand:
		out := []string{line(indent, "Expand via %s -> %s", node.RelTable, node.DstTableName)}
		out = append(out, explainLogical(node.Input, indent+1)...)
		return out
	case *planner.Union:
		out := []string{line(indent, "Union")}
		for _, in := range node.Inputs {
			out = append(out, explainLogical(in, indent+1)...)
		}
		return out
	case *planner.Filter:
		out := []string{line(indent, "Filter %s.%s", node.Column.Var, node.Column.Property)}
		out = append(out, explainLogical(node.Input, indent+1)...)
		return out
	case *planner.Project:
		out := []string{line(indent, "Project")}
		out = append(out, explainLogical(node.Input, indent+1)...)
		return out
	case *planner.Aggregate:
		out := []string{line(indent, "Aggregate")}
		out = append(out, explainLogical(node.Input, indent+1)...)
		return out
	case *planner.OrderBy:
		out := []string{line(indent, "OrderBy")}
		out = append(out, explainLogical(node.Input, indent+1)...)
		return out
	case *planner.SkipLimit:
		out := []string{line(indent, "SkipLimit")}
		out = append(out, explainLogical(node.Input, indent+1)...)
		return out
	case *planner.Empty:
		return []string{line(indent, "Empty")}
	default:
		return []string{line(indent, "%T", n)}
	}
}

func line(indent int, format string, args ...any) string {
	return strings.Repeat("  ", indent) + fmt.Sprintf(format, args...)
}
