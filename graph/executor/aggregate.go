package executor

import (
	"fmt"
	"strings"

	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/ast"
	"github.com/leiyuou/lance-graph/graph/planner"
	"github.com/leiyuou/lance-graph/graph/table"
)

// runAggregate groups the input by the non-aggregate return items and
// computes each aggregate per group. Groups emit in first-appearance
// order. With no group keys every row forms one group; an empty input
// then still yields a single row, zero for count and null elsewhere.
func runAggregate(n *planner.Aggregate, datasets table.Datasets) (*relation, error) {
	input, err := run(n.Input, datasets)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(n.Items))
	for i, item := range n.Items {
		names[i] = item.Name()
	}
	out := newRelation(names)

	groupKeys := n.GroupKeys()
	groups, order, err := groupRows(input, groupKeys)
	if err != nil {
		return nil, err
	}
	if len(groupKeys) == 0 && len(order) == 0 {
		// global aggregate over no matches
		order = append(order, "")
		groups[""] = &group{}
	}

	ctx := &rowContext{rel: input}
	for _, key := range order {
		g := groups[key]
		row := make([]graph.Value, len(n.Items))
		for i, item := range n.Items {
			agg, ok := item.Expr.(*ast.Aggregate)
			if !ok {
				row[i] = g.keyValues[keyIndex(groupKeys, item)]
				continue
			}
			v, err := computeAggregate(agg, g.rows, ctx)
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

type group struct {
	keyValues []graph.Value
	rows      [][]graph.Value
}

// groupRows partitions the input by the evaluated group-key tuple. Null
// keys group together with other null keys only.
func groupRows(input *relation, keys []ast.ReturnItem) (map[string]*group, []string, error) {
	groups := make(map[string]*group)
	var order []string
	ctx := &rowContext{rel: input}
	for _, row := range input.rows {
		ctx.row = row
		values := make([]graph.Value, len(keys))
		for i, key := range keys {
			v, err := evalExpr(key.Expr, ctx)
			if err != nil {
				return nil, nil, err
			}
			values[i] = v
		}
		key := groupKey(values)
		g, ok := groups[key]
		if !ok {
			g = &group{keyValues: values}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, row)
	}
	return groups, order, nil
}

// groupKey encodes a key tuple as a string, tagging each value's kind so
// values of different types never collide. Every fragment is length
// prefixed so tuple boundaries survive arbitrary string contents.
func groupKey(values []graph.Value) string {
	var sb strings.Builder
	for _, v := range values {
		var enc string
		if v == nil {
			enc = "n"
		} else if f, ok := graph.AsFloat(v); ok {
			enc = fmt.Sprintf("f%v", f)
		} else {
			enc = fmt.Sprintf("%T:%s", v, graph.FormatValue(v))
		}
		fmt.Fprintf(&sb, "%d:%s", len(enc), enc)
	}
	return sb.String()
}

func keyIndex(keys []ast.ReturnItem, item ast.ReturnItem) int {
	for i, key := range keys {
		if key.Name() == item.Name() {
			return i
		}
	}
	return 0
}

// computeAggregate evaluates one aggregate over a group's rows. Null
// arguments are skipped; an aggregate over no contributing values is
// null, except count which is zero.
func computeAggregate(agg *ast.Aggregate, rows [][]graph.Value, ctx *rowContext) (graph.Value, error) {
	if agg.Arg == nil {
		// count(*)
		return int64(len(rows)), nil
	}

	var values []graph.Value
	for _, row := range rows {
		ctx.row = row
		v, err := evalExpr(agg.Arg, ctx)
		if err != nil {
			return nil, err
		}
		if v != nil {
			values = append(values, v)
		}
	}

	switch agg.Func {
	case "count":
		return int64(len(values)), nil

	case "sum":
		if len(values) == 0 {
			return nil, nil
		}
		return sumValues(agg, values)

	case "avg":
		if len(values) == 0 {
			return nil, nil
		}
		total := 0.0
		for _, v := range values {
			f, ok := graph.AsFloat(v)
			if !ok {
				return nil, graph.Errorf(graph.TypeMismatch,
					"%s requires numeric values, got %s", agg, graph.FormatValue(v))
			}
			total += f
		}
		return total / float64(len(values)), nil

	case "min", "max":
		if len(values) == 0 {
			return nil, nil
		}
		best := values[0]
		for _, v := range values[1:] {
			cmp, err := graph.Compare(v, best)
			if err != nil {
				return nil, err
			}
			if (agg.Func == "min" && cmp < 0) || (agg.Func == "max" && cmp > 0) {
				best = v
			}
		}
		return best, nil
	}
	return nil, graph.Errorf(graph.UnsupportedAggregate,
		"unsupported aggregate function %q", agg.Func)
}

// sumValues adds numeric values, staying integer while every contributing
// value is an integer.
func sumValues(agg *ast.Aggregate, values []graph.Value) (graph.Value, error) {
	allInt := true
	for _, v := range values {
		if _, ok := v.(int64); !ok {
			allInt = false
			break
		}
	}
	if allInt {
		var total int64
		for _, v := range values {
			total += v.(int64)
		}
		return total, nil
	}
	var total float64
	for _, v := range values {
		f, ok := graph.AsFloat(v)
		if !ok {
			return nil, graph.Errorf(graph.TypeMismatch,
				"%s requires numeric values, got %s", agg, graph.FormatValue(v))
		}
		total += f
	}
	return total, nil
}
