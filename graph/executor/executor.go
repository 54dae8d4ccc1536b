// Package executor runs compiled plans against in-memory columnar
// datasets. Each plan node materializes a relation: an ordered set of
// rows under qualified variable.column names. Execution never mutates
// the supplied tables.
package executor

import (
	"sort"
	"time"

	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/planner"
	"github.com/leiyuou/lance-graph/graph/table"
)

// relation is the intermediate row set flowing between plan nodes.
type relation struct {
	columns []string
	index   map[string]int
	rows    [][]graph.Value
}

func newRelation(columns []string) *relation {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[name] = i
	}
	return &relation{columns: columns, index: index}
}

func (r *relation) columnIndex(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// Execute runs a compiled plan against the supplied datasets and returns
// the result rows under the plan's output column names.
func Execute(plan *planner.Plan, datasets table.Datasets) (*Result, error) {
	rel, err := run(plan.Root, datasets)
	if err != nil {
		return nil, err
	}
	return &Result{columns: plan.OutputColumns, rows: rel.rows}, nil
}

func run(node planner.Node, datasets table.Datasets) (*relation, error) {
	switch n := node.(type) {
	case *planner.Scan:
		return runScan(n, datasets)
	case *planner.Join:
		return runJoin(n, datasets)
	case *planner.Union:
		return runUnion(n, datasets)
	case *planner.Filter:
		return runFilter(n, datasets)
	case *planner.Project:
		return runProject(n, datasets)
	case *planner.Aggregate:
		return runAggregate(n, datasets)
	case *planner.Sort:
		return runSort(n, datasets)
	case *planner.Limit:
		return runLimit(n, datasets)
	}
	return nil, graph.Errorf(graph.ParseError, "unknown plan node %s", node)
}

// runScan materializes a dataset's rows under columns qualified by the
// scan variable.
func runScan(n *planner.Scan, datasets table.Datasets) (*relation, error) {
	tbl, ok := datasets.Resolve(n.Dataset)
	if !ok {
		return nil, graph.Errorf(graph.MissingDataset,
			"no dataset supplied for %q", n.Dataset)
	}
	cols := tbl.Columns()
	qualified := make([]string, len(cols))
	for i, name := range cols {
		qualified[i] = n.Variable + "." + name
	}
	rel := newRelation(qualified)
	rel.rows = make([][]graph.Value, tbl.NumRows())
	for i := 0; i < tbl.NumRows(); i++ {
		rel.rows[i] = tbl.Row(i)
	}
	return rel, nil
}

// runJoin hash-joins the two inputs on their key columns, building on the
// right side and probing the left in order so output order follows left
// row order. Null keys never match. Empty keys mean a cross product.
func runJoin(n *planner.Join, datasets table.Datasets) (*relation, error) {
	left, err := run(n.Left, datasets)
	if err != nil {
		return nil, err
	}
	right, err := run(n.Right, datasets)
	if err != nil {
		return nil, err
	}

	out := newRelation(append(append([]string{}, left.columns...), right.columns...))

	if n.LeftKey == "" {
		for _, lrow := range left.rows {
			for _, rrow := range right.rows {
				out.rows = append(out.rows, concatRows(lrow, rrow))
			}
		}
		return out, nil
	}

	lidx, ok := left.columnIndex(n.LeftKey)
	if !ok {
		return nil, graph.Errorf(graph.ColumnNotFound,
			"join column %q not found", n.LeftKey)
	}
	ridx, ok := right.columnIndex(n.RightKey)
	if !ok {
		return nil, graph.Errorf(graph.ColumnNotFound,
			"join column %q not found", n.RightKey)
	}

	build := make(map[interface{}][]int)
	for i, rrow := range right.rows {
		key, ok := joinKey(rrow[ridx])
		if !ok {
			continue
		}
		build[key] = append(build[key], i)
	}
	for _, lrow := range left.rows {
		key, ok := joinKey(lrow[lidx])
		if !ok {
			continue
		}
		for _, i := range build[key] {
			out.rows = append(out.rows, concatRows(lrow, right.rows[i]))
		}
	}
	return out, nil
}

// joinKey normalizes a value into a comparable hash key so integer and
// float ids match across tables. Null keys produce no key at all.
func joinKey(v graph.Value) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if f, ok := graph.AsFloat(v); ok {
		return f, true
	}
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return t, true
	case time.Time:
		return t.UnixNano(), true
	}
	return graph.FormatValue(v), true
}

func concatRows(a, b []graph.Value) []graph.Value {
	row := make([]graph.Value, 0, len(a)+len(b))
	return append(append(row, a...), b...)
}

// runUnion concatenates both inputs, left rows first, remapping the right
// side to the left's column order.
func runUnion(n *planner.Union, datasets table.Datasets) (*relation, error) {
	left, err := run(n.Left, datasets)
	if err != nil {
		return nil, err
	}
	right, err := run(n.Right, datasets)
	if err != nil {
		return nil, err
	}
	out := newRelation(left.columns)
	out.rows = append(out.rows, left.rows...)

	remap := make([]int, len(left.columns))
	for i, name := range left.columns {
		j, ok := right.columnIndex(name)
		if !ok {
			return nil, graph.Errorf(graph.ColumnNotFound,
				"union branches disagree on column %q", name)
		}
		remap[i] = j
	}
	for _, rrow := range right.rows {
		row := make([]graph.Value, len(remap))
		for i, j := range remap {
			row[i] = rrow[j]
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// runFilter keeps rows whose predicate is true. False and null both drop
// the row.
func runFilter(n *planner.Filter, datasets table.Datasets) (*relation, error) {
	input, err := run(n.Input, datasets)
	if err != nil {
		return nil, err
	}
	out := newRelation(input.columns)
	ctx := &rowContext{rel: input}
	for _, row := range input.rows {
		ctx.row = row
		v, err := evalExpr(n.Predicate, ctx)
		if err != nil {
			return nil, err
		}
		if b, ok := v.(bool); ok && b {
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// runProject evaluates the return items per row, preserving order.
func runProject(n *planner.Project, datasets table.Datasets) (*relation, error) {
	input, err := run(n.Input, datasets)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(n.Items))
	for i, item := range n.Items {
		names[i] = item.Name()
	}
	out := newRelation(names)
	ctx := &rowContext{rel: input}
	for _, row := range input.rows {
		ctx.row = row
		projected := make([]graph.Value, len(n.Items))
		for i, item := range n.Items {
			v, err := evalExpr(item.Expr, ctx)
			if err != nil {
				return nil, err
			}
			projected[i] = v
		}
		out.rows = append(out.rows, projected)
	}
	return out, nil
}

// runSort performs a stable multi-key sort. Nulls sort last on every key
// regardless of direction.
func runSort(n *planner.Sort, datasets table.Datasets) (*relation, error) {
	input, err := run(n.Input, datasets)
	if err != nil {
		return nil, err
	}

	// precompute the key tuple per row so evaluation errors surface
	// before sorting starts
	keys := make([][]graph.Value, len(input.rows))
	ctx := &rowContext{rel: input}
	for ri, row := range input.rows {
		tuple := make([]graph.Value, len(n.Keys))
		for ki, key := range n.Keys {
			if key.Column != "" {
				idx, ok := input.columnIndex(key.Column)
				if !ok {
					return nil, graph.Errorf(graph.ColumnNotFound,
						"sort column %q not found", key.Column)
				}
				tuple[ki] = row[idx]
				continue
			}
			ctx.row = row
			v, err := evalExpr(key.Expr, ctx)
			if err != nil {
				return nil, err
			}
			tuple[ki] = v
		}
		keys[ri] = tuple
	}

	order := make([]int, len(input.rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ta, tb := keys[order[a]], keys[order[b]]
		for ki, key := range n.Keys {
			va, vb := ta[ki], tb[ki]
			if va == nil || vb == nil {
				if va == nil && vb == nil {
					continue
				}
				return vb == nil
			}
			cmp := graph.SortCompare(va, vb)
			if key.Descending {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})

	out := newRelation(input.columns)
	out.rows = make([][]graph.Value, len(order))
	for i, ri := range order {
		out.rows[i] = input.rows[ri]
	}
	return out, nil
}

func runLimit(n *planner.Limit, datasets table.Datasets) (*relation, error) {
	input, err := run(n.Input, datasets)
	if err != nil {
		return nil, err
	}
	if int64(len(input.rows)) > n.N {
		input.rows = input.rows[:n.N]
	}
	return input, nil
}
