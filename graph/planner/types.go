// Package planner compiles a parsed MATCH query plus a schema catalog into
// an explicit execution plan. The plan is data, not control flow: a chain
// of tagged node structs the executor walks, inspectable on its own for
// testing the compiler separately from execution.
package planner

import (
	"fmt"
	"strings"

	"github.com/leiyuou/lance-graph/graph/ast"
	"github.com/leiyuou/lance-graph/graph/catalog"
)

// Node is one step of a compiled plan. Every node except Scan has exactly
// one or two inputs; the plan is a DAG that is almost always a chain.
type Node interface {
	// Inputs returns the child plan nodes in evaluation order.
	Inputs() []Node
	// String returns a one-line description used in plan dumps.
	String() string
}

// Plan is a compiled, immutable execution plan.
type Plan struct {
	Root Node
	// OutputColumns are the result column names in RETURN order.
	OutputColumns []string
}

// Scan reads the table bound to a node or relationship variable. The
// output columns are the table's columns qualified as variable.column;
// they are only known once a dataset is supplied, which keeps compilation
// dataset-independent.
type Scan struct {
	Variable string
	Dataset  string // dataset name to resolve at execution time
	Label    string // normalized label or relationship type, for display
}

func (s *Scan) Inputs() []Node { return nil }

func (s *Scan) String() string {
	return fmt.Sprintf("Scan(%s:%s table=%s)", s.Variable, s.Label, s.Dataset)
}

// Join is an inner equality join of two inputs on one qualified key column
// from each side. Empty key columns mean a cross product (disjoint
// patterns in one MATCH).
type Join struct {
	Left     Node
	Right    Node
	LeftKey  string // qualified column, e.g. "p.person_id"
	RightKey string
}

func (j *Join) Inputs() []Node { return []Node{j.Left, j.Right} }

func (j *Join) String() string {
	if j.LeftKey == "" {
		return "Join(cross)"
	}
	return fmt.Sprintf("Join(%s = %s)", j.LeftKey, j.RightKey)
}

// Union concatenates the rows of two inputs with identical column sets.
// The compiler emits it for undirected relationship patterns: the
// outgoing orientation first, then the incoming one.
type Union struct {
	Left  Node
	Right Node
}

func (u *Union) Inputs() []Node { return []Node{u.Left, u.Right} }

func (u *Union) String() string { return "Union" }

// Filter keeps rows whose predicate evaluates to true. Null and false both
// drop the row.
type Filter struct {
	Input     Node
	Predicate ast.Expression
}

func (f *Filter) Inputs() []Node { return []Node{f.Input} }

func (f *Filter) String() string {
	return fmt.Sprintf("Filter(%s)", f.Predicate)
}

// Project evaluates the RETURN expressions per row and names the output
// columns.
type Project struct {
	Input Node
	Items []ast.ReturnItem
}

func (p *Project) Inputs() []Node { return []Node{p.Input} }

func (p *Project) String() string {
	names := make([]string, len(p.Items))
	for i, item := range p.Items {
		names[i] = item.Name()
	}
	return fmt.Sprintf("Project(%s)", strings.Join(names, ", "))
}

// Aggregate groups rows by the non-aggregate RETURN items and computes the
// aggregate items per group. Items preserves RETURN order so output
// columns come out in query order.
type Aggregate struct {
	Input Node
	Items []ast.ReturnItem
}

func (a *Aggregate) Inputs() []Node { return []Node{a.Input} }

func (a *Aggregate) String() string {
	names := make([]string, len(a.Items))
	for i, item := range a.Items {
		names[i] = item.Expr.String()
	}
	return fmt.Sprintf("Aggregate(%s)", strings.Join(names, ", "))
}

// GroupKeys returns the non-aggregate items, the implicit group-by keys.
func (a *Aggregate) GroupKeys() []ast.ReturnItem {
	var keys []ast.ReturnItem
	for _, item := range a.Items {
		if !ast.HasAggregate(item.Expr) {
			keys = append(keys, item)
		}
	}
	return keys
}

// SortKey is one ORDER BY key. Column is set when the key resolves to a
// projected output column; otherwise Expr is evaluated against the
// pre-projection row context.
type SortKey struct {
	Column     string
	Expr       ast.Expression
	Descending bool
}

func (k SortKey) String() string {
	text := k.Column
	if text == "" {
		text = k.Expr.String()
	}
	if k.Descending {
		text += " DESC"
	}
	return text
}

// Sort performs a stable multi-key sort, nulls last on every key.
type Sort struct {
	Input Node
	Keys  []SortKey
}

func (s *Sort) Inputs() []Node { return []Node{s.Input} }

func (s *Sort) String() string {
	keys := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		keys[i] = k.String()
	}
	return fmt.Sprintf("Sort(%s)", strings.Join(keys, ", "))
}

// Limit truncates to the first N rows.
type Limit struct {
	Input Node
	N     int64
}

func (l *Limit) Inputs() []Node { return []Node{l.Input} }

func (l *Limit) String() string { return fmt.Sprintf("Limit(%d)", l.N) }

// Explain renders the plan as an indented tree, root last input first,
// for debugging and compiler tests.
func (p *Plan) Explain() string {
	var sb strings.Builder
	explainNode(&sb, p.Root, 0)
	return sb.String()
}

func explainNode(sb *strings.Builder, node Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(node.String())
	sb.WriteString("\n")
	for _, input := range node.Inputs() {
		explainNode(sb, input, depth+1)
	}
}

// binding records how a query variable resolves during compilation.
type binding struct {
	idColumn string              // qualified id column, e.g. "p.person_id"
	node     catalog.NodeBinding // zero for relationship variables
	isNode   bool
}
