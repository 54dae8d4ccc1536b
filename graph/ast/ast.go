// Package ast defines the Cypher-subset abstract syntax tree consumed by
// the pattern compiler. The parser produces it; the planner and executor
// only ever see these types, never query text.
package ast

import (
	"fmt"
	"strings"

	"github.com/leiyuou/lance-graph/graph"
)

// Direction of a relationship pattern between two node patterns.
type Direction uint8

const (
	DirectionOutgoing Direction = iota // (a)-[r]->(b)
	DirectionIncoming                  // (a)<-[r]-(b)
	DirectionEither                    // (a)-[r]-(b)
)

// String returns the arrow form of the direction
func (d Direction) String() string {
	switch d {
	case DirectionOutgoing:
		return "->"
	case DirectionIncoming:
		return "<-"
	default:
		return "--"
	}
}

// NodePattern is one (variable:Label {prop: value}) element of a MATCH path.
// Label may be empty; Properties holds inline equality predicates.
type NodePattern struct {
	Variable   string
	Label      string
	Properties []PropertyPredicate
}

// PropertyPredicate is one inline {key: value} entry of a node pattern.
type PropertyPredicate struct {
	Key   string
	Value Expression // Literal or Parameter
}

// RelationshipPattern is one -[variable:TYPE]- element connecting two nodes.
type RelationshipPattern struct {
	Variable  string
	Type      string
	Direction Direction
}

// PathPattern is a linear chain of node patterns joined by relationships.
// len(Nodes) == len(Relationships)+1.
type PathPattern struct {
	Nodes         []NodePattern
	Relationships []RelationshipPattern
}

// ReturnItem is one projected expression with an optional alias.
type ReturnItem struct {
	Expr  Expression
	Alias string
}

// Name returns the output column name: the alias when given, otherwise the
// canonical expression text.
func (r ReturnItem) Name() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Expr.String()
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Expr       Expression
	Descending bool
}

// Query is a parsed MATCH query.
type Query struct {
	Match   []PathPattern
	Where   Expression // nil when absent
	Return  []ReturnItem
	OrderBy []OrderItem
	Limit   *int64
}

// Expression is a scalar or aggregate expression tree node.
type Expression interface {
	// String returns the canonical textual form, used for default result
	// column names.
	String() string
	// Variables returns every query variable the expression references.
	Variables() []string
}

// Literal is a constant value.
type Literal struct {
	Value graph.Value
}

func (l *Literal) String() string {
	if s, ok := l.Value.(string); ok {
		return fmt.Sprintf("'%s'", s)
	}
	return graph.FormatValue(l.Value)
}

func (l *Literal) Variables() []string { return nil }

// Parameter is a $name placeholder, replaced before planning.
type Parameter struct {
	Name string
}

func (p *Parameter) String() string      { return "$" + p.Name }
func (p *Parameter) Variables() []string { return nil }

// Property is a variable.property access.
type Property struct {
	Variable string
	Name     string
}

func (p *Property) String() string      { return p.Variable + "." + p.Name }
func (p *Property) Variables() []string { return []string{p.Variable} }

// ComparisonOp enumerates the comparison operators.
type ComparisonOp uint8

const (
	OpEq ComparisonOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op ComparisonOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	default:
		return ">="
	}
}

// Comparison is a binary comparison.
type Comparison struct {
	Op    ComparisonOp
	Left  Expression
	Right Expression
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

func (c *Comparison) Variables() []string {
	return mergeVars(c.Left.Variables(), c.Right.Variables())
}

// BooleanOp enumerates AND and OR.
type BooleanOp uint8

const (
	OpAnd BooleanOp = iota
	OpOr
)

func (op BooleanOp) String() string {
	if op == OpAnd {
		return "AND"
	}
	return "OR"
}

// Boolean is an AND/OR combination of two predicates.
type Boolean struct {
	Op    BooleanOp
	Left  Expression
	Right Expression
}

func (b *Boolean) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

func (b *Boolean) Variables() []string {
	return mergeVars(b.Left.Variables(), b.Right.Variables())
}

// Not negates a predicate.
type Not struct {
	Expr Expression
}

func (n *Not) String() string      { return "NOT " + n.Expr.String() }
func (n *Not) Variables() []string { return n.Expr.Variables() }

// ArithmeticOp enumerates + - * /.
type ArithmeticOp uint8

const (
	OpAdd ArithmeticOp = iota
	OpSub
	OpMul
	OpDiv
)

func (op ArithmeticOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	default:
		return "/"
	}
}

// Arithmetic is a binary arithmetic expression.
type Arithmetic struct {
	Op    ArithmeticOp
	Left  Expression
	Right Expression
}

func (a *Arithmetic) String() string {
	return fmt.Sprintf("%s %s %s", a.Left, a.Op, a.Right)
}

func (a *Arithmetic) Variables() []string {
	return mergeVars(a.Left.Variables(), a.Right.Variables())
}

// StringMatchKind enumerates the string containment predicates.
type StringMatchKind uint8

const (
	MatchContains StringMatchKind = iota
	MatchStartsWith
	MatchEndsWith
)

func (k StringMatchKind) String() string {
	switch k {
	case MatchContains:
		return "CONTAINS"
	case MatchStartsWith:
		return "STARTS WITH"
	default:
		return "ENDS WITH"
	}
}

// StringMatch is a CONTAINS / STARTS WITH / ENDS WITH predicate.
type StringMatch struct {
	Kind  StringMatchKind
	Left  Expression
	Right Expression
}

func (s *StringMatch) String() string {
	return fmt.Sprintf("%s %s %s", s.Left, s.Kind, s.Right)
}

func (s *StringMatch) Variables() []string {
	return mergeVars(s.Left.Variables(), s.Right.Variables())
}

// Aggregate is an aggregate function call. Arg is nil for count(*).
type Aggregate struct {
	Func string // normalized lowercase: count, sum, avg, min, max
	Arg  Expression
}

func (a *Aggregate) String() string {
	if a.Arg == nil {
		return a.Func + "(*)"
	}
	return fmt.Sprintf("%s(%s)", a.Func, a.Arg)
}

func (a *Aggregate) Variables() []string {
	if a.Arg == nil {
		return nil
	}
	return a.Arg.Variables()
}

// HasAggregate reports whether the expression tree contains an aggregate.
func HasAggregate(e Expression) bool {
	switch expr := e.(type) {
	case *Aggregate:
		return true
	case *Comparison:
		return HasAggregate(expr.Left) || HasAggregate(expr.Right)
	case *Boolean:
		return HasAggregate(expr.Left) || HasAggregate(expr.Right)
	case *Not:
		return HasAggregate(expr.Expr)
	case *Arithmetic:
		return HasAggregate(expr.Left) || HasAggregate(expr.Right)
	case *StringMatch:
		return HasAggregate(expr.Left) || HasAggregate(expr.Right)
	}
	return false
}

// mergeVars unions two variable lists preserving first-seen order
func mergeVars(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, v := range a {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// FormatQuery renders a query back to a single-line canonical text, mainly
// for logging and plan dumps.
func FormatQuery(q *Query) string {
	var sb strings.Builder
	sb.WriteString("MATCH ")
	for i, path := range q.Match {
		if i > 0 {
			sb.WriteString(", ")
		}
		formatPath(&sb, path)
	}
	if q.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(q.Where.String())
	}
	sb.WriteString(" RETURN ")
	for i, item := range q.Return {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(item.Expr.String())
		if item.Alias != "" {
			sb.WriteString(" AS ")
			sb.WriteString(item.Alias)
		}
	}
	if len(q.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, item := range q.OrderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(item.Expr.String())
			if item.Descending {
				sb.WriteString(" DESC")
			}
		}
	}
	if q.Limit != nil {
		fmt.Fprintf(&sb, " LIMIT %d", *q.Limit)
	}
	return sb.String()
}

func formatPath(sb *strings.Builder, path PathPattern) {
	for i, node := range path.Nodes {
		if i > 0 {
			rel := path.Relationships[i-1]
			switch rel.Direction {
			case DirectionOutgoing:
				fmt.Fprintf(sb, "-[%s]->", relText(rel))
			case DirectionIncoming:
				fmt.Fprintf(sb, "<-[%s]-", relText(rel))
			default:
				fmt.Fprintf(sb, "-[%s]-", relText(rel))
			}
		}
		sb.WriteString("(")
		sb.WriteString(node.Variable)
		if node.Label != "" {
			sb.WriteString(":")
			sb.WriteString(node.Label)
		}
		sb.WriteString(")")
	}
}

func relText(rel RelationshipPattern) string {
	text := rel.Variable
	if rel.Type != "" {
		text += ":" + rel.Type
	}
	return text
}
