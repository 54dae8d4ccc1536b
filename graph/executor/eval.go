package executor

import (
	"strings"

	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/ast"
)

// rowContext exposes one relation row to expression evaluation. Property
// accesses resolve through the relation's qualified column index.
type rowContext struct {
	rel *relation
	row []graph.Value
}

// evalExpr evaluates a scalar expression against one row. Null operands
// propagate through comparisons and arithmetic; boolean combinations use
// three-valued logic.
func evalExpr(e ast.Expression, ctx *rowContext) (graph.Value, error) {
	switch expr := e.(type) {
	case *ast.Literal:
		return expr.Value, nil

	case *ast.Parameter:
		return nil, graph.Errorf(graph.ParseError,
			"unsubstituted parameter $%s", expr.Name)

	case *ast.Property:
		idx, ok := ctx.rel.columnIndex(expr.Variable + "." + expr.Name)
		if !ok {
			return nil, graph.Errorf(graph.ColumnNotFound,
				"column %q not found for variable %q", expr.Name, expr.Variable)
		}
		return ctx.row[idx], nil

	case *ast.Comparison:
		return evalComparison(expr, ctx)

	case *ast.Boolean:
		return evalBoolean(expr, ctx)

	case *ast.Not:
		v, err := evalExpr(expr.Expr, ctx)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		b, ok := v.(bool)
		if !ok {
			return nil, graph.Errorf(graph.TypeMismatch,
				"NOT requires a boolean, got %s", graph.FormatValue(v))
		}
		return !b, nil

	case *ast.Arithmetic:
		return evalArithmetic(expr, ctx)

	case *ast.StringMatch:
		return evalStringMatch(expr, ctx)

	case *ast.Aggregate:
		return nil, graph.Errorf(graph.UnsupportedAggregate,
			"aggregate %s outside an aggregation context", expr)
	}
	return nil, graph.Errorf(graph.ParseError, "unknown expression %s", e)
}

func evalComparison(expr *ast.Comparison, ctx *rowContext) (graph.Value, error) {
	left, err := evalExpr(expr.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(expr.Right, ctx)
	if err != nil {
		return nil, err
	}
	if left == nil || right == nil {
		return nil, nil
	}
	cmp, err := graph.Compare(left, right)
	if err != nil {
		return nil, err
	}
	switch expr.Op {
	case ast.OpEq:
		return cmp == 0, nil
	case ast.OpNe:
		return cmp != 0, nil
	case ast.OpLt:
		return cmp < 0, nil
	case ast.OpLe:
		return cmp <= 0, nil
	case ast.OpGt:
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

// evalBoolean combines two predicates with three-valued AND/OR. Both
// sides are evaluated so errors surface deterministically.
func evalBoolean(expr *ast.Boolean, ctx *rowContext) (graph.Value, error) {
	left, err := evalTruth(expr.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := evalTruth(expr.Right, ctx)
	if err != nil {
		return nil, err
	}
	if expr.Op == ast.OpAnd {
		if left == truthFalse || right == truthFalse {
			return false, nil
		}
		if left == truthNull || right == truthNull {
			return nil, nil
		}
		return true, nil
	}
	if left == truthTrue || right == truthTrue {
		return true, nil
	}
	if left == truthNull || right == truthNull {
		return nil, nil
	}
	return false, nil
}

type truth uint8

const (
	truthFalse truth = iota
	truthTrue
	truthNull
)

func evalTruth(e ast.Expression, ctx *rowContext) (truth, error) {
	v, err := evalExpr(e, ctx)
	if err != nil {
		return truthNull, err
	}
	if v == nil {
		return truthNull, nil
	}
	b, ok := v.(bool)
	if !ok {
		return truthNull, graph.Errorf(graph.TypeMismatch,
			"predicate requires a boolean, got %s", graph.FormatValue(v))
	}
	if b {
		return truthTrue, nil
	}
	return truthFalse, nil
}

func evalArithmetic(expr *ast.Arithmetic, ctx *rowContext) (graph.Value, error) {
	left, err := evalExpr(expr.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(expr.Right, ctx)
	if err != nil {
		return nil, err
	}
	if left == nil || right == nil {
		return nil, nil
	}

	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		if ok && expr.Op == ast.OpAdd {
			return ls + rs, nil
		}
		return nil, graph.Errorf(graph.TypeMismatch,
			"cannot apply %s to %s and %s", expr.Op, graph.FormatValue(left), graph.FormatValue(right))
	}

	li, lInt := left.(int64)
	ri, rInt := right.(int64)
	if lInt && rInt {
		switch expr.Op {
		case ast.OpAdd:
			return li + ri, nil
		case ast.OpSub:
			return li - ri, nil
		case ast.OpMul:
			return li * ri, nil
		default:
			if ri == 0 {
				return nil, graph.Errorf(graph.TypeMismatch, "division by zero")
			}
			return li / ri, nil
		}
	}

	lf, lok := graph.AsFloat(left)
	rf, rok := graph.AsFloat(right)
	if !lok || !rok {
		return nil, graph.Errorf(graph.TypeMismatch,
			"cannot apply %s to %s and %s", expr.Op, graph.FormatValue(left), graph.FormatValue(right))
	}
	switch expr.Op {
	case ast.OpAdd:
		return lf + rf, nil
	case ast.OpSub:
		return lf - rf, nil
	case ast.OpMul:
		return lf * rf, nil
	default:
		return lf / rf, nil
	}
}

func evalStringMatch(expr *ast.StringMatch, ctx *rowContext) (graph.Value, error) {
	left, err := evalExpr(expr.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(expr.Right, ctx)
	if err != nil {
		return nil, err
	}
	if left == nil || right == nil {
		return nil, nil
	}
	ls, lok := left.(string)
	rs, rok := right.(string)
	if !lok || !rok {
		return nil, graph.Errorf(graph.TypeMismatch,
			"%s requires strings, got %s and %s", expr.Kind, graph.FormatValue(left), graph.FormatValue(right))
	}
	switch expr.Kind {
	case ast.MatchContains:
		return strings.Contains(ls, rs), nil
	case ast.MatchStartsWith:
		return strings.HasPrefix(ls, rs), nil
	default:
		return strings.HasSuffix(ls, rs), nil
	}
}
