package parser

import (
	"time"

	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/ast"
)

// SubstituteParameters replaces every $name placeholder in the query with
// the literal value supplied for it. The query is rewritten in place. A
// placeholder with no supplied value is an error, as is a parameter value
// outside the scalar value model.
func SubstituteParameters(q *ast.Query, params map[string]graph.Value) error {
	for pi := range q.Match {
		for ni := range q.Match[pi].Nodes {
			node := &q.Match[pi].Nodes[ni]
			for i, prop := range node.Properties {
				expr, err := substituteExpr(prop.Value, params)
				if err != nil {
					return err
				}
				node.Properties[i].Value = expr
			}
		}
	}

	if q.Where != nil {
		expr, err := substituteExpr(q.Where, params)
		if err != nil {
			return err
		}
		q.Where = expr
	}

	for i := range q.Return {
		expr, err := substituteExpr(q.Return[i].Expr, params)
		if err != nil {
			return err
		}
		q.Return[i].Expr = expr
	}

	for i := range q.OrderBy {
		expr, err := substituteExpr(q.OrderBy[i].Expr, params)
		if err != nil {
			return err
		}
		q.OrderBy[i].Expr = expr
	}

	return nil
}

// substituteExpr walks an expression tree replacing Parameter nodes
func substituteExpr(e ast.Expression, params map[string]graph.Value) (ast.Expression, error) {
	switch expr := e.(type) {
	case *ast.Parameter:
		value, ok := params[expr.Name]
		if !ok {
			return nil, graph.Errorf(graph.ParseError, "missing parameter $%s", expr.Name)
		}
		lit, err := parameterLiteral(expr.Name, value)
		if err != nil {
			return nil, err
		}
		return lit, nil

	case *ast.Comparison:
		if err := substitutePair(&expr.Left, &expr.Right, params); err != nil {
			return nil, err
		}
	case *ast.Boolean:
		if err := substitutePair(&expr.Left, &expr.Right, params); err != nil {
			return nil, err
		}
	case *ast.Arithmetic:
		if err := substitutePair(&expr.Left, &expr.Right, params); err != nil {
			return nil, err
		}
	case *ast.StringMatch:
		if err := substitutePair(&expr.Left, &expr.Right, params); err != nil {
			return nil, err
		}
	case *ast.Not:
		inner, err := substituteExpr(expr.Expr, params)
		if err != nil {
			return nil, err
		}
		expr.Expr = inner
	case *ast.Aggregate:
		if expr.Arg != nil {
			arg, err := substituteExpr(expr.Arg, params)
			if err != nil {
				return nil, err
			}
			expr.Arg = arg
		}
	}
	return e, nil
}

func substitutePair(left, right *ast.Expression, params map[string]graph.Value) error {
	l, err := substituteExpr(*left, params)
	if err != nil {
		return err
	}
	r, err := substituteExpr(*right, params)
	if err != nil {
		return err
	}
	*left = l
	*right = r
	return nil
}

// parameterLiteral validates a parameter value against the scalar value
// model and widens Go integer types to int64.
func parameterLiteral(name string, value graph.Value) (*ast.Literal, error) {
	switch v := value.(type) {
	case nil:
		return &ast.Literal{Value: nil}, nil
	case string, int64, float64, bool, time.Time:
		return &ast.Literal{Value: v}, nil
	case int:
		return &ast.Literal{Value: int64(v)}, nil
	case int32:
		return &ast.Literal{Value: int64(v)}, nil
	case float32:
		return &ast.Literal{Value: float64(v)}, nil
	}
	return nil, graph.Errorf(graph.TypeMismatch,
		"parameter $%s has unsupported type %T", name, value)
}
