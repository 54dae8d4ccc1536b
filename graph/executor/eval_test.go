package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/ast"
)

func evalContext() *rowContext {
	rel := newRelation([]string{"p.name", "p.age", "p.score"})
	return &rowContext{
		rel: rel,
		row: []graph.Value{"Alice", int64(28), nil},
	}
}

func prop(variable, name string) ast.Expression {
	return &ast.Property{Variable: variable, Name: name}
}

func lit(v graph.Value) ast.Expression {
	return &ast.Literal{Value: v}
}

func TestEvalPropertyAccess(t *testing.T) {
	ctx := evalContext()
	v, err := evalExpr(prop("p", "name"), ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", v)
}

func TestEvalMissingColumn(t *testing.T) {
	ctx := evalContext()
	_, err := evalExpr(prop("p", "salary"), ctx)
	kind, ok := graph.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, graph.ColumnNotFound, kind)
}

func TestEvalComparisonNullPropagation(t *testing.T) {
	ctx := evalContext()
	v, err := evalExpr(&ast.Comparison{
		Op:    ast.OpGt,
		Left:  prop("p", "score"),
		Right: lit(int64(10)),
	}, ctx)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEvalNumericPromotion(t *testing.T) {
	ctx := evalContext()
	v, err := evalExpr(&ast.Comparison{
		Op:    ast.OpEq,
		Left:  prop("p", "age"),
		Right: lit(28.0),
	}, ctx)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestEvalBooleanTruthTable(t *testing.T) {
	ctx := evalContext()
	null := &ast.Comparison{Op: ast.OpEq, Left: prop("p", "score"), Right: lit(int64(1))}

	cases := []struct {
		name string
		expr ast.Expression
		want graph.Value
	}{
		{"true AND null", &ast.Boolean{Op: ast.OpAnd, Left: lit(true), Right: null}, nil},
		{"false AND null", &ast.Boolean{Op: ast.OpAnd, Left: lit(false), Right: null}, false},
		{"true OR null", &ast.Boolean{Op: ast.OpOr, Left: lit(true), Right: null}, true},
		{"false OR null", &ast.Boolean{Op: ast.OpOr, Left: lit(false), Right: null}, nil},
		{"NOT null", &ast.Not{Expr: null}, nil},
		{"NOT true", &ast.Not{Expr: lit(true)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := evalExpr(tc.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestEvalArithmetic(t *testing.T) {
	ctx := evalContext()
	cases := []struct {
		name string
		expr ast.Expression
		want graph.Value
	}{
		{"int add", &ast.Arithmetic{Op: ast.OpAdd, Left: prop("p", "age"), Right: lit(int64(2))}, int64(30)},
		{"int div", &ast.Arithmetic{Op: ast.OpDiv, Left: prop("p", "age"), Right: lit(int64(4))}, int64(7)},
		{"mixed mul", &ast.Arithmetic{Op: ast.OpMul, Left: prop("p", "age"), Right: lit(0.5)}, 14.0},
		{"string concat", &ast.Arithmetic{Op: ast.OpAdd, Left: prop("p", "name"), Right: lit("!")}, "Alice!"},
		{"null propagates", &ast.Arithmetic{Op: ast.OpAdd, Left: prop("p", "score"), Right: lit(int64(1))}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := evalExpr(tc.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestEvalIntegerDivisionByZero(t *testing.T) {
	ctx := evalContext()
	_, err := evalExpr(&ast.Arithmetic{
		Op:    ast.OpDiv,
		Left:  prop("p", "age"),
		Right: lit(int64(0)),
	}, ctx)
	require.Error(t, err)
}

func TestEvalArithmeticTypeMismatch(t *testing.T) {
	ctx := evalContext()
	_, err := evalExpr(&ast.Arithmetic{
		Op:    ast.OpSub,
		Left:  prop("p", "name"),
		Right: lit(int64(1)),
	}, ctx)
	kind, ok := graph.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, graph.TypeMismatch, kind)
}

func TestEvalNonBooleanPredicate(t *testing.T) {
	ctx := evalContext()
	_, err := evalExpr(&ast.Boolean{
		Op:    ast.OpAnd,
		Left:  lit(true),
		Right: prop("p", "age"),
	}, ctx)
	kind, ok := graph.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, graph.TypeMismatch, kind)
}
