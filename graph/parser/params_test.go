package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/ast"
)

func TestSubstituteWhereParameter(t *testing.T) {
	q := parse(t, "MATCH (p:Person) WHERE p.age > $min RETURN p.name")
	err := SubstituteParameters(q, map[string]graph.Value{"min": int64(30)})
	require.NoError(t, err)

	cmp := q.Where.(*ast.Comparison)
	assert.Equal(t, &ast.Literal{Value: int64(30)}, cmp.Right)
}

func TestSubstitutePropertyParameter(t *testing.T) {
	q := parse(t, "MATCH (p:Person {city: $city}) RETURN p.name")
	err := SubstituteParameters(q, map[string]graph.Value{"city": "Oslo"})
	require.NoError(t, err)

	assert.Equal(t, &ast.Literal{Value: "Oslo"},
		q.Match[0].Nodes[0].Properties[0].Value)
}

func TestSubstituteReturnAndOrderBy(t *testing.T) {
	q := parse(t, "MATCH (p:Person) RETURN p.age + $bonus ORDER BY p.age + $bonus")
	err := SubstituteParameters(q, map[string]graph.Value{"bonus": int64(5)})
	require.NoError(t, err)

	assert.Equal(t, "p.age + 5", q.Return[0].Expr.String())
	assert.Equal(t, "p.age + 5", q.OrderBy[0].Expr.String())
}

func TestMissingParameterFails(t *testing.T) {
	q := parse(t, "MATCH (p:Person) WHERE p.age > $min RETURN p.name")
	err := SubstituteParameters(q, nil)
	require.Error(t, err)
	kind, ok := graph.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, graph.ParseError, kind)
}

func TestParameterWidensSmallerTypes(t *testing.T) {
	q := parse(t, "MATCH (p:Person) WHERE p.age > $min RETURN p.name")
	err := SubstituteParameters(q, map[string]graph.Value{"min": int(30)})
	require.NoError(t, err)

	cmp := q.Where.(*ast.Comparison)
	assert.Equal(t, &ast.Literal{Value: int64(30)}, cmp.Right)
}

func TestListParameterRejected(t *testing.T) {
	q := parse(t, "MATCH (p:Person) WHERE p.age > $min RETURN p.name")
	err := SubstituteParameters(q, map[string]graph.Value{"min": []int{1, 2}})
	require.Error(t, err)
	kind, ok := graph.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, graph.TypeMismatch, kind)
}

func TestUnusedParametersIgnored(t *testing.T) {
	q := parse(t, "MATCH (p:Person) RETURN p.name")
	err := SubstituteParameters(q, map[string]graph.Value{"unused": int64(1)})
	assert.NoError(t, err)
}
