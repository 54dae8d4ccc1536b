package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/ast"
)

func parse(t *testing.T, text string) *ast.Query {
	t.Helper()
	q, err := ParseQuery(text)
	require.NoError(t, err)
	return q
}

func parseErr(t *testing.T, text string) error {
	t.Helper()
	_, err := ParseQuery(text)
	require.Error(t, err)
	kind, ok := graph.KindOf(err)
	require.True(t, ok)
	require.Equal(t, graph.ParseError, kind)
	return err
}

func TestParseSimpleMatch(t *testing.T) {
	q := parse(t, "MATCH (p:Person) RETURN p.name")

	require.Len(t, q.Match, 1)
	require.Len(t, q.Match[0].Nodes, 1)
	node := q.Match[0].Nodes[0]
	assert.Equal(t, "p", node.Variable)
	assert.Equal(t, "Person", node.Label)

	require.Len(t, q.Return, 1)
	assert.Equal(t, "p.name", q.Return[0].Expr.String())
}

func TestParseRelationshipDirections(t *testing.T) {
	cases := []struct {
		text string
		want ast.Direction
	}{
		{"MATCH (a:A)-[r:R]->(b:B) RETURN a.x", ast.DirectionOutgoing},
		{"MATCH (a:A)<-[r:R]-(b:B) RETURN a.x", ast.DirectionIncoming},
		{"MATCH (a:A)-[r:R]-(b:B) RETURN a.x", ast.DirectionEither},
	}
	for _, tc := range cases {
		q := parse(t, tc.text)
		require.Len(t, q.Match[0].Relationships, 1, tc.text)
		rel := q.Match[0].Relationships[0]
		assert.Equal(t, tc.want, rel.Direction, tc.text)
		assert.Equal(t, "r", rel.Variable, tc.text)
		assert.Equal(t, "R", rel.Type, tc.text)
	}
}

func TestParseMultiHopPath(t *testing.T) {
	q := parse(t, "MATCH (a:A)-[:R1]->(b:B)<-[:R2]-(c:C) RETURN a.x")

	require.Len(t, q.Match[0].Nodes, 3)
	require.Len(t, q.Match[0].Relationships, 2)
	assert.Equal(t, ast.DirectionOutgoing, q.Match[0].Relationships[0].Direction)
	assert.Equal(t, ast.DirectionIncoming, q.Match[0].Relationships[1].Direction)
}

func TestParseMultiplePatterns(t *testing.T) {
	q := parse(t, "MATCH (a:A), (b:B) RETURN a.x, b.y")
	assert.Len(t, q.Match, 2)
	assert.Len(t, q.Return, 2)
}

func TestParseAnonymousNode(t *testing.T) {
	q := parse(t, "MATCH (a:A)-[:R]->() RETURN a.x")
	assert.Empty(t, q.Match[0].Nodes[1].Variable)
	assert.Empty(t, q.Match[0].Nodes[1].Label)
}

func TestParseInlineProperties(t *testing.T) {
	q := parse(t, "MATCH (p:Person {city: 'Oslo', age: 30, active: true, score: $s}) RETURN p.name")

	props := q.Match[0].Nodes[0].Properties
	require.Len(t, props, 4)
	assert.Equal(t, "city", props[0].Key)
	assert.Equal(t, &ast.Literal{Value: "Oslo"}, props[0].Value)
	assert.Equal(t, &ast.Literal{Value: int64(30)}, props[1].Value)
	assert.Equal(t, &ast.Literal{Value: true}, props[2].Value)
	assert.Equal(t, &ast.Parameter{Name: "s"}, props[3].Value)
}

func TestParseWherePrecedence(t *testing.T) {
	q := parse(t, "MATCH (p:P) WHERE p.a = 1 OR p.b = 2 AND p.c = 3 RETURN p.a")

	// AND binds tighter than OR
	or, ok := q.Where.(*ast.Boolean)
	require.True(t, ok)
	assert.Equal(t, ast.OpOr, or.Op)
	and, ok := or.Right.(*ast.Boolean)
	require.True(t, ok)
	assert.Equal(t, ast.OpAnd, and.Op)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	q := parse(t, "MATCH (p:P) RETURN p.a + p.b * 2")

	add, ok := q.Return[0].Expr.(*ast.Arithmetic)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, add.Op)
	mul, ok := add.Right.(*ast.Arithmetic)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, mul.Op)
}

func TestParseComparisonOperators(t *testing.T) {
	ops := map[string]ast.ComparisonOp{
		"=": ast.OpEq, "<>": ast.OpNe, "<": ast.OpLt,
		"<=": ast.OpLe, ">": ast.OpGt, ">=": ast.OpGe,
	}
	for text, want := range ops {
		q := parse(t, "MATCH (p:P) WHERE p.a "+text+" 1 RETURN p.a")
		cmp, ok := q.Where.(*ast.Comparison)
		require.True(t, ok, text)
		assert.Equal(t, want, cmp.Op, text)
	}
}

func TestParseStringMatch(t *testing.T) {
	q := parse(t, "MATCH (p:P) WHERE p.name CONTAINS 'li' RETURN p.name")
	sm, ok := q.Where.(*ast.StringMatch)
	require.True(t, ok)
	assert.Equal(t, ast.MatchContains, sm.Kind)

	q = parse(t, "MATCH (p:P) WHERE p.name STARTS WITH 'A' RETURN p.name")
	sm = q.Where.(*ast.StringMatch)
	assert.Equal(t, ast.MatchStartsWith, sm.Kind)

	q = parse(t, "MATCH (p:P) WHERE p.name ENDS WITH 'e' RETURN p.name")
	sm = q.Where.(*ast.StringMatch)
	assert.Equal(t, ast.MatchEndsWith, sm.Kind)
}

func TestParseAggregates(t *testing.T) {
	q := parse(t, "MATCH (p:P) RETURN count(*), AVG(p.age), sum(p.age)")

	star, ok := q.Return[0].Expr.(*ast.Aggregate)
	require.True(t, ok)
	assert.Equal(t, "count", star.Func)
	assert.Nil(t, star.Arg)

	avg, ok := q.Return[1].Expr.(*ast.Aggregate)
	require.True(t, ok)
	assert.Equal(t, "avg", avg.Func)
	assert.Equal(t, "p.age", avg.Arg.String())
}

func TestParseReturnAlias(t *testing.T) {
	q := parse(t, "MATCH (p:P) RETURN p.name AS name, count(*) AS total")

	assert.Equal(t, "name", q.Return[0].Alias)
	assert.Equal(t, "name", q.Return[0].Name())
	assert.Equal(t, "total", q.Return[1].Alias)
}

func TestParseOrderByLimit(t *testing.T) {
	q := parse(t, "MATCH (p:P) RETURN p.name ORDER BY p.age DESC, p.name ASC LIMIT 10")

	require.Len(t, q.OrderBy, 2)
	assert.True(t, q.OrderBy[0].Descending)
	assert.False(t, q.OrderBy[1].Descending)
	require.NotNil(t, q.Limit)
	assert.Equal(t, int64(10), *q.Limit)
}

func TestParseKeywordsCaseInsensitive(t *testing.T) {
	q := parse(t, "match (p:Person) where p.age > 1 return p.name order by p.age limit 1")
	assert.NotNil(t, q.Where)
	assert.Len(t, q.OrderBy, 1)
	assert.NotNil(t, q.Limit)
}

func TestParseNegativeNumbers(t *testing.T) {
	q := parse(t, "MATCH (p:P) WHERE p.delta > -1.5 RETURN p.delta")
	cmp := q.Where.(*ast.Comparison)
	assert.Equal(t, &ast.Literal{Value: -1.5}, cmp.Right)
}

func TestParseDoubleQuotedStrings(t *testing.T) {
	q := parse(t, `MATCH (p:P) WHERE p.name = "Alice" RETURN p.name`)
	cmp := q.Where.(*ast.Comparison)
	assert.Equal(t, &ast.Literal{Value: "Alice"}, cmp.Right)
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"",
		"RETURN 1",
		"MATCH (p:Person)",
		"MATCH p:Person RETURN p.name",
		"MATCH (p:Person RETURN p.name",
		"MATCH (p:Person) RETURN",
		"MATCH (p:Person) RETURN p.name LIMIT abc",
		"MATCH (p:Person) RETURN p.name extra",
		"MATCH (p:Person) WHERE p.name STARTS 'A' RETURN p.name",
		"MATCH (p:Person) RETURN name",
	}
	for _, text := range cases {
		parseErr(t, text)
	}
}

func TestFormatQueryRoundTrip(t *testing.T) {
	texts := []string{
		"MATCH (p:Person)-[r:WORKS_FOR]->(c:Company) WHERE p.age > 30 RETURN p.name, c.company_name ORDER BY p.name LIMIT 5",
		"MATCH (a:Person)-[k:KNOWS]-(b:Person) RETURN a.name AS name",
	}
	for _, text := range texts {
		q := parse(t, text)
		again := parse(t, ast.FormatQuery(q))
		assert.Equal(t, ast.FormatQuery(q), ast.FormatQuery(again), text)
	}
}
