package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/catalog"
	"github.com/leiyuou/lance-graph/graph/parser"
	"github.com/leiyuou/lance-graph/graph/planner"
	"github.com/leiyuou/lance-graph/graph/table"
)

func execCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.NewBuilder().
		WithNodeLabel("Person", "person_id").
		WithNodeLabel("Company", "company_id").
		WithRelationship("WORKS_FOR", "person_id", "company_id").
		Build()
	require.NoError(t, err)
	return cat
}

// execDatasets includes a person with null age and city to exercise null
// propagation.
func execDatasets() table.Datasets {
	return table.Datasets{
		"person": table.MustMemoryTable(
			table.Ints("person_id", 1, 2, 3, 4),
			table.Strings("name", "Alice", "Bob", "Carol", "Eve"),
			table.Column{Name: "age", Values: []graph.Value{int64(28), int64(34), int64(29), nil}},
			table.Column{Name: "city", Values: []graph.Value{"New York", "San Francisco", "New York", nil}},
		),
		"company": table.MustMemoryTable(
			table.Ints("company_id", 101, 102),
			table.Strings("company_name", "TechCorp", "DataInc"),
		),
		"works_for": table.MustMemoryTable(
			table.Ints("person_id", 1, 2, 3),
			table.Ints("company_id", 101, 101, 102),
		),
	}
}

func runQuery(t *testing.T, text string) (*Result, error) {
	t.Helper()
	q, err := parser.ParseQuery(text)
	require.NoError(t, err)
	plan, err := planner.Compile(q, execCatalog(t))
	require.NoError(t, err)
	return Execute(plan, execDatasets())
}

func names(t *testing.T, result *Result) []graph.Value {
	t.Helper()
	values, ok := result.Column("p.name")
	require.True(t, ok)
	return values
}

func TestNullExcludedFromBothSidesOfComparison(t *testing.T) {
	// Eve's null age satisfies neither predicate
	over, err := runQuery(t, "MATCH (p:Person) WHERE p.age > 30 RETURN p.name")
	require.NoError(t, err)
	assert.Equal(t, []graph.Value{"Bob"}, names(t, over))

	under, err := runQuery(t, "MATCH (p:Person) WHERE p.age <= 30 RETURN p.name")
	require.NoError(t, err)
	assert.Equal(t, []graph.Value{"Alice", "Carol"}, names(t, under))
}

func TestNotOfNullStaysNull(t *testing.T) {
	result, err := runQuery(t, "MATCH (p:Person) WHERE NOT p.age > 30 RETURN p.name")
	require.NoError(t, err)
	// NOT null is null, so Eve is still excluded
	assert.Equal(t, []graph.Value{"Alice", "Carol"}, names(t, result))
}

func TestThreeValuedOr(t *testing.T) {
	// null OR true is true, so Eve matches through the city clause only
	// when her city is non-null; here both operands are null for Eve
	result, err := runQuery(t,
		"MATCH (p:Person) WHERE p.age > 30 OR p.city = 'New York' RETURN p.name")
	require.NoError(t, err)
	assert.Equal(t, []graph.Value{"Alice", "Bob", "Carol"}, names(t, result))
}

func TestUnmatchedRowsDroppedByJoin(t *testing.T) {
	// Eve has no works_for row
	result, err := runQuery(t,
		"MATCH (p:Person)-[:WORKS_FOR]->(c:Company) RETURN p.name, c.company_name")
	require.NoError(t, err)
	assert.Equal(t, []graph.Value{"Alice", "Bob", "Carol"}, names(t, result))
}

func TestArithmeticInProjection(t *testing.T) {
	result, err := runQuery(t, "MATCH (p:Person) RETURN p.name, p.age + 1")
	require.NoError(t, err)

	values, ok := result.Column("p.age + 1")
	require.True(t, ok)
	assert.Equal(t, []graph.Value{int64(29), int64(35), int64(30), nil}, values)
}

func TestArithmeticPromotesToFloat(t *testing.T) {
	result, err := runQuery(t, "MATCH (p:Person) WHERE p.name = 'Alice' RETURN p.age * 1.5")
	require.NoError(t, err)
	assert.Equal(t, 42.0, result.Row(0)[0])
}

func TestStringContains(t *testing.T) {
	result, err := runQuery(t,
		"MATCH (p:Person) WHERE p.city CONTAINS 'York' RETURN p.name")
	require.NoError(t, err)
	assert.Equal(t, []graph.Value{"Alice", "Carol"}, names(t, result))
}

func TestStringStartsEndsWith(t *testing.T) {
	starts, err := runQuery(t,
		"MATCH (p:Person) WHERE p.name STARTS WITH 'A' RETURN p.name")
	require.NoError(t, err)
	assert.Equal(t, []graph.Value{"Alice"}, names(t, starts))

	ends, err := runQuery(t,
		"MATCH (p:Person) WHERE p.name ENDS WITH 'ob' RETURN p.name")
	require.NoError(t, err)
	assert.Equal(t, []graph.Value{"Bob"}, names(t, ends))
}

func TestComparisonTypeMismatchAtRuntime(t *testing.T) {
	_, err := runQuery(t, "MATCH (p:Person) WHERE p.name > 5 RETURN p.name")
	require.Error(t, err)
	kind, ok := graph.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, graph.TypeMismatch, kind)
}

func TestSortNullsLast(t *testing.T) {
	asc, err := runQuery(t, "MATCH (p:Person) RETURN p.name, p.age ORDER BY p.age")
	require.NoError(t, err)
	assert.Equal(t, []graph.Value{"Alice", "Carol", "Bob", "Eve"}, names(t, asc))

	desc, err := runQuery(t, "MATCH (p:Person) RETURN p.name, p.age ORDER BY p.age DESC")
	require.NoError(t, err)
	// nulls stay last even descending
	assert.Equal(t, []graph.Value{"Bob", "Carol", "Alice", "Eve"}, names(t, desc))
}

func TestStableMultiKeySort(t *testing.T) {
	result, err := runQuery(t,
		"MATCH (p:Person) RETURN p.name, p.city ORDER BY p.city, p.name DESC")
	require.NoError(t, err)
	// New York before San Francisco, null city last; names descend
	// within a city
	assert.Equal(t, []graph.Value{"Carol", "Alice", "Bob", "Eve"}, names(t, result))
}

func TestLimitTruncates(t *testing.T) {
	result, err := runQuery(t, "MATCH (p:Person) RETURN p.name LIMIT 2")
	require.NoError(t, err)
	assert.Equal(t, []graph.Value{"Alice", "Bob"}, names(t, result))

	all, err := runQuery(t, "MATCH (p:Person) RETURN p.name LIMIT 100")
	require.NoError(t, err)
	assert.Equal(t, 4, all.NumRows())
}

func TestCountIgnoresNullsButCountStarDoesNot(t *testing.T) {
	result, err := runQuery(t, "MATCH (p:Person) RETURN count(*), count(p.age)")
	require.NoError(t, err)

	require.Equal(t, 1, result.NumRows())
	assert.Equal(t, int64(4), result.Row(0)[0])
	assert.Equal(t, int64(3), result.Row(0)[1])
}

func TestSumSkipsNulls(t *testing.T) {
	result, err := runQuery(t, "MATCH (p:Person) RETURN sum(p.age), avg(p.age)")
	require.NoError(t, err)

	assert.Equal(t, int64(91), result.Row(0)[0])
	require.IsType(t, 0.0, result.Row(0)[1])
	assert.InDelta(t, 30.333, result.Row(0)[1].(float64), 0.001)
}

func TestNullGroupKeyFormsOwnGroup(t *testing.T) {
	result, err := runQuery(t, "MATCH (p:Person) RETURN p.city, count(*)")
	require.NoError(t, err)

	cities, ok := result.Column("p.city")
	require.True(t, ok)
	assert.Equal(t, []graph.Value{"New York", "San Francisco", nil}, cities)

	counts, ok := result.Column("count(*)")
	require.True(t, ok)
	assert.Equal(t, []graph.Value{int64(2), int64(1), int64(1)}, counts)
}

func TestGroupKeyDistinguishesRealignedTuples(t *testing.T) {
	// the encoded boundary between tuple values must survive values that
	// themselves contain boundary-like text
	pairs := [][2][]graph.Value{
		{{"ab", "c"}, {"a", "bc"}},
		{{"x|\x00stringy", "z"}, {"x", "y|\x00stringz"}},
		{{"1", int64(1)}, {int64(1), "1"}},
		{{nil, "n"}, {"n", nil}},
	}
	for _, p := range pairs {
		assert.NotEqual(t, groupKey(p[0]), groupKey(p[1]),
			"tuples %v and %v must form separate groups", p[0], p[1])
	}
}

func TestGroupingSplitsTuplesWithEmbeddedSeparators(t *testing.T) {
	cat, err := catalog.NewBuilder().WithNodeLabel("Item", "id").Build()
	require.NoError(t, err)
	datasets := table.Datasets{
		"item": table.MustMemoryTable(
			table.Ints("id", 1, 2),
			table.Strings("a", "x|\x00stringy", "x"),
			table.Strings("b", "z", "y|\x00stringz"),
		),
	}

	q, err := parser.ParseQuery("MATCH (i:Item) RETURN i.a, i.b, count(*)")
	require.NoError(t, err)
	plan, err := planner.Compile(q, cat)
	require.NoError(t, err)

	result, err := Execute(plan, datasets)
	require.NoError(t, err)
	require.Equal(t, 2, result.NumRows())

	counts, ok := result.Column("count(*)")
	require.True(t, ok)
	assert.Equal(t, []graph.Value{int64(1), int64(1)}, counts)
}

func TestGroupedEmptyInputYieldsNoRows(t *testing.T) {
	result, err := runQuery(t,
		"MATCH (p:Person) WHERE p.age > 100 RETURN p.city, count(*)")
	require.NoError(t, err)
	assert.Equal(t, 0, result.NumRows())
}

func TestMinMaxOverStrings(t *testing.T) {
	result, err := runQuery(t, "MATCH (p:Person) RETURN min(p.name), max(p.name)")
	require.NoError(t, err)

	assert.Equal(t, "Alice", result.Row(0)[0])
	assert.Equal(t, "Eve", result.Row(0)[1])
}

func TestMarkdownRendering(t *testing.T) {
	result, err := runQuery(t,
		"MATCH (p:Person) WHERE p.name = 'Alice' RETURN p.name, p.age")
	require.NoError(t, err)

	md := result.Markdown()
	assert.Contains(t, md, "p.name")
	assert.Contains(t, md, "Alice")
	assert.Contains(t, md, "_1 rows_")
}

func TestMarkdownEmptyResult(t *testing.T) {
	result, err := runQuery(t,
		"MATCH (p:Person) WHERE p.name = 'Nobody' RETURN p.name")
	require.NoError(t, err)
	assert.Contains(t, result.Markdown(), "_No rows_")
}
