package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leiyuou/lance-graph/graph"
)

func TestMemoryTableBasics(t *testing.T) {
	tbl, err := NewMemoryTable(
		Ints("id", 1, 2, 3),
		Strings("name", "a", "b", "c"),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, tbl.Columns())
	assert.Equal(t, 3, tbl.NumRows())

	ids, ok := tbl.Column("id")
	require.True(t, ok)
	assert.Equal(t, []graph.Value{int64(1), int64(2), int64(3)}, ids)

	_, ok = tbl.Column("missing")
	assert.False(t, ok)

	assert.Equal(t, []graph.Value{int64(2), "b"}, tbl.Row(1))
}

func TestMemoryTableLengthMismatch(t *testing.T) {
	_, err := NewMemoryTable(
		Ints("id", 1, 2, 3),
		Strings("name", "a"),
	)
	assert.Error(t, err)
}

func TestMemoryTableDuplicateColumn(t *testing.T) {
	_, err := NewMemoryTable(
		Ints("id", 1),
		Ints("id", 2),
	)
	assert.Error(t, err)
}

func TestMemoryTableEmptyColumnName(t *testing.T) {
	_, err := NewMemoryTable(Ints("", 1))
	assert.Error(t, err)
}

func TestNullValuesAllowed(t *testing.T) {
	tbl := MustMemoryTable(
		Column{Name: "score", Values: []graph.Value{int64(1), nil}},
	)
	assert.Equal(t, []graph.Value{nil}, tbl.Row(1))
}

func TestDatasetsResolveCaseInsensitive(t *testing.T) {
	tbl := MustMemoryTable(Ints("id", 1))
	datasets := Datasets{"Person": tbl}

	got, ok := datasets.Resolve("Person")
	require.True(t, ok)
	assert.Equal(t, Table(tbl), got)

	got, ok = datasets.Resolve("person")
	require.True(t, ok)
	assert.Equal(t, Table(tbl), got)

	_, ok = datasets.Resolve("company")
	assert.False(t, ok)
}

func TestDatasetsResolvePrefersExactMatch(t *testing.T) {
	exact := MustMemoryTable(Ints("id", 1))
	other := MustMemoryTable(Ints("id", 2))
	datasets := Datasets{"person": exact, "PERSON": other}

	got, ok := datasets.Resolve("person")
	require.True(t, ok)
	assert.Equal(t, Table(exact), got)
}
