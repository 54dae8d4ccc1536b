package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/table"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	original := table.MustMemoryTable(
		table.Ints("person_id", 1, 2, 3),
		table.Strings("name", "Alice", "Bob", "Carol"),
		table.Floats("score", 1.5, 2.5, 3.5),
		table.Bools("active", true, false, true),
		table.Column{Name: "note", Values: []graph.Value{"x", nil, "z"}},
	)
	require.NoError(t, s.PutTable("person", original))

	loaded, err := s.GetTable("person")
	require.NoError(t, err)

	assert.Equal(t, original.Columns(), loaded.Columns())
	require.Equal(t, original.NumRows(), loaded.NumRows())
	for i := 0; i < original.NumRows(); i++ {
		assert.Equal(t, original.Row(i), loaded.Row(i), "row %d", i)
	}
}

func TestTimeValuesSurviveRoundTrip(t *testing.T) {
	s := openTestStore(t)

	when := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	tbl := table.MustMemoryTable(
		table.Column{Name: "at", Values: []graph.Value{when}},
	)
	require.NoError(t, s.PutTable("events", tbl))

	loaded, err := s.GetTable("events")
	require.NoError(t, err)
	assert.Equal(t, when, loaded.Row(0)[0])
}

func TestGetMissingTable(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetTable("nope")
	require.Error(t, err)
	kind, ok := graph.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, graph.MissingDataset, kind)
}

func TestPutReplacesExistingRows(t *testing.T) {
	s := openTestStore(t)

	big := table.MustMemoryTable(table.Ints("id", 1, 2, 3, 4, 5))
	require.NoError(t, s.PutTable("t", big))

	small := table.MustMemoryTable(table.Ints("id", 9))
	require.NoError(t, s.PutTable("t", small))

	loaded, err := s.GetTable("t")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.NumRows())
	assert.Equal(t, int64(9), loaded.Row(0)[0])
}

func TestListAndDelete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutTable("person", table.MustMemoryTable(table.Ints("id", 1))))
	require.NoError(t, s.PutTable("company", table.MustMemoryTable(table.Ints("id", 1))))

	names, err := s.ListTables()
	require.NoError(t, err)
	assert.Equal(t, []string{"company", "person"}, names)

	require.NoError(t, s.DeleteTable("company"))
	names, err = s.ListTables()
	require.NoError(t, err)
	assert.Equal(t, []string{"person"}, names)

	// deleting a missing table is fine
	assert.NoError(t, s.DeleteTable("ghost"))
}

func TestDatasetsLoadsEverything(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutTable("person", table.MustMemoryTable(table.Ints("person_id", 1, 2))))
	require.NoError(t, s.PutTable("works_for", table.MustMemoryTable(
		table.Ints("person_id", 1),
		table.Ints("company_id", 7),
	)))

	datasets, err := s.Datasets()
	require.NoError(t, err)
	require.Len(t, datasets, 2)

	person, ok := datasets.Resolve("person")
	require.True(t, ok)
	assert.Equal(t, 2, person.NumRows())
}

func TestEmptyTablePersists(t *testing.T) {
	s := openTestStore(t)

	empty := table.MustMemoryTable(
		table.Column{Name: "id", Values: nil},
		table.Column{Name: "name", Values: nil},
	)
	require.NoError(t, s.PutTable("empty", empty))

	loaded, err := s.GetTable("empty")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, loaded.Columns())
	assert.Equal(t, 0, loaded.NumRows())
}
