package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, uid string) Record {
	return Record{ID: id, Entity: "person", UID: uid, Fields: map[string]any{"name": "n-" + uid}}
}

func TestMemory_CommitAndFetch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Commit(ctx, ChangeSet{Inserts: []Record{
		record("3", "b"),
		record("1", "a"),
		record("2", "a"),
		{ID: "4", Entity: "robot", UID: "a"},
	}}))
	assert.Equal(t, 4, m.Len())

	all, err := m.Fetch(ctx, Query{Entity: "person", All: true})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, int64(1), all[0].Version)
	assert.False(t, all[0].UpdatedAt.IsZero())

	some, err := m.Fetch(ctx, Query{Entity: "person", UIDs: []string{"b", "missing"}})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "3", some[0].ID)

	none, err := m.Fetch(ctx, Query{Entity: "person"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemory_FetchReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Commit(ctx, ChangeSet{Inserts: []Record{record("1", "a")}}))

	got, err := m.Get(ctx, "1")
	require.NoError(t, err)
	got.Fields["name"] = "mutated"

	again, err := m.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "n-a", again.Fields["name"])
}

func TestMemory_Commit(t *testing.T) {
	ctx := context.Background()

	t.Run("Update bumps version", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Commit(ctx, ChangeSet{Inserts: []Record{record("1", "a")}}))

		upd := record("1", "a")
		upd.Version = 1
		upd.Fields["name"] = "changed"
		require.NoError(t, m.Commit(ctx, ChangeSet{Updates: []Record{upd}}))

		got, err := m.Get(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		assert.Equal(t, "changed", got.Fields["name"])
	})

	t.Run("Stale version conflicts", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Commit(ctx, ChangeSet{Inserts: []Record{record("1", "a")}}))

		stale := record("1", "a")
		stale.Version = 0
		err := m.Commit(ctx, ChangeSet{
			Inserts: []Record{record("2", "b")},
			Updates: []Record{stale},
		})
		assert.ErrorIs(t, err, ErrConflict)
		// Nothing from the failed change set is applied.
		assert.Equal(t, 1, m.Len())
	})

	t.Run("Duplicate insert conflicts", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Commit(ctx, ChangeSet{Inserts: []Record{record("1", "a")}}))
		err := m.Commit(ctx, ChangeSet{Inserts: []Record{record("1", "a")}})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("Update of missing row", func(t *testing.T) {
		m := NewMemory()
		err := m.Commit(ctx, ChangeSet{Updates: []Record{record("1", "a")}})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Commit(ctx, ChangeSet{Inserts: []Record{record("1", "a")}}))
		require.NoError(t, m.Commit(ctx, ChangeSet{Deletes: []Record{{ID: "1", Entity: "person"}}}))

		_, err := m.Get(ctx, "1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		m := NewMemory()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, m.Commit(cancelled, ChangeSet{Inserts: []Record{record("1", "a")}}), context.Canceled)
		assert.Equal(t, 0, m.Len())
	})
}

func TestMemory_FindDuplicates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Commit(ctx, ChangeSet{Inserts: []Record{
		record("1", "a"),
		record("2", "a"),
		record("3", "b"),
		record("4", "c"),
		record("5", "c"),
		record("6", "c"),
	}}))

	groups, err := m.FindDuplicates(ctx, "person")
	require.NoError(t, err)
	assert.Equal(t, []DuplicateGroup{
		{UID: "a", IDs: []string{"1", "2"}},
		{UID: "c", IDs: []string{"4", "5", "6"}},
	}, groups)
}

func TestQuery_Matches(t *testing.T) {
	rec := record("1", "a")

	assert.True(t, Query{Entity: "person", All: true}.Matches(rec))
	assert.True(t, Query{Entity: "person", UIDs: []string{"x", "a"}}.Matches(rec))
	assert.False(t, Query{Entity: "person", UIDs: []string{"x"}}.Matches(rec))
	assert.False(t, Query{Entity: "robot", All: true}.Matches(rec))
}

func TestChangeSet_Size(t *testing.T) {
	assert.True(t, ChangeSet{}.Empty())

	cs := ChangeSet{Inserts: []Record{{}}, Deletes: []Record{{}, {}}}
	assert.False(t, cs.Empty())
	assert.Equal(t, 3, cs.Size())
}

func TestConfig_IsValidBackend(t *testing.T) {
	assert.True(t, Config{Backend: BackendDatabase}.IsValidBackend())
	assert.True(t, Config{Backend: BackendMemory}.IsValidBackend())
	assert.False(t, Config{Backend: "redis"}.IsValidBackend())
}
