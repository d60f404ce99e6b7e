package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCache_GetSet(t *testing.T) {
	qc := NewQueryCache()

	_, _, ok := qc.Get("tasks:user:1")
	require.False(t, ok)

	qc.Set("tasks:user:1", []Item{{ID: 1}, {ID: 2}})

	items, fresh, ok := qc.Get("tasks:user:1")
	require.True(t, ok)
	assert.True(t, fresh)
	assert.Len(t, items, 2)
}

func TestQueryCache_PatchInsertPrependsAndDedups(t *testing.T) {
	qc := NewQueryCache()
	qc.Set("tasks:user:1", []Item{{ID: 1}})
	qc.Set("tasks:user:2", []Item{{ID: 1}})
	qc.Set("projects:user:1", []Item{{ID: 1}})

	patched := qc.PatchInsert("tasks:", Item{ID: 9})
	assert.Equal(t, 2, patched)

	items, _, _ := qc.Get("tasks:user:1")
	assert.Equal(t, uint64(9), items[0].ID)

	// Replayed insert is a no-op.
	patched = qc.PatchInsert("tasks:", Item{ID: 9})
	assert.Equal(t, 0, patched)

	// Unrelated prefix untouched.
	items, _, _ = qc.Get("projects:user:1")
	assert.Len(t, items, 1)
}

func TestQueryCache_PatchUpdateReplacesById(t *testing.T) {
	qc := NewQueryCache()
	qc.Set("tasks:user:1", []Item{{ID: 1, Data: []byte(`{"v":1}`)}})

	patched := qc.PatchUpdate("tasks:", Item{ID: 1, Data: []byte(`{"v":2}`)})
	require.Equal(t, 1, patched)

	items, _, _ := qc.Get("tasks:user:1")
	assert.JSONEq(t, `{"v":2}`, string(items[0].Data))

	// Unknown id patches nothing.
	assert.Equal(t, 0, qc.PatchUpdate("tasks:", Item{ID: 99}))
}

func TestQueryCache_PatchDeleteRemovesById(t *testing.T) {
	qc := NewQueryCache()
	qc.Set("tasks:user:1", []Item{{ID: 1}, {ID: 2}, {ID: 3}})

	require.Equal(t, 1, qc.PatchDelete("tasks:", 2))

	items, _, _ := qc.Get("tasks:user:1")
	require.Len(t, items, 2)
	assert.Equal(t, uint64(1), items[0].ID)
	assert.Equal(t, uint64(3), items[1].ID)
}

func TestQueryCache_InvalidateMarksStaleButKeepsData(t *testing.T) {
	qc := NewQueryCache()
	qc.Set("tasks:user:1", []Item{{ID: 1}})

	qc.Invalidate("tasks:")

	items, fresh, ok := qc.Get("tasks:user:1")
	require.True(t, ok)
	assert.False(t, fresh)
	assert.Len(t, items, 1)

	// A fresh Set clears staleness.
	qc.Set("tasks:user:1", []Item{{ID: 1}})
	_, fresh, _ = qc.Get("tasks:user:1")
	assert.True(t, fresh)
}

func TestQueryCache_Clear(t *testing.T) {
	qc := NewQueryCache()
	qc.Set("tasks:user:1", []Item{{ID: 1}})

	qc.Clear()

	_, _, ok := qc.Get("tasks:user:1")
	assert.False(t, ok)
}
