package knowledge

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreAddAndSearch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.AddChunks(ctx, "transits.md",
		[]string{"saturn transits bring structure", "jupiter transits bring growth"},
		[][]float32{{1, 0, 0}, {0, 1, 0}})
	require.NoError(t, err)

	results, err := store.Search(ctx, []float32{1, 0, 0}, 5, 0.2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "saturn transits bring structure", results[0].Content)
	assert.Equal(t, "transits.md", results[0].Source)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestStoreSearchOrderingAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.AddChunks(ctx, "doc.md",
		[]string{"close", "closer", "closest"},
		[][]float32{{1, 1, 0}, {1, 0.5, 0}, {1, 0.1, 0}})
	require.NoError(t, err)

	results, err := store.Search(ctx, []float32{1, 0, 0}, 2, 0.0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "closest", results[0].Content)
	assert.Equal(t, "closer", results[1].Content)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestStoreHasSourceAndDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	exists, err := store.HasSource(ctx, "planets.md")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.AddChunks(ctx, "planets.md",
		[]string{"mars rules aries"}, [][]float32{{0, 0, 1}}))

	exists, err = store.HasSource(ctx, "planets.md")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.DeleteSource(ctx, "planets.md"))

	exists, err = store.HasSource(ctx, "planets.md")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStoreAddChunksLengthMismatch(t *testing.T) {
	store := openTestStore(t)

	err := store.AddChunks(context.Background(), "bad.md",
		[]string{"one", "two"}, [][]float32{{1, 0}})
	assert.Error(t, err)
}

func TestStoreSources(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddChunks(ctx, "b.md", []string{"x"}, [][]float32{{1}}))
	require.NoError(t, store.AddChunks(ctx, "a.md", []string{"y"}, [][]float32{{1}}))

	sources, err := store.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, sources)
}
