package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := New(Config{Dimensions: 4})
	require.NoError(t, err)
	return ix
}

func TestSearch_NearestFirst(t *testing.T) {
	ix := newTestIndex(t)

	require.NoError(t, ix.Upsert(1, []float32{1, 0, 0, 0}))
	require.NoError(t, ix.Upsert(2, []float32{0, 1, 0, 0}))
	require.NoError(t, ix.Upsert(3, []float32{0.9, 0.1, 0, 0}))

	hits, err := ix.Search([]float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, int64(1), hits[0].SnippetID)
	assert.Equal(t, int64(3), hits[1].SnippetID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearch_EmptyIndex(t *testing.T) {
	ix := newTestIndex(t)

	hits, err := ix.Search([]float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_TiesBrokenByID(t *testing.T) {
	ix := newTestIndex(t)

	// Identical vectors: the ordering must still be deterministic.
	require.NoError(t, ix.Upsert(7, []float32{0, 0, 1, 0}))
	require.NoError(t, ix.Upsert(3, []float32{0, 0, 1, 0}))

	hits, err := ix.Search([]float32{0, 0, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, int64(3), hits[0].SnippetID)
	assert.Equal(t, int64(7), hits[1].SnippetID)
}

func TestDelete_HidesFromResults(t *testing.T) {
	ix := newTestIndex(t)

	require.NoError(t, ix.Upsert(1, []float32{1, 0, 0, 0}))
	require.NoError(t, ix.Upsert(2, []float32{0.8, 0.2, 0, 0}))

	ix.Delete(1)

	hits, err := ix.Search([]float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].SnippetID)
	assert.False(t, ix.Contains(1))
	assert.Equal(t, 1, ix.Count())
}

func TestUpsert_ReplacesVector(t *testing.T) {
	ix := newTestIndex(t)

	require.NoError(t, ix.Upsert(1, []float32{1, 0, 0, 0}))
	require.NoError(t, ix.Upsert(2, []float32{0, 1, 0, 0}))

	// Move snippet 1 to point the other way.
	require.NoError(t, ix.Upsert(1, []float32{0, 0.9, 0.1, 0}))

	hits, err := ix.Search([]float32{0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].SnippetID)

	assert.Equal(t, 2, ix.Count(), "replacing a vector must not grow the live count")
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	ix := newTestIndex(t)

	err := ix.Upsert(1, []float32{1, 0})
	assert.Error(t, err)

	_, err = ix.Search([]float32{1, 0}, 1)
	assert.Error(t, err)
}
