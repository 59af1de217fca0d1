package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
)

func vec(docId string, ordinal int, v []float32) *core.IndexedVector {
	return &core.IndexedVector{
		ChunkId:    core.ChunkID(docId, ordinal),
		DocumentId: docId,
		Vector:     v,
		Text:       "chunk text",
		Ordinal:    ordinal,
	}
}

func TestVectorIndex_SearchOrder(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	require.NoError(t, repos.Vectors.Upsert(ctx,
		vec("doc-a", 0, []float32{1, 0, 0}),
		vec("doc-a", 1, []float32{0.9, 0.1, 0}),
		vec("doc-b", 0, []float32{0, 1, 0}),
	))

	matches, err := repos.Vectors.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "doc-a", matches[0].Vector.DocumentId)
	assert.Equal(t, 0, matches[0].Vector.Ordinal)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestVectorIndex_SearchByDocuments(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	require.NoError(t, repos.Vectors.Upsert(ctx,
		vec("doc-a", 0, []float32{1, 0, 0}),
		vec("doc-b", 0, []float32{0.99, 0.01, 0}),
	))

	matches, err := repos.Vectors.SearchByDocuments(ctx, []float32{1, 0, 0}, 10, map[string]bool{"doc-b": true})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc-b", matches[0].Vector.DocumentId)
}

func TestVectorIndex_IdempotentUpsert(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()

	// Same chunk IDs twice must not duplicate.
	for i := 0; i < 2; i++ {
		require.NoError(t, repos.Vectors.Upsert(ctx,
			vec("doc-a", 0, []float32{1, 0, 0}),
			vec("doc-a", 1, []float32{0, 1, 0}),
		))
	}

	count, err := repos.Vectors.CountByDocument(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestVectorIndex_DeleteByDocument(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	require.NoError(t, repos.Vectors.Upsert(ctx,
		vec("doc-a", 0, []float32{1, 0, 0}),
		vec("doc-a", 1, []float32{0, 1, 0}),
		vec("doc-b", 0, []float32{0, 0, 1}),
	))

	require.NoError(t, repos.Vectors.DeleteByDocument(ctx, "doc-a"))

	count, err := repos.Vectors.CountByDocument(ctx, "doc-a")
	require.NoError(t, err)
	assert.Zero(t, count)

	matches, err := repos.Vectors.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc-b", matches[0].Vector.DocumentId)
}

func TestVectorIndex_EmptyIndex(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	matches, err := repos.Vectors.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestVectorIndex_DimensionCheck(t *testing.T) {
	repos, err := NewMemoryRepositories(WithDimensions(3))
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	err = repos.Vectors.Upsert(ctx, vec("doc-a", 0, []float32{1, 0}))
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	_, err = repos.Vectors.Search(ctx, []float32{1, 0}, 5)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestVectorIndex_L2Metric(t *testing.T) {
	repos, err := NewMemoryRepositories(WithMetric(core.MetricL2))
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	require.NoError(t, repos.Vectors.Upsert(ctx,
		vec("doc-a", 0, []float32{0, 0, 0}),
		vec("doc-b", 0, []float32{1, 1, 1}),
	))

	// Lower distance ranks first under L2.
	matches, err := repos.Vectors.Search(ctx, []float32{0.1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "doc-a", matches[0].Vector.DocumentId)
	assert.Less(t, matches[0].Score, matches[1].Score)
}
