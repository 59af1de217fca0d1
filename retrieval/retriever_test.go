package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
	"github.com/lethanhson9903/rag-assistant-api-core/storage/badger"
)

// plainIndex wraps a filtered index but hides the filtering capability, so
// tests can exercise the over-fetch fallback path.
type plainIndex struct {
	inner       storage.FilteredVectorIndex
	searchCalls int
}

func (p *plainIndex) Upsert(ctx context.Context, vectors ...*core.IndexedVector) error {
	return p.inner.Upsert(ctx, vectors...)
}

func (p *plainIndex) Search(ctx context.Context, query []float32, limit int) ([]*core.VectorMatch, error) {
	p.searchCalls++
	return p.inner.Search(ctx, query, limit)
}

func (p *plainIndex) DeleteByDocument(ctx context.Context, documentId string) error {
	return p.inner.DeleteByDocument(ctx, documentId)
}

func (p *plainIndex) CountByDocument(ctx context.Context, documentId string) (int, error) {
	return p.inner.CountByDocument(ctx, documentId)
}

func (p *plainIndex) Close() error { return p.inner.Close() }

var _ storage.VectorIndex = (*plainIndex)(nil)

func seedIndex(t *testing.T, index storage.VectorIndex, docId string, count int, base []float32) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < count; i++ {
		v := core.NormalizeVector([]float32{base[0] - float32(i)*0.01, base[1] + float32(i)*0.01, base[2]})
		err := index.Upsert(ctx, &core.IndexedVector{
			ChunkId:    core.ChunkID(docId, i),
			DocumentId: docId,
			Vector:     v,
			Text:       fmt.Sprintf("%s chunk %d", docId, i),
			Ordinal:    i,
		})
		require.NoError(t, err)
	}
}

func TestRetrieve_FilteredIndex(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	seedIndex(t, repos.Vectors, "doc-a", 5, []float32{1, 0, 0})
	seedIndex(t, repos.Vectors, "doc-b", 5, []float32{0.9, 0.1, 0})
	seedIndex(t, repos.Vectors, "doc-c", 5, []float32{0, 1, 0})

	retriever := NewRetriever(repos.Vectors)
	ctx := context.Background()
	query := []float32{1, 0, 0}

	t.Run("never exceeds k", func(t *testing.T) {
		chunks, err := retriever.Retrieve(ctx, query, map[string]bool{"doc-a": true, "doc-b": true}, 4)
		require.NoError(t, err)
		assert.Len(t, chunks, 4)
	})

	t.Run("only permitted documents", func(t *testing.T) {
		chunks, err := retriever.Retrieve(ctx, query, map[string]bool{"doc-b": true}, 10)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		for _, chunk := range chunks {
			assert.Equal(t, "doc-b", chunk.Vector.DocumentId)
		}
	})

	t.Run("per-document cap", func(t *testing.T) {
		retriever := NewRetriever(repos.Vectors, WithPerDocumentCap(2))
		chunks, err := retriever.Retrieve(ctx, query, map[string]bool{"doc-a": true, "doc-b": true}, 10)
		require.NoError(t, err)
		perDoc := map[string]int{}
		for _, chunk := range chunks {
			perDoc[chunk.Vector.DocumentId]++
		}
		for docId, n := range perDoc {
			assert.LessOrEqual(t, n, 2, "document %s over cap", docId)
		}
	})

	t.Run("scores normalized and descending", func(t *testing.T) {
		chunks, err := retriever.Retrieve(ctx, query, map[string]bool{"doc-a": true, "doc-b": true, "doc-c": true}, 9)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		for i, chunk := range chunks {
			assert.GreaterOrEqual(t, chunk.Score, 0.0)
			assert.LessOrEqual(t, chunk.Score, 1.0)
			if i > 0 {
				assert.LessOrEqual(t, chunk.Score, chunks[i-1].Score)
			}
		}
	})

	t.Run("empty permitted set", func(t *testing.T) {
		chunks, err := retriever.Retrieve(ctx, query, map[string]bool{}, 5)
		require.NoError(t, err)
		assert.NotNil(t, chunks)
		assert.Empty(t, chunks)
	})
}

func TestRetrieve_FilteredIndexGrowsFetch(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	// doc-a floods the top of the ranking. With a per-document cap of 1 the
	// first filtered batch caps down to a single chunk, so the retriever must
	// refetch until doc-b surfaces.
	seedIndex(t, repos.Vectors, "doc-a", 10, []float32{1, 0, 0})
	seedIndex(t, repos.Vectors, "doc-b", 5, []float32{0.5, 0.5, 0})

	retriever := NewRetriever(repos.Vectors, WithPerDocumentCap(1))
	permitted := map[string]bool{"doc-a": true, "doc-b": true}

	chunks, err := retriever.Retrieve(context.Background(), []float32{1, 0, 0}, permitted, 5)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	docs := map[string]bool{}
	for _, chunk := range chunks {
		docs[chunk.Vector.DocumentId] = true
	}
	assert.True(t, docs["doc-a"])
	assert.True(t, docs["doc-b"], "capped-out documents must not starve the rest")
}

func TestRetrieve_OverFetchFallback(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	// doc-a vectors dominate the top of the unfiltered ranking, so finding
	// doc-b chunks requires the retriever to grow its fetch.
	seedIndex(t, repos.Vectors, "doc-a", 20, []float32{1, 0, 0})
	seedIndex(t, repos.Vectors, "doc-b", 5, []float32{0.5, 0.5, 0})

	plain := &plainIndex{inner: repos.Vectors}
	retriever := NewRetriever(plain, WithPerDocumentCap(5))
	ctx := context.Background()

	chunks, err := retriever.Retrieve(ctx, []float32{1, 0, 0}, map[string]bool{"doc-b": true}, 3)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.Equal(t, "doc-b", chunk.Vector.DocumentId)
	}
	assert.GreaterOrEqual(t, plain.searchCalls, 2, "expected at least one over-fetch round")
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	retriever := NewRetriever(&plainIndex{inner: repos.Vectors})
	chunks, err := retriever.Retrieve(context.Background(), []float32{1, 0, 0}, map[string]bool{"doc-a": true}, 5)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestNormalizeScore(t *testing.T) {
	t.Run("cosine maps to unit interval", func(t *testing.T) {
		r := NewRetriever(nil)
		assert.InDelta(t, 1.0, r.normalizeScore(1), 1e-9)
		assert.InDelta(t, 0.5, r.normalizeScore(0), 1e-9)
		assert.InDelta(t, 0.0, r.normalizeScore(-1), 1e-9)
	})

	t.Run("l2 inverts distance", func(t *testing.T) {
		r := NewRetriever(nil, WithMetric(core.MetricL2))
		assert.InDelta(t, 1.0, r.normalizeScore(0), 1e-9)
		assert.InDelta(t, 0.5, r.normalizeScore(1), 1e-9)
	})
}
