package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

func TestChunker_Fixed(t *testing.T) {
	chunker, err := NewChunker(&core.ChunkingSettings{
		Strategy:  core.ChunkingStrategyFixed,
		ChunkSize: 50,
	})
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 10)
	chunks, err := chunker.Split("doc-1", text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	t.Run("ordinals are sequential", func(t *testing.T) {
		for i, chunk := range chunks {
			assert.Equal(t, i, chunk.Ordinal)
			assert.Equal(t, "doc-1", chunk.DocumentId)
			assert.NotEmpty(t, chunk.Text)
		}
	})

	t.Run("chunk ids are deterministic across runs", func(t *testing.T) {
		again, err := chunker.Split("doc-1", text)
		require.NoError(t, err)
		require.Len(t, again, len(chunks))
		for i := range chunks {
			assert.Equal(t, chunks[i].Id, again[i].Id)
		}
	})

	t.Run("different documents get different ids", func(t *testing.T) {
		other, err := chunker.Split("doc-2", text)
		require.NoError(t, err)
		assert.NotEqual(t, chunks[0].Id, other[0].Id)
	})
}

func TestChunker_Separator(t *testing.T) {
	chunker, err := NewChunker(&core.ChunkingSettings{
		Strategy:  core.ChunkingStrategySeparator,
		Separator: "---",
		ChunkSize: 20,
	})
	require.NoError(t, err)

	chunks, err := chunker.Split("doc-1", "first section text---second section text---third section text")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)
	for _, chunk := range chunks {
		assert.NotContains(t, chunk.Text, "---")
	}
}

func TestChunker_Paragraph(t *testing.T) {
	chunker, err := NewChunker(&core.ChunkingSettings{
		Strategy:  core.ChunkingStrategyParagraph,
		ChunkSize: 30,
	})
	require.NoError(t, err)

	chunks, err := chunker.Split("doc-1", "first paragraph of prose\n\nsecond paragraph of prose\n\nthird paragraph of prose")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(chunks), 3)
}

func TestChunker_Errors(t *testing.T) {
	t.Run("unknown strategy", func(t *testing.T) {
		_, err := NewChunker(&core.ChunkingSettings{Strategy: "semantic", ChunkSize: 100})
		assert.ErrorIs(t, err, ErrUnknownChunkingStrategy)
	})

	t.Run("blank content", func(t *testing.T) {
		chunker, err := NewChunker(&core.ChunkingSettings{
			Strategy:  core.ChunkingStrategyFixed,
			ChunkSize: 100,
		})
		require.NoError(t, err)

		_, err = chunker.Split("doc-1", "   \n\t  ")
		assert.ErrorIs(t, err, ErrNoContent)
	})
}
