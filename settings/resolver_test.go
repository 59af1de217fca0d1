package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
	"github.com/lethanhson9903/rag-assistant-api-core/storage/badger"
)

func seedQuerySettings(t *testing.T, repos *badger.Repositories) {
	t.Helper()
	ctx := context.Background()

	_, err := repos.Settings.SaveLLMSettings(ctx, &core.LLMSettings{
		Provider: "openai", ModelName: "gpt-4o-mini", MaxTokens: 1024, Temperature: 0.2, IsActive: true,
	})
	require.NoError(t, err)
	_, err = repos.Settings.SaveEmbeddingSettings(ctx, &core.EmbeddingSettings{
		Provider: "openai", ModelName: "nomic-embed-text", Dimensions: 768, IsActive: true,
	})
	require.NoError(t, err)
	_, err = repos.Settings.SaveVectorDBSettings(ctx, &core.VectorDBSettings{
		Provider: core.VectorDBProviderBadger, Dimensions: 768, Metric: core.MetricCosine, IsActive: true,
	})
	require.NoError(t, err)
}

func TestResolver_QuerySnapshot(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	resolver := NewResolver(repos.Settings)
	ctx := context.Background()

	t.Run("missing configuration", func(t *testing.T) {
		_, err := resolver.QuerySnapshot(ctx)
		assert.ErrorIs(t, err, core.ErrConfigurationMissing)
	})

	seedQuerySettings(t, repos)

	t.Run("resolves active rows", func(t *testing.T) {
		snapshot, err := resolver.QuerySnapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", snapshot.LLM.ModelName)
		assert.Equal(t, 768, snapshot.Embedding.Dimensions)
		assert.Equal(t, core.MetricCosine, snapshot.VectorDB.Metric)
	})

	t.Run("missing system prompt is not fatal", func(t *testing.T) {
		snapshot, err := resolver.QuerySnapshot(ctx)
		require.NoError(t, err)
		assert.Nil(t, snapshot.SystemPrompt)
	})

	t.Run("default system prompt is picked up", func(t *testing.T) {
		_, err := repos.Settings.SaveSystemPrompt(ctx, &core.SystemPrompt{
			Name: "v1", Content: "Be helpful.", IsDefault: true,
		})
		require.NoError(t, err)

		snapshot, err := resolver.QuerySnapshot(ctx)
		require.NoError(t, err)
		require.NotNil(t, snapshot.SystemPrompt)
		assert.Equal(t, "Be helpful.", snapshot.SystemPrompt.Content)
	})
}

func TestResolver_IngestionSnapshot(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	resolver := NewResolver(repos.Settings)
	ctx := context.Background()
	seedQuerySettings(t, repos)

	t.Run("missing chunking configuration", func(t *testing.T) {
		_, err := resolver.IngestionSnapshot(ctx)
		assert.ErrorIs(t, err, core.ErrConfigurationMissing)
	})

	t.Run("resolves once chunking is saved", func(t *testing.T) {
		_, err := repos.Settings.SaveChunkingSettings(ctx, &core.ChunkingSettings{
			Strategy: core.ChunkingStrategyFixed, ChunkSize: 500, ChunkOverlap: 50, IsActive: true,
		})
		require.NoError(t, err)

		snapshot, err := resolver.IngestionSnapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, 500, snapshot.Chunking.ChunkSize)
		assert.Nil(t, snapshot.LLM)
	})
}

// multiActiveRepo simulates the data-integrity violation the repository
// normally prevents: more than one active row for a kind.
type multiActiveRepo struct {
	storage.SettingsRepository
}

func (r *multiActiveRepo) ActiveLLMSettings(ctx context.Context) ([]*core.LLMSettings, error) {
	return []*core.LLMSettings{
		{Id: "a", ModelName: "model-a", IsActive: true},
		{Id: "b", ModelName: "model-b", IsActive: true},
	}, nil
}

func TestResolver_Conflict(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	resolver := NewResolver(&multiActiveRepo{SettingsRepository: repos.Settings})
	_, err = resolver.LLM(context.Background())
	assert.ErrorIs(t, err, core.ErrConfigurationConflict)
}
