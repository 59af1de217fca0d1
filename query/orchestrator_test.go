package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lethanhson9903/rag-assistant-api-core/access"
	"github.com/lethanhson9903/rag-assistant-api-core/ai"
	"github.com/lethanhson9903/rag-assistant-api-core/ai/mock"
	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/settings"
	"github.com/lethanhson9903/rag-assistant-api-core/storage/badger"
)

type testEnv struct {
	repos    *badger.Repositories
	provider *mock.MockProvider
	docs     map[string]string
	convId   string
	queryVec []float32
}

// newTestEnv seeds a full pipeline: active settings, a restricted and a public
// document with indexed chunks, and a conversation to persist into. The mock
// embedder answers with a vector close to the indexed chunks.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	ctx := context.Background()

	_, err = repos.Settings.SaveLLMSettings(ctx, &core.LLMSettings{
		Provider: "openai", ModelName: "gpt-4o-mini", MaxTokens: 512, Temperature: 0.1, IsActive: true,
	})
	require.NoError(t, err)
	_, err = repos.Settings.SaveEmbeddingSettings(ctx, &core.EmbeddingSettings{
		Provider: "openai", ModelName: "text-embedding-3-small", Dimensions: 3, IsActive: true,
	})
	require.NoError(t, err)
	_, err = repos.Settings.SaveVectorDBSettings(ctx, &core.VectorDBSettings{
		Provider: core.VectorDBProviderBadger, Dimensions: 3, Metric: core.MetricCosine, IsActive: true,
	})
	require.NoError(t, err)
	_, err = repos.Settings.SaveSystemPrompt(ctx, &core.SystemPrompt{
		Name: "default", Content: "Answer from the provided context.", IsDefault: true,
	})
	require.NoError(t, err)

	restricted, err := repos.Tags.AddTag(ctx, &core.Tag{Name: "Restricted", AllowedRoles: []string{"insider"}})
	require.NoError(t, err)

	docs := map[string]string{}
	addDoc := func(name string, tagIds ...string) string {
		doc, err := repos.Documents.AddDocument(ctx, &core.Document{
			Title:  name,
			Status: core.DocumentStatusReady,
			TagIds: tagIds,
		})
		require.NoError(t, err)
		docs[name] = doc.Id
		return doc.Id
	}
	publicId := addDoc("public")
	secretId := addDoc("secret", restricted.Id)

	seed := func(docId, title, text string, ordinal int, vec []float32) {
		err := repos.Vectors.Upsert(ctx, &core.IndexedVector{
			ChunkId:    core.ChunkID(docId, ordinal),
			DocumentId: docId,
			Title:      title,
			Vector:     core.NormalizeVector(vec),
			Text:       text,
			Ordinal:    ordinal,
		})
		require.NoError(t, err)
	}
	seed(publicId, "public", "the public handbook says hello", 0, []float32{1, 0, 0})
	seed(publicId, "public", "public appendix", 1, []float32{0.9, 0.1, 0})
	seed(secretId, "secret", "the secret memo", 0, []float32{0.95, 0.05, 0})

	conv, err := repos.Conversations.AddConversation(ctx, &core.Conversation{UserId: "user-1", Title: "test"})
	require.NoError(t, err)

	provider := mock.NewMockProvider().(*mock.MockProvider)
	queryVec := core.NormalizeVector([]float32{1, 0, 0})
	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return queryVec, nil
	}

	return &testEnv{repos: repos, provider: provider, docs: docs, convId: conv.Id, queryVec: queryVec}
}

func (e *testEnv) orchestrator(opts ...Option) *Orchestrator {
	factory := func(llm *core.LLMSettings, embedding *core.EmbeddingSettings) (ai.Provider, error) {
		return e.provider, nil
	}
	opts = append([]Option{WithRetry(2, time.Millisecond)}, opts...)
	return NewOrchestrator(
		settings.NewResolver(e.repos.Settings),
		access.NewFilter(e.repos.Documents, e.repos.Tags),
		e.repos.Vectors,
		factory,
		e.repos.Conversations,
		opts...,
	)
}

func TestProcessQuery_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	o := env.orchestrator()

	result, err := o.ProcessQuery(context.Background(), "what does the handbook say?", env.convId, core.User{Id: "user-1", Role: "insider"}, nil)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, "mock answer: what does the handbook say?", result.Answer)
	require.NotEmpty(t, result.Sources)
	assert.Equal(t, "public", result.Sources[0].Title)

	t.Run("system message carries retrieved context", func(t *testing.T) {
		messages := env.provider.GetMockGenerator().LastMessages()
		require.NotEmpty(t, messages)
		assert.Equal(t, core.RoleSystem, messages[0].Role)
		assert.Contains(t, messages[0].Content, "the public handbook says hello")
	})

	t.Run("both turns persisted with sources", func(t *testing.T) {
		turns, err := env.repos.Conversations.GetRecentTurns(context.Background(), env.convId, 10)
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, core.RoleUser, turns[0].Role)
		assert.Equal(t, "what does the handbook say?", turns[0].Content)
		assert.Equal(t, core.RoleAssistant, turns[1].Role)
		assert.Equal(t, result.Answer, turns[1].Content)
	})
}

func TestProcessQuery_AccessFiltering(t *testing.T) {
	env := newTestEnv(t)
	o := env.orchestrator()

	t.Run("restricted document never cited", func(t *testing.T) {
		result, err := o.ProcessQuery(context.Background(), "anything secret?", "", core.User{Id: "u", Role: "outsider"}, nil)
		require.NoError(t, err)
		require.NotEmpty(t, result.Sources)
		for _, source := range result.Sources {
			assert.Equal(t, env.docs["public"], source.DocumentId)
		}
	})

	t.Run("admin sees every document", func(t *testing.T) {
		result, err := o.ProcessQuery(context.Background(), "everything", "", core.User{Id: "a", Role: "admin"}, nil)
		require.NoError(t, err)
		cited := map[string]bool{}
		for _, source := range result.Sources {
			cited[source.DocumentId] = true
		}
		assert.True(t, cited[env.docs["secret"]])
	})
}

func TestProcessQuery_NothingToRetrieve(t *testing.T) {
	env := newTestEnv(t)
	o := env.orchestrator()

	// Embedding works, but the tag filter hides every document. The generator
	// still runs so the user gets a conversational answer with no sources.
	result, err := o.ProcessQuery(context.Background(), "hello", "", core.User{Id: "u", Role: "stranger"}, []string{"no-such-tag"})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	assert.Empty(t, result.Sources)
	assert.Equal(t, "mock answer: hello", result.Answer)
	assert.Equal(t, 1, env.provider.GetMockGenerator().CallCount())
}

func TestProcessQuery_Degradation(t *testing.T) {
	t.Run("embedding failure with permitted documents drops sources", func(t *testing.T) {
		env := newTestEnv(t)
		env.provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, fmt.Errorf("%w: upstream down", core.ErrEmbeddingProvider)
		}
		o := env.orchestrator()

		result, err := o.ProcessQuery(context.Background(), "question", "", core.User{Id: "u", Role: "outsider"}, nil)
		require.NoError(t, err)
		assert.Equal(t, StateCompleted, result.State)
		assert.Empty(t, result.Sources)
		assert.Equal(t, "mock answer: question", result.Answer)
	})

	t.Run("embedding failure with nothing to search completes without knowledge", func(t *testing.T) {
		env := newTestEnv(t)
		env.provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, fmt.Errorf("%w: upstream down", core.ErrEmbeddingProvider)
		}
		o := env.orchestrator()

		// No tag grants the stranger role and the seeded public document is
		// excluded by the tag filter, so nothing is visible.
		result, err := o.ProcessQuery(context.Background(), "question", env.convId, core.User{Id: "u", Role: "stranger"}, []string{"no-such-tag"})
		require.NoError(t, err)
		assert.Equal(t, StateCompleted, result.State)
		assert.Equal(t, NoKnowledgeAnswer, result.Answer)
		assert.Empty(t, result.Sources)
		assert.Zero(t, env.provider.GetMockGenerator().CallCount())
	})
}

func TestProcessQuery_GenerationFallback(t *testing.T) {
	env := newTestEnv(t)
	env.provider.GetMockGenerator().GenerateFunc = func(ctx context.Context, messages []core.PromptMessage) (string, error) {
		return "", fmt.Errorf("%w: model rejected the request", core.ErrGeneratorFatal)
	}
	o := env.orchestrator()

	result, err := o.ProcessQuery(context.Background(), "question", env.convId, core.User{Id: "u", Role: "admin"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, FallbackAnswer, result.Answer)
	assert.Empty(t, result.Sources)

	t.Run("fatal errors are not retried", func(t *testing.T) {
		assert.Equal(t, 1, env.provider.GetMockGenerator().CallCount())
	})

	t.Run("fallback answer still persisted", func(t *testing.T) {
		turns, err := env.repos.Conversations.GetRecentTurns(context.Background(), env.convId, 10)
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, FallbackAnswer, turns[1].Content)
	})
}

func TestProcessQuery_TransientGenerationRetry(t *testing.T) {
	env := newTestEnv(t)
	calls := 0
	env.provider.GetMockGenerator().GenerateFunc = func(ctx context.Context, messages []core.PromptMessage) (string, error) {
		calls++
		if calls == 1 {
			return "", fmt.Errorf("%w: rate limited", core.ErrGeneratorTransient)
		}
		return "recovered answer", nil
	}
	o := env.orchestrator()

	result, err := o.ProcessQuery(context.Background(), "question", "", core.User{Id: "u", Role: "admin"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, "recovered answer", result.Answer)
	assert.Equal(t, 2, calls)
}

func TestProcessQuery_MissingConfiguration(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	o := NewOrchestrator(
		settings.NewResolver(repos.Settings),
		access.NewFilter(repos.Documents, repos.Tags),
		repos.Vectors,
		func(llm *core.LLMSettings, embedding *core.EmbeddingSettings) (ai.Provider, error) {
			return mock.NewMockProvider(), nil
		},
		repos.Conversations,
	)

	_, err = o.ProcessQuery(context.Background(), "question", "", core.User{Id: "u", Role: "admin"}, nil)
	assert.ErrorIs(t, err, core.ErrConfigurationMissing)
}

func TestProcessQuery_HistoryFlowsIntoPrompt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.repos.Conversations.AddMessage(ctx, &core.Message{
		ConversationId: env.convId,
		Role:           core.RoleUser,
		Content:        "earlier question",
		CreatedAt:      time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	o := env.orchestrator()
	_, err = o.ProcessQuery(ctx, "follow-up", env.convId, core.User{Id: "user-1", Role: "admin"}, nil)
	require.NoError(t, err)

	messages := env.provider.GetMockGenerator().LastMessages()
	var found bool
	for _, msg := range messages {
		if msg.Content == "earlier question" {
			found = true
		}
	}
	assert.True(t, found, "history turn should appear in the assembled prompt")
}
