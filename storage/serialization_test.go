package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalIndexedVector(t *testing.T) {
	v := &core.IndexedVector{
		ChunkId:    core.ChunkID("doc-1", 3),
		DocumentId: "doc-1",
		Title:      "Employee handbook",
		Vector:     []float32{0.25, -0.5, 0.75},
		Text:       "a passage of document text",
		Ordinal:    3,
		Page:       12,
	}

	decoded, err := UnmarshalIndexedVector(MarshalIndexedVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, decoded)
}

func TestMarshalUnmarshalDocument(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name string
		doc  *core.Document
	}{
		{
			name: "minimal document",
			doc: &core.Document{
				Id:         "doc-1",
				Title:      "Handbook",
				Status:     core.DocumentStatusPending,
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "document with tags and failure message",
			doc: &core.Document{
				Id:           "doc-2",
				Title:        "Quarterly report",
				Description:  "Q3 numbers",
				FileName:     "q3.pdf",
				MimeType:     "application/pdf",
				Status:       core.DocumentStatusFailed,
				ErrorMessage: "embedding chunks 0-15: provider timeout",
				UserId:       "user-7",
				TagIds:       []string{"finance", "internal"},
				ChunkCount:   20,
				InsertedAt:   now,
				UpdatedAt:    now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalDocument(MarshalDocument(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.doc.Id, decoded.Id)
			assert.Equal(t, tt.doc.Status, decoded.Status)
			assert.Equal(t, tt.doc.TagIds, decoded.TagIds)
			assert.Equal(t, tt.doc.ErrorMessage, decoded.ErrorMessage)
			assert.True(t, tt.doc.InsertedAt.Equal(decoded.InsertedAt))
		})
	}
}

func TestMarshalUnmarshalTag(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	tag := &core.Tag{
		Id:           "finance",
		Name:         "Finance",
		Color:        "#00aa44",
		Description:  "Finance department documents",
		AllowedRoles: []string{"finance", "admin"},
		InsertedAt:   now,
		UpdatedAt:    now,
	}

	decoded, err := UnmarshalTag(MarshalTag(tag))
	require.NoError(t, err)
	assert.Equal(t, tag.Id, decoded.Id)
	assert.Equal(t, tag.AllowedRoles, decoded.AllowedRoles)
}

func TestMarshalUnmarshalMessage(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("message without sources", func(t *testing.T) {
		msg := &core.Message{
			Id:             "msg-1",
			ConversationId: "conv-1",
			Role:           core.RoleUser,
			Content:        "What is the travel policy?",
			CreatedAt:      now,
		}
		decoded, err := UnmarshalMessage(MarshalMessage(msg))
		require.NoError(t, err)
		assert.Equal(t, msg.Content, decoded.Content)
		assert.Empty(t, decoded.Sources)
		assert.True(t, msg.CreatedAt.Equal(decoded.CreatedAt))
	})

	t.Run("assistant message with sources", func(t *testing.T) {
		msg := &core.Message{
			Id:             "msg-2",
			ConversationId: "conv-1",
			Role:           core.RoleAssistant,
			Content:        "The travel policy allows...",
			Sources: []core.Source{
				{Id: "1001", DocumentId: "doc-1", Title: "Handbook", Content: "travel policy text", Page: 4, Score: 0.91},
				{Id: "1002", DocumentId: "doc-2", Content: "expense rules", Score: 0.72},
			},
			CreatedAt: now,
		}
		decoded, err := UnmarshalMessage(MarshalMessage(msg))
		require.NoError(t, err)
		require.Len(t, decoded.Sources, 2)
		assert.Equal(t, msg.Sources[0], decoded.Sources[0])
		assert.Equal(t, msg.Sources[1], decoded.Sources[1])
	})
}

func TestMarshalUnmarshalSettings(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("llm settings", func(t *testing.T) {
		s := &core.LLMSettings{
			Id:          "llm-1",
			Provider:    "openai",
			ModelName:   "gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.2,
			TopP:        0.9,
			ApiBase:     "http://localhost:11434/v1",
			IsActive:    true,
			InsertedAt:  now,
			UpdatedAt:   now,
		}
		decoded, err := UnmarshalLLMSettings(MarshalLLMSettings(s))
		require.NoError(t, err)
		assert.Equal(t, s.ModelName, decoded.ModelName)
		assert.Equal(t, s.Temperature, decoded.Temperature)
		assert.True(t, decoded.IsActive)
	})

	t.Run("chunking settings", func(t *testing.T) {
		s := &core.ChunkingSettings{
			Id:           "chunk-1",
			Strategy:     core.ChunkingStrategySeparator,
			ChunkSize:    800,
			ChunkOverlap: 80,
			Separator:    "\n\n",
			IsActive:     true,
			InsertedAt:   now,
			UpdatedAt:    now,
		}
		decoded, err := UnmarshalChunkingSettings(MarshalChunkingSettings(s))
		require.NoError(t, err)
		assert.Equal(t, s.Strategy, decoded.Strategy)
		assert.Equal(t, s.Separator, decoded.Separator)
	})

	t.Run("vector db settings", func(t *testing.T) {
		s := &core.VectorDBSettings{
			Id:               "vdb-1",
			Provider:         core.VectorDBProviderPGVector,
			ConnectionString: "postgres://localhost/rag",
			CollectionName:   "chunks",
			Dimensions:       768,
			Metric:           core.MetricCosine,
			IsActive:         true,
			InsertedAt:       now,
			UpdatedAt:        now,
		}
		decoded, err := UnmarshalVectorDBSettings(MarshalVectorDBSettings(s))
		require.NoError(t, err)
		assert.Equal(t, s.ConnectionString, decoded.ConnectionString)
		assert.Equal(t, s.Dimensions, decoded.Dimensions)
	})
}
