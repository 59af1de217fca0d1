package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
)

func TestConversationRepository(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()

	conv, err := repos.Conversations.AddConversation(ctx, &core.Conversation{UserId: "user-1", Title: "Travel"})
	require.NoError(t, err)
	require.NotEmpty(t, conv.Id)

	t.Run("add message to missing conversation", func(t *testing.T) {
		_, err := repos.Conversations.AddMessage(ctx, &core.Message{
			ConversationId: "missing",
			Role:           core.RoleUser,
			Content:        "hello",
		})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("recent turns come back chronological", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Microsecond)
		for i := 0; i < 6; i++ {
			role := core.RoleUser
			if i%2 == 1 {
				role = core.RoleAssistant
			}
			_, err := repos.Conversations.AddMessage(ctx, &core.Message{
				ConversationId: conv.Id,
				Role:           role,
				Content:        fmt.Sprintf("message %d", i),
				CreatedAt:      base.Add(time.Duration(i) * time.Second),
			})
			require.NoError(t, err)
		}

		turns, err := repos.Conversations.GetRecentTurns(ctx, conv.Id, 4)
		require.NoError(t, err)
		require.Len(t, turns, 4)
		assert.Equal(t, "message 2", turns[0].Content)
		assert.Equal(t, "message 5", turns[3].Content)
		assert.Equal(t, core.RoleUser, turns[0].Role)
		assert.Equal(t, core.RoleAssistant, turns[3].Role)
	})

	t.Run("sources survive persistence", func(t *testing.T) {
		msg, err := repos.Conversations.AddMessage(ctx, &core.Message{
			ConversationId: conv.Id,
			Role:           core.RoleAssistant,
			Content:        "answer",
			Sources: []core.Source{
				{Id: "1", DocumentId: "doc-1", Content: "cited text", Score: 0.8},
			},
		})
		require.NoError(t, err)
		require.NotEmpty(t, msg.Id)
	})

	t.Run("delete removes conversation and messages", func(t *testing.T) {
		require.NoError(t, repos.Conversations.DeleteConversation(ctx, conv.Id))

		_, err := repos.Conversations.GetConversation(ctx, conv.Id)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		turns, err := repos.Conversations.GetRecentTurns(ctx, conv.Id, 10)
		require.NoError(t, err)
		assert.Empty(t, turns)
	})
}
