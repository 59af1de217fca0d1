package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
)

func TestDocumentRepository_CRUD(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()

	t.Run("add generates id and timestamps", func(t *testing.T) {
		added, err := repos.Documents.AddDocument(ctx, &core.Document{
			Title:  "Handbook",
			Status: core.DocumentStatusPending,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, added.Id)
		assert.False(t, added.InsertedAt.IsZero())

		got, err := repos.Documents.GetDocument(ctx, added.Id)
		require.NoError(t, err)
		assert.Equal(t, "Handbook", got.Title)
		assert.Equal(t, core.DocumentStatusPending, got.Status)
	})

	t.Run("update bumps updated at", func(t *testing.T) {
		added, err := repos.Documents.AddDocument(ctx, &core.Document{
			Title:  "Draft",
			Status: core.DocumentStatusPending,
		})
		require.NoError(t, err)

		added.Status = core.DocumentStatusReady
		added.ChunkCount = 7
		updated, err := repos.Documents.UpdateDocument(ctx, added)
		require.NoError(t, err)
		assert.Equal(t, core.DocumentStatusReady, updated.Status)
		assert.Equal(t, 7, updated.ChunkCount)
		assert.False(t, updated.UpdatedAt.Before(updated.InsertedAt))
	})

	t.Run("get missing returns not found", func(t *testing.T) {
		_, err := repos.Documents.GetDocument(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("update missing returns not found", func(t *testing.T) {
		_, err := repos.Documents.UpdateDocument(ctx, &core.Document{Id: "nope"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("delete removes record and content", func(t *testing.T) {
		added, err := repos.Documents.AddDocument(ctx, &core.Document{Title: "Temp"})
		require.NoError(t, err)
		require.NoError(t, repos.Documents.PutDocumentContent(ctx, added.Id, "text"))

		require.NoError(t, repos.Documents.DeleteDocument(ctx, added.Id))
		_, err = repos.Documents.GetDocument(ctx, added.Id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = repos.Documents.GetDocumentContent(ctx, added.Id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("content round-trip", func(t *testing.T) {
		added, err := repos.Documents.AddDocument(ctx, &core.Document{Title: "Content"})
		require.NoError(t, err)
		require.NoError(t, repos.Documents.PutDocumentContent(ctx, added.Id, "the extracted text"))

		content, err := repos.Documents.GetDocumentContent(ctx, added.Id)
		require.NoError(t, err)
		assert.Equal(t, "the extracted text", content)
	})

	t.Run("list returns all documents", func(t *testing.T) {
		docs, err := repos.Documents.ListDocuments(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(docs), 3)
	})
}

func TestTagRepository(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()

	finance, err := repos.Tags.AddTag(ctx, &core.Tag{
		Name:         "Finance",
		AllowedRoles: []string{"finance", "admin"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, finance.Id)

	hr, err := repos.Tags.AddTag(ctx, &core.Tag{
		Name:         "HR",
		AllowedRoles: []string{"hr"},
	})
	require.NoError(t, err)

	t.Run("get returns stored roles", func(t *testing.T) {
		got, err := repos.Tags.GetTag(ctx, finance.Id)
		require.NoError(t, err)
		assert.Equal(t, []string{"finance", "admin"}, got.AllowedRoles)
	})

	t.Run("get tags skips missing", func(t *testing.T) {
		tags, err := repos.Tags.GetTags(ctx, finance.Id, "missing", hr.Id)
		require.NoError(t, err)
		assert.Len(t, tags, 2)
	})

	t.Run("update replaces roles", func(t *testing.T) {
		hr.AllowedRoles = []string{"hr", "admin"}
		updated, err := repos.Tags.UpdateTag(ctx, hr)
		require.NoError(t, err)
		assert.Equal(t, []string{"hr", "admin"}, updated.AllowedRoles)
	})
}
