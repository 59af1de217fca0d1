package storage

import (
	"context"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

// DocumentRepository provides operations for managing document metadata and
// the extracted text content that feeds the ingestion pipeline.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// AddDocument persists a new document record.
	// Generates an ID when empty and sets InsertedAt if not already set.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// UpdateDocument updates an existing document record.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// DeleteDocument removes a document record and its stored content.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id string) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// ListDocuments retrieves all document records.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// PutDocumentContent stores the extracted text for a document.
	PutDocumentContent(ctx context.Context, id string, content string) error

	// GetDocumentContent retrieves the extracted text for a document.
	// Returns ErrNotFound if no content has been stored.
	GetDocumentContent(ctx context.Context, id string) (string, error)

	// Close closes the repository.
	Close() error
}

// TagRepository provides read/write access to tags and their allowed-role sets.
// The query pipeline only reads; writes exist for bootstrap and tooling.
type TagRepository interface {
	// AddTag persists a tag. Generates an ID when empty.
	AddTag(ctx context.Context, tag *core.Tag) (*core.Tag, error)

	// UpdateTag updates an existing tag, including its allowed roles.
	// Returns ErrNotFound if the tag doesn't exist.
	UpdateTag(ctx context.Context, tag *core.Tag) (*core.Tag, error)

	// GetTag retrieves a single tag by ID.
	// Returns ErrNotFound if the tag doesn't exist.
	GetTag(ctx context.Context, id string) (*core.Tag, error)

	// GetTags retrieves multiple tags by ID.
	// Returns only the tags that exist (no error for missing tags).
	GetTags(ctx context.Context, ids ...string) ([]*core.Tag, error)

	// Close closes the repository.
	Close() error
}

// SettingsRepository persists provider configuration rows. Saving a row
// validates it first; saving an active row deactivates any previously active
// row of the same kind so at most one active row exists per kind.
type SettingsRepository interface {
	SaveLLMSettings(ctx context.Context, s *core.LLMSettings) (*core.LLMSettings, error)
	SaveEmbeddingSettings(ctx context.Context, s *core.EmbeddingSettings) (*core.EmbeddingSettings, error)
	SaveChunkingSettings(ctx context.Context, s *core.ChunkingSettings) (*core.ChunkingSettings, error)
	SaveVectorDBSettings(ctx context.Context, s *core.VectorDBSettings) (*core.VectorDBSettings, error)
	SaveSystemPrompt(ctx context.Context, s *core.SystemPrompt) (*core.SystemPrompt, error)

	// ActiveLLMSettings returns every LLM row currently flagged active.
	// The settings resolver decides how to treat zero or multiple rows.
	ActiveLLMSettings(ctx context.Context) ([]*core.LLMSettings, error)
	ActiveEmbeddingSettings(ctx context.Context) ([]*core.EmbeddingSettings, error)
	ActiveChunkingSettings(ctx context.Context) ([]*core.ChunkingSettings, error)
	ActiveVectorDBSettings(ctx context.Context) ([]*core.VectorDBSettings, error)
	DefaultSystemPrompts(ctx context.Context) ([]*core.SystemPrompt, error)

	// Close closes the repository.
	Close() error
}

// ConversationRepository persists conversations and messages. The query
// pipeline reads recent turns and appends the user/assistant message pair.
type ConversationRepository interface {
	// AddConversation persists a conversation. Generates an ID when empty.
	AddConversation(ctx context.Context, conv *core.Conversation) (*core.Conversation, error)

	// GetConversation retrieves a conversation by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetConversation(ctx context.Context, id string) (*core.Conversation, error)

	// AddMessage appends a message to a conversation.
	// Returns ErrNotFound if the conversation doesn't exist.
	AddMessage(ctx context.Context, msg *core.Message) (*core.Message, error)

	// GetRecentTurns retrieves up to limit of the most recent turns of a
	// conversation in chronological order.
	GetRecentTurns(ctx context.Context, conversationId string, limit int) ([]core.ConversationTurn, error)

	// DeleteConversation removes a conversation and its messages.
	DeleteConversation(ctx context.Context, id string) error

	// Close closes the repository.
	Close() error
}

// VectorIndex is the contract a vector store must satisfy: upsert by chunk ID,
// nearest-neighbor search, and deletion by owning document.
// Implementations must be thread-safe.
type VectorIndex interface {
	// Upsert stores vectors keyed by chunk ID, overwriting existing entries.
	Upsert(ctx context.Context, vectors ...*core.IndexedVector) error

	// Search returns up to limit nearest neighbors of the query vector,
	// ordered best-first in the index's native metric.
	// Returns an empty slice when the index is empty.
	Search(ctx context.Context, query []float32, limit int) ([]*core.VectorMatch, error)

	// DeleteByDocument removes every vector belonging to the document.
	DeleteByDocument(ctx context.Context, documentId string) error

	// CountByDocument returns the number of vectors stored for the document.
	CountByDocument(ctx context.Context, documentId string) (int, error)

	// Close closes the index.
	Close() error
}

// FilteredVectorIndex is an optional capability for indexes that support
// restricting a search to a set of documents natively. The retriever falls
// back to over-fetching and post-filtering when the capability is absent.
type FilteredVectorIndex interface {
	VectorIndex

	// SearchByDocuments behaves like Search but only considers vectors whose
	// document ID is in permitted.
	SearchByDocuments(ctx context.Context, query []float32, limit int, permitted map[string]bool) ([]*core.VectorMatch, error)
}
