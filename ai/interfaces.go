package ai

import (
	"context"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces an answer from an assembled prompt.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate invokes the language model with the prompt messages and returns
	// the answer text. The context deadline bounds the provider call.
	Generate(ctx context.Context, messages []core.PromptMessage) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider is constructed from the active settings snapshot at
// the start of a query, never shared across configuration changes.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the text generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	Close() error
}

// ProviderFactory builds a provider from resolved settings rows. The query
// orchestrator calls it once per query with that query's snapshot, which keeps
// concurrent queries consistent even if configuration changes mid-flight.
type ProviderFactory func(llm *core.LLMSettings, embedding *core.EmbeddingSettings) (Provider, error)

// EmbedderFactory builds an embedder alone. Ingestion uses it since it never
// generates text.
type EmbedderFactory func(embedding *core.EmbeddingSettings) (Embedder, error)
