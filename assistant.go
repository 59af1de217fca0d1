// Copyright 2025 Son Le
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ragcore is a retrieval-augmented question answering core. It wires
// document storage, tag-based access control, a vector index, and
// OpenAI-compatible AI providers into two operations: ingesting documents and
// answering queries grounded in them.
package ragcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lethanhson9903/rag-assistant-api-core/access"
	"github.com/lethanhson9903/rag-assistant-api-core/ai"
	"github.com/lethanhson9903/rag-assistant-api-core/ai/openai"
	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/ingestion"
	"github.com/lethanhson9903/rag-assistant-api-core/query"
	"github.com/lethanhson9903/rag-assistant-api-core/settings"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
	"github.com/lethanhson9903/rag-assistant-api-core/storage/badger"
	"github.com/lethanhson9903/rag-assistant-api-core/storage/pgvector"
)

// DefaultProviderFactory builds providers for OpenAI-compatible services.
// Local runtimes speaking the same wire format route through the openai
// implementation with ApiBase pointed at them.
func DefaultProviderFactory(llm *core.LLMSettings, embedding *core.EmbeddingSettings) (ai.Provider, error) {
	if llm == nil {
		return nil, ai.ErrLLMSettingsRequired
	}
	switch llm.Provider {
	case "openai", "azure", "ollama", "vllm", "openai-compatible":
		return openai.NewProvider(llm, embedding)
	default:
		return nil, fmt.Errorf("%w: %s", ai.ErrUnknownProvider, llm.Provider)
	}
}

// DefaultEmbedderFactory builds embedders for OpenAI-compatible services.
func DefaultEmbedderFactory(embedding *core.EmbeddingSettings) (ai.Embedder, error) {
	return openai.NewEmbedder(embedding)
}

// Assistant bundles the repositories and pipelines behind the two public
// operations, ProcessQuery and IngestDocument.
type Assistant struct {
	repos        *badger.Repositories
	index        storage.VectorIndex
	ownsIndex    bool
	resolver     *settings.Resolver
	filter       *access.Filter
	orchestrator *query.Orchestrator
	pipeline     *ingestion.Pipeline
	logger       *slog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*assistantOptions)

type assistantOptions struct {
	providerFactory ai.ProviderFactory
	embedderFactory ai.EmbedderFactory
	queryOpts       []query.Option
	ingestionOpts   []ingestion.Option
	inMemory        bool
}

// WithProviderFactory overrides how AI providers are built from settings.
func WithProviderFactory(factory ai.ProviderFactory) AssistantOption {
	return func(o *assistantOptions) {
		if factory != nil {
			o.providerFactory = factory
		}
	}
}

// WithEmbedderFactory overrides how ingestion builds its embedder.
func WithEmbedderFactory(factory ai.EmbedderFactory) AssistantOption {
	return func(o *assistantOptions) {
		if factory != nil {
			o.embedderFactory = factory
		}
	}
}

// WithQueryOptions forwards options to the query orchestrator.
func WithQueryOptions(opts ...query.Option) AssistantOption {
	return func(o *assistantOptions) {
		o.queryOpts = append(o.queryOpts, opts...)
	}
}

// WithIngestionOptions forwards options to the ingestion pipeline.
func WithIngestionOptions(opts ...ingestion.Option) AssistantOption {
	return func(o *assistantOptions) {
		o.ingestionOpts = append(o.ingestionOpts, opts...)
	}
}

// WithInMemoryStorage keeps all state in memory. Intended for tests.
func WithInMemoryStorage() AssistantOption {
	return func(o *assistantOptions) {
		o.inMemory = true
	}
}

// Open opens the assistant's storage at filePath and wires the pipelines.
// The vector index backend is chosen from the active VectorDB settings row;
// with no row saved yet, the embedded index is used until one is configured.
func Open(filePath string, opts ...AssistantOption) (*Assistant, error) {
	options := &assistantOptions{
		providerFactory: DefaultProviderFactory,
		embedderFactory: DefaultEmbedderFactory,
	}
	for _, opt := range opts {
		opt(options)
	}

	repos, err := badger.OpenRepositories(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	resolver := settings.NewResolver(repos.Settings)
	index, ownsIndex, err := openIndex(context.Background(), resolver, repos)
	if err != nil {
		repos.Close()
		return nil, err
	}

	filter := access.NewFilter(repos.Documents, repos.Tags)
	orchestrator := query.NewOrchestrator(resolver, filter, index,
		options.providerFactory, repos.Conversations, options.queryOpts...)
	pipeline, err := ingestion.NewPipeline(repos.Documents, index, resolver,
		options.embedderFactory, options.ingestionOpts...)
	if err != nil {
		if ownsIndex {
			index.Close()
		}
		repos.Close()
		return nil, err
	}

	return &Assistant{
		repos:        repos,
		index:        index,
		ownsIndex:    ownsIndex,
		resolver:     resolver,
		filter:       filter,
		orchestrator: orchestrator,
		pipeline:     pipeline,
		logger:       slog.Default().With("component", "assistant"),
	}, nil
}

// openIndex selects the vector index backend from the active VectorDB
// settings. ownsIndex reports whether Close must close it separately from the
// shared repositories.
func openIndex(ctx context.Context, resolver *settings.Resolver, repos *badger.Repositories) (storage.VectorIndex, bool, error) {
	vdb, err := resolver.VectorDB(ctx)
	if err != nil {
		if errors.Is(err, core.ErrConfigurationMissing) {
			return repos.Vectors, false, nil
		}
		return nil, false, err
	}

	switch vdb.Provider {
	case core.VectorDBProviderPGVector:
		index, err := pgvector.Open(vdb.ConnectionString, vdb.CollectionName, vdb.Dimensions, vdb.Metric)
		if err != nil {
			return nil, false, err
		}
		return index, true, nil
	default:
		index, err := badger.NewVectorIndex(repos.Backend,
			badger.WithMetric(vdb.Metric), badger.WithDimensions(vdb.Dimensions))
		if err != nil {
			return nil, false, err
		}
		return index, false, nil
	}
}

// ProcessQuery answers a question grounded in the documents the user may
// retrieve from, returning the answer with its supporting sources.
func (a *Assistant) ProcessQuery(ctx context.Context, queryText string, conversationId string, user core.User, tagFilter []string) (*query.Result, error) {
	return a.orchestrator.ProcessQuery(ctx, queryText, conversationId, user, tagFilter)
}

// AddDocument stores a document record and its extracted text, ready for
// ingestion.
func (a *Assistant) AddDocument(ctx context.Context, doc *core.Document, content string) (*core.Document, error) {
	added, err := a.repos.Documents.AddDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	if err := a.repos.Documents.PutDocumentContent(ctx, added.Id, content); err != nil {
		return nil, err
	}
	return added, nil
}

// IngestDocument chunks, embeds, and indexes a stored document, streaming
// status updates until a terminal state.
func (a *Assistant) IngestDocument(ctx context.Context, documentId string) (<-chan core.StatusUpdate, error) {
	return a.pipeline.IngestDocument(ctx, documentId)
}

// DeleteDocument removes a document and all of its vectors. In-flight
// ingestion of the document is cancelled first.
func (a *Assistant) DeleteDocument(ctx context.Context, documentId string) error {
	return a.pipeline.DeleteDocument(ctx, documentId)
}

// GetDocument fetches a single document, enforcing tag-based access for the
// requesting user.
func (a *Assistant) GetDocument(ctx context.Context, user core.User, documentId string) (*core.Document, error) {
	return a.filter.CheckDocument(ctx, user.Role, documentId)
}

// Documents exposes the document repository for management surfaces.
func (a *Assistant) Documents() storage.DocumentRepository {
	return a.repos.Documents
}

// Tags exposes the tag repository for management surfaces.
func (a *Assistant) Tags() storage.TagRepository {
	return a.repos.Tags
}

// Settings exposes the settings repository for management surfaces.
func (a *Assistant) Settings() storage.SettingsRepository {
	return a.repos.Settings
}

// Conversations exposes the conversation repository for management surfaces.
func (a *Assistant) Conversations() storage.ConversationRepository {
	return a.repos.Conversations
}

// Close releases the pipelines and storage.
func (a *Assistant) Close() error {
	a.pipeline.Release()
	if a.ownsIndex {
		if err := a.index.Close(); err != nil {
			a.logger.Error("error closing vector index", "err", err)
		}
	}
	return a.repos.Close()
}
