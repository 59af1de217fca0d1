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


// Package settings resolves the active provider configuration at query time.
//
// Configuration rows live in storage with an IsActive flag. The resolver
// fetches the active row per kind and enforces the single-active invariant:
// zero active rows is ErrConfigurationMissing, more than one is
// ErrConfigurationConflict. Both are surfaced, never silently repaired.
//
// A Snapshot is taken once at the start of a query and used for all stages of
// that query, so a configuration change mid-flight never mixes providers.
package settings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
)

// Snapshot is the resolved configuration for a single query or ingestion run.
// SystemPrompt may be nil when no default prompt row exists; callers fall back
// to a built-in prompt.
type Snapshot struct {
	LLM          *core.LLMSettings
	Embedding    *core.EmbeddingSettings
	Chunking     *core.ChunkingSettings
	VectorDB     *core.VectorDBSettings
	SystemPrompt *core.SystemPrompt
}

// Resolver reads configuration rows and enforces the single-active invariant.
type Resolver struct {
	repo   storage.SettingsRepository
	logger *slog.Logger
}

// NewResolver creates a resolver backed by the given settings repository.
func NewResolver(repo storage.SettingsRepository) *Resolver {
	return &Resolver{
		repo:   repo,
		logger: slog.Default().With("component", "settings-resolver"),
	}
}

// one collapses the active rows of a kind to exactly one, translating the
// zero and multiple cases into the configuration error taxonomy.
func one[T any](kind core.SettingsKind, rows []*T, err error) (*T, error) {
	if err != nil {
		return nil, fmt.Errorf("loading %s settings: %w", kind, err)
	}
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("%w: %s", core.ErrConfigurationMissing, kind)
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("%w: %s has %d active rows", core.ErrConfigurationConflict, kind, len(rows))
	}
}

// LLM resolves the active LLM settings row.
func (r *Resolver) LLM(ctx context.Context) (*core.LLMSettings, error) {
	rows, err := r.repo.ActiveLLMSettings(ctx)
	return one(core.SettingsKindLLM, rows, err)
}

// Embedding resolves the active embedding settings row.
func (r *Resolver) Embedding(ctx context.Context) (*core.EmbeddingSettings, error) {
	rows, err := r.repo.ActiveEmbeddingSettings(ctx)
	return one(core.SettingsKindEmbedding, rows, err)
}

// Chunking resolves the active chunking settings row.
func (r *Resolver) Chunking(ctx context.Context) (*core.ChunkingSettings, error) {
	rows, err := r.repo.ActiveChunkingSettings(ctx)
	return one(core.SettingsKindChunking, rows, err)
}

// VectorDB resolves the active vector store settings row.
func (r *Resolver) VectorDB(ctx context.Context) (*core.VectorDBSettings, error) {
	rows, err := r.repo.ActiveVectorDBSettings(ctx)
	return one(core.SettingsKindVectorDB, rows, err)
}

// SystemPrompt resolves the default system prompt row. Unlike the provider
// kinds, a missing prompt is not fatal: (nil, nil) is returned and callers use
// a built-in default. Multiple defaults are still a conflict.
func (r *Resolver) SystemPrompt(ctx context.Context) (*core.SystemPrompt, error) {
	rows, err := r.repo.DefaultSystemPrompts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading %s settings: %w", core.SettingsKindPrompt, err)
	}
	switch len(rows) {
	case 0:
		r.logger.Debug("no default system prompt configured, using built-in")
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("%w: %s has %d default rows", core.ErrConfigurationConflict, core.SettingsKindPrompt, len(rows))
	}
}

// QuerySnapshot resolves everything a query needs: LLM, embedding, vector
// store, and system prompt. Chunking is left nil since queries never chunk.
func (r *Resolver) QuerySnapshot(ctx context.Context) (*Snapshot, error) {
	llm, err := r.LLM(ctx)
	if err != nil {
		return nil, err
	}
	embedding, err := r.Embedding(ctx)
	if err != nil {
		return nil, err
	}
	vectordb, err := r.VectorDB(ctx)
	if err != nil {
		return nil, err
	}
	prompt, err := r.SystemPrompt(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		LLM:          llm,
		Embedding:    embedding,
		VectorDB:     vectordb,
		SystemPrompt: prompt,
	}, nil
}

// IngestionSnapshot resolves everything an ingestion run needs: chunking,
// embedding, and vector store. LLM and prompt are left nil.
func (r *Resolver) IngestionSnapshot(ctx context.Context) (*Snapshot, error) {
	chunking, err := r.Chunking(ctx)
	if err != nil {
		return nil, err
	}
	embedding, err := r.Embedding(ctx)
	if err != nil {
		return nil, err
	}
	vectordb, err := r.VectorDB(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Chunking:  chunking,
		Embedding: embedding,
		VectorDB:  vectordb,
	}, nil
}
