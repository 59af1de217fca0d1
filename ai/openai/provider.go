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


// Package openai implements the ai interfaces against OpenAI-compatible HTTP
// APIs. Any service that speaks the OpenAI wire format works, including local
// runtimes such as Ollama and vLLM, by pointing ApiBase at it.
package openai

import (
	"log/slog"

	"github.com/lethanhson9903/rag-assistant-api-core/ai"
	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

// Provider aggregates the OpenAI-compatible embedder and generator behind the
// ai.Provider interface.
type Provider struct {
	embedder  *Embedder
	generator *Generator
	logger    *slog.Logger
}

// NewProvider creates a provider from the active settings rows. Both services
// are constructed eagerly so configuration errors surface before any query
// work starts.
func NewProvider(llm *core.LLMSettings, embedding *core.EmbeddingSettings) (ai.Provider, error) {
	embedder, err := newEmbedder(embedding)
	if err != nil {
		return nil, err
	}
	generator, err := newGenerator(llm)
	if err != nil {
		return nil, err
	}
	return &Provider{
		embedder:  embedder,
		generator: generator,
		logger:    slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns the text generation service.
func (p *Provider) Generator() ai.Generator {
	return p.generator
}

// Close releases resources held by the provider. The underlying HTTP clients
// hold no persistent connections that need explicit teardown.
func (p *Provider) Close() error {
	return nil
}
