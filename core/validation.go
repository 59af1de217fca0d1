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


package core

import (
	"fmt"
	"slices"
)

var (
	validStrategies = []string{ChunkingStrategyFixed, ChunkingStrategySeparator, ChunkingStrategyParagraph}
	validMetrics    = []string{MetricCosine, MetricDot, MetricL2}
	validVectorDBs  = []string{VectorDBProviderBadger, VectorDBProviderPGVector}
)

// ValidateChunkingSettings validates a chunking configuration row.
//
// Validation rules:
//   - Strategy must be one of fixed, separator, paragraph
//   - ChunkSize must be positive
//   - ChunkOverlap must be non-negative and strictly less than ChunkSize
//   - Separator must be set for the separator strategy
func ValidateChunkingSettings(s *ChunkingSettings) error {
	if s == nil {
		return fmt.Errorf("%w: settings are nil", ErrChunkingConfigInvalid)
	}
	if !slices.Contains(validStrategies, s.Strategy) {
		return fmt.Errorf("%w: unknown strategy %q", ErrChunkingConfigInvalid, s.Strategy)
	}
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrChunkingConfigInvalid, s.ChunkSize)
	}
	if s.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must be non-negative, got %d", ErrChunkingConfigInvalid, s.ChunkOverlap)
	}
	if s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be less than chunk size %d",
			ErrChunkingConfigInvalid, s.ChunkOverlap, s.ChunkSize)
	}
	if s.Strategy == ChunkingStrategySeparator && s.Separator == "" {
		return fmt.Errorf("%w: separator strategy requires a separator", ErrChunkingConfigInvalid)
	}
	return nil
}

// ValidateLLMSettings validates an LLM configuration row.
func ValidateLLMSettings(s *LLMSettings) error {
	if s == nil {
		return fmt.Errorf("%w: llm settings are nil", ErrSettingsInvalid)
	}
	if s.Provider == "" {
		return fmt.Errorf("%w: llm provider is required", ErrSettingsInvalid)
	}
	if s.ModelName == "" {
		return fmt.Errorf("%w: llm model name is required", ErrSettingsInvalid)
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("%w: llm max tokens must be positive, got %d", ErrSettingsInvalid, s.MaxTokens)
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("%w: llm temperature must be in [0,2], got %g", ErrSettingsInvalid, s.Temperature)
	}
	return nil
}

// ValidateEmbeddingSettings validates an embedding configuration row.
func ValidateEmbeddingSettings(s *EmbeddingSettings) error {
	if s == nil {
		return fmt.Errorf("%w: embedding settings are nil", ErrSettingsInvalid)
	}
	if s.Provider == "" {
		return fmt.Errorf("%w: embedding provider is required", ErrSettingsInvalid)
	}
	if s.ModelName == "" {
		return fmt.Errorf("%w: embedding model name is required", ErrSettingsInvalid)
	}
	if s.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding dimensions must be positive, got %d", ErrSettingsInvalid, s.Dimensions)
	}
	return nil
}

// ValidateVectorDBSettings validates a vector store configuration row.
func ValidateVectorDBSettings(s *VectorDBSettings) error {
	if s == nil {
		return fmt.Errorf("%w: vector db settings are nil", ErrSettingsInvalid)
	}
	if !slices.Contains(validVectorDBs, s.Provider) {
		return fmt.Errorf("%w: unknown vector db provider %q", ErrSettingsInvalid, s.Provider)
	}
	if !slices.Contains(validMetrics, s.Metric) {
		return fmt.Errorf("%w: unknown metric %q", ErrSettingsInvalid, s.Metric)
	}
	if s.Dimensions <= 0 {
		return fmt.Errorf("%w: vector db dimensions must be positive, got %d", ErrSettingsInvalid, s.Dimensions)
	}
	if s.Provider == VectorDBProviderPGVector && s.ConnectionString == "" {
		return fmt.Errorf("%w: pgvector requires a connection string", ErrSettingsInvalid)
	}
	return nil
}
