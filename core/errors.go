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

import "errors"

// Pipeline error taxonomy. Only configuration-integrity violations are allowed
// to fail a whole query; everything else degrades.
var (
	// ErrConfigurationMissing indicates no active configuration row exists for a
	// provider kind. The system cannot run without one.
	ErrConfigurationMissing = errors.New("no active configuration")

	// ErrConfigurationConflict indicates more than one active configuration row
	// exists for a provider kind. This is a data-integrity violation and is
	// surfaced, never silently resolved.
	ErrConfigurationConflict = errors.New("multiple active configurations")

	// ErrAccessDenied indicates a user may not read a single requested document.
	// Bulk retrieval never returns this; it silently excludes instead.
	ErrAccessDenied = errors.New("access denied")

	// ErrEmbeddingProvider indicates the embedding provider failed or timed out.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrRetrievalUnavailable indicates retrieval infrastructure is degraded.
	// Queries still complete with zero sources.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGeneratorTransient indicates a retryable LLM failure (timeout, rate limit).
	ErrGeneratorTransient = errors.New("generator transient error")

	// ErrGeneratorFatal indicates a non-retryable LLM failure.
	ErrGeneratorFatal = errors.New("generator fatal error")

	// ErrChunkingConfigInvalid indicates chunking settings failed validation.
	// Rejected at configuration-save time, not at ingestion time.
	ErrChunkingConfigInvalid = errors.New("invalid chunking configuration")

	// ErrSettingsInvalid indicates a non-chunking settings row failed validation.
	ErrSettingsInvalid = errors.New("invalid settings")
)
