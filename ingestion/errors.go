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


package ingestion

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a pipeline is created
	// without a document repository.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrVectorIndexRequired is returned when a pipeline is created without
	// a vector index.
	ErrVectorIndexRequired = errors.New("vector index required")

	// ErrResolverRequired is returned when a pipeline is created without a
	// settings resolver.
	ErrResolverRequired = errors.New("settings resolver required")

	// ErrProviderFactoryRequired is returned when a pipeline is created
	// without an AI provider factory.
	ErrProviderFactoryRequired = errors.New("provider factory required")

	// ErrIngestionInProgress is returned when a document is submitted while
	// an ingestion run for it is still in flight.
	ErrIngestionInProgress = errors.New("ingestion already in progress for document")

	// ErrNoContent is returned when a document has no stored text to ingest.
	ErrNoContent = errors.New("document has no content")

	// ErrUnknownChunkingStrategy is returned for an unrecognized strategy name.
	ErrUnknownChunkingStrategy = errors.New("unknown chunking strategy")
)
