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


package badger

// Repositories bundles every repository sharing one backend.
type Repositories struct {
	Backend       *Backend
	Documents     *DocumentRepository
	Tags          *TagRepository
	Settings      *SettingsRepository
	Conversations *ConversationRepository
	Vectors       *VectorIndex
}

// Close closes all repositories and the backend.
func (r *Repositories) Close() error {
	r.Documents.Close()
	r.Tags.Close()
	r.Settings.Close()
	r.Conversations.Close()
	r.Vectors.Close()
	return r.Backend.Close()
}

// OpenRepositories opens a backend at filePath and constructs every repository
// on top of it.
func OpenRepositories(filePath string, inMemory bool, vectorOpts ...VectorIndexOption) (*Repositories, error) {
	backend, err := OpenBackend(filePath, inMemory)
	if err != nil {
		return nil, err
	}

	docs, err := NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	tags, err := NewTagRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	settings, err := NewSettingsRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	convs, err := NewConversationRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	vectors, err := NewVectorIndex(backend, vectorOpts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Repositories{
		Backend:       backend,
		Documents:     docs,
		Tags:          tags,
		Settings:      settings,
		Conversations: convs,
		Vectors:       vectors,
	}, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must close the returned bundle when done.
func NewMemoryRepositories(vectorOpts ...VectorIndexOption) (*Repositories, error) {
	return OpenRepositories("", true, vectorOpts...)
}
