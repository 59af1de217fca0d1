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

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
)

// SettingsRepository implements storage.SettingsRepository for BadgerDB.
// Saving an active row deactivates any previously active row of the same kind
// within the same transaction, so at most one active row exists per kind.
type SettingsRepository struct {
	backend *Backend
}

var _ storage.SettingsRepository = (*SettingsRepository)(nil)

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(backend *Backend) (*SettingsRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &SettingsRepository{backend: backend}, nil
}

// Close is a no-op; the repository holds no resources beyond the backend.
func (r *SettingsRepository) Close() error {
	return nil
}

// rewriteFn inspects a stored row and returns a replacement value when the row
// needs to change (used to clear IsActive on competing rows).
type rewriteFn func(val []byte) ([]byte, bool, error)

// deactivateOthers rewrites every row of kind except skipId via rewrite.
func deactivateOthers(tx *badger.Txn, kind core.SettingsKind, skipId string, rewrite rewriteFn) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeSettingsPrefix(kind)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	type pending struct {
		key []byte
		val []byte
	}
	var updates []pending

	skipKey := string(makeSettingsKey(kind, skipId))
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		key := item.KeyCopy(nil)
		if string(key) == skipKey {
			continue
		}
		var (
			replacement []byte
			changed     bool
		)
		err := item.Value(func(val []byte) error {
			var err error
			replacement, changed, err = rewrite(val)
			return err
		})
		if err != nil {
			return err
		}
		if changed {
			updates = append(updates, pending{key: key, val: replacement})
		}
	}
	for _, u := range updates {
		if err := tx.Set(u.key, u.val); err != nil {
			return err
		}
	}
	return nil
}

// listRows collects every row of kind, keeping those keep accepts.
func listRows[T any](b *Backend, kind core.SettingsKind, unmarshal func([]byte) (*T, error), keep func(*T) bool) ([]*T, error) {
	var rows []*T
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeSettingsPrefix(kind)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var row *T
			err := iter.Item().Value(func(val []byte) error {
				var err error
				row, err = unmarshal(val)
				return err
			})
			if err != nil {
				return err
			}
			if keep(row) {
				rows = append(rows, row)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func stampRow(id *string, insertedAt, updatedAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	now := time.Now().UTC()
	if insertedAt.IsZero() {
		*insertedAt = now
	}
	*updatedAt = now
}

// SaveLLMSettings validates and persists an LLM settings row.
func (r *SettingsRepository) SaveLLMSettings(ctx context.Context, s *core.LLMSettings) (*core.LLMSettings, error) {
	if err := core.ValidateLLMSettings(s); err != nil {
		return nil, err
	}
	stampRow(&s.Id, &s.InsertedAt, &s.UpdatedAt)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if s.IsActive {
			err := deactivateOthers(tx, core.SettingsKindLLM, s.Id, func(val []byte) ([]byte, bool, error) {
				row, err := storage.UnmarshalLLMSettings(val)
				if err != nil || !row.IsActive {
					return nil, false, err
				}
				row.IsActive = false
				row.UpdatedAt = s.UpdatedAt
				return storage.MarshalLLMSettings(row), true, nil
			})
			if err != nil {
				return err
			}
		}
		if err := tx.Set(makeSettingsKey(core.SettingsKindLLM, s.Id), storage.MarshalLLMSettings(s)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SaveEmbeddingSettings validates and persists an embedding settings row.
func (r *SettingsRepository) SaveEmbeddingSettings(ctx context.Context, s *core.EmbeddingSettings) (*core.EmbeddingSettings, error) {
	if err := core.ValidateEmbeddingSettings(s); err != nil {
		return nil, err
	}
	stampRow(&s.Id, &s.InsertedAt, &s.UpdatedAt)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if s.IsActive {
			err := deactivateOthers(tx, core.SettingsKindEmbedding, s.Id, func(val []byte) ([]byte, bool, error) {
				row, err := storage.UnmarshalEmbeddingSettings(val)
				if err != nil || !row.IsActive {
					return nil, false, err
				}
				row.IsActive = false
				row.UpdatedAt = s.UpdatedAt
				return storage.MarshalEmbeddingSettings(row), true, nil
			})
			if err != nil {
				return err
			}
		}
		if err := tx.Set(makeSettingsKey(core.SettingsKindEmbedding, s.Id), storage.MarshalEmbeddingSettings(s)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SaveChunkingSettings validates and persists a chunking settings row.
// Invalid overlap/size combinations are rejected here, never at ingestion time.
func (r *SettingsRepository) SaveChunkingSettings(ctx context.Context, s *core.ChunkingSettings) (*core.ChunkingSettings, error) {
	if err := core.ValidateChunkingSettings(s); err != nil {
		return nil, err
	}
	stampRow(&s.Id, &s.InsertedAt, &s.UpdatedAt)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if s.IsActive {
			err := deactivateOthers(tx, core.SettingsKindChunking, s.Id, func(val []byte) ([]byte, bool, error) {
				row, err := storage.UnmarshalChunkingSettings(val)
				if err != nil || !row.IsActive {
					return nil, false, err
				}
				row.IsActive = false
				row.UpdatedAt = s.UpdatedAt
				return storage.MarshalChunkingSettings(row), true, nil
			})
			if err != nil {
				return err
			}
		}
		if err := tx.Set(makeSettingsKey(core.SettingsKindChunking, s.Id), storage.MarshalChunkingSettings(s)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SaveVectorDBSettings validates and persists a vector store settings row.
func (r *SettingsRepository) SaveVectorDBSettings(ctx context.Context, s *core.VectorDBSettings) (*core.VectorDBSettings, error) {
	if err := core.ValidateVectorDBSettings(s); err != nil {
		return nil, err
	}
	stampRow(&s.Id, &s.InsertedAt, &s.UpdatedAt)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if s.IsActive {
			err := deactivateOthers(tx, core.SettingsKindVectorDB, s.Id, func(val []byte) ([]byte, bool, error) {
				row, err := storage.UnmarshalVectorDBSettings(val)
				if err != nil || !row.IsActive {
					return nil, false, err
				}
				row.IsActive = false
				row.UpdatedAt = s.UpdatedAt
				return storage.MarshalVectorDBSettings(row), true, nil
			})
			if err != nil {
				return err
			}
		}
		if err := tx.Set(makeSettingsKey(core.SettingsKindVectorDB, s.Id), storage.MarshalVectorDBSettings(s)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SaveSystemPrompt persists a system prompt row. The default flag behaves like
// the active flag of the other kinds.
func (r *SettingsRepository) SaveSystemPrompt(ctx context.Context, s *core.SystemPrompt) (*core.SystemPrompt, error) {
	if s.Name == "" || s.Content == "" {
		return nil, core.ErrSettingsInvalid
	}
	stampRow(&s.Id, &s.InsertedAt, &s.UpdatedAt)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if s.IsDefault {
			err := deactivateOthers(tx, core.SettingsKindPrompt, s.Id, func(val []byte) ([]byte, bool, error) {
				row, err := storage.UnmarshalSystemPrompt(val)
				if err != nil || !row.IsDefault {
					return nil, false, err
				}
				row.IsDefault = false
				row.UpdatedAt = s.UpdatedAt
				return storage.MarshalSystemPrompt(row), true, nil
			})
			if err != nil {
				return err
			}
		}
		if err := tx.Set(makeSettingsKey(core.SettingsKindPrompt, s.Id), storage.MarshalSystemPrompt(s)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ActiveLLMSettings returns every LLM row currently flagged active.
func (r *SettingsRepository) ActiveLLMSettings(ctx context.Context) ([]*core.LLMSettings, error) {
	return listRows(r.backend, core.SettingsKindLLM, storage.UnmarshalLLMSettings,
		func(s *core.LLMSettings) bool { return s.IsActive })
}

// ActiveEmbeddingSettings returns every embedding row currently flagged active.
func (r *SettingsRepository) ActiveEmbeddingSettings(ctx context.Context) ([]*core.EmbeddingSettings, error) {
	return listRows(r.backend, core.SettingsKindEmbedding, storage.UnmarshalEmbeddingSettings,
		func(s *core.EmbeddingSettings) bool { return s.IsActive })
}

// ActiveChunkingSettings returns every chunking row currently flagged active.
func (r *SettingsRepository) ActiveChunkingSettings(ctx context.Context) ([]*core.ChunkingSettings, error) {
	return listRows(r.backend, core.SettingsKindChunking, storage.UnmarshalChunkingSettings,
		func(s *core.ChunkingSettings) bool { return s.IsActive })
}

// ActiveVectorDBSettings returns every vector store row currently flagged active.
func (r *SettingsRepository) ActiveVectorDBSettings(ctx context.Context) ([]*core.VectorDBSettings, error) {
	return listRows(r.backend, core.SettingsKindVectorDB, storage.UnmarshalVectorDBSettings,
		func(s *core.VectorDBSettings) bool { return s.IsActive })
}

// DefaultSystemPrompts returns every prompt row currently flagged default.
func (r *SettingsRepository) DefaultSystemPrompts(ctx context.Context) ([]*core.SystemPrompt, error) {
	return listRows(r.backend, core.SettingsKindPrompt, storage.UnmarshalSystemPrompt,
		func(s *core.SystemPrompt) bool { return s.IsDefault })
}
