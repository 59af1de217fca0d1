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

// TagRepository implements storage.TagRepository for BadgerDB.
type TagRepository struct {
	backend *Backend
}

var _ storage.TagRepository = (*TagRepository)(nil)

// NewTagRepository creates a new TagRepository.
func NewTagRepository(backend *Backend) (*TagRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &TagRepository{backend: backend}, nil
}

// Close is a no-op; the repository holds no resources beyond the backend.
func (r *TagRepository) Close() error {
	return nil
}

// AddTag persists a tag.
func (r *TagRepository) AddTag(ctx context.Context, tag *core.Tag) (*core.Tag, error) {
	if tag.Id == "" {
		tag.Id = uuid.NewString()
	}
	if tag.InsertedAt.IsZero() {
		tag.InsertedAt = time.Now().UTC()
	}
	tag.UpdatedAt = tag.InsertedAt

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeTagKey(tag.Id), storage.MarshalTag(tag)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// UpdateTag updates an existing tag, including its allowed roles.
func (r *TagRepository) UpdateTag(ctx context.Context, tag *core.Tag) (*core.Tag, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTagKey(tag.Id)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		tag.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalTag(tag)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// GetTag retrieves a single tag by ID.
func (r *TagRepository) GetTag(ctx context.Context, id string) (*core.Tag, error) {
	var tag *core.Tag
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeTagKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			tag, err = storage.UnmarshalTag(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// GetTags retrieves multiple tags by ID, skipping missing ones.
func (r *TagRepository) GetTags(ctx context.Context, ids ...string) ([]*core.Tag, error) {
	tags := make([]*core.Tag, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			item, err := tx.Get(makeTagKey(id))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			var tag *core.Tag
			if err := item.Value(func(val []byte) error {
				tag, err = storage.UnmarshalTag(val)
				return err
			}); err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return tags, nil
}
