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

// ConversationRepository implements storage.ConversationRepository for BadgerDB.
type ConversationRepository struct {
	backend *Backend
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) (*ConversationRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &ConversationRepository{backend: backend}, nil
}

// Close is a no-op; the repository holds no resources beyond the backend.
func (r *ConversationRepository) Close() error {
	return nil
}

// AddConversation persists a conversation.
func (r *ConversationRepository) AddConversation(ctx context.Context, conv *core.Conversation) (*core.Conversation, error) {
	if conv.Id == "" {
		conv.Id = uuid.NewString()
	}
	if conv.InsertedAt.IsZero() {
		conv.InsertedAt = time.Now().UTC()
	}
	conv.UpdatedAt = conv.InsertedAt

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeConversationKey(conv.Id), storage.MarshalConversation(conv)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation retrieves a conversation by ID.
func (r *ConversationRepository) GetConversation(ctx context.Context, id string) (*core.Conversation, error) {
	var conv *core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeConversationKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			conv, err = storage.UnmarshalConversation(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// AddMessage appends a message to a conversation.
func (r *ConversationRepository) AddMessage(ctx context.Context, msg *core.Message) (*core.Message, error) {
	if msg.Id == "" {
		msg.Id = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		convKey := makeConversationKey(msg.ConversationId)
		item, err := tx.Get(convKey)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		var conv *core.Conversation
		if err := item.Value(func(val []byte) error {
			conv, err = storage.UnmarshalConversation(val)
			return err
		}); err != nil {
			return err
		}

		key := makeMessageKey(msg.ConversationId, msg.CreatedAt, msg.Id)
		if err := tx.Set(key, storage.MarshalMessage(msg)); err != nil {
			return err
		}

		conv.UpdatedAt = time.Now().UTC()
		if err := tx.Set(convKey, storage.MarshalConversation(conv)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetRecentTurns retrieves up to limit of the most recent turns in
// chronological order.
func (r *ConversationRepository) GetRecentTurns(ctx context.Context, conversationId string, limit int) ([]core.ConversationTurn, error) {
	if limit <= 0 {
		return []core.ConversationTurn{}, nil
	}

	var turns []core.ConversationTurn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Iterate in reverse so the newest messages come first, then flip.
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMessagePrefix(conversationId)
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration needs a seek key past the prefix range.
		seek := append(makeMessagePrefix(conversationId), 0xff)
		for iter.Seek(seek); iter.Valid() && len(turns) < limit; iter.Next() {
			var msg *core.Message
			err := iter.Item().Value(func(val []byte) error {
				var err error
				msg, err = storage.UnmarshalMessage(val)
				return err
			})
			if err != nil {
				return err
			}
			turns = append(turns, core.ConversationTurn{Role: msg.Role, Content: msg.Content})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Flip newest-first into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// DeleteConversation removes a conversation and its messages.
func (r *ConversationRepository) DeleteConversation(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(id)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMessagePrefix(id)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		var msgKeys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			msgKeys = append(msgKeys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, k := range msgKeys {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}
