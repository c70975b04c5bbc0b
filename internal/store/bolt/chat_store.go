package bolt

import (
	"context"
	"encoding/json"
	"fmt"

	bbolt "go.etcd.io/bbolt"

	"github.com/JuanGomePer/chatgpt2025/internal/domain"
)

// ChatStore keeps conversation records as JSON documents in the "chats"
// bucket, keyed by conversation id.
type ChatStore struct {
	db *bbolt.DB
}

func NewChatStore(db *bbolt.DB) *ChatStore {
	return &ChatStore{db: db}
}

var _ domain.ChatStore = (*ChatStore)(nil)

func (s *ChatStore) QueryByUser(ctx context.Context, uid string) ([]domain.StoredConversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var res []domain.StoredConversation
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChats).ForEach(func(k, v []byte) error {
			var rec domain.ConversationRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				// Skip malformed entries instead of failing the whole query.
				return nil
			}
			if rec.UserID != uid {
				return nil
			}
			res = append(res, domain.StoredConversation{ID: string(k), Record: rec})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("query chats by user: %w", err)
	}
	return res, nil
}

func (s *ChatStore) Get(ctx context.Context, id string) (*domain.ConversationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec *domain.ConversationRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketChats).Get([]byte(id))
		if v == nil {
			return nil
		}
		var r domain.ConversationRecord
		if err := json.Unmarshal(v, &r); err != nil {
			return fmt.Errorf("decode chat %s: %w", id, err)
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *ChatStore) Create(ctx context.Context, id string, rec domain.ConversationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// created_at comes from the store's clock, never the caller's.
	rec.CreatedAt = domain.Now()
	enc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode chat %s: %w", id, err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChats).Put([]byte(id), enc)
	})
	if err != nil {
		return fmt.Errorf("create chat %s: %w", id, err)
	}
	return nil
}

// AppendMessage adds msg to the record's message array inside a single
// transaction. Appending a message that is already present by value is a
// no-op, mirroring set-union array semantics.
func (s *ChatStore) AppendMessage(ctx context.Context, id string, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChats)
		v := b.Get([]byte(id))
		if v == nil {
			return domain.ErrNotFound
		}
		var rec domain.ConversationRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("decode chat %s: %w", id, err)
		}
		for _, existing := range rec.Messages {
			if existing.Equal(msg) {
				return nil
			}
		}
		rec.Messages = append(rec.Messages, msg)
		enc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode chat %s: %w", id, err)
		}
		return b.Put([]byte(id), enc)
	})
	if err != nil {
		return fmt.Errorf("append message to chat %s: %w", id, err)
	}
	return nil
}
