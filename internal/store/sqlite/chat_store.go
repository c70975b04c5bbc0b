package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JuanGomePer/chatgpt2025/internal/domain"
)

// ChatStore implements the conversation store over a SQLite documents table.
type ChatStore struct {
	db *sql.DB
}

func NewChatStore(db *sql.DB) *ChatStore {
	return &ChatStore{db: db}
}

var _ domain.ChatStore = (*ChatStore)(nil)

func (s *ChatStore) QueryByUser(ctx context.Context, uid string) ([]domain.StoredConversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, user_id, created_at, messages
		FROM chats
		WHERE user_id = ?
		ORDER BY created_at
	`, uid)
	if err != nil {
		return nil, fmt.Errorf("query chats by user: %w", err)
	}
	defer rows.Close()

	var res []domain.StoredConversation
	for rows.Next() {
		var (
			id        string
			rec       domain.ConversationRecord
			createdAt time.Time
			rawMsgs   string
		)
		if err := rows.Scan(&id, &rec.Name, &rec.UserID, &createdAt, &rawMsgs); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		rec.CreatedAt = domain.PersistedTimestamp(createdAt)
		if err := json.Unmarshal([]byte(rawMsgs), &rec.Messages); err != nil {
			return nil, fmt.Errorf("decode messages for chat %s: %w", id, err)
		}
		res = append(res, domain.StoredConversation{ID: id, Record: rec})
	}
	return res, rows.Err()
}

func (s *ChatStore) Get(ctx context.Context, id string) (*domain.ConversationRecord, error) {
	var (
		rec       domain.ConversationRecord
		createdAt time.Time
		rawMsgs   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, user_id, created_at, messages
		FROM chats
		WHERE id = ?
	`, id).Scan(&rec.Name, &rec.UserID, &createdAt, &rawMsgs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat %s: %w", id, err)
	}
	rec.CreatedAt = domain.PersistedTimestamp(createdAt)
	if err := json.Unmarshal([]byte(rawMsgs), &rec.Messages); err != nil {
		return nil, fmt.Errorf("decode messages for chat %s: %w", id, err)
	}
	return &rec, nil
}

func (s *ChatStore) Create(ctx context.Context, id string, rec domain.ConversationRecord) error {
	enc, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	// created_at is filled by the column default, i.e. the store's clock.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chats (id, name, user_id, messages)
		VALUES (?, ?, ?, ?)
	`, id, rec.Name, rec.UserID, string(enc))
	if err != nil {
		return fmt.Errorf("create chat %s: %w", id, err)
	}
	return nil
}

// AppendMessage performs the set-union append inside a transaction: the
// message is added only if no identical one is already stored.
func (s *ChatStore) AppendMessage(ctx context.Context, id string, msg domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var rawMsgs string
	err = tx.QueryRowContext(ctx, `SELECT messages FROM chats WHERE id = ?`, id).Scan(&rawMsgs)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read messages for chat %s: %w", id, err)
	}

	var msgs []domain.Message
	if err := json.Unmarshal([]byte(rawMsgs), &msgs); err != nil {
		return fmt.Errorf("decode messages for chat %s: %w", id, err)
	}
	for _, existing := range msgs {
		if existing.Equal(msg) {
			return nil
		}
	}
	msgs = append(msgs, msg)

	enc, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE chats SET messages = ? WHERE id = ?`, string(enc), id); err != nil {
		return fmt.Errorf("append message to chat %s: %w", id, err)
	}
	return tx.Commit()
}
