package domain

import (
	"context"
)

// ChatStore defines persistence operations for conversation records.
//
// Get returns (nil, nil) when the document does not exist. Create assigns
// CreatedAt from the store's own clock, not the caller's. AppendMessage has
// set-union semantics: a message already present by value is not appended
// twice, so re-appending after a retried write is harmless. Callers must not
// rely on exactly-once delivery beyond that.
type ChatStore interface {
	QueryByUser(ctx context.Context, uid string) ([]StoredConversation, error)
	Get(ctx context.Context, id string) (*ConversationRecord, error)
	Create(ctx context.Context, id string, rec ConversationRecord) error
	AppendMessage(ctx context.Context, id string, msg Message) error
}

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByUID(ctx context.Context, uid string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// IdentitySession exposes the signed-in principal to consumers. Current
// returns nil once the user has signed out.
type IdentitySession interface {
	Current() *Identity
}

// Completer performs a single stateless exchange with the generative-text
// API. No conversation history is transmitted.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
