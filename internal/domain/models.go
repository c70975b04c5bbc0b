package domain

import "time"

// Identity is the signed-in principal as exposed by the identity session.
// Read-only outside internal/identity; consumers see nil after sign-out.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// User is the persisted account behind an Identity.
type User struct {
	UID            string    `json:"uid"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name,omitempty"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Identity derives the session-facing view of the user.
func (u *User) Identity() *Identity {
	return &Identity{
		UID:         u.UID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
	}
}

// Sender distinguishes user-authored from API-authored messages.
type Sender string

const (
	SenderMe  Sender = "Me"
	SenderBot Sender = "Bot"
)

// MessageState marks how a message entered the conversation.
type MessageState string

const (
	StateViewed   MessageState = "Viewed"
	StateReceived MessageState = "Received"
)

// Message is a single chat entry. Immutable once created.
type Message struct {
	Text     string       `json:"text"`
	SenderBy Sender       `json:"sender_by"`
	Date     Timestamp    `json:"date"`
	State    MessageState `json:"state"`
}

// Equal reports value identity, the criterion for set-union appends.
func (m Message) Equal(o Message) bool {
	return m.Text == o.Text &&
		m.SenderBy == o.SenderBy &&
		m.State == o.State &&
		m.Date.Equal(o.Date)
}

// ConversationSummary is one entry of the chat list. The list is replaced
// wholesale on reload; entries are never mutated in place.
type ConversationSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ConversationRecord is the persisted document in the "chats" collection.
// UserID equality with the active identity is the sole access-scoping rule.
// Messages is append-only from the client's perspective.
type ConversationRecord struct {
	Name      string    `json:"name"`
	CreatedAt Timestamp `json:"created_at"`
	Messages  []Message `json:"messages"`
	UserID    string    `json:"userId"`
}

// StoredConversation pairs a document id with its record, as returned by
// store queries.
type StoredConversation struct {
	ID     string
	Record ConversationRecord
}
