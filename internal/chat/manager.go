// Package chat implements the conversation state and synchronization
// manager: it tracks the active conversation for a signed-in user, merges
// locally-originated and store-persisted messages, creates conversation
// records lazily on first send, and sequences completion round-trips with
// the persistence writes.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/JuanGomePer/chatgpt2025/internal/domain"
)

// Default names mirror what the store ends up holding for conversations the
// user never labeled.
const (
	unnamedListEntry = "Unnamed"
	unnamedChat      = "Unnamed Chat"
)

// Snapshot is the read-only view handed to subscribers and the presentation
// layer.
type Snapshot struct {
	ChatsList     []domain.ConversationSummary `json:"chats_list"`
	CurrentChatID string                       `json:"current_chat_id"`
	Messages      []domain.Message             `json:"messages"`
}

// Manager owns the in-memory conversation state of one signed-in user.
//
// The policy throughout is perceived responsiveness over strict consistency:
// in-memory state is updated optimistically, store and API failures are
// logged and swallowed, and nothing is rolled back. State is guarded by a
// mutex; store I/O happens outside the lock against a chat id snapshotted at
// the start of each operation, and results for a conversation that is no
// longer active are dropped rather than applied.
type Manager struct {
	store   domain.ChatStore
	session domain.IdentitySession
	log     zerolog.Logger

	mu            sync.Mutex
	chatsList     []domain.ConversationSummary
	currentChatID string
	messages      []domain.Message

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

func NewManager(store domain.ChatStore, session domain.IdentitySession, log zerolog.Logger) *Manager {
	return &Manager{
		store:   store,
		session: session,
		log:     log.With().Str("component", "chat").Logger(),
		subs:    make(map[int]func(Snapshot)),
	}
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		ChatsList:     append([]domain.ConversationSummary(nil), m.chatsList...),
		CurrentChatID: m.currentChatID,
		Messages:      append([]domain.Message(nil), m.messages...),
	}
}

// CurrentChatID returns the active conversation id, "" when none.
func (m *Manager) CurrentChatID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentChatID
}

// Subscribe registers fn on the state-change stream and returns its
// unsubscribe handle. Callbacks run synchronously with a fresh snapshot.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) notify() {
	snap := m.Snapshot()
	m.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// LoadChats replaces the chat list with the store's conversations for the
// active identity. Without an identity it is a no-op; on a query error the
// previous list is kept, never partially updated. The active conversation
// and its messages are untouched.
func (m *Manager) LoadChats(ctx context.Context) {
	ident := m.session.Current()
	if ident == nil {
		return
	}

	stored, err := m.store.QueryByUser(ctx, ident.UID)
	if err != nil {
		m.log.Error().Err(err).Str("uid", ident.UID).Msg("load chats failed, keeping previous list")
		return
	}

	list := make([]domain.ConversationSummary, 0, len(stored))
	for _, sc := range stored {
		name := sc.Record.Name
		if name == "" {
			name = unnamedListEntry
		}
		list = append(list, domain.ConversationSummary{ID: sc.ID, Name: name})
	}

	m.mu.Lock()
	m.chatsList = list
	m.mu.Unlock()
	m.notify()
}

// NewChat starts a fresh conversation under a provisional, time-derived id
// and returns it. Nothing is written to the store: the record materializes
// on the first send, so abandoned conversations never leave empty documents
// behind.
func (m *Manager) NewChat() string {
	id := fmt.Sprintf("chat_%d", time.Now().UnixMilli())

	m.mu.Lock()
	m.currentChatID = id
	m.messages = nil
	m.mu.Unlock()
	m.notify()

	m.log.Debug().Str("chat_id", id).Msg("new provisional chat")
	return id
}

// SelectChat makes id the active conversation and loads its messages. An id
// with no record gets an empty record written immediately, reconciling
// provisional ids and stale references. On a store error the id change is
// not rolled back.
func (m *Manager) SelectChat(ctx context.Context, id string) {
	m.mu.Lock()
	m.currentChatID = id
	m.mu.Unlock()

	rec, err := m.store.Get(ctx, id)
	if err != nil {
		m.log.Error().Err(err).Str("chat_id", id).Msg("select chat failed")
		m.notify()
		return
	}

	if rec != nil {
		m.applyMessages(id, rec.Messages)
		return
	}

	m.applyMessages(id, nil)

	uid := ""
	if ident := m.session.Current(); ident != nil {
		uid = ident.UID
	}
	err = m.store.Create(ctx, id, domain.ConversationRecord{
		Name:     unnamedChat,
		Messages: []domain.Message{},
		UserID:   uid,
	})
	if err != nil {
		m.log.Error().Err(err).Str("chat_id", id).Msg("create missing chat record failed")
	}
}

// applyMessages replaces the message sequence, unless the user has since
// switched away from id.
func (m *Manager) applyMessages(id string, msgs []domain.Message) {
	m.mu.Lock()
	if m.currentChatID != id {
		m.mu.Unlock()
		m.log.Debug().Str("chat_id", id).Msg("dropping stale message load")
		return
	}
	m.messages = append([]domain.Message(nil), msgs...)
	m.mu.Unlock()
	m.notify()
}

// SendMessage appends the user's message optimistically and persists it,
// creating the conversation record on first send. It returns the chat id
// the cycle targets, the appended message, and whether a send happened at
// all: empty trimmed text, no active conversation, or no identity make it a
// silent no-op. It never invokes the completion API; Exchange sequences
// that.
func (m *Manager) SendMessage(ctx context.Context, text string) (string, *domain.Message, bool) {
	trimmed := strings.TrimSpace(text)
	ident := m.session.Current()

	m.mu.Lock()
	chatID := m.currentChatID
	if trimmed == "" || chatID == "" || ident == nil {
		m.mu.Unlock()
		return "", nil, false
	}
	userMsg := domain.Message{
		Text:     trimmed,
		SenderBy: domain.SenderMe,
		Date:     domain.Now(),
		State:    domain.StateViewed,
	}
	// Optimistic: visible before any persistence completes.
	m.messages = append(m.messages, userMsg)
	m.mu.Unlock()
	m.notify()

	m.persistUserMessage(ctx, chatID, ident.UID, userMsg)
	return chatID, &userMsg, true
}

// persistUserMessage writes the message through the lazy-creation path. A
// failure is logged and the optimistic append stands; the divergence heals
// on the next successful write or reload.
func (m *Manager) persistUserMessage(ctx context.Context, chatID, uid string, msg domain.Message) {
	rec, err := m.store.Get(ctx, chatID)
	if err != nil {
		m.log.Error().Err(err).Str("chat_id", chatID).Msg("read chat before send failed")
		return
	}

	if rec == nil {
		err := m.store.Create(ctx, chatID, domain.ConversationRecord{
			Name:     "Chat " + time.Now().UTC().Format(time.RFC3339),
			Messages: []domain.Message{msg},
			UserID:   uid,
		})
		if err != nil {
			m.log.Error().Err(err).Str("chat_id", chatID).Msg("create chat on first send failed")
			return
		}
		// A brand-new record changes the summary list.
		m.LoadChats(ctx)
		return
	}

	if err := m.store.AppendMessage(ctx, chatID, msg); err != nil {
		m.log.Error().Err(err).Str("chat_id", chatID).Msg("append user message failed")
	}
}

// AddBotMessage appends an API-authored message to the conversation the send
// cycle targeted and persists it. If the user switched conversations while
// the completion was in flight, the in-memory append is dropped but the
// write still lands in the targeted record.
func (m *Manager) AddBotMessage(ctx context.Context, chatID string, msg domain.Message) {
	if chatID == "" {
		return
	}

	m.mu.Lock()
	current := m.currentChatID == chatID
	if current {
		m.messages = append(m.messages, msg)
	}
	m.mu.Unlock()
	if current {
		m.notify()
	} else {
		m.log.Debug().Str("chat_id", chatID).Msg("dropping stale completion result from view")
	}

	if err := m.store.AppendMessage(ctx, chatID, msg); err != nil {
		m.log.Error().Err(err).Str("chat_id", chatID).Msg("append bot message failed")
	}
}
