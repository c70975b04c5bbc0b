package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/JuanGomePer/chatgpt2025/internal/domain"
	"github.com/JuanGomePer/chatgpt2025/internal/identity"
)

// Registry hands out one Manager per signed-in user and follows the
// identity-change stream: sign-in loads the user's chat list, sign-out
// drops the in-memory state entirely.
type Registry struct {
	store domain.ChatStore
	ident *identity.Service
	log   zerolog.Logger

	mu       sync.Mutex
	managers map[string]*Manager
	onCreate func(uid string, m *Manager)
}

func NewRegistry(store domain.ChatStore, ident *identity.Service, log zerolog.Logger) *Registry {
	r := &Registry{
		store:    store,
		ident:    ident,
		log:      log,
		managers: make(map[string]*Manager),
	}
	ident.Subscribe(r.onIdentityChange)
	return r
}

func (r *Registry) onIdentityChange(uid string, ident *domain.Identity) {
	if ident == nil {
		r.mu.Lock()
		delete(r.managers, uid)
		r.mu.Unlock()
		return
	}
	// Mirrors loading the chat list as soon as a user signs in.
	r.ManagerFor(uid).LoadChats(context.Background())
}

// SetManagerHook installs fn to run once for each manager the registry
// creates, e.g. to bridge its subscription stream onto a transport. Install
// before serving traffic; existing managers are not revisited.
func (r *Registry) SetManagerHook(fn func(uid string, m *Manager)) {
	r.mu.Lock()
	r.onCreate = fn
	r.mu.Unlock()
}

// ManagerFor returns the manager for uid, creating it on first use.
func (r *Registry) ManagerFor(uid string) *Manager {
	r.mu.Lock()
	if m, ok := r.managers[uid]; ok {
		r.mu.Unlock()
		return m
	}
	m := NewManager(r.store, r.ident.SessionFor(uid), r.log)
	r.managers[uid] = m
	hook := r.onCreate
	r.mu.Unlock()

	if hook != nil {
		hook(uid, m)
	}
	return m
}
