// Package identity provides the identity session: account registration,
// sign-in and sign-out, the set of currently signed-in principals, and a
// subscription stream that fires on every identity change.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/JuanGomePer/chatgpt2025/internal/domain"
	"github.com/JuanGomePer/chatgpt2025/internal/security"
)

// Listener receives identity-change events: ident is the new identity on
// sign-in and nil on sign-out.
type Listener func(uid string, ident *domain.Identity)

// Service backs the identity session with the user repository, bcrypt
// hashing and JWT session tokens.
type Service struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hash   *security.PasswordHasher
	log    zerolog.Logger

	mu        sync.RWMutex
	active    map[string]*domain.Identity
	listeners map[int]Listener
	nextSub   int
}

func NewService(users domain.UserRepository, tokens *security.TokenService, hash *security.PasswordHasher, log zerolog.Logger) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		hash:      hash,
		log:       log.With().Str("component", "identity").Logger(),
		active:    make(map[string]*domain.Identity),
		listeners: make(map[int]Listener),
	}
}

type Credentials struct {
	Email    string
	Password string
}

// TokenResponse is the result of a successful sign-in or sign-up.
type TokenResponse struct {
	AccessToken string
	TokenType   string
	Identity    *domain.Identity
}

// SignUp registers a new account and signs it in, mirroring the
// register-then-auto-login flow of the app's register screen.
func (s *Service) SignUp(ctx context.Context, in Credentials) (*TokenResponse, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		UID:            uuid.NewString(),
		Email:          email,
		HashedPassword: hashed,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.establish(user)
}

// SignIn authenticates the credentials and activates the identity.
func (s *Service) SignIn(ctx context.Context, in Credentials) (*TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.hash.Verify(in.Password, user.HashedPassword); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.establish(user)
}

// establish issues a token and broadcasts the sign-in event.
func (s *Service) establish(user *domain.User) (*TokenResponse, error) {
	token, err := s.tokens.CreateForUID(user.UID)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	ident := user.Identity()
	s.mu.Lock()
	s.active[user.UID] = ident
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	s.log.Info().Str("uid", user.UID).Msg("identity signed in")
	for _, l := range listeners {
		l(user.UID, ident)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Identity:    ident,
	}, nil
}

// SignOut deactivates the identity and broadcasts the change with a nil
// identity, after which every session for this uid reports no principal.
func (s *Service) SignOut(uid string) error {
	s.mu.Lock()
	_, wasActive := s.active[uid]
	delete(s.active, uid)
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if !wasActive {
		return nil
	}
	s.log.Info().Str("uid", uid).Msg("identity signed out")
	for _, l := range listeners {
		l(uid, nil)
	}
	return nil
}

// Current returns the signed-in identity for uid, or nil.
func (s *Service) Current(uid string) *domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[uid]
}

// Subscribe registers a listener on the identity-change stream and returns
// its unsubscribe handle.
func (s *Service) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

// SessionFor returns the per-principal view consumed by the conversation
// manager. Current reflects sign-out immediately.
func (s *Service) SessionFor(uid string) domain.IdentitySession {
	return &session{svc: s, uid: uid}
}

type session struct {
	svc *Service
	uid string
}

func (s *session) Current() *domain.Identity {
	return s.svc.Current(s.uid)
}
