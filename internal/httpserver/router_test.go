package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanGomePer/chatgpt2025/internal/chat"
	"github.com/JuanGomePer/chatgpt2025/internal/config"
	"github.com/JuanGomePer/chatgpt2025/internal/identity"
	"github.com/JuanGomePer/chatgpt2025/internal/security"
	"github.com/JuanGomePer/chatgpt2025/internal/store/bolt"
	"github.com/JuanGomePer/chatgpt2025/internal/ws"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return s.reply, s.err
}

func newTestServer(t *testing.T, completer *stubCompleter) *httptest.Server {
	t.Helper()

	db, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		CORSOrigins: []string{"http://localhost:3000"},
	}
	log := zerolog.Nop()

	tokens := security.NewTokenService("test-secret", time.Hour)
	hasher := security.NewPasswordHasher(4)
	idsvc := identity.NewService(bolt.NewUserRepo(db), tokens, hasher, log)
	registry := chat.NewRegistry(bolt.NewChatStore(db), idsvc, log)
	hub := ws.NewHub()

	srv := httptest.NewServer(NewRouter(cfg, idsvc, registry, completer, hub, tokens, log))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func register(t *testing.T, srv *httptest.Server, email string) tokenResponse {
	t.Helper()

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/register", "", credentialsRequest{
		Email:    email,
		Password: "hunter22",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var tok tokenResponse
	decodeBody(t, resp, &tok)
	require.NotEmpty(t, tok.AccessToken)
	return tok
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{reply: "Hello"})

	tok := register(t, srv, "alice@example.com")
	assert.Equal(t, "bearer", tok.TokenType)
	require.NotNil(t, tok.Identity)
	assert.Equal(t, "alice@example.com", tok.Identity.Email)

	t.Run("me returns the signed-in identity", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/auth/me", tok.AccessToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var ident map[string]any
		decodeBody(t, resp, &ident)
		assert.Equal(t, "alice@example.com", ident["email"])
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/register", "", credentialsRequest{
			Email:    "alice@example.com",
			Password: "other",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", credentialsRequest{
			Email:    "alice@example.com",
			Password: "wrong",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token is dead after logout", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/logout", tok.AccessToken, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = doJSON(t, http.MethodGet, srv.URL+"/api/auth/me", tok.AccessToken, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestChatEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{reply: "Hi there"})
	tok := register(t, srv, "bob@example.com")

	var chatID string

	t.Run("new chat mints an id without touching the store", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/chats/", tok.AccessToken, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		chatID = body["id"]
		require.True(t, strings.HasPrefix(chatID, "chat_"))

		resp = doJSON(t, http.MethodGet, srv.URL+"/api/chats/", tok.AccessToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var list struct {
			Chats []map[string]string `json:"chats"`
		}
		decodeBody(t, resp, &list)
		assert.Empty(t, list.Chats)
	})

	t.Run("send runs the full exchange and persists the chat", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/messages", tok.AccessToken, sendMessageRequest{
			Text: "  What is Go?  ",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body sendMessageResponse
		decodeBody(t, resp, &body)
		assert.True(t, body.Replied)
		require.Len(t, body.State.Messages, 2)
		assert.Equal(t, "What is Go?", body.State.Messages[0].Text)
		assert.Equal(t, "Hi there", body.State.Messages[1].Text)

		require.Len(t, body.State.ChatsList, 1)
		assert.Equal(t, chatID, body.State.ChatsList[0].ID)
		assert.True(t, strings.HasPrefix(body.State.ChatsList[0].Name, "Chat "))
	})

	t.Run("select replays persisted messages", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/chats/"+chatID+"/select", tok.AccessToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var snap chat.Snapshot
		decodeBody(t, resp, &snap)
		assert.Equal(t, chatID, snap.CurrentChatID)
		require.Len(t, snap.Messages, 2)
		assert.Equal(t, "What is Go?", snap.Messages[0].Text)
	})

	t.Run("blank text is a silent no-op", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/messages", tok.AccessToken, sendMessageRequest{
			Text: "   ",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body sendMessageResponse
		decodeBody(t, resp, &body)
		assert.False(t, body.Replied)
		assert.Len(t, body.State.Messages, 2)
	})
}

func TestSendMessageCompletionFailure(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{err: errors.New("quota exceeded")})
	tok := register(t, srv, "carol@example.com")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/chats/", tok.AccessToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/messages", tok.AccessToken, sendMessageRequest{
		Text: "Hello?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body sendMessageResponse
	decodeBody(t, resp, &body)
	assert.False(t, body.Replied)
	// The user message stays; nothing is rolled back on completion failure.
	require.Len(t, body.State.Messages, 1)
	assert.Equal(t, "Hello?", body.State.Messages[0].Text)
}

func TestUnauthenticatedRequests(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{reply: "nope"})

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodGet, "/api/state"},
		{http.MethodGet, "/api/chats/"},
		{http.MethodPost, "/api/messages"},
	} {
		resp := doJSON(t, tc.method, srv.URL+tc.path, "", nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
}
