package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JuanGomePer/chatgpt2025/internal/chat"
	"github.com/JuanGomePer/chatgpt2025/internal/domain"
)

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	Replied bool          `json:"replied"`
	State   chat.Snapshot `json:"state"`
}

// handleGetState returns the caller's full conversation state snapshot.
func handleGetState(registry *chat.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := CurrentIdentity(r)
		m := registry.ManagerFor(ident.UID)
		writeJSON(w, http.StatusOK, m.Snapshot())
	}
}

// handleListChats refreshes the conversation list from the store and returns
// it. A store failure leaves the previous list in place, so the response is
// always the best list the manager currently has.
func handleListChats(registry *chat.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := CurrentIdentity(r)
		m := registry.ManagerFor(ident.UID)
		m.LoadChats(r.Context())
		snap := m.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{"chats": snap.ChatsList})
	}
}

// handleNewChat mints a fresh conversation id and makes it current. No
// record is written until the first message is sent.
func handleNewChat(registry *chat.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := CurrentIdentity(r)
		m := registry.ManagerFor(ident.UID)
		id := m.NewChat()
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func handleSelectChat(registry *chat.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := chi.URLParam(r, "chatID")
		if chatID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing chat id"})
			return
		}
		ident := CurrentIdentity(r)
		m := registry.ManagerFor(ident.UID)
		m.SelectChat(r.Context(), chatID)
		writeJSON(w, http.StatusOK, m.Snapshot())
	}
}

// handleSendMessage runs a full exchange against the current conversation:
// the user message is appended and persisted, the completion API is called,
// and the reply is appended. Replied reports whether a bot reply made it
// into the conversation; the request still succeeds when it did not, the
// caller decides how to surface that.
func handleSendMessage(registry *chat.Registry, completer domain.Completer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		ident := CurrentIdentity(r)
		m := registry.ManagerFor(ident.UID)
		replied := chat.Exchange(r.Context(), m, completer, req.Text)
		writeJSON(w, http.StatusOK, sendMessageResponse{
			Replied: replied,
			State:   m.Snapshot(),
		})
	}
}
