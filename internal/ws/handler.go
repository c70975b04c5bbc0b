package ws

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/JuanGomePer/chatgpt2025/internal/chat"
	"github.com/JuanGomePer/chatgpt2025/internal/identity"
	"github.com/JuanGomePer/chatgpt2025/internal/security"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		if token := strings.TrimSpace(authHeader[len("Bearer "):]); token != "" {
			return token
		}
	}

	// Browsers cannot set Authorization on WebSocket upgrades, so the token
	// may ride in the subprotocol list instead.
	if protocolHeader := r.Header.Get("Sec-WebSocket-Protocol"); protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return ""
}

// MakeHandler returns the /ws endpoint: an authenticated, receive-only
// stream of conversation-state snapshots. User intents travel over the HTTP
// API; this socket only pushes the resulting state.
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	idsvc *identity.Service,
	registry *chat.Registry,
	allowedOrigins []string,
	log zerolog.Logger,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}
	log = log.With().Str("component", "ws").Logger()

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr := extractToken(r)
		if tokenStr == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		uid, err := tokens.ParseUID(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if idsvc.Current(uid) == nil {
			http.Error(w, "signed out", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hub.Register(uid, conn)
		defer hub.Unregister(uid, conn)

		// Push the current state immediately so a reconnecting client does
		// not wait for the next change.
		snap := registry.ManagerFor(uid).Snapshot()
		if err := conn.WriteJSON(StateEvent(snap)); err != nil {
			return
		}

		for {
			// Receive-only socket: drain control/noise frames until close.
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Str("uid", uid).Msg("websocket closed")
				}
				return
			}
		}
	}
}

// StateEvent wraps a snapshot in the wire envelope clients switch on. The
// wiring code that bridges manager subscriptions onto the hub uses it too.
func StateEvent(snap chat.Snapshot) map[string]any {
	return map[string]any{
		"type":  "state",
		"state": snap,
	}
}
