package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub manages active WebSocket connections keyed by user uid and fans
// conversation-state events out to every connection a user has open.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// Register adds a connection for the given uid.
func (h *Hub) Register(uid string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[uid] == nil {
		h.conns[uid] = make(map[*websocket.Conn]struct{})
	}
	h.conns[uid][conn] = struct{}{}
}

// Unregister removes a connection for the given uid.
func (h *Hub) Unregister(uid string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.conns[uid]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.conns, uid)
		}
	}
}

// BroadcastToUser sends the payload to all active connections of uid.
// Failed connections are closed; removal happens on their read loop exit.
func (h *Hub) BroadcastToUser(uid string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.conns[uid] {
		if err := conn.WriteJSON(payload); err != nil {
			conn.Close()
		}
	}
}

// CloseUser tears down every connection of uid, used on sign-out.
func (h *Hub) CloseUser(uid string) {
	h.mu.Lock()
	conns := h.conns[uid]
	delete(h.conns, uid)
	h.mu.Unlock()

	for conn := range conns {
		conn.Close()
	}
}
