// Package viewer streams map events to browser viewers over websockets and
// serves the current map as JSON.
package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Hub is the set of connected viewers.
type Hub struct {
	mu           sync.Mutex
	clients      map[*websocket.Conn]struct{}
	writeTimeout time.Duration
}

// NewHub creates a hub. Writes slower than writeTimeout drop the viewer.
func NewHub(writeTimeout time.Duration) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = 3 * time.Second
	}
	return &Hub{clients: make(map[*websocket.Conn]struct{}), writeTimeout: writeTimeout}
}

// Add registers a viewer.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
}

// Remove unregisters a viewer.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// Len returns the number of connected viewers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends message to every viewer, dropping those that fail.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := h.write(conn, message); err != nil {
			_ = conn.Close(websocket.StatusPolicyViolation, "write failed")
			delete(h.clients, conn)
		}
	}
}

// Send writes message to one viewer.
func (h *Hub) Send(conn *websocket.Conn, message []byte) error {
	return h.write(conn, message)
}

func (h *Hub) write(conn *websocket.Conn, message []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, message)
}
