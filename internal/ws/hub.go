// Package ws pushes completed analysis readings to dashboard clients
// over WebSocket.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard is served from arbitrary hosts in front of this
		// service; origin filtering happens at the proxy.
		return true
	},
}

// Hub manages WebSocket connections and broadcasts readings to all of
// them. Slow or dead clients are dropped rather than blocking the rest.
type Hub struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	writeMu sync.Mutex // gorilla conns allow one concurrent writer
	logger  *log.Logger
}

// NewHub creates a reading hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

// ServeHTTP upgrades the connection and registers the client. The read
// side is drained only to detect disconnects; clients never send data.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[WS] Upgrade error: %v", err)
		return
	}

	h.register(conn)

	go func() {
		defer h.unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	h.logger.Printf("[WS] Client registered (total: %d)", len(h.clients))
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		h.logger.Printf("[WS] Client unregistered (remaining: %d)", len(h.clients))
	}
}

// Broadcast sends v as JSON to every connected client. Failed writes
// drop the client.
func (h *Hub) Broadcast(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Printf("[WS] Failed to encode broadcast: %v", err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Printf("[WS] Write failed, dropping client: %v", err)
			h.unregister(conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
