package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lookout/internal/pipeline"
)

// Hub fans pipeline events out to connected WebSocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

// Attach subscribes the hub to the event bus; the returned function
// unsubscribes it.
func (h *Hub) Attach(bus *pipeline.EventBus) func() {
	return bus.Subscribe(func(event pipeline.Event) {
		h.BroadcastEvent(event)
	})
}

// Register adds a connection.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("[WS] Client registered (total: %d)", total)
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		log.Printf("[WS] Client unregistered (remaining: %d)", len(h.clients))
	}
	h.mu.Unlock()
}

// HasClients reports whether anyone is listening.
func (h *Hub) HasClients() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) > 0
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastEvent serializes a pipeline event and sends it to every client.
func (h *Hub) BroadcastEvent(event pipeline.Event) {
	if !h.HasClients() {
		return
	}

	data, err := json.Marshal(NewEventMessage(event))
	if err != nil {
		log.Printf("[WS] Error marshaling event message: %v", err)
		return
	}
	h.Broadcast(data)
}

// Broadcast sends a raw message to all clients, dropping connections whose
// writes fail.
func (h *Hub) Broadcast(message []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("[WS] Error sending to client: %v", err)
			h.Unregister(conn)
			conn.Close()
		}
	}
}
