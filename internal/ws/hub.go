package ws

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Client represents a connected WebSocket client.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected clients and fans run events out to them. Clients
// with full buffers miss events instead of stalling a generation run; each
// miss is counted per message type.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	dropMu  sync.Mutex
	dropped map[string]int64
	onDrop  func(msgType string)
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		dropped: make(map[string]int64),
	}
}

// OnDrop sets a hook called for every message skipped on a full buffer.
// Set it before clients connect.
func (h *Hub) OnDrop(fn func(msgType string)) {
	h.dropMu.Lock()
	defer h.dropMu.Unlock()
	h.onDrop = fn
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues msg for every registered client.
func (h *Hub) Broadcast(msgType string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		h.enqueue(c, msgType, msg)
	}
}

// Send queues msg for a single client. It reports false when the client is
// no longer registered or its buffer is full.
func (h *Hub) Send(c *Client, msgType string, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return false
	}
	return h.enqueue(c, msgType, msg)
}

// enqueue must be called with h.mu held so Close cannot close c.send
// underneath it.
func (h *Hub) enqueue(c *Client, msgType string, msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
	}

	h.dropMu.Lock()
	h.dropped[msgType]++
	hook := h.onDrop
	h.dropMu.Unlock()
	if hook != nil {
		hook(msgType)
	}
	log.Printf("client buffer full, dropping %s", msgType)
	return false
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns a snapshot of skipped messages by message type.
func (h *Hub) Dropped() map[string]int64 {
	h.dropMu.Lock()
	defer h.dropMu.Unlock()
	out := make(map[string]int64, len(h.dropped))
	for t, n := range h.dropped {
		out[t] = n
	}
	return out
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
