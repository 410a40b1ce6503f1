// Package live pushes cart and order updates to connected clients over
// WebSocket, one room per user.
package live

import (
	"encoding/json"
	"log"
	"sync"
)

type Client struct {
	Send   chan []byte
	UserID string
	conn   wsConn
}

// wsConn is the part of *websocket.Conn the pumps use.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

type broadcastMsg struct {
	UserID string
	Data   []byte
}

type Hub struct {
	users      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		users:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for _, conns := range h.users {
				for c := range conns {
					close(c.Send)
				}
			}
			h.users = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.users[c.UserID] == nil {
				h.users[c.UserID] = make(map[*Client]bool)
			}
			h.users[c.UserID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if conns := h.users[c.UserID]; conns != nil {
				if conns[c] {
					delete(conns, c)
					close(c.Send)
				}
			}
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.users[m.UserID] {
				select {
				case c.Send <- m.Data:
				default:
					close(c.Send)
					delete(h.users[m.UserID], c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds the client to its user's room. Reports false when the hub is
// stopped, in which case the caller still owns the connection.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister drops the client. A stopped hub has already closed every Send
// channel, so this is a no-op then.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Update is what gets pushed to a user's open connections.
type Update struct {
	Type       string `json:"type"`
	PurchaseID string `json:"purchaseid,omitempty"`
	ProductID  string `json:"productid,omitempty"`
}

// Broadcast queues an update for every connection the user has open.
// Non-blocking: if the hub is stopped or saturated the update is dropped.
func (h *Hub) Broadcast(userID string, update Update) {
	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("live: failed to marshal update: %v", err)
		return
	}
	select {
	case h.broadcast <- broadcastMsg{UserID: userID, Data: data}:
	case <-h.done:
	}
}
