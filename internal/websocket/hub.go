package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub maintains the set of active terminal clients and broadcasts
// store-change events so every terminal converges on the latest snapshot
// (last-writer-wins at slot granularity).
type Hub struct {
	// Registered clients map: TerminalID -> Client
	clients map[string]*Client

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Outbound broadcast messages
	broadcast chan []byte

	// Called when a peer terminal reports a store change
	reload func(slot string)

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[string]*Client),
	}
}

// OnStoreChanged registers the callback invoked when a connected terminal
// announces it has written the shared slots.
func (h *Hub) OnStoreChanged(reload func(slot string)) {
	h.reload = reload
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.TerminalID != "" {
				// If a terminal reconnects, close the old connection
				if old, ok := h.clients[client.TerminalID]; ok {
					close(old.send)
					delete(h.clients, client.TerminalID)
				}
				h.clients[client.TerminalID] = client
				log.Printf("🖥️ Terminal connected: %s", client.TerminalID)
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if client.TerminalID != "" {
				if _, ok := h.clients[client.TerminalID]; ok {
					delete(h.clients, client.TerminalID)
					close(client.send)
					log.Printf("📴 Terminal disconnected: %s", client.TerminalID)
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Buffer full or client dead; drop
				}
			}
			h.mu.RUnlock()
		}
	}
}

// StoreChanged implements the local store's Notifier: it fans the slot name
// out to every connected terminal.
func (h *Hub) StoreChanged(slot string) {
	msg, err := json.Marshal(map[string]string{
		"type": "STORE_CHANGED",
		"slot": slot,
	})
	if err != nil {
		log.Printf("Error marshaling store change: %v", err)
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		// Broadcast queue full; terminals reconcile on next change
	}
}

func (h *Hub) handleStoreChanged(slot string) {
	if h.reload != nil {
		h.reload(slot)
	}
}
