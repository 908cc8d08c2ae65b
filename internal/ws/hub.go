package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Hub fans events out to every connected viewer. All viewers watch the same
// session, so there is no per-client filtering.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *slog.Logger
	mu         sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "ws")),
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.broadcastAll(event)
		}
	}
}

// join registers client unless the hub already stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.logger.Debug("viewer connected", slog.String("client_id", client.id.String()))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Debug("viewer disconnected", slog.String("client_id", client.id.String()))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) broadcastAll(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal event", slog.String("type", string(event.Type)), slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Slow viewer; drop it rather than stall the live loop.
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn("dropping slow viewer", slog.String("client_id", client.id.String()))
		}
	}
}

// Publish queues an event for all viewers. It never blocks; events are
// dropped when the queue is full.
func (h *Hub) Publish(eventType EventType, data interface{}) {
	event := Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	select {
	case h.broadcast <- event:
	default:
	}
}

func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
