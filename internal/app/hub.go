package app

import (
	"context"
	"log/slog"
	"sync"

	"partyvote/internal/domain"
)

// eventQueueSize bounds the broadcast queue; overflowing events are dropped
const eventQueueSize = 100

// ClientConnection represents a connected client
type ClientConnection interface {
	Send(message interface{}) error
	GetPlayerID() string
	Close() error
}

// EventPublisher receives game events for fan-out. Publish is called with
// component locks held and must not block.
type EventPublisher interface {
	Publish(event *domain.GameEvent)
}

// Hub fans game events out to every connected client
type Hub struct {
	clients   map[string]ClientConnection // playerID -> client
	clientsMu sync.RWMutex
	logger    *slog.Logger

	events chan *domain.GameEvent
	done   chan struct{}
	once   sync.Once
}

// NewHub creates a hub and starts its broadcaster
func NewHub(logger *slog.Logger) *Hub {
	hub := &Hub{
		clients: make(map[string]ClientConnection),
		logger:  ResolveLogger(logger),
		events:  make(chan *domain.GameEvent, eventQueueSize),
		done:    make(chan struct{}),
	}

	go hub.eventLoop()

	return hub
}

// RegisterClient registers a client connection for a player.
// A previous connection for the same player is closed.
func (h *Hub) RegisterClient(playerID string, client ClientConnection) {
	h.clientsMu.Lock()
	old, ok := h.clients[playerID]
	h.clients[playerID] = client
	h.clientsMu.Unlock()

	if ok && old != client {
		old.Close()
	}
}

// UnregisterClient removes a client connection if it is still the registered one
func (h *Hub) UnregisterClient(playerID string, client ClientConnection) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if current, ok := h.clients[playerID]; ok && current == client {
		delete(h.clients, playerID)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Publish queues an event for broadcasting
func (h *Hub) Publish(event *domain.GameEvent) {
	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.events <- event:
	default:
		h.logger.Warn("event queue full, dropping event", "type", event.Type)
	}
}

// Notify publishes a text summary as an announcement
func (h *Hub) Notify(_ context.Context, summary string) error {
	h.Publish(domain.NewEvent(domain.EventAnnouncement, &domain.AnnouncementPayload{Text: summary}))
	return nil
}

// eventLoop processes events and broadcasts to clients
func (h *Hub) eventLoop() {
	for {
		select {
		case <-h.done:
			return
		case event := <-h.events:
			h.broadcastEvent(event)
		}
	}
}

// broadcastEvent sends an event to appropriate clients
func (h *Hub) broadcastEvent(event *domain.GameEvent) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	// If player-specific, send only to that player
	if event.PlayerID != "" {
		if client, ok := h.clients[event.PlayerID]; ok {
			if err := client.Send(event); err != nil {
				h.logger.Debug("failed to send to client", "playerID", event.PlayerID, "error", err)
			}
		}
		return
	}

	for playerID, client := range h.clients {
		if err := client.Send(event); err != nil {
			h.logger.Debug("failed to send to client", "playerID", playerID, "error", err)
		}
	}
}

// Close stops the broadcaster and closes every client
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.done)

		h.clientsMu.Lock()
		for _, client := range h.clients {
			client.Close()
		}
		h.clients = make(map[string]ClientConnection)
		h.clientsMu.Unlock()
	})
}
