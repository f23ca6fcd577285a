package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"partyvote/internal/app"
	"partyvote/internal/commands"
)

// Handler handles WebSocket connections
type Handler struct {
	hub        *app.Hub
	dispatcher *commands.Dispatcher
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *app.Hub, dispatcher *commands.Dispatcher, logger *slog.Logger) *Handler {
	return &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: app.ResolveLogger(logger),
	}
}

// ServeHTTP upgrades the request. A client without a playerId query
// parameter is given a fresh one.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	isReconnect := playerID != ""
	if !isReconnect {
		playerID = uuid.New().String()
	}
	name := r.URL.Query().Get("name")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, h.hub, h.dispatcher, playerID, name, h.logger)
	h.hub.RegisterClient(playerID, client)

	h.logger.Info("websocket connected",
		"playerID", playerID,
		"isReconnect", isReconnect,
	)

	client.sendConnected()
	client.Run()
}
