package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/chessroom/chessroom/internal/api/middleware"
	"github.com/chessroom/chessroom/internal/realtime/game"
	"github.com/chessroom/chessroom/internal/realtime/hub"
)

// WSHandler upgrades authenticated requests into realtime connections
type WSHandler struct {
	hub      *hub.Hub
	relay    *game.Relay
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(h *hub.Hub, relay *game.Relay, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:    h,
		relay:  relay,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Tokens already gate the endpoint; origin pinning would only
			// break native clients
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Connect handles GET /api/v1/ws.
// Blocks for the lifetime of the websocket connection.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	account := middleware.MustGetAccount(r.Context())

	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			slog.String("account", string(account)),
			slog.String("error", err.Error()))
		return
	}

	conn := h.hub.Connect(account)
	h.relay.Attach(conn)

	h.logger.Info("realtime connection opened",
		slog.String("conn", conn.ID()),
		slog.String("account", string(account)))

	conn.Serve(sock, h.relay.HandleEvent)

	h.logger.Info("realtime connection closed",
		slog.String("conn", conn.ID()),
		slog.String("account", string(account)))
}
