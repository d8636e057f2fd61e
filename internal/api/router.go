package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/chessroom/chessroom/internal/api/handler"
	"github.com/chessroom/chessroom/internal/api/middleware"
	"github.com/chessroom/chessroom/internal/realtime/game"
	"github.com/chessroom/chessroom/internal/realtime/hub"
	"github.com/chessroom/chessroom/internal/services/match"
	"github.com/chessroom/chessroom/internal/services/room"
	"github.com/chessroom/chessroom/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger    *slog.Logger
	Authority *session.Authority
	Registry  *room.Registry
	Recorder  *match.Recorder
	Hub       *hub.Hub
	Relay     *game.Relay
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	sessionHandler := handler.NewSessionHandler(cfg.Authority)
	roomHandler := handler.NewRoomHandler(cfg.Registry, cfg.Relay)
	matchHandler := handler.NewMatchHandler(cfg.Recorder, cfg.Registry, cfg.Relay)

	authMiddleware := middleware.Auth(cfg.Authority)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Session routes. Start and End are unauthenticated: Start mints the
	// credentials, and End must accept a stale token as a no-op.
	api.HandleFunc("/sessions", sessionHandler.Start).Methods(http.MethodPost)
	api.HandleFunc("/sessions", sessionHandler.End).Methods(http.MethodDelete)

	sessions := api.PathPrefix("/sessions").Subrouter()
	sessions.Use(authMiddleware)
	sessions.HandleFunc("/heartbeat", sessionHandler.Heartbeat).Methods(http.MethodPost)

	// Room routes (all require auth)
	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.Use(authMiddleware)
	rooms.HandleFunc("", roomHandler.Create).Methods(http.MethodPost)
	rooms.HandleFunc("", roomHandler.List).Methods(http.MethodGet)
	rooms.HandleFunc("/{code}", roomHandler.Get).Methods(http.MethodGet)
	rooms.HandleFunc("/{code}", roomHandler.Delete).Methods(http.MethodDelete)
	rooms.HandleFunc("/{code}/join", roomHandler.Join).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/match", matchHandler.GetByRoom).Methods(http.MethodGet)
	rooms.HandleFunc("/{code}/match/moves", matchHandler.AppendMove).Methods(http.MethodPost)

	// Match routes (all require auth)
	matches := api.PathPrefix("/matches").Subrouter()
	matches.Use(authMiddleware)
	matches.HandleFunc("", matchHandler.ListMine).Methods(http.MethodGet)
	matches.HandleFunc("/{id}", matchHandler.Get).Methods(http.MethodGet)
	matches.HandleFunc("/{id}/pgn", matchHandler.PGN).Methods(http.MethodGet)
	matches.HandleFunc("/{id}/result", matchHandler.Finish).Methods(http.MethodPost)

	// Realtime endpoint (requires auth)
	if cfg.Hub != nil && cfg.Relay != nil {
		wsHandler := handler.NewWSHandler(cfg.Hub, cfg.Relay, cfg.Logger)
		ws := api.PathPrefix("/ws").Subrouter()
		ws.Use(authMiddleware)
		ws.HandleFunc("", wsHandler.Connect).Methods(http.MethodGet)
	}

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
