package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/chessroom/chessroom/internal/api/middleware"
	"github.com/chessroom/chessroom/internal/api/request"
	"github.com/chessroom/chessroom/internal/api/response"
	"github.com/chessroom/chessroom/internal/model"
	"github.com/chessroom/chessroom/internal/realtime/game"
	"github.com/chessroom/chessroom/internal/services/room"
)

// RoomHandler handles room lifecycle endpoints
type RoomHandler struct {
	registry *room.Registry
	relay    *game.Relay
}

// NewRoomHandler creates a new room handler. The relay may be nil in tests
// that exercise the REST surface without realtime.
func NewRoomHandler(registry *room.Registry, relay *game.Relay) *RoomHandler {
	return &RoomHandler{registry: registry, relay: relay}
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	account := middleware.MustGetAccount(r.Context())

	var req request.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Code == "" {
		WriteError(w, NewInvalidRequestError("code is required"))
		return
	}

	created, err := h.registry.CreateRoom(r.Context(), model.RoomCode(req.Code), account, req.ClockMinutes)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RoomFromModel(created))
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.registry.ListRooms(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomsFromModel(rooms))
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	rm, err := h.registry.GetRoom(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(rm))
}

// Join handles POST /api/v1/rooms/{code}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	account := middleware.MustGetAccount(r.Context())
	code := model.RoomCode(mux.Vars(r)["code"])

	rm, err := h.registry.JoinRoom(r.Context(), code, account)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(rm))
}

// Delete handles DELETE /api/v1/rooms/{code}.
// Members are read before deletion so they can still be notified afterwards.
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account := middleware.MustGetAccount(r.Context())
	code := model.RoomCode(mux.Vars(r)["code"])

	rm, err := h.registry.GetRoom(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}
	members := rm.Members

	if err := h.registry.DeleteRoom(r.Context(), code, account); err != nil {
		WriteError(w, err)
		return
	}

	if h.relay != nil {
		h.relay.NotifyRoomDeleted(code, members)
	}

	response.NoContent(w)
}
