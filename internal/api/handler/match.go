package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/chessroom/chessroom/internal/api/middleware"
	"github.com/chessroom/chessroom/internal/api/request"
	"github.com/chessroom/chessroom/internal/api/response"
	"github.com/chessroom/chessroom/internal/model"
	"github.com/chessroom/chessroom/internal/realtime/game"
	"github.com/chessroom/chessroom/internal/services/match"
	"github.com/chessroom/chessroom/internal/services/room"
)

var validEndReasons = map[model.EndReason]bool{
	model.EndReasonCheckmate:   true,
	model.EndReasonStalemate:   true,
	model.EndReasonTimeout:     true,
	model.EndReasonResignation: true,
	model.EndReasonDrawByRule:  true,
}

// MatchHandler handles match record endpoints
type MatchHandler struct {
	recorder *match.Recorder
	registry *room.Registry
	relay    *game.Relay
}

// NewMatchHandler creates a new match handler. The relay may be nil in tests
// that exercise the REST surface without realtime.
func NewMatchHandler(recorder *match.Recorder, registry *room.Registry, relay *game.Relay) *MatchHandler {
	return &MatchHandler{recorder: recorder, registry: registry, relay: relay}
}

// Get handles GET /api/v1/matches/{id}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	m, err := h.recorder.GetMatch(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// GetByRoom handles GET /api/v1/rooms/{code}/match
func (h *MatchHandler) GetByRoom(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	m, err := h.recorder.GetMatchByRoom(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// ListMine handles GET /api/v1/matches
func (h *MatchHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	account := middleware.MustGetAccount(r.Context())

	matches, err := h.recorder.ListByAccount(r.Context(), account)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchesFromModel(matches))
}

// PGN handles GET /api/v1/matches/{id}/pgn
func (h *MatchHandler) PGN(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	m, err := h.recorder.GetMatch(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PGN{
		MatchID: string(m.ID),
		PGN:     match.PGN(m),
	})
}

// AppendMove handles POST /api/v1/rooms/{code}/match/moves.
// The websocket relay is the normal path for moves; this exists so a client
// that lost its socket mid-game can still get a move on the record.
func (h *MatchHandler) AppendMove(w http.ResponseWriter, r *http.Request) {
	account := middleware.MustGetAccount(r.Context())
	code := model.RoomCode(mux.Vars(r)["code"])

	var req request.AppendMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.SAN == "" || req.Board == "" {
		WriteError(w, NewInvalidRequestError("san and board are required"))
		return
	}

	m, err := h.recorder.AppendMove(r.Context(), code, account, req.SAN, req.Board)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// Finish handles POST /api/v1/matches/{id}/result.
// Recording the result also advances the room to finished and fans out the
// game-over notification.
func (h *MatchHandler) Finish(w http.ResponseWriter, r *http.Request) {
	account := middleware.MustGetAccount(r.Context())
	id := model.MatchID(mux.Vars(r)["id"])

	var req request.FinishMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	reason := model.EndReason(req.Reason)
	if !validEndReasons[reason] {
		WriteError(w, NewInvalidRequestError("unknown end reason"))
		return
	}
	winner := model.Color(req.Winner)
	if winner != "" && winner != model.ColorWhite && winner != model.ColorBlack {
		WriteError(w, NewInvalidRequestError("winner must be white or black"))
		return
	}

	existing, err := h.recorder.GetMatch(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	if _, ok := existing.ColorOf(account); !ok {
		WriteError(w, model.ErrNotParticipant)
		return
	}

	result := model.Result{
		Winner:         winner,
		Reason:         reason,
		WhiteClockLeft: time.Duration(req.WhiteClockLeft * float64(time.Second)),
		BlackClockLeft: time.Duration(req.BlackClockLeft * float64(time.Second)),
	}

	m, err := h.recorder.Finish(r.Context(), id, result)
	if err != nil {
		WriteError(w, err)
		return
	}

	// Best effort: the result is recorded even if the room is already gone
	_, _ = h.registry.TransitionStatus(r.Context(), m.RoomCode, model.RoomStatusFinished)

	if h.relay != nil {
		h.relay.NotifyGameOver(m)
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}
