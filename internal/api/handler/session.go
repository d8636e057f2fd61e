package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/chessroom/chessroom/internal/api/middleware"
	"github.com/chessroom/chessroom/internal/api/request"
	"github.com/chessroom/chessroom/internal/api/response"
	"github.com/chessroom/chessroom/internal/model"
	"github.com/chessroom/chessroom/internal/services/session"
)

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	authority *session.Authority
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(authority *session.Authority) *SessionHandler {
	return &SessionHandler{authority: authority}
}

// Start handles POST /api/v1/sessions.
// Starting a session silently revokes any live session the account already
// has; the evicted client learns about it on its next validated request.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req request.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	accountID := model.AccountID(strings.TrimSpace(req.AccountID))
	if accountID == "" {
		WriteError(w, NewInvalidRequestError("account_id is required"))
		return
	}

	sess, err := h.authority.StartSession(r.Context(), accountID, req.Device)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.SessionFromModel(sess))
}

// Heartbeat handles POST /api/v1/sessions/heartbeat.
// The auth middleware already validated and touched the session, so this is
// just a cheap way for idle clients to learn they were superseded.
func (h *SessionHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	if sess == nil {
		WriteError(w, model.ErrNoSession)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionFromModel(sess))
}

// End handles DELETE /api/v1/sessions.
// Ending with a stale token is a no-op rather than an error: the newer
// sign-in owns the slot now and must not be signed out by the old client.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	accountID, token := middleware.Credentials(r)
	if accountID == "" || token == "" {
		WriteError(w, NewInvalidRequestError("account and token are required"))
		return
	}

	if err := h.authority.EndSession(r.Context(), accountID, token); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
