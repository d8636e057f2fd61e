package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chessroom/chessroom/internal/model"
	"github.com/chessroom/chessroom/internal/services/session"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeSessionSuperseded  = "SESSION_SUPERSEDED"
	CodeRoomNotFound       = "ROOM_NOT_FOUND"
	CodeRoomExists         = "ROOM_EXISTS"
	CodeRoomFull           = "ROOM_FULL"
	CodeAlreadyInRoom      = "ALREADY_IN_ROOM"
	CodeNotHost            = "NOT_HOST"
	CodeGameInProgress     = "GAME_IN_PROGRESS"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeMatchNotFound      = "MATCH_NOT_FOUND"
	CodeMatchFinished      = "MATCH_FINISHED"
	CodeNotParticipant     = "NOT_PARTICIPANT"
	CodeConflict           = "CONFLICT"
	CodeInternalError      = "INTERNAL_ERROR"
)

// SupersededDetails carries the replacement session info so the evicted
// client can show the user where they were signed in from
type SupersededDetails struct {
	Device    string `json:"device"`
	StartedAt string `json:"started_at"`
}

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Supersession carries details, so it is matched before the plain
	// sentinel mapping below
	var superseded *session.SupersededError
	if errors.As(err, &superseded) {
		return &httpError{http.StatusUnauthorized, APIError{
			Code:    CodeSessionSuperseded,
			Message: "Session replaced by a newer sign-in",
			Details: SupersededDetails{
				Device:    superseded.Device,
				StartedAt: superseded.At.Format("2006-01-02T15:04:05Z07:00"),
			},
		}}
	}

	switch {
	case errors.Is(err, model.ErrNoSession):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "No live session for this account"}}
	case errors.Is(err, model.ErrSessionSuperseded):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeSessionSuperseded, Message: "Session replaced by a newer sign-in"}}
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeRoomNotFound, Message: "Room not found"}}
	case errors.Is(err, model.ErrRoomExists):
		return &httpError{http.StatusConflict, APIError{Code: CodeRoomExists, Message: "Room code already taken"}}
	case errors.Is(err, model.ErrRoomFull):
		return &httpError{http.StatusConflict, APIError{Code: CodeRoomFull, Message: "Room already has two players"}}
	case errors.Is(err, model.ErrAlreadyMember):
		return &httpError{http.StatusConflict, APIError{Code: CodeAlreadyInRoom, Message: "Already a member of this room"}}
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{Code: CodeNotHost, Message: "Only the host can perform this action"}}
	case errors.Is(err, model.ErrGameInProgress):
		return &httpError{http.StatusConflict, APIError{Code: CodeGameInProgress, Message: "Game is in progress"}}
	case errors.Is(err, model.ErrInvalidTransition):
		return &httpError{http.StatusConflict, APIError{Code: CodeInvalidTransition, Message: "Room cannot move to that status"}}
	case errors.Is(err, model.ErrMatchNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeMatchNotFound, Message: "Match not found"}}
	case errors.Is(err, model.ErrMatchFinished):
		return &httpError{http.StatusConflict, APIError{Code: CodeMatchFinished, Message: "Match already has a final result"}}
	case errors.Is(err, model.ErrNotParticipant):
		return &httpError{http.StatusForbidden, APIError{Code: CodeNotParticipant, Message: "Not a participant in this match"}}
	case errors.Is(err, model.ErrVersionConflict):
		return &httpError{http.StatusConflict, APIError{Code: CodeConflict, Message: "Concurrent update, retry"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
}
