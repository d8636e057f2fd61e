package handler

import "github.com/chessroom/chessroom/internal/api/apierr"

// Re-exported error helpers so handlers read cleanly
var (
	WriteError             = apierr.WriteError
	NewInvalidRequestError = apierr.NewInvalidRequestError
)
