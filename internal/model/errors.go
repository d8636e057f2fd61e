package model

import "errors"

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomExists        = errors.New("room code already taken")
	ErrRoomFull          = errors.New("room is full")
	ErrAlreadyMember     = errors.New("account is already a member of this room")
	ErrNotHost           = errors.New("account is not the room host")
	ErrGameInProgress    = errors.New("game is in progress")
	ErrInvalidTransition = errors.New("invalid room status transition")

	// Match errors
	ErrMatchNotFound  = errors.New("match not found")
	ErrMatchFinished  = errors.New("match already has a recorded result")
	ErrNotParticipant = errors.New("account is not a participant in this match")

	// Session errors
	ErrNoSession         = errors.New("no session for this account")
	ErrSessionSuperseded = errors.New("session superseded by a newer login")

	// Storage errors
	ErrVersionConflict = errors.New("concurrent update detected")
)
