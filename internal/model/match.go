package model

import "time"

// MatchID uniquely identifies a match
type MatchID string

// Color is a chess side
type Color string

const (
	ColorWhite Color = "white"
	ColorBlack Color = "black"
)

// EndReason describes how a match ended
type EndReason string

const (
	EndReasonCheckmate   EndReason = "checkmate"
	EndReasonStalemate   EndReason = "stalemate"
	EndReasonTimeout     EndReason = "timeout"
	EndReasonResignation EndReason = "resignation"
	EndReasonDrawByRule  EndReason = "draw_by_rule"
)

// Move is one entry in a match's append-only move ledger
type Move struct {
	SAN      string    // move notation as sent by the client
	Board    string    // resulting board encoding (FEN), carried with every move
	PlayedBy AccountID
	At       time.Time
}

// Result is the single terminal outcome of a match.
// Winner is empty for draws.
type Result struct {
	Winner         Color
	Reason         EndReason
	Duration       time.Duration
	WhiteClockLeft time.Duration
	BlackClockLeft time.Duration
	EndedAt        time.Time
}

// IsDraw reports whether the result has no winner
func (r *Result) IsDraw() bool {
	return r.Winner == ""
}

// Match is the persisted record of one game between the two members of a room
type Match struct {
	ID        MatchID
	RoomCode  RoomCode
	White     AccountID
	Black     AccountID
	Moves     []Move
	Result    *Result // nil while the game is in progress
	Version   int64   // optimistic concurrency guard for storage updates
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Finished reports whether a terminal result has been recorded
func (m *Match) Finished() bool {
	return m.Result != nil
}

// ColorOf returns the color assigned to the account, if it is a participant
func (m *Match) ColorOf(id AccountID) (Color, bool) {
	switch id {
	case m.White:
		return ColorWhite, true
	case m.Black:
		return ColorBlack, true
	}
	return "", false
}

// Opponent returns the other participant, or empty if id is not a participant
func (m *Match) Opponent(id AccountID) AccountID {
	switch id {
	case m.White:
		return m.Black
	case m.Black:
		return m.White
	}
	return ""
}
