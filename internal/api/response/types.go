package response

import (
	"time"

	"github.com/chessroom/chessroom/internal/model"
)

// Session represents a session in API responses
type Session struct {
	AccountID  string    `json:"account_id"`
	Token      string    `json:"token"`
	Device     string    `json:"device,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// SessionFromModel converts a model.Session to a response Session
func SessionFromModel(s *model.Session) Session {
	return Session{
		AccountID:  string(s.AccountID),
		Token:      s.Token,
		Device:     s.Device,
		StartedAt:  s.StartedAt,
		LastSeenAt: s.LastSeenAt,
	}
}

// Room represents a room in API responses
type Room struct {
	Code         string    `json:"code"`
	HostID       string    `json:"host_id"`
	Members      []string  `json:"members"`
	Status       string    `json:"status"`
	ClockMinutes int       `json:"clock_minutes"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoomFromModel converts a model.Room to a response Room
func RoomFromModel(r *model.Room) Room {
	members := make([]string, len(r.Members))
	for i, m := range r.Members {
		members[i] = string(m)
	}
	return Room{
		Code:         string(r.Code),
		HostID:       string(r.HostID),
		Members:      members,
		Status:       string(r.Status),
		ClockMinutes: r.ClockMinutes,
		CreatedAt:    r.CreatedAt,
	}
}

// RoomsFromModel converts a slice of rooms
func RoomsFromModel(rooms []*model.Room) []Room {
	out := make([]Room, len(rooms))
	for i, r := range rooms {
		out[i] = RoomFromModel(r)
	}
	return out
}

// Move represents one recorded move
type Move struct {
	SAN      string    `json:"san"`
	Board    string    `json:"board"`
	PlayedBy string    `json:"played_by"`
	At       time.Time `json:"at"`
}

// Result represents a match's terminal outcome
type Result struct {
	Winner         *string   `json:"winner"`
	Reason         string    `json:"reason"`
	DurationSec    float64   `json:"duration_seconds"`
	WhiteClockLeft float64   `json:"white_clock_left_seconds"`
	BlackClockLeft float64   `json:"black_clock_left_seconds"`
	EndedAt        time.Time `json:"ended_at"`
}

// Match represents a match in API responses
type Match struct {
	ID        string    `json:"id"`
	RoomCode  string    `json:"room_code"`
	White     string    `json:"white"`
	Black     string    `json:"black"`
	Moves     []Move    `json:"moves"`
	Result    *Result   `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchFromModel converts a model.Match to a response Match
func MatchFromModel(m *model.Match) Match {
	moves := make([]Move, len(m.Moves))
	for i, mv := range m.Moves {
		moves[i] = Move{
			SAN:      mv.SAN,
			Board:    mv.Board,
			PlayedBy: string(mv.PlayedBy),
			At:       mv.At,
		}
	}

	var result *Result
	if m.Result != nil {
		var winner *string
		if !m.Result.IsDraw() {
			w := string(m.Result.Winner)
			winner = &w
		}
		result = &Result{
			Winner:         winner,
			Reason:         string(m.Result.Reason),
			DurationSec:    m.Result.Duration.Seconds(),
			WhiteClockLeft: m.Result.WhiteClockLeft.Seconds(),
			BlackClockLeft: m.Result.BlackClockLeft.Seconds(),
			EndedAt:        m.Result.EndedAt,
		}
	}

	return Match{
		ID:        string(m.ID),
		RoomCode:  string(m.RoomCode),
		White:     string(m.White),
		Black:     string(m.Black),
		Moves:     moves,
		Result:    result,
		CreatedAt: m.CreatedAt,
	}
}

// MatchesFromModel converts a slice of matches
func MatchesFromModel(matches []*model.Match) []Match {
	out := make([]Match, len(matches))
	for i, m := range matches {
		out[i] = MatchFromModel(m)
	}
	return out
}

// PGN is the response for the PGN export endpoint
type PGN struct {
	MatchID string `json:"match_id"`
	PGN     string `json:"pgn"`
}
