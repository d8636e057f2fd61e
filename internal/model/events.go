package model

import "encoding/json"

// EventType names a realtime event exchanged over the hub
type EventType string

const (
	// Client-originated events
	EventJoin  EventType = "join"
	EventLeave EventType = "leave"
	EventReady EventType = "ready"
	EventMove  EventType = "move"

	// Server-originated events
	EventGameStart   EventType = "game-start"
	EventGameOver    EventType = "game-over"
	EventRoomDeleted EventType = "room-deleted"
)

// Event is the wire envelope for realtime messages.
// Every move carries the full resulting board encoding rather than a delta,
// which makes delivery idempotent and reorder-tolerant across senders.
type Event struct {
	Type    EventType       `json:"type"`
	Room    RoomCode        `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PresencePayload is the payload for join, leave and ready events
type PresencePayload struct {
	AccountID AccountID `json:"account_id"`
}

// MovePayload is the payload for move events
type MovePayload struct {
	AccountID AccountID `json:"account_id"`
	SAN       string    `json:"san"`
	Board     string    `json:"board"`
}

// GameStartPayload is broadcast once the ready barrier fires
type GameStartPayload struct {
	MatchID MatchID   `json:"match_id"`
	White   AccountID `json:"white"`
	Black   AccountID `json:"black"`
}

// GameOverPayload is broadcast when a terminal result is recorded
type GameOverPayload struct {
	MatchID MatchID   `json:"match_id"`
	Winner  Color     `json:"winner,omitempty"`
	Reason  EndReason `json:"reason"`
}

// RoomDeletedPayload tells members to exit to the lobby
type RoomDeletedPayload struct {
	Room RoomCode `json:"room"`
}

// NewEvent builds an event envelope with a marshalled payload
func NewEvent(t EventType, room RoomCode, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, Room: room, Payload: raw}, nil
}
