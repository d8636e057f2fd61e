package model

import "time"

// RoomCode is the client-chosen identifier used to join rooms
type RoomCode string

// RoomStatus represents the lifecycle state of a room
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"  // Host waiting for an opponent
	RoomStatusPlaying  RoomStatus = "playing"  // Game in progress
	RoomStatusFinished RoomStatus = "finished" // Game over, room is read-only history
)

// RoomCapacity is the maximum number of members in a room
const RoomCapacity = 2

// statusRank orders room statuses; transitions may only move forward
var statusRank = map[RoomStatus]int{
	RoomStatusWaiting:  0,
	RoomStatusPlaying:  1,
	RoomStatusFinished: 2,
}

// Room represents a two-player game room
type Room struct {
	Code         RoomCode
	HostID       AccountID
	Members      []AccountID // ordered, host first, never more than RoomCapacity
	Status       RoomStatus
	ClockMinutes int
	Version      int64 // optimistic concurrency guard for storage updates
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsMember reports whether the account is a member of the room
func (r *Room) IsMember(id AccountID) bool {
	for _, m := range r.Members {
		if m == id {
			return true
		}
	}
	return false
}

// IsFull reports whether the room has reached capacity
func (r *Room) IsFull() bool {
	return len(r.Members) >= RoomCapacity
}

// CanTransitionTo reports whether the status may advance to next.
// The state machine is strictly monotonic: waiting -> playing -> finished.
func (r *Room) CanTransitionTo(next RoomStatus) bool {
	cur, ok := statusRank[r.Status]
	if !ok {
		return false
	}
	target, ok := statusRank[next]
	if !ok {
		return false
	}
	return target == cur+1
}
