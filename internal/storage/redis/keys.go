package redis

import (
	"fmt"

	"github.com/chessroom/chessroom/internal/model"
)

// Key prefix for all chessroom data
const keyPrefix = "chessroom"

// roomKey returns the Redis key for a Room
func roomKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, code)
}

// roomsIndexKey returns the Redis key for the SET of all room codes
func roomsIndexKey() string {
	return fmt.Sprintf("%s:idx:rooms", keyPrefix)
}

// matchKey returns the Redis key for a Match
func matchKey(id model.MatchID) string {
	return fmt.Sprintf("%s:match:%s", keyPrefix, id)
}

// matchByRoomKey returns the Redis key for the room code -> match id index
func matchByRoomKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:idx:match_by_room:%s", keyPrefix, code)
}

// matchesByAccountKey returns the Redis key for the SET of match ids per account
func matchesByAccountKey(id model.AccountID) string {
	return fmt.Sprintf("%s:idx:matches_by_account:%s", keyPrefix, id)
}

// sessionKey returns the Redis key for an account's session record
func sessionKey(id model.AccountID) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, id)
}
