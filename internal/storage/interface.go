package storage

import (
	"context"
	"time"

	"github.com/chessroom/chessroom/internal/model"
)

// Storage defines the interface for data persistence.
//
// Rooms, matches and sessions are the shared mutable state of the system.
// Updates to rooms and matches go through optimistic concurrency: callers
// load a document, mutate it, and save it back with the Version they read;
// the store rejects the write with model.ErrVersionConflict if another
// writer got there first. PutSession is a plain overwrite because
// overwrite-is-revoke is exactly the intended session semantics.
type Storage interface {
	// Room operations
	CreateRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	UpdateRoom(ctx context.Context, room *model.Room) error
	DeleteRoom(ctx context.Context, code model.RoomCode) error
	ListRooms(ctx context.Context) ([]*model.Room, error)

	// Match operations
	CreateMatch(ctx context.Context, match *model.Match) error
	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	GetMatchByRoom(ctx context.Context, code model.RoomCode) (*model.Match, error)
	UpdateMatch(ctx context.Context, match *model.Match) error
	ListMatchesByAccount(ctx context.Context, id model.AccountID) ([]*model.Match, error)

	// Session operations
	PutSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id model.AccountID) (*model.Session, error)
	TouchSessionIfToken(ctx context.Context, id model.AccountID, token string, at time.Time) error
	DeleteSessionIfToken(ctx context.Context, id model.AccountID, token string) error
}
