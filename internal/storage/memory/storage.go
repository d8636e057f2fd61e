package memory

import (
	"context"
	"sync"
	"time"

	"github.com/chessroom/chessroom/internal/model"
	"github.com/chessroom/chessroom/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	rooms     map[model.RoomCode]*model.Room
	matches   map[model.MatchID]*model.Match
	roomIndex map[model.RoomCode]model.MatchID
	byAccount map[model.AccountID][]model.MatchID
	sessions  map[model.AccountID]*model.Session
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		rooms:     make(map[model.RoomCode]*model.Room),
		matches:   make(map[model.MatchID]*model.Match),
		roomIndex: make(map[model.RoomCode]model.MatchID),
		byAccount: make(map[model.AccountID][]model.MatchID),
		sessions:  make(map[model.AccountID]*model.Session),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Stored documents are copied on the way in and out so that two callers
// racing on the same room or match hold independent snapshots; the CAS in
// UpdateRoom/UpdateMatch is what arbitrates between them.

func cloneRoom(r *model.Room) *model.Room {
	c := *r
	c.Members = append([]model.AccountID(nil), r.Members...)
	return &c
}

func cloneMatch(m *model.Match) *model.Match {
	c := *m
	c.Moves = append([]model.Move(nil), m.Moves...)
	if m.Result != nil {
		res := *m.Result
		c.Result = &res
	}
	return &c
}

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; ok {
		return model.ErrRoomExists
	}
	s.rooms[room.Code] = cloneRoom(room)
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return cloneRoom(room), nil
}

func (s *Storage) UpdateRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rooms[room.Code]
	if !ok {
		return model.ErrRoomNotFound
	}
	if cur.Version != room.Version {
		return model.ErrVersionConflict
	}
	room.Version++
	s.rooms[room.Code] = cloneRoom(room)
	return nil
}

func (s *Storage) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; !ok {
		return model.ErrRoomNotFound
	}
	delete(s.rooms, code)
	return nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]*model.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, cloneRoom(r))
	}
	return rooms, nil
}

// Match operations

func (s *Storage) CreateMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[match.ID] = cloneMatch(match)
	s.roomIndex[match.RoomCode] = match.ID
	s.byAccount[match.White] = append(s.byAccount[match.White], match.ID)
	s.byAccount[match.Black] = append(s.byAccount[match.Black], match.ID)
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return cloneMatch(match), nil
}

func (s *Storage) GetMatchByRoom(ctx context.Context, code model.RoomCode) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.roomIndex[code]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	match, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return cloneMatch(match), nil
}

func (s *Storage) UpdateMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.matches[match.ID]
	if !ok {
		return model.ErrMatchNotFound
	}
	if cur.Version != match.Version {
		return model.ErrVersionConflict
	}
	match.Version++
	s.matches[match.ID] = cloneMatch(match)
	return nil
}

func (s *Storage) ListMatchesByAccount(ctx context.Context, id model.AccountID) ([]*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byAccount[id]
	matches := make([]*model.Match, 0, len(ids))
	for _, matchID := range ids {
		if m, ok := s.matches[matchID]; ok {
			matches = append(matches, cloneMatch(m))
		}
	}
	return matches, nil
}

// Session operations

func (s *Storage) PutSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *session
	s.sessions[session.AccountID] = &c
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id model.AccountID) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrNoSession
	}
	c := *session
	return &c, nil
}

func (s *Storage) TouchSessionIfToken(ctx context.Context, id model.AccountID, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil
	}
	// Never refresh a record a newer session has replaced
	if session.Token != token {
		return nil
	}
	session.LastSeenAt = at
	return nil
}

func (s *Storage) DeleteSessionIfToken(ctx context.Context, id model.AccountID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil
	}
	// A late logout from an old client must not destroy a newer session
	if session.Token != token {
		return nil
	}
	delete(s.sessions, id)
	return nil
}
