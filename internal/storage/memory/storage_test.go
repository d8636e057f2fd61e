package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/chessroom/chessroom/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
	now     time.Time
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StorageSuite) makeRoom(code string) *model.Room {
	return &model.Room{
		Code:         model.RoomCode(code),
		HostID:       "alice",
		Members:      []model.AccountID{"alice"},
		Status:       model.RoomStatusWaiting,
		ClockMinutes: 10,
		CreatedAt:    s.now,
		UpdatedAt:    s.now,
	}
}

func (s *StorageSuite) makeMatch(id, code string) *model.Match {
	return &model.Match{
		ID:        model.MatchID(id),
		RoomCode:  model.RoomCode(code),
		White:     "alice",
		Black:     "bob",
		Moves:     []model.Move{},
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
}

// Room tests

func (s *StorageSuite) TestCreateAndGetRoom() {
	room := s.makeRoom("R1")
	s.Require().NoError(s.storage.CreateRoom(s.ctx, room))

	got, err := s.storage.GetRoom(s.ctx, "R1")
	s.Require().NoError(err)
	s.Equal(room.Code, got.Code)
	s.Equal(room.HostID, got.HostID)
}

func (s *StorageSuite) TestCreateRoomDuplicateCode() {
	s.Require().NoError(s.storage.CreateRoom(s.ctx, s.makeRoom("R1")))

	err := s.storage.CreateRoom(s.ctx, s.makeRoom("R1"))
	s.ErrorIs(err, model.ErrRoomExists)
}

func (s *StorageSuite) TestGetRoomNotFound() {
	_, err := s.storage.GetRoom(s.ctx, "nope")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestGetRoomReturnsSnapshot() {
	s.Require().NoError(s.storage.CreateRoom(s.ctx, s.makeRoom("R1")))

	got, _ := s.storage.GetRoom(s.ctx, "R1")
	got.Members = append(got.Members, "bob")

	again, _ := s.storage.GetRoom(s.ctx, "R1")
	s.Len(again.Members, 1)
}

func (s *StorageSuite) TestUpdateRoomBumpsVersion() {
	s.Require().NoError(s.storage.CreateRoom(s.ctx, s.makeRoom("R1")))

	got, _ := s.storage.GetRoom(s.ctx, "R1")
	got.Members = append(got.Members, "bob")
	s.Require().NoError(s.storage.UpdateRoom(s.ctx, got))

	s.Equal(int64(1), got.Version)

	stored, _ := s.storage.GetRoom(s.ctx, "R1")
	s.Equal(int64(1), stored.Version)
	s.Len(stored.Members, 2)
}

func (s *StorageSuite) TestUpdateRoomStaleVersionConflicts() {
	s.Require().NoError(s.storage.CreateRoom(s.ctx, s.makeRoom("R1")))

	first, _ := s.storage.GetRoom(s.ctx, "R1")
	second, _ := s.storage.GetRoom(s.ctx, "R1")

	first.Members = append(first.Members, "bob")
	s.Require().NoError(s.storage.UpdateRoom(s.ctx, first))

	second.Members = append(second.Members, "carol")
	err := s.storage.UpdateRoom(s.ctx, second)
	s.ErrorIs(err, model.ErrVersionConflict)

	stored, _ := s.storage.GetRoom(s.ctx, "R1")
	s.Equal([]model.AccountID{"alice", "bob"}, stored.Members)
}

func (s *StorageSuite) TestConcurrentUpdatesExactlyOneWins() {
	s.Require().NoError(s.storage.CreateRoom(s.ctx, s.makeRoom("R1")))

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	snapshot, _ := s.storage.GetRoom(s.ctx, "R1")

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room := *snapshot
			room.Members = append([]model.AccountID{}, snapshot.Members...)
			errs[i] = s.storage.UpdateRoom(s.ctx, &room)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			s.ErrorIs(err, model.ErrVersionConflict)
		}
	}
	s.Equal(1, wins)
}

func (s *StorageSuite) TestDeleteRoom() {
	s.Require().NoError(s.storage.CreateRoom(s.ctx, s.makeRoom("R1")))
	s.Require().NoError(s.storage.DeleteRoom(s.ctx, "R1"))

	_, err := s.storage.GetRoom(s.ctx, "R1")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestListRooms() {
	s.Require().NoError(s.storage.CreateRoom(s.ctx, s.makeRoom("R1")))
	s.Require().NoError(s.storage.CreateRoom(s.ctx, s.makeRoom("R2")))

	rooms, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Len(rooms, 2)
}

// Match tests

func (s *StorageSuite) TestCreateAndGetMatch() {
	m := s.makeMatch("m1", "R1")
	s.Require().NoError(s.storage.CreateMatch(s.ctx, m))

	got, err := s.storage.GetMatch(s.ctx, "m1")
	s.Require().NoError(err)
	s.Equal(model.AccountID("alice"), got.White)

	byRoom, err := s.storage.GetMatchByRoom(s.ctx, "R1")
	s.Require().NoError(err)
	s.Equal(got.ID, byRoom.ID)
}

func (s *StorageSuite) TestGetMatchNotFound() {
	_, err := s.storage.GetMatch(s.ctx, "nope")
	s.ErrorIs(err, model.ErrMatchNotFound)

	_, err = s.storage.GetMatchByRoom(s.ctx, "nope")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StorageSuite) TestUpdateMatchStaleVersionConflicts() {
	s.Require().NoError(s.storage.CreateMatch(s.ctx, s.makeMatch("m1", "R1")))

	first, _ := s.storage.GetMatch(s.ctx, "m1")
	second, _ := s.storage.GetMatch(s.ctx, "m1")

	first.Moves = append(first.Moves, model.Move{SAN: "e4", PlayedBy: "alice", At: s.now})
	s.Require().NoError(s.storage.UpdateMatch(s.ctx, first))

	second.Moves = append(second.Moves, model.Move{SAN: "d4", PlayedBy: "alice", At: s.now})
	s.ErrorIs(s.storage.UpdateMatch(s.ctx, second), model.ErrVersionConflict)

	stored, _ := s.storage.GetMatch(s.ctx, "m1")
	s.Len(stored.Moves, 1)
	s.Equal("e4", stored.Moves[0].SAN)
}

func (s *StorageSuite) TestListMatchesByAccount() {
	s.Require().NoError(s.storage.CreateMatch(s.ctx, s.makeMatch("m1", "R1")))
	s.Require().NoError(s.storage.CreateMatch(s.ctx, s.makeMatch("m2", "R2")))

	matches, err := s.storage.ListMatchesByAccount(s.ctx, "alice")
	s.Require().NoError(err)
	s.Len(matches, 2)

	matches, err = s.storage.ListMatchesByAccount(s.ctx, "carol")
	s.Require().NoError(err)
	s.Empty(matches)
}

// Session tests

func (s *StorageSuite) TestPutSessionOverwrites() {
	first := &model.Session{AccountID: "alice", Token: "t1", StartedAt: s.now, LastSeenAt: s.now}
	second := &model.Session{AccountID: "alice", Token: "t2", StartedAt: s.now.Add(time.Minute), LastSeenAt: s.now.Add(time.Minute)}

	s.Require().NoError(s.storage.PutSession(s.ctx, first))
	s.Require().NoError(s.storage.PutSession(s.ctx, second))

	got, err := s.storage.GetSession(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("t2", got.Token)
}

func (s *StorageSuite) TestGetSessionMissing() {
	_, err := s.storage.GetSession(s.ctx, "alice")
	s.ErrorIs(err, model.ErrNoSession)
}

func (s *StorageSuite) TestTouchSessionIfTokenMatchRefreshes() {
	sess := &model.Session{AccountID: "alice", Token: "t1", StartedAt: s.now, LastSeenAt: s.now}
	s.Require().NoError(s.storage.PutSession(s.ctx, sess))

	later := s.now.Add(30 * time.Second)
	s.Require().NoError(s.storage.TouchSessionIfToken(s.ctx, "alice", "t1", later))

	got, _ := s.storage.GetSession(s.ctx, "alice")
	s.Equal(later, got.LastSeenAt)
}

func (s *StorageSuite) TestTouchSessionStaleTokenIsNoop() {
	sess := &model.Session{AccountID: "alice", Token: "t2", StartedAt: s.now, LastSeenAt: s.now}
	s.Require().NoError(s.storage.PutSession(s.ctx, sess))

	s.Require().NoError(s.storage.TouchSessionIfToken(s.ctx, "alice", "t1", s.now.Add(time.Minute)))

	got, _ := s.storage.GetSession(s.ctx, "alice")
	s.Equal(s.now, got.LastSeenAt)
}

func (s *StorageSuite) TestDeleteSessionIfTokenMatch() {
	sess := &model.Session{AccountID: "alice", Token: "t1", StartedAt: s.now, LastSeenAt: s.now}
	s.Require().NoError(s.storage.PutSession(s.ctx, sess))

	s.Require().NoError(s.storage.DeleteSessionIfToken(s.ctx, "alice", "t1"))

	_, err := s.storage.GetSession(s.ctx, "alice")
	s.ErrorIs(err, model.ErrNoSession)
}

func (s *StorageSuite) TestDeleteSessionStaleTokenIsNoop() {
	sess := &model.Session{AccountID: "alice", Token: "t2", StartedAt: s.now, LastSeenAt: s.now}
	s.Require().NoError(s.storage.PutSession(s.ctx, sess))

	s.Require().NoError(s.storage.DeleteSessionIfToken(s.ctx, "alice", "t1"))

	got, err := s.storage.GetSession(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("t2", got.Token)
}
