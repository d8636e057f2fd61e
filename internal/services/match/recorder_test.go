package match

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/chessroom/chessroom/internal/dependencies/mocks"
	"github.com/chessroom/chessroom/internal/model"
	"github.com/chessroom/chessroom/internal/storage/memory"
	"github.com/chessroom/chessroom/internal/testutil"
)

type RecorderSuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	recorder *Recorder
	ctx      context.Context
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.recorder = NewRecorder(s.storage, s.clock, s.random, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *RecorderSuite) fullRoom(code string) *model.Room {
	return &model.Room{
		Code:    model.RoomCode(code),
		HostID:  "alice",
		Members: []model.AccountID{"alice", "bob"},
		Status:  model.RoomStatusWaiting,
	}
}

// CreateForRoom tests

func (s *RecorderSuite) TestCreateForRoomAssignsColors() {
	s.random.QueueIntn(0)

	m, err := s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))
	s.Require().NoError(err)

	s.Equal(model.AccountID("alice"), m.White)
	s.Equal(model.AccountID("bob"), m.Black)
	s.Empty(m.Moves)
	s.Nil(m.Result)
}

func (s *RecorderSuite) TestCreateForRoomSwapsColors() {
	s.random.QueueIntn(1)

	m, err := s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))
	s.Require().NoError(err)

	s.Equal(model.AccountID("bob"), m.White)
	s.Equal(model.AccountID("alice"), m.Black)
}

func (s *RecorderSuite) TestCreateForRoomIsIdempotent() {
	s.random.QueueIntn(0, 1)

	first, err := s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))
	s.Require().NoError(err)

	second, err := s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(first.White, second.White)
}

func (s *RecorderSuite) TestCreateForRoomRequiresTwoMembers() {
	room := s.fullRoom("R1")
	room.Members = room.Members[:1]

	_, err := s.recorder.CreateForRoom(s.ctx, room)
	s.Error(err)
}

// AppendMove tests

func (s *RecorderSuite) TestAppendMoveGrowsLedger() {
	s.random.QueueIntn(0)
	_, _ = s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))

	s.clock.Advance(5 * time.Second)
	updated, err := s.recorder.AppendMove(s.ctx, "R1", "alice", "e4", "fen-after-e4")
	s.Require().NoError(err)

	s.Require().Len(updated.Moves, 1)
	s.Equal("e4", updated.Moves[0].SAN)
	s.Equal("fen-after-e4", updated.Moves[0].Board)
	s.Equal(model.AccountID("alice"), updated.Moves[0].PlayedBy)
	s.Equal(s.clock.Now(), updated.Moves[0].At)
}

func (s *RecorderSuite) TestAppendMovePreservesOrder() {
	s.random.QueueIntn(0)
	_, _ = s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))

	moves := []string{"e4", "e5", "Nf3", "Nc6"}
	players := []model.AccountID{"alice", "bob", "alice", "bob"}
	for i, san := range moves {
		_, err := s.recorder.AppendMove(s.ctx, "R1", players[i], san, "fen")
		s.Require().NoError(err)
	}

	stored, _ := s.recorder.GetMatchByRoom(s.ctx, "R1")
	s.Require().Len(stored.Moves, 4)
	for i, san := range moves {
		s.Equal(san, stored.Moves[i].SAN)
	}
}

func (s *RecorderSuite) TestAppendMoveNonParticipant() {
	s.random.QueueIntn(0)
	_, _ = s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))

	_, err := s.recorder.AppendMove(s.ctx, "R1", "carol", "e4", "fen")
	s.ErrorIs(err, model.ErrNotParticipant)
}

func (s *RecorderSuite) TestAppendMoveNoMatch() {
	_, err := s.recorder.AppendMove(s.ctx, "R1", "alice", "e4", "fen")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *RecorderSuite) TestAppendMoveAfterFinishRejected() {
	s.random.QueueIntn(0)
	m, _ := s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))

	_, err := s.recorder.Finish(s.ctx, m.ID, model.Result{
		Winner: model.ColorWhite,
		Reason: model.EndReasonResignation,
	})
	s.Require().NoError(err)

	_, err = s.recorder.AppendMove(s.ctx, "R1", "alice", "e4", "fen")
	s.ErrorIs(err, model.ErrMatchFinished)
}

// Finish tests

func (s *RecorderSuite) TestFinishRecordsResult() {
	s.random.QueueIntn(0)
	m, _ := s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))

	s.clock.Advance(10 * time.Minute)
	finished, err := s.recorder.Finish(s.ctx, m.ID, model.Result{
		Winner:         model.ColorBlack,
		Reason:         model.EndReasonCheckmate,
		WhiteClockLeft: 90 * time.Second,
		BlackClockLeft: 3 * time.Minute,
	})
	s.Require().NoError(err)

	s.Require().NotNil(finished.Result)
	s.Equal(model.ColorBlack, finished.Result.Winner)
	s.Equal(model.EndReasonCheckmate, finished.Result.Reason)
	s.Equal(10*time.Minute, finished.Result.Duration)
	s.Equal(s.clock.Now(), finished.Result.EndedAt)
	s.False(finished.Result.IsDraw())
}

func (s *RecorderSuite) TestFinishExactlyOnce() {
	s.random.QueueIntn(0)
	m, _ := s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))

	_, err := s.recorder.Finish(s.ctx, m.ID, model.Result{
		Winner: model.ColorWhite,
		Reason: model.EndReasonTimeout,
	})
	s.Require().NoError(err)

	_, err = s.recorder.Finish(s.ctx, m.ID, model.Result{
		Winner: model.ColorBlack,
		Reason: model.EndReasonResignation,
	})
	s.ErrorIs(err, model.ErrMatchFinished)

	stored, _ := s.recorder.GetMatch(s.ctx, m.ID)
	s.Equal(model.ColorWhite, stored.Result.Winner)
	s.Equal(model.EndReasonTimeout, stored.Result.Reason)
}

func (s *RecorderSuite) TestFinishDrawHasNoWinner() {
	s.random.QueueIntn(0)
	m, _ := s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))

	finished, err := s.recorder.Finish(s.ctx, m.ID, model.Result{
		Reason: model.EndReasonStalemate,
	})
	s.Require().NoError(err)
	s.True(finished.Result.IsDraw())
}

func (s *RecorderSuite) TestFinishDecisiveReasonRequiresWinner() {
	s.random.QueueIntn(0)
	m, _ := s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))

	_, err := s.recorder.Finish(s.ctx, m.ID, model.Result{
		Reason: model.EndReasonCheckmate,
	})
	s.Error(err)
}

func (s *RecorderSuite) TestFinishDrawReasonForbidsWinner() {
	s.random.QueueIntn(0)
	m, _ := s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))

	_, err := s.recorder.Finish(s.ctx, m.ID, model.Result{
		Winner: model.ColorWhite,
		Reason: model.EndReasonDrawByRule,
	})
	s.Error(err)
}

func (s *RecorderSuite) TestFinishRejectsNegativeClock() {
	s.random.QueueIntn(0)
	m, _ := s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))

	_, err := s.recorder.Finish(s.ctx, m.ID, model.Result{
		Winner:         model.ColorWhite,
		Reason:         model.EndReasonTimeout,
		BlackClockLeft: -time.Second,
	})
	s.Error(err)
}

// ListByAccount tests

func (s *RecorderSuite) TestListByAccount() {
	s.random.QueueIntn(0, 0)
	_, _ = s.recorder.CreateForRoom(s.ctx, s.fullRoom("R1"))
	_, _ = s.recorder.CreateForRoom(s.ctx, s.fullRoom("R2"))

	matches, err := s.recorder.ListByAccount(s.ctx, "alice")
	s.Require().NoError(err)
	s.Len(matches, 2)
}
