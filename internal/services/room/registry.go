package room

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/chessroom/chessroom/internal/dependencies/clock"
	"github.com/chessroom/chessroom/internal/model"
	"github.com/chessroom/chessroom/internal/services/match"
	"github.com/chessroom/chessroom/internal/storage"
)

const (
	// DefaultClockMinutes is used when a room is created without a clock setting
	DefaultClockMinutes = 10

	// joinAttempts bounds the CAS retry loop for racing joins. A retry only
	// happens when another writer got in first, and after a lost race the
	// reloaded room answers definitively (full / already a member).
	joinAttempts = 3
)

// Registry manages room lifecycle and the waiting -> playing -> finished state machine
type Registry struct {
	storage  storage.Storage
	recorder *match.Recorder
	clock    clock.Clock
	logger   *slog.Logger
}

// NewRegistry creates a new room Registry
func NewRegistry(storage storage.Storage, recorder *match.Recorder, clock clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		storage:  storage,
		recorder: recorder,
		clock:    clock,
		logger:   logger.With(slog.String("component", "room")),
	}
}

// CreateRoom creates a room with the given client-chosen code and the creator
// as host and sole member
func (r *Registry) CreateRoom(ctx context.Context, code model.RoomCode, hostID model.AccountID, clockMinutes int) (*model.Room, error) {
	code = model.RoomCode(strings.TrimSpace(string(code)))
	if code == "" {
		return nil, errors.New("room code is required")
	}
	if clockMinutes <= 0 {
		clockMinutes = DefaultClockMinutes
	}

	now := r.clock.Now()
	room := &model.Room{
		Code:         code,
		HostID:       hostID,
		Members:      []model.AccountID{hostID},
		Status:       model.RoomStatusWaiting,
		ClockMinutes: clockMinutes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := r.storage.CreateRoom(ctx, room); err != nil {
		return nil, err
	}

	r.logger.Info("room created",
		slog.String("room", string(code)),
		slog.String("host", string(hostID)),
		slog.Int("clock_minutes", clockMinutes))

	return room, nil
}

// GetRoom retrieves a room by code
func (r *Registry) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return r.storage.GetRoom(ctx, code)
}

// ListRooms retrieves all rooms
func (r *Registry) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return r.storage.ListRooms(ctx)
}

// JoinRoom adds an account as the room's second member. Two joins racing for
// the last slot are arbitrated by the storage CAS: the winner's update lands,
// the loser reloads a full room and receives model.ErrRoomFull. When the room
// reaches capacity the match is created so colors are assigned exactly once.
func (r *Registry) JoinRoom(ctx context.Context, code model.RoomCode, accountID model.AccountID) (*model.Room, error) {
	var lastErr error
	for attempt := 0; attempt < joinAttempts; attempt++ {
		room, err := r.storage.GetRoom(ctx, code)
		if err != nil {
			return nil, err
		}
		if room.IsMember(accountID) {
			return nil, model.ErrAlreadyMember
		}
		if room.IsFull() {
			return nil, model.ErrRoomFull
		}

		room.Members = append(room.Members, accountID)
		room.UpdatedAt = r.clock.Now()

		if err := r.storage.UpdateRoom(ctx, room); err != nil {
			if errors.Is(err, model.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		r.logger.Info("room joined",
			slog.String("room", string(code)),
			slog.String("account", string(accountID)),
			slog.Int("members", len(room.Members)))

		if room.IsFull() {
			if _, err := r.recorder.CreateForRoom(ctx, room); err != nil {
				return nil, err
			}
		}
		return room, nil
	}
	return nil, lastErr
}

// DeleteRoom removes a room. Only the host may delete, and only before play
// has begun; once a game is running (or over) the room is kept as history.
func (r *Registry) DeleteRoom(ctx context.Context, code model.RoomCode, requesterID model.AccountID) error {
	room, err := r.storage.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.HostID != requesterID {
		return model.ErrNotHost
	}
	if room.Status != model.RoomStatusWaiting {
		return model.ErrGameInProgress
	}

	if err := r.storage.DeleteRoom(ctx, code); err != nil {
		return err
	}

	r.logger.Info("room deleted",
		slog.String("room", string(code)),
		slog.String("host", string(requesterID)))

	return nil
}

// TransitionStatus advances the room's status. The state machine is strictly
// monotonic; any non-adjacent or backwards move fails with ErrInvalidTransition.
func (r *Registry) TransitionStatus(ctx context.Context, code model.RoomCode, next model.RoomStatus) (*model.Room, error) {
	var lastErr error
	for attempt := 0; attempt < joinAttempts; attempt++ {
		room, err := r.storage.GetRoom(ctx, code)
		if err != nil {
			return nil, err
		}
		if !room.CanTransitionTo(next) {
			return nil, model.ErrInvalidTransition
		}

		room.Status = next
		room.UpdatedAt = r.clock.Now()

		if err := r.storage.UpdateRoom(ctx, room); err != nil {
			if errors.Is(err, model.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		r.logger.Info("room status changed",
			slog.String("room", string(code)),
			slog.String("status", string(next)))

		return room, nil
	}
	return nil, lastErr
}
