package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/chessroom/chessroom/internal/dependencies/clock"
	"github.com/chessroom/chessroom/internal/dependencies/random"
	"github.com/chessroom/chessroom/internal/model"
	"github.com/chessroom/chessroom/internal/storage"
)

// casAttempts bounds optimistic-concurrency retries on append and finish
const casAttempts = 5

// Recorder owns the append-only move ledger and the terminal result of each game
type Recorder struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// NewRecorder creates a new match Recorder
func NewRecorder(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger) *Recorder {
	return &Recorder{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "match")),
	}
}

// CreateForRoom creates the match for a room that has just reached two members,
// assigning colors at random. Calling it again for the same room returns the
// existing match, so racing joiners cannot create a second ledger.
func (r *Recorder) CreateForRoom(ctx context.Context, room *model.Room) (*model.Match, error) {
	if existing, err := r.storage.GetMatchByRoom(ctx, room.Code); err == nil {
		return existing, nil
	} else if !errors.Is(err, model.ErrMatchNotFound) {
		return nil, err
	}

	if len(room.Members) != model.RoomCapacity {
		return nil, fmt.Errorf("room %s has %d members, want %d", room.Code, len(room.Members), model.RoomCapacity)
	}

	white, black := room.Members[0], room.Members[1]
	if r.random.Intn(2) == 1 {
		white, black = black, white
	}

	now := r.clock.Now()
	m := &model.Match{
		ID:        model.MatchID(uuid.NewString()),
		RoomCode:  room.Code,
		White:     white,
		Black:     black,
		Moves:     []model.Move{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.storage.CreateMatch(ctx, m); err != nil {
		return nil, err
	}

	r.logger.Info("match created",
		slog.String("match_id", string(m.ID)),
		slog.String("room", string(m.RoomCode)),
		slog.String("white", string(m.White)),
		slog.String("black", string(m.Black)))

	return m, nil
}

// GetMatch retrieves a match by id
func (r *Recorder) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return r.storage.GetMatch(ctx, id)
}

// GetMatchByRoom retrieves the match for a room
func (r *Recorder) GetMatchByRoom(ctx context.Context, code model.RoomCode) (*model.Match, error) {
	return r.storage.GetMatchByRoom(ctx, code)
}

// ListByAccount retrieves all matches the account has played in
func (r *Recorder) ListByAccount(ctx context.Context, id model.AccountID) ([]*model.Match, error) {
	return r.storage.ListMatchesByAccount(ctx, id)
}

// AppendMove appends one move to the room's match ledger. Moves are never
// edited or removed; once a result has been recorded no further moves are
// accepted.
func (r *Recorder) AppendMove(ctx context.Context, code model.RoomCode, accountID model.AccountID, san, board string) (*model.Match, error) {
	var lastErr error
	for attempt := 0; attempt < casAttempts; attempt++ {
		m, err := r.storage.GetMatchByRoom(ctx, code)
		if err != nil {
			return nil, err
		}
		if m.Finished() {
			return nil, model.ErrMatchFinished
		}
		if _, ok := m.ColorOf(accountID); !ok {
			return nil, model.ErrNotParticipant
		}

		m.Moves = append(m.Moves, model.Move{
			SAN:      san,
			Board:    board,
			PlayedBy: accountID,
			At:       r.clock.Now(),
		})
		m.UpdatedAt = r.clock.Now()

		if err := r.storage.UpdateMatch(ctx, m); err != nil {
			if errors.Is(err, model.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return m, nil
	}
	return nil, lastErr
}

// Finish records the single terminal result of a match. All recording after
// the first terminal result fails with model.ErrMatchFinished.
func (r *Recorder) Finish(ctx context.Context, id model.MatchID, result model.Result) (*model.Match, error) {
	if err := validateResult(result); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < casAttempts; attempt++ {
		m, err := r.storage.GetMatch(ctx, id)
		if err != nil {
			return nil, err
		}
		if m.Finished() {
			return nil, model.ErrMatchFinished
		}

		now := r.clock.Now()
		res := result
		res.EndedAt = now
		if res.Duration == 0 {
			res.Duration = now.Sub(m.CreatedAt)
		}
		m.Result = &res
		m.UpdatedAt = now

		if err := r.storage.UpdateMatch(ctx, m); err != nil {
			if errors.Is(err, model.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		r.logger.Info("match finished",
			slog.String("match_id", string(m.ID)),
			slog.String("room", string(m.RoomCode)),
			slog.String("winner", string(res.Winner)),
			slog.String("reason", string(res.Reason)),
			slog.Duration("duration", res.Duration))

		return m, nil
	}
	return nil, lastErr
}

// validateResult checks that winner and reason form a coherent outcome
func validateResult(result model.Result) error {
	switch result.Reason {
	case model.EndReasonCheckmate, model.EndReasonTimeout, model.EndReasonResignation:
		if result.Winner != model.ColorWhite && result.Winner != model.ColorBlack {
			return fmt.Errorf("end reason %s requires a winner", result.Reason)
		}
	case model.EndReasonStalemate, model.EndReasonDrawByRule:
		if result.Winner != "" {
			return fmt.Errorf("end reason %s cannot have a winner", result.Reason)
		}
	default:
		return fmt.Errorf("unknown end reason %q", result.Reason)
	}
	if result.WhiteClockLeft < 0 || result.BlackClockLeft < 0 {
		return fmt.Errorf("remaining clock time cannot be negative")
	}
	return nil
}
