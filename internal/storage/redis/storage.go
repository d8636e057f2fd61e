package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chessroom/chessroom/internal/model"
	"github.com/chessroom/chessroom/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
//
// Room and match updates use WATCH-backed optimistic transactions so that
// two server instances racing on the same document resolve the same way the
// in-memory backend does: one write wins, the other sees
// model.ErrVersionConflict and retries at the service layer.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}

	// SETNX arbitrates duplicate codes: exactly one creator wins
	set, err := s.client.SetNX(ctx, roomKey(room.Code), data, s.cfg.RoomTTL).Result()
	if err != nil {
		return err
	}
	if !set {
		return model.ErrRoomExists
	}

	return s.client.SAdd(ctx, roomsIndexKey(), string(room.Code)).Err()
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	data, err := s.client.Get(ctx, roomKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Storage) UpdateRoom(ctx context.Context, room *model.Room) error {
	key := roomKey(room.Code)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrRoomNotFound
			}
			return err
		}

		var cur model.Room
		if err := json.Unmarshal(data, &cur); err != nil {
			return err
		}
		if cur.Version != room.Version {
			return model.ErrVersionConflict
		}

		next := *room
		next.Members = append([]model.AccountID(nil), room.Members...)
		next.Version++
		updated, err := json.Marshal(&next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.cfg.RoomTTL)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrVersionConflict
	}
	if err != nil {
		return err
	}

	room.Version++
	return nil
}

func (s *Storage) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	deleted, err := s.client.Del(ctx, roomKey(code)).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return model.ErrRoomNotFound
	}
	return s.client.SRem(ctx, roomsIndexKey(), string(code)).Err()
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	codes, err := s.client.SMembers(ctx, roomsIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return []*model.Room{}, nil
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = roomKey(model.RoomCode(code))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	rooms := make([]*model.Room, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // Room may have expired
		}
		var room model.Room
		if err := json.Unmarshal([]byte(val.(string)), &room); err != nil {
			continue // Skip invalid data
		}
		rooms = append(rooms, &room)
	}

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.Before(rooms[j].CreatedAt) })
	return rooms, nil
}

// Match operations

func (s *Storage) CreateMatch(ctx context.Context, match *model.Match) error {
	data, err := json.Marshal(match)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index updates
	pipe := s.client.Pipeline()
	pipe.Set(ctx, matchKey(match.ID), data, s.cfg.MatchTTL)
	pipe.Set(ctx, matchByRoomKey(match.RoomCode), string(match.ID), s.cfg.MatchTTL)
	pipe.SAdd(ctx, matchesByAccountKey(match.White), string(match.ID))
	pipe.SAdd(ctx, matchesByAccountKey(match.Black), string(match.ID))
	pipe.Expire(ctx, matchesByAccountKey(match.White), s.cfg.MatchTTL)
	pipe.Expire(ctx, matchesByAccountKey(match.Black), s.cfg.MatchTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	data, err := s.client.Get(ctx, matchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	var match model.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *Storage) GetMatchByRoom(ctx context.Context, code model.RoomCode) (*model.Match, error) {
	id, err := s.client.Get(ctx, matchByRoomKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}
	return s.GetMatch(ctx, model.MatchID(id))
}

func (s *Storage) UpdateMatch(ctx context.Context, match *model.Match) error {
	key := matchKey(match.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrMatchNotFound
			}
			return err
		}

		var cur model.Match
		if err := json.Unmarshal(data, &cur); err != nil {
			return err
		}
		if cur.Version != match.Version {
			return model.ErrVersionConflict
		}

		next := *match
		next.Moves = append([]model.Move(nil), match.Moves...)
		next.Version++
		updated, err := json.Marshal(&next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.cfg.MatchTTL)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrVersionConflict
	}
	if err != nil {
		return err
	}

	match.Version++
	return nil
}

func (s *Storage) ListMatchesByAccount(ctx context.Context, id model.AccountID) ([]*model.Match, error) {
	ids, err := s.client.SMembers(ctx, matchesByAccountKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Match{}, nil
	}

	keys := make([]string, len(ids))
	for i, matchID := range ids {
		keys[i] = matchKey(model.MatchID(matchID))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	matches := make([]*model.Match, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // Match may have expired
		}
		var match model.Match
		if err := json.Unmarshal([]byte(val.(string)), &match); err != nil {
			continue // Skip invalid data
		}
		matches = append(matches, &match)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })
	return matches, nil
}

// Session operations

func (s *Storage) PutSession(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	// Plain overwrite: replacing the record is what revokes the prior token
	return s.client.Set(ctx, sessionKey(session.AccountID), data, s.cfg.SessionTTL).Err()
}

func (s *Storage) GetSession(ctx context.Context, id model.AccountID) (*model.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNoSession
		}
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Storage) TouchSessionIfToken(ctx context.Context, id model.AccountID, token string, at time.Time) error {
	key := sessionKey(id)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}

		var cur model.Session
		if err := json.Unmarshal(data, &cur); err != nil {
			return err
		}
		if cur.Token != token {
			return nil // Never refresh a record a newer session has replaced
		}

		cur.LastSeenAt = at
		updated, err := json.Marshal(&cur)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.cfg.SessionTTL)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (s *Storage) DeleteSessionIfToken(ctx context.Context, id model.AccountID, token string) error {
	key := sessionKey(id)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil // Already gone; logout is a no-op
			}
			return err
		}

		var cur model.Session
		if err := json.Unmarshal(data, &cur); err != nil {
			return err
		}
		if cur.Token != token {
			return nil // A newer session owns this record; leave it alone
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// The record changed under us, meaning a newer session replaced it.
		// That is exactly the case where logout must not act.
		return nil
	}
	return err
}
