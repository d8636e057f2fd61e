package game

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/chessroom/chessroom/internal/model"
	"github.com/chessroom/chessroom/internal/realtime/hub"
	"github.com/chessroom/chessroom/internal/services/match"
	"github.com/chessroom/chessroom/internal/services/room"
)

// Relay is the game synchronization protocol: a thin event contract riding
// on the hub that lets the two players in a room converge on one board state.
//
// The relay performs no chess-rule validation. It is a dumb, low-latency
// pipe: the authoritative board state is the last encoding the two clients
// have converged on, and each client runs its own full rules engine to catch
// a buggy or malicious peer. That trust boundary is a deliberate design
// choice for a casual game between mutually trusting players, not a gap.
type Relay struct {
	hub     *hub.Hub
	rooms   *room.Registry
	matches *match.Recorder
	logger  *slog.Logger

	mu    sync.Mutex
	ready map[model.RoomCode]*readyState
}

// readyState tracks the 2-of-2 start barrier for one room's game instance
type readyState struct {
	fired bool
	acks  map[model.AccountID]struct{}
}

// NewRelay creates a new protocol Relay
func NewRelay(h *hub.Hub, rooms *room.Registry, matches *match.Recorder, logger *slog.Logger) *Relay {
	return &Relay{
		hub:     h,
		rooms:   rooms,
		matches: matches,
		logger:  logger.With(slog.String("component", "relay")),
		ready:   make(map[model.RoomCode]*readyState),
	}
}

// Attach subscribes a fresh connection to its account's notification group.
// Room group membership comes later, from explicit join events.
func (r *Relay) Attach(c *hub.Conn) {
	r.hub.JoinGroup(c, hub.AccountGroup(c.Account()))
}

// HandleEvent dispatches one inbound event from a connection. It is the
// hub.EventHandler for every realtime connection.
func (r *Relay) HandleEvent(c *hub.Conn, event model.Event) {
	ctx := context.Background()

	switch event.Type {
	case model.EventJoin:
		r.handleJoin(c, event)
	case model.EventLeave:
		r.handleLeave(c, event)
	case model.EventReady:
		r.handleReady(ctx, c, event)
	case model.EventMove:
		r.handleMove(ctx, c, event)
	default:
		r.logger.Warn("unknown event type",
			slog.String("conn", c.ID()),
			slog.String("type", string(event.Type)))
	}
}

// handleJoin adds the connection to the room's broadcast group and informs
// the peer. The hub is policy-free here: whether the account legitimately
// occupies a room slot was already decided by the Room Registry when the
// REST join happened.
func (r *Relay) handleJoin(c *hub.Conn, event model.Event) {
	if event.Room == "" {
		return
	}
	r.hub.JoinGroup(c, hub.RoomGroup(event.Room))

	out, err := model.NewEvent(model.EventJoin, event.Room, model.PresencePayload{AccountID: c.Account()})
	if err != nil {
		return
	}
	_ = r.hub.BroadcastBestEffort(hub.RoomGroup(event.Room), out, c.ID())
}

// handleLeave detaches the connection from the room group. Leaving has no
// game effect; the clock, not presence, governs the outcome.
func (r *Relay) handleLeave(c *hub.Conn, event model.Event) {
	if event.Room == "" {
		return
	}
	r.hub.LeaveGroup(c, hub.RoomGroup(event.Room))

	out, err := model.NewEvent(model.EventLeave, event.Room, model.PresencePayload{AccountID: c.Account()})
	if err != nil {
		return
	}
	_ = r.hub.BroadcastBestEffort(hub.RoomGroup(event.Room), out, c.ID())
}

// handleReady records a ready signal and fires the start barrier the moment
// every room member has signaled. The barrier fires exactly once per room
// game instance: retried ready events after the fire are ignored rather than
// re-broadcast, so a client resending the message cannot restart the game.
func (r *Relay) handleReady(ctx context.Context, c *hub.Conn, event model.Event) {
	if event.Room == "" {
		return
	}

	rm, err := r.rooms.GetRoom(ctx, event.Room)
	if err != nil {
		r.logger.Warn("ready for unknown room",
			slog.String("room", string(event.Room)),
			slog.String("account", string(c.Account())))
		return
	}
	if !rm.IsMember(c.Account()) {
		return
	}

	r.mu.Lock()
	state, ok := r.ready[event.Room]
	if !ok {
		state = &readyState{acks: make(map[model.AccountID]struct{})}
		r.ready[event.Room] = state
	}
	if state.fired {
		r.mu.Unlock()
		return
	}
	state.acks[c.Account()] = struct{}{}

	count := 0
	for _, m := range rm.Members {
		if _, ok := state.acks[m]; ok {
			count++
		}
	}
	shouldFire := len(rm.Members) == model.RoomCapacity && count == len(rm.Members)
	if shouldFire {
		state.fired = true
	}
	r.mu.Unlock()

	if !shouldFire {
		return
	}

	r.fireGameStart(ctx, event.Room)
}

// fireGameStart transitions the room to playing and broadcasts game-start
func (r *Relay) fireGameStart(ctx context.Context, code model.RoomCode) {
	m, err := r.matches.GetMatchByRoom(ctx, code)
	if err != nil {
		r.logger.Error("no match for starting room",
			slog.String("room", string(code)),
			slog.String("error", err.Error()))
		return
	}

	if _, err := r.rooms.TransitionStatus(ctx, code, model.RoomStatusPlaying); err != nil {
		r.logger.Error("room transition to playing failed",
			slog.String("room", string(code)),
			slog.String("error", err.Error()))
		return
	}

	out, err := model.NewEvent(model.EventGameStart, code, model.GameStartPayload{
		MatchID: m.ID,
		White:   m.White,
		Black:   m.Black,
	})
	if err != nil {
		return
	}
	_ = r.hub.Broadcast(hub.RoomGroup(code), out, "")

	r.logger.Info("game started",
		slog.String("room", string(code)),
		slog.String("match_id", string(m.ID)))
}

// handleMove appends the move to the match ledger and relays the payload
// verbatim to the other group members. The payload always carries the full
// resulting board encoding, so delivery order across the two senders does
// not matter: applying an already-applied board is a no-op at the client.
func (r *Relay) handleMove(ctx context.Context, c *hub.Conn, event model.Event) {
	if event.Room == "" {
		return
	}

	var payload model.MovePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		r.logger.Warn("malformed move payload", slog.String("conn", c.ID()))
		return
	}
	if payload.AccountID != c.Account() {
		r.logger.Warn("move sender mismatch",
			slog.String("conn", c.ID()),
			slog.String("claimed", string(payload.AccountID)),
			slog.String("actual", string(c.Account())))
		return
	}

	if _, err := r.matches.AppendMove(ctx, event.Room, payload.AccountID, payload.SAN, payload.Board); err != nil {
		r.logger.Warn("move rejected",
			slog.String("room", string(event.Room)),
			slog.String("account", string(payload.AccountID)),
			slog.String("error", err.Error()))
		return
	}

	// Relay the original envelope byte-for-byte to the peer
	_ = r.hub.Broadcast(hub.RoomGroup(event.Room), event, c.ID())
}

// NotifyRoomDeleted tells every member to exit to the lobby. Called by the
// room deletion path after the registry has removed the document. Members
// are addressed through both the room group and their account groups, so a
// member who never attached to the room group still hears about it.
func (r *Relay) NotifyRoomDeleted(code model.RoomCode, members []model.AccountID) {
	out, err := model.NewEvent(model.EventRoomDeleted, code, model.RoomDeletedPayload{Room: code})
	if err != nil {
		return
	}
	_ = r.hub.Broadcast(hub.RoomGroup(code), out, "")
	for _, m := range members {
		_ = r.hub.Broadcast(hub.AccountGroup(m), out, "")
	}

	r.mu.Lock()
	delete(r.ready, code)
	r.mu.Unlock()
}

// NotifyGameOver announces a recorded terminal result to the room and to
// both participants' notification groups
func (r *Relay) NotifyGameOver(m *model.Match) {
	if m.Result == nil {
		return
	}
	out, err := model.NewEvent(model.EventGameOver, m.RoomCode, model.GameOverPayload{
		MatchID: m.ID,
		Winner:  m.Result.Winner,
		Reason:  m.Result.Reason,
	})
	if err != nil {
		return
	}
	_ = r.hub.Broadcast(hub.RoomGroup(m.RoomCode), out, "")
	_ = r.hub.Broadcast(hub.AccountGroup(m.White), out, "")
	_ = r.hub.Broadcast(hub.AccountGroup(m.Black), out, "")

	r.mu.Lock()
	delete(r.ready, m.RoomCode)
	r.mu.Unlock()
}
