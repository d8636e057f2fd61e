package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chessroom/chessroom/internal/model"
)

// GroupKey names a broadcast group
type GroupKey string

// RoomGroup returns the group key for a room's broadcast group
func RoomGroup(code model.RoomCode) GroupKey {
	return GroupKey("room:" + string(code))
}

// AccountGroup returns the group key for an account's notification group
func AccountGroup(id model.AccountID) GroupKey {
	return GroupKey("account:" + string(id))
}

// Config holds hub tuning parameters
type Config struct {
	// HeartbeatTimeout is how long a connection may stay silent before it
	// is forcibly disconnected
	HeartbeatTimeout time.Duration

	// WriteTimeout bounds how long a reliable broadcast will wait on one
	// slow recipient before dropping that connection
	WriteTimeout time.Duration

	// SendQueueSize is the per-connection outbound buffer
	SendQueueSize int
}

// DefaultConfig returns sensible defaults for hub configuration
func DefaultConfig() Config {
	return Config{
		HeartbeatTimeout: 60 * time.Second,
		WriteTimeout:     5 * time.Second,
		SendQueueSize:    64,
	}
}

// group is one broadcast group. Each group carries its own lock so a busy
// room cannot stall membership changes in unrelated rooms.
type group struct {
	mu      sync.Mutex
	members map[*Conn]struct{}
}

func (g *group) snapshot(exclude string) []*Conn {
	g.mu.Lock()
	defer g.mu.Unlock()
	conns := make([]*Conn, 0, len(g.members))
	for c := range g.members {
		if exclude != "" && c.id == exclude {
			continue
		}
		conns = append(conns, c)
	}
	return conns
}

// Hub manages realtime connections and their broadcast groups.
//
// The hub is deliberately policy-free: it will happily add a connection to
// any group it is asked to. Whether an account legitimately belongs in a room
// is the Room Registry's call, made before the protocol layer asks the hub
// for membership.
type Hub struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex
	conns  map[string]*Conn
	groups map[GroupKey]*group

	nextID atomic.Uint64
}

// New creates a new Hub
func New(cfg Config, logger *slog.Logger) *Hub {
	if cfg.HeartbeatTimeout == 0 {
		cfg.HeartbeatTimeout = DefaultConfig().HeartbeatTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	if cfg.SendQueueSize == 0 {
		cfg.SendQueueSize = DefaultConfig().SendQueueSize
	}
	return &Hub{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "hub")),
		conns:  make(map[string]*Conn),
		groups: make(map[GroupKey]*group),
	}
}

// Connect allocates a connection for the given account. The connection has
// no group memberships yet; subscriptions are rebuilt by the client after
// every connect, so nothing durable survives a disconnect.
func (h *Hub) Connect(account model.AccountID) *Conn {
	c := &Conn{
		id:      fmt.Sprintf("conn-%d", h.nextID.Add(1)),
		account: account,
		hub:     h,
		send:    make(chan []byte, h.cfg.SendQueueSize),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[c.id] = c
	total := len(h.conns)
	h.mu.Unlock()

	h.logger.Info("connection opened",
		slog.String("conn", c.id),
		slog.String("account", string(account)),
		slog.Int("total_connections", total))

	return c
}

// Disconnect removes the connection from every group and releases it.
// Peers are not notified here: whether a disconnect means anything to an
// in-progress game is the protocol layer's decision, and a transient drop
// deliberately has no game effect.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	if _, ok := h.conns[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c.id)
	groups := make([]*group, 0, len(h.groups))
	for _, g := range h.groups {
		groups = append(groups, g)
	}
	total := len(h.conns)
	h.mu.Unlock()

	for _, g := range groups {
		g.mu.Lock()
		delete(g.members, c)
		g.mu.Unlock()
	}

	c.close()

	h.logger.Info("connection closed",
		slog.String("conn", c.id),
		slog.String("account", string(c.account)),
		slog.Int("total_connections", total))
}

// JoinGroup adds the connection to a group. Idempotent.
func (h *Hub) JoinGroup(c *Conn, key GroupKey) {
	g := h.getOrCreateGroup(key)
	g.mu.Lock()
	g.members[c] = struct{}{}
	g.mu.Unlock()
}

// LeaveGroup removes the connection from a group. Idempotent.
func (h *Hub) LeaveGroup(c *Conn, key GroupKey) {
	h.mu.RLock()
	g := h.groups[key]
	h.mu.RUnlock()
	if g == nil {
		return
	}
	g.mu.Lock()
	delete(g.members, c)
	g.mu.Unlock()
}

// GroupSize returns the number of connections in a group
func (h *Hub) GroupSize(key GroupKey) int {
	h.mu.RLock()
	g := h.groups[key]
	h.mu.RUnlock()
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

// Broadcast delivers an event to every connection in the group except the
// optional excluded sender. Delivery is reliable: a recipient whose outbound
// queue stays full past the write timeout is disconnected rather than
// silently skipped, because losing events like move or room-deleted
// desynchronizes the game irrecoverably.
func (h *Hub) Broadcast(key GroupKey, event model.Event, excludeConnID string) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	for _, c := range h.memberSnapshot(key, excludeConnID) {
		select {
		case c.send <- data:
		case <-c.done:
		case <-time.After(h.cfg.WriteTimeout):
			h.logger.Warn("dropping unresponsive connection",
				slog.String("conn", c.id),
				slog.String("group", string(key)),
				slog.String("event", string(event.Type)))
			h.Disconnect(c)
		}
	}
	return nil
}

// BroadcastBestEffort delivers an event without blocking on any recipient.
// Used for presence events (join/leave) where a dropped message costs
// nothing but a slightly stale member list.
func (h *Hub) BroadcastBestEffort(key GroupKey, event model.Event, excludeConnID string) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	dropped := 0
	for _, c := range h.memberSnapshot(key, excludeConnID) {
		select {
		case c.send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("presence broadcast partially dropped",
			slog.String("group", string(key)),
			slog.String("event", string(event.Type)),
			slog.Int("dropped", dropped))
	}
	return nil
}

func (h *Hub) memberSnapshot(key GroupKey, exclude string) []*Conn {
	h.mu.RLock()
	g := h.groups[key]
	h.mu.RUnlock()
	if g == nil {
		return nil
	}
	return g.snapshot(exclude)
}

func (h *Hub) getOrCreateGroup(key GroupKey) *group {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[key]
	if !ok {
		g = &group{members: make(map[*Conn]struct{})}
		h.groups[key] = g
	}
	return g
}

// CleanupEmptyGroups removes groups with no members
func (h *Hub) CleanupEmptyGroups() {
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := 0
	for key, g := range h.groups {
		g.mu.Lock()
		empty := len(g.members) == 0
		g.mu.Unlock()
		if empty {
			delete(h.groups, key)
			removed++
		}
	}
	if removed > 0 {
		h.logger.Info("empty groups cleaned up", slog.Int("removed", removed))
	}
}
