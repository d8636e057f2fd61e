package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chessroom/chessroom/internal/model"
)

// maxMessageSize caps inbound frames; a move event with a full board
// encoding fits comfortably
const maxMessageSize = 4096

// EventHandler processes one inbound event from a connection
type EventHandler func(c *Conn, event model.Event)

// Conn is one realtime connection. It is ephemeral: group memberships die
// with it and must be rebuilt by the client after a reconnect.
type Conn struct {
	id      string
	account model.AccountID
	hub     *Hub

	send chan []byte
	done chan struct{}
	once sync.Once
}

// ID returns the connection identifier, used to exclude a sender from its
// own broadcasts
func (c *Conn) ID() string {
	return c.id
}

// Account returns the account this connection belongs to
func (c *Conn) Account() model.AccountID {
	return c.account
}

// Outbound exposes the queued outbound frames. The write pump consumes this;
// tests read it directly.
func (c *Conn) Outbound() <-chan []byte {
	return c.send
}

// Done is closed when the connection is released
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Serve runs the read and write pumps over a websocket until the peer
// disconnects or goes silent past the heartbeat window. It blocks until the
// connection is finished and always leaves the hub clean.
func (c *Conn) Serve(sock *websocket.Conn, handler EventHandler) {
	go c.writePump(sock)
	c.readPump(sock, handler)
}

// readPump pumps inbound events to the handler. Events from one connection
// are handled sequentially, which is what gives the FIFO-per-sender delivery
// guarantee downstream.
func (c *Conn) readPump(sock *websocket.Conn, handler EventHandler) {
	defer func() {
		c.hub.Disconnect(c)
		_ = sock.Close()
	}()

	sock.SetReadLimit(maxMessageSize)
	_ = sock.SetReadDeadline(time.Now().Add(c.hub.cfg.HeartbeatTimeout))
	sock.SetPongHandler(func(string) error {
		return sock.SetReadDeadline(time.Now().Add(c.hub.cfg.HeartbeatTimeout))
	})

	for {
		var event model.Event
		if err := sock.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error",
					slog.String("conn", c.id),
					slog.String("error", err.Error()))
			}
			return
		}
		_ = sock.SetReadDeadline(time.Now().Add(c.hub.cfg.HeartbeatTimeout))
		handler(c, event)
	}
}

// writePump pumps queued frames to the websocket and keeps the connection
// alive with pings
func (c *Conn) writePump(sock *websocket.Conn) {
	pingInterval := c.hub.cfg.HeartbeatTimeout * 9 / 10
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = sock.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			_ = sock.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := sock.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = sock.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
