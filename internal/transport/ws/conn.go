package ws

import (
	"time"

	"github.com/cwrk-planet/chat-service/internal/auth"
	"github.com/cwrk-planet/chat-service/internal/realtime"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type wsConn struct {
	id       string
	conn     *websocket.Conn
	identity auth.Identity
	sendMu   chan struct{}
	closed   chan struct{}
}

func newWsConn(c *websocket.Conn, identity auth.Identity) *wsConn {
	return &wsConn{
		id:       uuid.NewString(),
		conn:     c,
		identity: identity,
		sendMu:   make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

func (c *wsConn) Send(ev realtime.Event) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(ev)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}

func (c *wsConn) ID() string       { return c.id }
func (c *wsConn) UserID() string   { return c.identity.UserID }
func (c *wsConn) Username() string { return c.identity.Username }
