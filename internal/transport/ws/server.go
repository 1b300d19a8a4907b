package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/auth"
	"github.com/cwrk-planet/chat-service/internal/realtime"

	"github.com/gorilla/websocket"
)

type Server struct {
	upgrader websocket.Upgrader
	gateway  *realtime.Gateway
	authn    auth.Authenticator

	pingEvery time.Duration
}

func NewServer(gateway *realtime.Gateway, authn auth.Authenticator) *Server {
	return &Server{
		gateway: gateway,
		authn:   authn,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws?access_token=...
// Identity is resolved before registration; a connection without a
// resolvable user id is rejected and never reaches the gateway.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	identity, err := s.authn.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, identity)
	s.gateway.HandleConnect(c)

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c)

	s.gateway.HandleDisconnect(c)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "conn", c.ID(), "user", c.UserID(), "err", err)
	}
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}

		in, err := decodeInbound(f)
		if err != nil {
			if !errors.Is(err, errUnknownEvent) {
				slog.Debug("ws decode failed", "type", f.Type, "user", c.UserID(), "err", err)
			}
			continue
		}

		if err := s.gateway.HandleEvent(ctx, c, in); err != nil {
			slog.Warn("ws event failed", "type", f.Type, "user", c.UserID(), "err", err)
			_ = c.Send(realtime.Event{
				Type:    realtime.TypeError,
				Payload: realtime.ErrorPayload{Event: f.Type, Message: err.Error()},
			})
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}
