package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrNoActiveRoom = errors.New("no room joined on this connection")

// Gateway owns the realtime coordination state and is the single entry
// point for the transport layer: one call per connect, disconnect, and
// decoded inbound event.
type Gateway struct {
	reg      *Registry
	presence *PresenceTracker
	hub      *Hub
	typing   *TypingTracker
	relay    *Relay
	fanout   *Fanout

	mu         sync.Mutex
	activeRoom map[string]string // connID -> most recently joined room

	// lifecycle commits the registry edge, the presence entry, and the
	// resulting broadcast as one step; racing connects and disconnects
	// of the same user cannot observe one without the others.
	lifecycle sync.Mutex
}

func NewGateway(store MessageStore, typingTTL time.Duration) *Gateway {
	g := &Gateway{
		reg:        NewRegistry(),
		presence:   NewPresenceTracker(),
		hub:        NewHub(),
		activeRoom: make(map[string]string),
	}
	g.relay = NewRelay(g.reg, g.hub)
	g.fanout = NewFanout(g.hub, store)
	g.typing = NewTypingTracker(typingTTL, g.typingExpired)
	return g
}

func (g *Gateway) Registry() *Registry { return g.reg }

// HandleConnect registers the connection, sends the presence snapshot to
// it alone, and announces the user if this was their first connection.
func (g *Gateway) HandleConnect(c Conn) {
	g.lifecycle.Lock()
	defer g.lifecycle.Unlock()

	first := g.reg.Register(c)
	if first {
		g.presence.Connected(c.UserID())
	}

	if err := c.Send(Event{Type: TypeOnlineUsers, Payload: g.presence.Snapshot()}); err != nil {
		slog.Warn("send online-users snapshot failed", "conn", c.ID(), "user", c.UserID(), "err", err)
	}

	if first {
		g.reg.Broadcast(Event{
			Type:    TypeUserConnected,
			Payload: PresencePayload{UserID: c.UserID(), Status: string(StatusOnline)},
		})
	}
}

// HandleDisconnect tears the connection down. Safe to call more than
// once for the same connection; only the first call has any effect.
func (g *Gateway) HandleDisconnect(c Conn) {
	g.lifecycle.Lock()
	defer g.lifecycle.Unlock()

	_, last, ok := g.reg.Unregister(c.ID())
	if !ok {
		return
	}

	g.hub.RemoveConn(c.ID())
	g.mu.Lock()
	delete(g.activeRoom, c.ID())
	g.mu.Unlock()

	if last && g.presence.Disconnected(c.UserID()) {
		g.reg.Broadcast(Event{
			Type:    TypeUserDisconnected,
			Payload: PresencePayload{UserID: c.UserID(), Status: string(StatusOffline)},
		})
	}
}

// HandleEvent dispatches one decoded inbound event. The switch is
// exhaustive over EventType; an unlisted type is a decoding bug.
func (g *Gateway) HandleEvent(ctx context.Context, c Conn, in Inbound) error {
	switch in.Type {
	case EventJoinRoom:
		return g.joinRoom(c, in.JoinRoom)
	case EventSendMessage:
		return g.sendMessage(ctx, c, in.SendMessage)
	case EventTyping:
		return g.startTyping(c, in.Typing)
	case EventStopTyping:
		return g.stopTyping(c, in.Typing)
	case EventUserIdle:
		if g.presence.MarkIdle(c.UserID()) {
			g.reg.Broadcast(Event{
				Type:    TypeUserIdle,
				Payload: PresencePayload{UserID: c.UserID(), Status: string(StatusIdle)},
			})
		}
		return nil
	case EventUserActive:
		if g.presence.MarkActive(c.UserID()) {
			g.reg.Broadcast(Event{
				Type:    TypeUserConnected,
				Payload: PresencePayload{UserID: c.UserID(), Status: string(StatusOnline)},
			})
		}
		return nil
	case EventInitiateCall, EventCallUser, EventAcceptCall, EventRejectCall, EventEndCall:
		return g.handleCall(c, in.Type, in.Call)
	default:
		return fmt.Errorf("unhandled event type %q", in.Type)
	}
}

// joinRoom subscribes the connection to room fan-out. Membership is not
// checked here: the REST layer already validated it for every room id a
// well-behaved client knows about.
func (g *Gateway) joinRoom(c Conn, p *JoinRoomPayload) error {
	if p == nil || p.RoomID == "" {
		return errors.New("join-room: missing roomId")
	}
	g.hub.Join(p.RoomID, c)
	g.mu.Lock()
	g.activeRoom[c.ID()] = p.RoomID
	g.mu.Unlock()
	return nil
}

func (g *Gateway) sendMessage(ctx context.Context, c Conn, p *SendMessagePayload) error {
	if p == nil {
		return errors.New("send-message: missing payload")
	}
	roomID := p.RoomID
	if roomID == "" {
		g.mu.Lock()
		roomID = g.activeRoom[c.ID()]
		g.mu.Unlock()
	}
	if roomID == "" {
		return ErrNoActiveRoom
	}
	return g.fanout.Send(ctx, c, roomID, *p)
}

func (g *Gateway) startTyping(c Conn, p *TypingPayload) error {
	if p == nil || p.RoomID == "" {
		return errors.New("typing: missing roomId")
	}
	if g.typing.Start(p.RoomID, c.UserID(), p.Username) {
		g.hub.Broadcast(p.RoomID, Event{
			Type:    TypeUserTyping,
			Payload: TypingPayload{RoomID: p.RoomID, UserID: c.UserID(), Username: p.Username},
		})
	}
	return nil
}

func (g *Gateway) stopTyping(c Conn, p *TypingPayload) error {
	if p == nil || p.RoomID == "" {
		return errors.New("stop-typing: missing roomId")
	}
	if username, ok := g.typing.Stop(p.RoomID, c.UserID()); ok {
		g.hub.Broadcast(p.RoomID, Event{
			Type:    TypeUserStopTyping,
			Payload: TypingPayload{RoomID: p.RoomID, UserID: c.UserID(), Username: username},
		})
	}
	return nil
}

func (g *Gateway) typingExpired(roomID, userID, username string) {
	g.hub.Broadcast(roomID, Event{
		Type:    TypeUserStopTyping,
		Payload: TypingPayload{RoomID: roomID, UserID: userID, Username: username},
	})
}

// handleCall routes call signaling. Direct events resolve the peer
// through the registry; room-scoped events fan out to the room minus the
// originator. A stale target silently receives nothing.
func (g *Gateway) handleCall(c Conn, t EventType, p *CallPayload) error {
	if p == nil {
		return fmt.Errorf("%s: missing payload", t)
	}

	switch t {
	case EventInitiateCall:
		if p.CalleeID == "" {
			return errors.New("initiate-call: missing calleeId")
		}
		g.relay.Forward(g.relay.ToUser(p.CalleeID), Event{
			Type:    TypeIncomingCall,
			Payload: CallSignalPayload{CallerID: c.UserID(), Signal: p.Signal},
		})
	case EventCallUser:
		if p.RoomID == "" {
			return errors.New("call-user: missing roomId")
		}
		g.relay.Forward(g.relay.ToRoom(p.RoomID, c.ID()), Event{
			Type:    TypeReceiveCall,
			Payload: CallSignalPayload{CallerID: c.UserID(), RoomID: p.RoomID, Signal: p.Signal},
		})
	case EventAcceptCall:
		out := Event{
			Type:    TypeCallAccepted,
			Payload: CallSignalPayload{ResponderID: c.UserID(), RoomID: p.RoomID, Signal: p.Signal},
		}
		if p.RoomID != "" {
			g.relay.Forward(g.relay.ToRoom(p.RoomID, c.ID()), out)
		} else if p.CallerID != "" {
			g.relay.Forward(g.relay.ToUser(p.CallerID), out)
		} else {
			return errors.New("accept-call: missing callerId or roomId")
		}
	case EventRejectCall:
		if p.CallerID == "" {
			return errors.New("reject-call: missing callerId")
		}
		g.relay.Forward(g.relay.ToUser(p.CallerID), Event{
			Type:    TypeCallRejected,
			Payload: CallSignalPayload{ResponderID: c.UserID()},
		})
	case EventEndCall:
		out := Event{
			Type:    TypeCallEnded,
			Payload: CallEndPayload{UserID: c.UserID(), RoomID: p.RoomID},
		}
		if p.RoomID != "" {
			g.relay.Forward(g.relay.ToRoom(p.RoomID, c.ID()), out)
			return nil
		}
		peer := p.CalleeID
		if peer == "" {
			peer = p.CallerID
		}
		if peer == "" {
			return errors.New("end-call: missing peer id")
		}
		g.relay.Forward(g.relay.ToUser(peer), out)
	}
	return nil
}
