package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestGateway() *Gateway {
	return NewGateway(&fakeStore{}, time.Minute)
}

func connect(g *Gateway, id, userID string) *fakeConn {
	c := newFakeConn(id, userID)
	g.HandleConnect(c)
	return c
}

func TestGatewaySnapshotOnConnect(t *testing.T) {
	g := newTestGateway()

	a := connect(g, "c1", "alice")
	b := connect(g, "c2", "bob")

	// Only the new conn gets the snapshot; it includes all online users.
	evs := b.eventsOfType(TypeOnlineUsers)
	if len(evs) != 1 {
		t.Fatalf("bob got %d online-users frames, want 1", len(evs))
	}
	snap := evs[0].Payload.([]string)
	if len(snap) != 2 {
		t.Fatalf("snapshot = %v, want both users", snap)
	}
	if got := a.eventsOfType(TypeOnlineUsers); len(got) != 1 {
		t.Fatalf("alice got %d snapshots, want exactly the one from her own connect", len(got))
	}
}

func TestGatewayPresenceAnnouncements(t *testing.T) {
	g := newTestGateway()

	a := connect(g, "c1", "alice")
	a.reset()

	// First bob connection announces online once.
	b1 := connect(g, "c2", "bob")
	if got := a.eventsOfType(TypeUserConnected); len(got) != 1 {
		t.Fatalf("alice saw %d user_connected, want 1", len(got))
	}
	p := a.eventsOfType(TypeUserConnected)[0].Payload.(PresencePayload)
	if p.UserID != "bob" || p.Status != "online" {
		t.Fatalf("payload = %+v", p)
	}
	a.reset()

	// Second tab: no re-announcement.
	b2 := connect(g, "c3", "bob")
	if got := a.eventsOfType(TypeUserConnected); len(got) != 0 {
		t.Fatal("second connection of an online user must not re-announce")
	}

	// Closing one tab: still online, no offline broadcast.
	g.HandleDisconnect(b1)
	if got := a.eventsOfType(TypeUserDisconnected); len(got) != 0 {
		t.Fatal("offline broadcast while user still has a connection")
	}

	// Closing the last tab announces offline exactly once, even if the
	// transport calls disconnect twice.
	g.HandleDisconnect(b2)
	g.HandleDisconnect(b2)
	evs := a.eventsOfType(TypeUserDisconnected)
	if len(evs) != 1 {
		t.Fatalf("alice saw %d user_disconnected, want 1", len(evs))
	}
	if p := evs[0].Payload.(PresencePayload); p.UserID != "bob" || p.Status != "offline" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestGatewayIdleActive(t *testing.T) {
	g := newTestGateway()
	ctx := context.Background()

	a := connect(g, "c1", "alice")
	b := connect(g, "c2", "bob")
	a.reset()

	if err := g.HandleEvent(ctx, b, Inbound{Type: EventUserIdle}); err != nil {
		t.Fatalf("user_idle: %v", err)
	}
	if got := a.eventsOfType(TypeUserIdle); len(got) != 1 {
		t.Fatalf("alice saw %d user_idle, want 1", len(got))
	}

	// Duplicate idle is swallowed.
	a.reset()
	if err := g.HandleEvent(ctx, b, Inbound{Type: EventUserIdle}); err != nil {
		t.Fatalf("duplicate user_idle: %v", err)
	}
	if got := a.eventsOfType(TypeUserIdle); len(got) != 0 {
		t.Fatal("duplicate idle re-broadcast")
	}

	// Active while idle re-announces online.
	if err := g.HandleEvent(ctx, b, Inbound{Type: EventUserActive}); err != nil {
		t.Fatalf("user_active: %v", err)
	}
	if got := a.eventsOfType(TypeUserConnected); len(got) != 1 {
		t.Fatalf("alice saw %d online announcements after active, want 1", len(got))
	}

	// Active while already online is a no-op.
	a.reset()
	if err := g.HandleEvent(ctx, b, Inbound{Type: EventUserActive}); err != nil {
		t.Fatalf("redundant user_active: %v", err)
	}
	if got := a.eventsOfType(TypeUserConnected); len(got) != 0 {
		t.Fatal("redundant active re-broadcast")
	}
}

func TestGatewayJoinAndSendMessage(t *testing.T) {
	g := newTestGateway()
	ctx := context.Background()

	a := connect(g, "c1", "alice")
	b := connect(g, "c2", "bob")
	for _, c := range []*fakeConn{a, b} {
		join := &JoinRoomPayload{RoomID: "r1"}
		if err := g.HandleEvent(ctx, c, Inbound{Type: EventJoinRoom, JoinRoom: join}); err != nil {
			t.Fatalf("join: %v", err)
		}
	}

	// roomId omitted: falls back to the connection's active room.
	err := g.HandleEvent(ctx, a, Inbound{
		Type:        EventSendMessage,
		SendMessage: &SendMessagePayload{Message: "hi"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	for _, c := range []*fakeConn{a, b} {
		if got := c.eventsOfType(TypeReceiveMessage); len(got) != 1 {
			t.Fatalf("conn %s got %d messages, want 1", c.ID(), len(got))
		}
	}
}

func TestGatewaySendWithoutRoom(t *testing.T) {
	g := newTestGateway()
	a := connect(g, "c1", "alice")

	err := g.HandleEvent(context.Background(), a, Inbound{
		Type:        EventSendMessage,
		SendMessage: &SendMessagePayload{Message: "hi"},
	})
	if !errors.Is(err, ErrNoActiveRoom) {
		t.Fatalf("err = %v, want ErrNoActiveRoom", err)
	}
}

func TestGatewayTypingScopedToRoom(t *testing.T) {
	g := newTestGateway()
	ctx := context.Background()

	a := connect(g, "c1", "alice")
	b := connect(g, "c2", "bob")
	outsider := connect(g, "c3", "carol")
	g.HandleEvent(ctx, a, Inbound{Type: EventJoinRoom, JoinRoom: &JoinRoomPayload{RoomID: "r1"}})
	g.HandleEvent(ctx, b, Inbound{Type: EventJoinRoom, JoinRoom: &JoinRoomPayload{RoomID: "r1"}})
	g.HandleEvent(ctx, outsider, Inbound{Type: EventJoinRoom, JoinRoom: &JoinRoomPayload{RoomID: "r2"}})

	typing := &TypingPayload{RoomID: "r1", Username: "Alice"}
	if err := g.HandleEvent(ctx, a, Inbound{Type: EventTyping, Typing: typing}); err != nil {
		t.Fatalf("typing: %v", err)
	}
	if got := b.eventsOfType(TypeUserTyping); len(got) != 1 {
		t.Fatalf("bob saw %d user_typing, want 1", len(got))
	}
	if got := outsider.eventsOfType(TypeUserTyping); len(got) != 0 {
		t.Fatal("typing leaked outside the room")
	}

	// Repeated typing while tracked: no duplicate broadcast.
	if err := g.HandleEvent(ctx, a, Inbound{Type: EventTyping, Typing: typing}); err != nil {
		t.Fatalf("repeat typing: %v", err)
	}
	if got := b.eventsOfType(TypeUserTyping); len(got) != 1 {
		t.Fatal("repeated typing re-broadcast")
	}

	if err := g.HandleEvent(ctx, a, Inbound{Type: EventStopTyping, Typing: typing}); err != nil {
		t.Fatalf("stop-typing: %v", err)
	}
	if got := b.eventsOfType(TypeUserStopTyping); len(got) != 1 {
		t.Fatalf("bob saw %d user_stop_typing, want 1", len(got))
	}

	// Stop with no active flag is silent.
	if err := g.HandleEvent(ctx, a, Inbound{Type: EventStopTyping, Typing: typing}); err != nil {
		t.Fatalf("redundant stop-typing: %v", err)
	}
	if got := b.eventsOfType(TypeUserStopTyping); len(got) != 1 {
		t.Fatal("redundant stop re-broadcast")
	}
}

func TestGatewayTypingExpiryBroadcast(t *testing.T) {
	g := NewGateway(&fakeStore{}, 20*time.Millisecond)
	ctx := context.Background()

	a := connect(g, "c1", "alice")
	b := connect(g, "c2", "bob")
	g.HandleEvent(ctx, a, Inbound{Type: EventJoinRoom, JoinRoom: &JoinRoomPayload{RoomID: "r1"}})
	g.HandleEvent(ctx, b, Inbound{Type: EventJoinRoom, JoinRoom: &JoinRoomPayload{RoomID: "r1"}})

	typing := &TypingPayload{RoomID: "r1", Username: "Alice"}
	g.HandleEvent(ctx, a, Inbound{Type: EventTyping, Typing: typing})

	deadline := time.Now().Add(time.Second)
	for {
		if got := b.eventsOfType(TypeUserStopTyping); len(got) == 1 {
			p := got[0].Payload.(TypingPayload)
			if p.UserID != "alice" || p.RoomID != "r1" {
				t.Fatalf("expiry payload = %+v", p)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no stop broadcast after expiry window")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Explicit stop after expiry must not produce a second broadcast.
	g.HandleEvent(ctx, a, Inbound{Type: EventStopTyping, Typing: typing})
	if got := b.eventsOfType(TypeUserStopTyping); len(got) != 1 {
		t.Fatalf("got %d stop broadcasts, want exactly 1", len(got))
	}
}

func TestGatewayDirectCallFlow(t *testing.T) {
	g := newTestGateway()
	ctx := context.Background()

	caller := connect(g, "c1", "alice")
	callee1 := connect(g, "c2", "bob")
	callee2 := connect(g, "c3", "bob") // second tab
	caller.reset()

	offer := json.RawMessage(`{"sdp":"offer"}`)
	err := g.HandleEvent(ctx, caller, Inbound{
		Type: EventInitiateCall,
		Call: &CallPayload{CalleeID: "bob", Signal: offer},
	})
	if err != nil {
		t.Fatalf("initiate-call: %v", err)
	}
	for _, c := range []*fakeConn{callee1, callee2} {
		evs := c.eventsOfType(TypeIncomingCall)
		if len(evs) != 1 {
			t.Fatalf("conn %s got %d incoming-call, want 1", c.ID(), len(evs))
		}
		p := evs[0].Payload.(CallSignalPayload)
		if p.CallerID != "alice" || string(p.Signal) != string(offer) {
			t.Fatalf("payload = %+v", p)
		}
	}
	if got := caller.eventsOfType(TypeIncomingCall); len(got) != 0 {
		t.Fatal("caller received its own incoming-call")
	}

	// Accept routes back to the caller, signal untouched.
	answer := json.RawMessage(`{"sdp":"answer"}`)
	err = g.HandleEvent(ctx, callee1, Inbound{
		Type: EventAcceptCall,
		Call: &CallPayload{CallerID: "alice", Signal: answer},
	})
	if err != nil {
		t.Fatalf("accept-call: %v", err)
	}
	evs := caller.eventsOfType(TypeCallAccepted)
	if len(evs) != 1 {
		t.Fatalf("caller got %d call-accepted, want 1", len(evs))
	}
	if p := evs[0].Payload.(CallSignalPayload); p.ResponderID != "bob" || string(p.Signal) != string(answer) {
		t.Fatalf("payload = %+v", p)
	}

	// Reject routes to the caller.
	err = g.HandleEvent(ctx, callee1, Inbound{
		Type: EventRejectCall,
		Call: &CallPayload{CallerID: "alice"},
	})
	if err != nil {
		t.Fatalf("reject-call: %v", err)
	}
	if got := caller.eventsOfType(TypeCallRejected); len(got) != 1 {
		t.Fatalf("caller got %d call-rejected, want 1", len(got))
	}

	// End routes to the named peer.
	err = g.HandleEvent(ctx, caller, Inbound{
		Type: EventEndCall,
		Call: &CallPayload{CalleeID: "bob"},
	})
	if err != nil {
		t.Fatalf("end-call: %v", err)
	}
	if got := callee1.eventsOfType(TypeCallEnded); len(got) != 1 {
		t.Fatalf("callee got %d call-ended, want 1", len(got))
	}
}

func TestGatewayCallUnreachableTargetIsSilent(t *testing.T) {
	g := newTestGateway()
	caller := connect(g, "c1", "alice")
	caller.reset()

	err := g.HandleEvent(context.Background(), caller, Inbound{
		Type: EventInitiateCall,
		Call: &CallPayload{CalleeID: "ghost"},
	})
	if err != nil {
		t.Fatalf("relay to offline user must not error: %v", err)
	}
	if len(caller.eventsOfType(TypeError)) != 0 || len(caller.eventsOfType(TypeCallRejected)) != 0 {
		t.Fatal("caller received feedback for an unreachable target")
	}
}

func TestGatewayRoomCallExcludesOriginator(t *testing.T) {
	g := newTestGateway()
	ctx := context.Background()

	caller := connect(g, "c1", "alice")
	peer := connect(g, "c2", "bob")
	g.HandleEvent(ctx, caller, Inbound{Type: EventJoinRoom, JoinRoom: &JoinRoomPayload{RoomID: "r1"}})
	g.HandleEvent(ctx, peer, Inbound{Type: EventJoinRoom, JoinRoom: &JoinRoomPayload{RoomID: "r1"}})
	caller.reset()
	peer.reset()

	err := g.HandleEvent(ctx, caller, Inbound{
		Type: EventCallUser,
		Call: &CallPayload{RoomID: "r1", Signal: json.RawMessage(`{"sdp":"offer"}`)},
	})
	if err != nil {
		t.Fatalf("call-user: %v", err)
	}
	if got := peer.eventsOfType(TypeReceiveCall); len(got) != 1 {
		t.Fatalf("peer got %d receive-call, want 1", len(got))
	}
	if got := caller.eventsOfType(TypeReceiveCall); len(got) != 0 {
		t.Fatal("originator received its own receive-call")
	}

	// Room-scoped end excludes the originator too.
	err = g.HandleEvent(ctx, caller, Inbound{
		Type: EventEndCall,
		Call: &CallPayload{RoomID: "r1"},
	})
	if err != nil {
		t.Fatalf("end-call: %v", err)
	}
	if got := peer.eventsOfType(TypeCallEnded); len(got) != 1 {
		t.Fatalf("peer got %d call-ended, want 1", len(got))
	}
	if got := caller.eventsOfType(TypeCallEnded); len(got) != 0 {
		t.Fatal("originator received its own call-ended")
	}
}

func TestGatewayRejectsMalformedEvents(t *testing.T) {
	g := newTestGateway()
	ctx := context.Background()
	c := connect(g, "c1", "alice")

	cases := []Inbound{
		{Type: EventJoinRoom, JoinRoom: &JoinRoomPayload{}},
		{Type: EventSendMessage},
		{Type: EventTyping, Typing: &TypingPayload{}},
		{Type: EventStopTyping},
		{Type: EventInitiateCall, Call: &CallPayload{}},
		{Type: EventCallUser, Call: &CallPayload{}},
		{Type: EventAcceptCall, Call: &CallPayload{}},
		{Type: EventRejectCall, Call: &CallPayload{}},
		{Type: EventEndCall, Call: &CallPayload{}},
		{Type: EventType("bogus")},
	}
	for _, in := range cases {
		if err := g.HandleEvent(ctx, c, in); err == nil {
			t.Fatalf("event %q with missing fields must error", in.Type)
		}
	}
}

// A disconnect of one tab racing the connect of another must never
// leave a live connection whose user reads offline.
func TestGatewayConnectDisconnectRace(t *testing.T) {
	g := newTestGateway()

	for i := 0; i < 200; i++ {
		old := connect(g, fmt.Sprintf("old-%d", i), "alice")
		fresh := newFakeConn(fmt.Sprintf("new-%d", i), "alice")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			g.HandleDisconnect(old)
		}()
		go func() {
			defer wg.Done()
			g.HandleConnect(fresh)
		}()
		wg.Wait()

		if got := g.presence.Status("alice"); got != StatusOnline {
			t.Fatalf("iteration %d: live connection but status %q", i, got)
		}
		g.HandleDisconnect(fresh)
		if got := g.presence.Status("alice"); got != StatusOffline {
			t.Fatalf("iteration %d: no connections left but status %q", i, got)
		}
	}
}

func TestGatewayDisconnectLeavesRooms(t *testing.T) {
	g := newTestGateway()
	ctx := context.Background()

	a := connect(g, "c1", "alice")
	b := connect(g, "c2", "bob")
	g.HandleEvent(ctx, a, Inbound{Type: EventJoinRoom, JoinRoom: &JoinRoomPayload{RoomID: "r1"}})
	g.HandleEvent(ctx, b, Inbound{Type: EventJoinRoom, JoinRoom: &JoinRoomPayload{RoomID: "r1"}})

	g.HandleDisconnect(b)
	b.reset()

	err := g.HandleEvent(ctx, a, Inbound{
		Type:        EventSendMessage,
		SendMessage: &SendMessagePayload{RoomID: "r1", Message: "anyone here"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := b.eventsOfType(TypeReceiveMessage); len(got) != 0 {
		t.Fatal("disconnected conn still receives room messages")
	}
}
