package realtime

import (
	"encoding/json"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// Event is one outbound frame on the realtime channel.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Conn is one live transport connection. Implemented by the ws layer;
// the core never sees the underlying socket.
type Conn interface {
	ID() string
	UserID() string
	Username() string
	Send(ev Event) error
	Close() error
}

// Outbound event types.
const (
	TypeReceiveMessage   = "receive-message"
	TypeUserTyping       = "user_typing"
	TypeUserStopTyping   = "user_stop_typing"
	TypeOnlineUsers      = "online-users"
	TypeUserConnected    = "user_connected"
	TypeUserIdle         = "user_idle"
	TypeUserDisconnected = "user_disconnected"
	TypeIncomingCall     = "incoming-call"
	TypeReceiveCall      = "receive-call"
	TypeCallAccepted     = "call-accepted"
	TypeCallRejected     = "call-rejected"
	TypeCallEnded        = "call-ended"
	TypeError            = "error"
)

// EventType enumerates every inbound event kind. The set is closed: the
// gateway dispatches through one exhaustive switch over these values.
type EventType string

const (
	EventJoinRoom     EventType = "join-room"
	EventSendMessage  EventType = "send-message"
	EventTyping       EventType = "typing"
	EventStopTyping   EventType = "stop-typing"
	EventUserIdle     EventType = "user_idle"
	EventUserActive   EventType = "user_active"
	EventInitiateCall EventType = "initiate-call"
	EventCallUser     EventType = "call-user"
	EventAcceptCall   EventType = "accept-call"
	EventRejectCall   EventType = "reject-call"
	EventEndCall      EventType = "end-call"
)

func (t EventType) Known() bool {
	switch t {
	case EventJoinRoom, EventSendMessage, EventTyping, EventStopTyping,
		EventUserIdle, EventUserActive,
		EventInitiateCall, EventCallUser, EventAcceptCall, EventRejectCall, EventEndCall:
		return true
	}
	return false
}

// Inbound is a decoded client event. Exactly one payload field matching
// Type is set; events without a payload carry none.
type Inbound struct {
	Type        EventType
	JoinRoom    *JoinRoomPayload
	SendMessage *SendMessagePayload
	Typing      *TypingPayload
	Call        *CallPayload
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

type SendMessagePayload struct {
	RoomID      string              `json:"roomId,omitempty"`
	Message     string              `json:"message"`
	Type        domain.MessageType  `json:"type"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
	Username    string              `json:"username,omitempty"`
	Avatar      string              `json:"avatar,omitempty"`
}

type TypingPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
}

// CallPayload covers every call-signaling event. Direct routing uses
// CallerID/CalleeID; the room-scoped variant sets RoomID instead. Signal
// is relayed opaque and never retained.
type CallPayload struct {
	CallerID string          `json:"callerId,omitempty"`
	CalleeID string          `json:"calleeId,omitempty"`
	RoomID   string          `json:"roomId,omitempty"`
	Signal   json.RawMessage `json:"signal,omitempty"`
}

// Outbound payloads.

type ReceiveMessagePayload struct {
	MessageID   string              `json:"messageId"`
	FromUserID  string              `json:"fromUserId"`
	Message     string              `json:"message"`
	Type        domain.MessageType  `json:"type"`
	Attachments []domain.Attachment `json:"attachments"`
	Timestamp   string              `json:"timestamp"`
	Status      string              `json:"status"`
	Username    string              `json:"username,omitempty"`
	Avatar      string              `json:"avatar,omitempty"`
	RoomID      string              `json:"roomId"`
}

type PresencePayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type CallSignalPayload struct {
	CallerID    string          `json:"callerId,omitempty"`
	ResponderID string          `json:"responderId,omitempty"`
	RoomID      string          `json:"roomId,omitempty"`
	Signal      json.RawMessage `json:"signal,omitempty"`
}

type CallEndPayload struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId,omitempty"`
}

type ErrorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}
