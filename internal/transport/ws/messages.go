package ws

import (
	"encoding/json"
	"fmt"

	"github.com/cwrk-planet/chat-service/internal/realtime"
)

// Frame — один входящий кадр на WS-канале.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var errUnknownEvent = fmt.Errorf("unknown event type")

// decodeInbound maps a wire frame onto the closed inbound event union.
// Every EventType the gateway dispatches on has a case here; a type not
// listed is rejected rather than passed through loosely typed.
func decodeInbound(f Frame) (realtime.Inbound, error) {
	t := realtime.EventType(f.Type)
	in := realtime.Inbound{Type: t}

	switch t {
	case realtime.EventJoinRoom:
		in.JoinRoom = &realtime.JoinRoomPayload{}
		return in, unmarshal(f.Payload, in.JoinRoom)
	case realtime.EventSendMessage:
		in.SendMessage = &realtime.SendMessagePayload{}
		return in, unmarshal(f.Payload, in.SendMessage)
	case realtime.EventTyping, realtime.EventStopTyping:
		in.Typing = &realtime.TypingPayload{}
		return in, unmarshal(f.Payload, in.Typing)
	case realtime.EventUserIdle, realtime.EventUserActive:
		return in, nil
	case realtime.EventInitiateCall, realtime.EventCallUser,
		realtime.EventAcceptCall, realtime.EventRejectCall, realtime.EventEndCall:
		in.Call = &realtime.CallPayload{}
		return in, unmarshal(f.Payload, in.Call)
	default:
		return in, fmt.Errorf("%w: %q", errUnknownEvent, f.Type)
	}
}

func unmarshal(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
