package realtime

// Relay forwards WebRTC negotiation payloads without inspecting or
// storing them. Two targeting strategies exist: direct per-user routing
// through the registry (ad hoc one-to-one calls) and room-scoped
// broadcast through the hub (calls started from an open room). Both are
// one forwarding function parameterized by a Target.
type Relay struct {
	reg *Registry
	hub *Hub
}

func NewRelay(reg *Registry, hub *Hub) *Relay {
	return &Relay{reg: reg, hub: hub}
}

// Target delivers one event to some set of connections.
type Target func(ev Event)

// ToUser resolves userID at delivery time. An unreachable user yields a
// silent no-op: the relay gives no delivery acknowledgment.
func (r *Relay) ToUser(userID string) Target {
	return func(ev Event) {
		for _, c := range r.reg.Resolve(userID) {
			_ = c.Send(ev)
		}
	}
}

// ToRoom fans the event out to the room minus the originator.
func (r *Relay) ToRoom(roomID, exceptConnID string) Target {
	return func(ev Event) {
		r.hub.BroadcastExcept(roomID, exceptConnID, ev)
	}
}

func (r *Relay) Forward(t Target, ev Event) {
	t(ev)
}
