package realtime

import (
	"sync"
)

// Registry maps logical user ids to their live connections. It is the
// sole source of truth for "is this user reachable right now"; nothing
// here is persisted.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[string]Conn // userID -> connID -> conn
	conns map[string]Conn            // connID -> conn
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]map[string]Conn),
		conns: make(map[string]Conn),
	}
}

// Register adds a connection and reports whether it is the user's first
// live connection (the offline -> online edge).
func (r *Registry) Register(c Conn) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.ID()]; ok {
		return false
	}
	r.conns[c.ID()] = c

	cs, ok := r.users[c.UserID()]
	if !ok {
		cs = make(map[string]Conn)
		r.users[c.UserID()] = cs
	}
	cs[c.ID()] = c

	return len(cs) == 1
}

// Unregister removes a connection. It is idempotent: a second call for
// the same connID is a no-op with ok=false. last reports whether the
// owning user has no connections left (the -> offline edge).
func (r *Registry) Unregister(connID string) (c Conn, last bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok = r.conns[connID]
	if !ok {
		return nil, false, false
	}
	delete(r.conns, connID)

	if cs, found := r.users[c.UserID()]; found {
		delete(cs, connID)
		if len(cs) == 0 {
			delete(r.users, c.UserID())
			last = true
		}
	}

	return c, last, true
}

// Resolve returns every live connection of userID; empty means the user
// is unreachable.
func (r *Registry) Resolve(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cs := r.users[userID]
	if len(cs) == 0 {
		return nil
	}
	out := make([]Conn, 0, len(cs))
	for _, c := range cs {
		out = append(out, c)
	}
	return out
}

// OnlineUsers returns the ids of every user with at least one connection.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.users))
	for id := range r.users {
		out = append(out, id)
	}
	return out
}

// Broadcast sends ev to every live connection, best-effort.
func (r *Registry) Broadcast(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.conns {
		_ = c.Send(ev)
	}
}
