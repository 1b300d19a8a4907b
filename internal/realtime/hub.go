package realtime

import (
	"sync"
)

// Hub tracks which connections are subscribed to which rooms. A
// connection may be joined to any number of rooms at once.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]Conn     // roomID -> connID -> conn
	joined map[string]map[string]struct{} // connID -> set of roomIDs
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]Conn),
		joined: make(map[string]map[string]struct{}),
	}
}

func (h *Hub) Join(roomID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[roomID]
	if !ok {
		rs = make(map[string]Conn)
		h.rooms[roomID] = rs
	}
	rs[c.ID()] = c

	js, ok := h.joined[c.ID()]
	if !ok {
		js = make(map[string]struct{})
		h.joined[c.ID()] = js
	}
	js[roomID] = struct{}{}
}

func (h *Hub) Leave(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(roomID, connID)
	if js, ok := h.joined[connID]; ok {
		delete(js, roomID)
		if len(js) == 0 {
			delete(h.joined, connID)
		}
	}
}

// RemoveConn drops the connection from every room it had joined.
func (h *Hub) RemoveConn(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID := range h.joined[connID] {
		h.leaveLocked(roomID, connID)
	}
	delete(h.joined, connID)
}

func (h *Hub) leaveLocked(roomID, connID string) {
	if rs, ok := h.rooms[roomID]; ok {
		delete(rs, connID)
		if len(rs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) Joined(roomID, connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.rooms[roomID][connID]
	return ok
}

// Broadcast sends ev to every connection joined to roomID, best-effort.
func (h *Hub) Broadcast(roomID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.rooms[roomID] {
		_ = c.Send(ev)
	}
}

// BroadcastExcept is Broadcast minus one connection, used when the
// originator must not receive its own event back.
func (h *Hub) BroadcastExcept(roomID, exceptConnID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.rooms[roomID] {
		if id == exceptConnID {
			continue
		}
		_ = c.Send(ev)
	}
}
