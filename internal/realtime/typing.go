package realtime

import (
	"sync"
	"time"
)

const defaultTypingTTL = 3 * time.Second

type typingEntry struct {
	username string
	timer    *time.Timer
}

// TypingTracker holds short-lived "user X is typing in room Y" flags.
// Each (room, user) pair owns exactly one expiry timer; repeated starts
// before expiry neither duplicate the entry nor schedule another timer.
type TypingTracker struct {
	mu       sync.Mutex
	ttl      time.Duration
	rooms    map[string]map[string]*typingEntry // roomID -> userID -> entry
	onExpire func(roomID, userID, username string)
}

// NewTypingTracker creates a tracker. onExpire fires once when an entry
// ages out without an explicit stop; it is called outside the lock.
func NewTypingTracker(ttl time.Duration, onExpire func(roomID, userID, username string)) *TypingTracker {
	if ttl <= 0 {
		ttl = defaultTypingTTL
	}
	return &TypingTracker{
		ttl:      ttl,
		rooms:    make(map[string]map[string]*typingEntry),
		onExpire: onExpire,
	}
}

// Start adds the (room, user) flag and schedules its auto-expiry.
// Returns false if the pair is already tracked.
func (t *TypingTracker) Start(roomID, userID, username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rs, ok := t.rooms[roomID]
	if !ok {
		rs = make(map[string]*typingEntry)
		t.rooms[roomID] = rs
	}
	if _, ok := rs[userID]; ok {
		return false
	}

	e := &typingEntry{username: username}
	e.timer = time.AfterFunc(t.ttl, func() { t.expire(roomID, userID) })
	rs[userID] = e
	return true
}

// Stop removes the flag and cancels its timer. Returns the username the
// entry was started with and whether an entry existed.
func (t *TypingTracker) Stop(roomID, userID string) (string, bool) {
	t.mu.Lock()
	e, ok := t.remove(roomID, userID)
	t.mu.Unlock()
	if !ok {
		return "", false
	}
	e.timer.Stop()
	return e.username, true
}

// Typing returns the user ids currently flagged in roomID.
func (t *TypingTracker) Typing(roomID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	rs := t.rooms[roomID]
	out := make([]string, 0, len(rs))
	for id := range rs {
		out = append(out, id)
	}
	return out
}

func (t *TypingTracker) expire(roomID, userID string) {
	t.mu.Lock()
	e, ok := t.remove(roomID, userID)
	t.mu.Unlock()
	if ok && t.onExpire != nil {
		t.onExpire(roomID, userID, e.username)
	}
}

// remove must be called with the lock held. Empty room keys are dropped
// so no empty-set entries linger.
func (t *TypingTracker) remove(roomID, userID string) (*typingEntry, bool) {
	rs, ok := t.rooms[roomID]
	if !ok {
		return nil, false
	}
	e, ok := rs[userID]
	if !ok {
		return nil, false
	}
	delete(rs, userID)
	if len(rs) == 0 {
		delete(t.rooms, roomID)
	}
	return e, true
}
