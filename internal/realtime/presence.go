package realtime

import (
	"sync"
	"time"
)

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusIdle    PresenceStatus = "idle"
	StatusOffline PresenceStatus = "offline"
)

type presenceEntry struct {
	status       PresenceStatus
	lastActivity time.Time
}

// PresenceTracker holds one entry per user currently online. Offline is
// the absence of an entry, not a stored state. Transitions are reported
// to the caller; the tracker itself never broadcasts.
type PresenceTracker struct {
	mu      sync.Mutex
	entries map[string]*presenceEntry
	now     func() time.Time
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		entries: make(map[string]*presenceEntry),
		now:     time.Now,
	}
}

// Connected records the offline -> online edge for userID. It returns
// false if the user already has an entry (a second tab connecting must
// not re-announce online).
func (t *PresenceTracker) Connected(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[userID]; ok {
		return false
	}
	t.entries[userID] = &presenceEntry{status: StatusOnline, lastActivity: t.now()}
	return true
}

// Disconnected removes the user's entry on the last connection close.
// Idempotent: a missing entry is a no-op.
func (t *PresenceTracker) Disconnected(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[userID]; !ok {
		return false
	}
	delete(t.entries, userID)
	return true
}

// MarkIdle moves online -> idle. Returns false if the user is unknown or
// already idle.
func (t *PresenceTracker) MarkIdle(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[userID]
	if !ok || e.status == StatusIdle {
		return false
	}
	e.status = StatusIdle
	return true
}

// MarkActive moves idle -> online and refreshes the activity timestamp.
// Returns true only on an actual idle -> online transition.
func (t *PresenceTracker) MarkActive(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[userID]
	if !ok {
		return false
	}
	e.lastActivity = t.now()
	if e.status != StatusIdle {
		return false
	}
	e.status = StatusOnline
	return true
}

func (t *PresenceTracker) Status(userID string) PresenceStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[userID]; ok {
		return e.status
	}
	return StatusOffline
}

// Snapshot returns every user id with an entry, for the one-shot
// online-users frame sent to a freshly connected socket.
func (t *PresenceTracker) Snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.entries))
	for id := range t.entries {
		out = append(out, id)
	}
	return out
}
