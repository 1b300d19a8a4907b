package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type fakeConn struct {
	id       string
	userID   string
	username string

	mu     sync.Mutex
	events []Event
}

func newFakeConn(id, userID string) *fakeConn {
	return &fakeConn{id: id, userID: userID, username: "user-" + userID}
}

func (c *fakeConn) ID() string       { return c.id }
func (c *fakeConn) UserID() string   { return c.userID }
func (c *fakeConn) Username() string { return c.username }
func (c *fakeConn) Close() error     { return nil }

func (c *fakeConn) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) eventsOfType(t string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

type fakeStore struct {
	mu    sync.Mutex
	seq   int
	saved []*domain.ChatMessage
	fail  error
}

func (s *fakeStore) Append(_ context.Context, roomID, senderID, body string, mtype domain.MessageType, atts []domain.Attachment) (*domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	s.seq++
	m := &domain.ChatMessage{
		ID:          fmt.Sprintf("msg-%d", s.seq),
		RoomID:      roomID,
		SenderID:    senderID,
		Body:        body,
		Type:        mtype,
		Attachments: atts,
		Status:      domain.StatusSent,
		CreatedAt:   time.Now(),
	}
	s.saved = append(s.saved, m)
	return m, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}
