package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/google/uuid"
)

// MessageStore is the persistence collaborator for message fan-out. It
// must validate the room, store the message, and only then move the
// room's lastMessage pointer.
type MessageStore interface {
	Append(ctx context.Context, roomID, senderID, body string, mtype domain.MessageType, atts []domain.Attachment) (*domain.ChatMessage, error)
}

// Fanout persists a room message and delivers it to every connection
// joined to the room, the sender's own included. A per-room mutex
// serializes persist+broadcast so all viewers observe the same order;
// sends to distinct rooms proceed concurrently.
type Fanout struct {
	hub   *Hub
	store MessageStore

	mu    sync.Mutex
	locks map[string]*roomLock
}

// roomLock lives only while senders hold or wait on it; the refcount
// keeps the lock table from growing with every room id ever messaged.
type roomLock struct {
	mu   sync.Mutex
	refs int
}

func NewFanout(hub *Hub, store MessageStore) *Fanout {
	return &Fanout{
		hub:   hub,
		store: store,
		locks: make(map[string]*roomLock),
	}
}

func (f *Fanout) Send(ctx context.Context, sender Conn, roomID string, p SendMessagePayload) error {
	body := strings.TrimSpace(p.Message)
	if body == "" && len(p.Attachments) == 0 {
		return domain.ErrEmptyMessage
	}
	mtype := p.Type
	if mtype == "" {
		mtype = domain.MessageText
	}
	if !mtype.Valid() {
		return fmt.Errorf("unknown message type %q", p.Type)
	}

	lock := f.lockRoom(roomID)
	defer f.unlockRoom(roomID, lock)

	saved, err := f.store.Append(ctx, roomID, sender.UserID(), body, mtype, p.Attachments)
	if err != nil {
		return fmt.Errorf("persist message: %w", err)
	}

	// The wire id is generated here, not reused from storage: clients
	// only need per-session uniqueness for rendering.
	f.hub.Broadcast(roomID, Event{
		Type: TypeReceiveMessage,
		Payload: ReceiveMessagePayload{
			MessageID:   uuid.NewString(),
			FromUserID:  sender.UserID(),
			Message:     body,
			Type:        mtype,
			Attachments: attachmentsOrEmpty(p.Attachments),
			Timestamp:   saved.CreatedAt.Format(time.RFC3339Nano),
			Status:      string(domain.StatusSent),
			Username:    p.Username,
			Avatar:      p.Avatar,
			RoomID:      roomID,
		},
	})
	return nil
}

func (f *Fanout) lockRoom(roomID string) *roomLock {
	f.mu.Lock()
	l, ok := f.locks[roomID]
	if !ok {
		l = &roomLock{}
		f.locks[roomID] = l
	}
	l.refs++
	f.mu.Unlock()

	l.mu.Lock()
	return l
}

func (f *Fanout) unlockRoom(roomID string, l *roomLock) {
	l.mu.Unlock()

	f.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(f.locks, roomID)
	}
	f.mu.Unlock()
}

func attachmentsOrEmpty(atts []domain.Attachment) []domain.Attachment {
	if atts == nil {
		return []domain.Attachment{}
	}
	return atts
}
