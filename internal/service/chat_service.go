package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

const maxMessageLen = 4000

// MessageStore persists chat messages.
type MessageStore interface {
	Save(ctx context.Context, m *domain.ChatMessage) error
	History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error)
}

type ChatService struct {
	rooms RoomStore
	msgs  MessageStore
}

func NewChatService(rooms RoomStore, msgs MessageStore) *ChatService {
	return &ChatService{rooms: rooms, msgs: msgs}
}

// Append validates the room and the sender's membership, persists the
// message, and only then moves
// the room's lastMessage pointer. A persistence failure aborts before
// the pointer is touched, so the pointer can never name a message that
// does not exist.
func (s *ChatService) Append(ctx context.Context, roomID, senderID, body string, mtype domain.MessageType, atts []domain.Attachment) (*domain.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" && len(atts) == 0 {
		return nil, domain.ErrEmptyMessage
	}
	if len(body) > maxMessageLen {
		return nil, fmt.Errorf("message too long (%d > %d)", len(body), maxMessageLen)
	}
	if mtype == "" {
		mtype = domain.MessageText
	}

	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsMember(senderID) {
		return nil, domain.ErrUnauthorized
	}

	msg := &domain.ChatMessage{
		RoomID:      roomID,
		SenderID:    senderID,
		Body:        body,
		Type:        mtype,
		Attachments: atts,
		Status:      domain.StatusSent,
	}
	if err := s.msgs.Save(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	// Pointer update is best-effort once the message itself is durable.
	if err := s.rooms.UpdateLastMessage(ctx, roomID, msg.ID); err != nil {
		slog.Warn("update last message failed", "room", roomID, "msg", msg.ID, "err", err)
	}

	return msg, nil
}

// History is scoped to the caller: only members of the room may read it.
func (s *ChatService) History(ctx context.Context, callerID, roomID, after string, limit int) ([]domain.ChatMessage, string, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, "", err
	}
	if !room.IsMember(callerID) {
		return nil, "", domain.ErrUnauthorized
	}
	return s.msgs.History(ctx, roomID, after, limit)
}
