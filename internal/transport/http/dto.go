package http

import (
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateRoomRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsGroup     bool     `json:"isGroup"`
	Members     []string `json:"members"`
}

type RoomItem struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	Description   string    `json:"description,omitempty"`
	IsGroup       bool      `json:"isGroup"`
	OwnerID       string    `json:"ownerId,omitempty"`
	Members       []string  `json:"members"`
	Admins        []string  `json:"admins"`
	LastMessageID *string   `json:"lastMessageId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type RoomsListResponse struct {
	Items []RoomItem `json:"items"`
}

type AddMembersRequest struct {
	UserIDs []string `json:"userIds"`
}

type ChangeAdminResponse struct {
	UserID  string `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
}

type SendMessageRequest struct {
	Message     string              `json:"message"`
	Type        domain.MessageType  `json:"type"`
	Attachments []domain.Attachment `json:"attachments"`
}

type ChatMessageItem struct {
	ID          string              `json:"id"`
	RoomID      string              `json:"roomId"`
	SenderID    string              `json:"senderId"`
	Message     string              `json:"message"`
	Type        domain.MessageType  `json:"type"`
	Attachments []domain.Attachment `json:"attachments"`
	Status      string              `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
}

type ChatHistoryResponse struct {
	Items      []ChatMessageItem `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

func toRoomItem(r *domain.Room) RoomItem {
	return RoomItem{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		IsGroup:       r.IsGroup,
		OwnerID:       r.OwnerID,
		Members:       sliceOrEmpty(r.Members),
		Admins:        sliceOrEmpty(r.Admins),
		LastMessageID: r.LastMessageID,
		CreatedAt:     r.CreatedAt,
	}
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
