package domain

import "time"

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageAudio MessageType = "audio"
	MessageVideo MessageType = "video"
	MessageFile  MessageType = "file"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageAudio, MessageVideo, MessageFile:
		return true
	}
	return false
}

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
)

type Attachment struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

type ChatMessage struct {
	ID          string        `db:"id"`
	RoomID      string        `db:"room_id"`
	SenderID    string        `db:"sender_id"`
	Body        string        `db:"body"`
	Type        MessageType   `db:"type"`
	Attachments []Attachment  `db:"attachments"`
	Status      MessageStatus `db:"status"`
	CreatedAt   time.Time     `db:"created_at"`
}
