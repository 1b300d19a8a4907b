package domain

import (
	"slices"
	"time"
)

type Room struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Description   string    `db:"description"`
	IsGroup       bool      `db:"is_group"`
	OwnerID       string    `db:"owner_id"` // set only for group rooms
	Members       []string  `db:"-"`
	Admins        []string  `db:"-"` // always a subset of Members
	LastMessageID *string   `db:"last_message_id"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r *Room) IsOwner(userID string) bool {
	return r.IsGroup && r.OwnerID == userID
}

func (r *Room) IsAdmin(userID string) bool {
	return slices.Contains(r.Admins, userID)
}

func (r *Room) IsMember(userID string) bool {
	return slices.Contains(r.Members, userID)
}

// CanAdminister reports whether userID may mutate the room's membership.
// The owner is implicitly privileged above admins.
func (r *Room) CanAdminister(userID string) bool {
	return r.IsOwner(userID) || r.IsAdmin(userID)
}
