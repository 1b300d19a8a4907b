package domain

import "time"

type Member struct {
	RoomID   string    `db:"room_id"`
	UserID   string    `db:"user_id"`
	IsAdmin  bool      `db:"is_admin"`
	JoinedAt time.Time `db:"joined_at"`
}
