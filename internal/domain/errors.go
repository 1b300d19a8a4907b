package domain

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomExists     = errors.New("room with this name already exists")
	ErrNotGroup       = errors.New("operation requires a group room")
	ErrUnauthorized   = errors.New("actor is not an owner or admin of the room")
	ErrNotMember      = errors.New("target user is not a member of the room")
	ErrOwnerImmutable = errors.New("room owner cannot be changed or removed")
	ErrNoTargets      = errors.New("no target users given")
	ErrEmptyMessage   = errors.New("empty message")
)
