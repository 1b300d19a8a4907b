package service

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// RoomStore is the durable-room collaborator. Authorization decisions
// are always made against a fresh Get; no room state is cached between
// calls.
type RoomStore interface {
	Get(ctx context.Context, id string) (*domain.Room, error)
	Create(ctx context.Context, room *domain.Room) error
	AddMembers(ctx context.Context, roomID string, userIDs []string) error
	RemoveMember(ctx context.Context, roomID, userID string) error
	SetAdmin(ctx context.Context, roomID, userID string, admin bool) error
	UpdateLastMessage(ctx context.Context, roomID, messageID string) error
	ListByMember(ctx context.Context, userID string) ([]domain.Room, error)
}

type MemberService struct {
	rooms RoomStore
}

func NewMemberService(rooms RoomStore) *MemberService {
	return &MemberService{rooms: rooms}
}

// ChangeAdminStatus toggles targetID's admin grant: a current admin is
// demoted, anyone else is promoted. The owner's status is immutable no
// matter who asks. Returns whether the target is an admin afterwards.
func (s *MemberService) ChangeAdminStatus(ctx context.Context, actorID, roomID, targetID string) (bool, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !room.IsGroup {
		return false, domain.ErrNotGroup
	}
	if room.IsOwner(targetID) {
		return false, domain.ErrOwnerImmutable
	}
	if !room.CanAdminister(actorID) {
		return false, domain.ErrUnauthorized
	}
	if !room.IsMember(targetID) {
		return false, domain.ErrNotMember
	}

	promote := !room.IsAdmin(targetID)
	if err := s.rooms.SetAdmin(ctx, roomID, targetID, promote); err != nil {
		return false, fmt.Errorf("set admin: %w", err)
	}
	return promote, nil
}

// AddMembers ensures every target is a member. Ids that already are
// members are skipped without error.
func (s *MemberService) AddMembers(ctx context.Context, actorID, roomID string, targetIDs []string) error {
	if len(targetIDs) == 0 {
		return domain.ErrNoTargets
	}

	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsGroup {
		return domain.ErrNotGroup
	}
	if !room.CanAdminister(actorID) {
		return domain.ErrUnauthorized
	}

	toAdd := make([]string, 0, len(targetIDs))
	for _, id := range targetIDs {
		if !room.IsMember(id) {
			toAdd = append(toAdd, id)
		}
	}
	if len(toAdd) == 0 {
		return nil
	}
	if err := s.rooms.AddMembers(ctx, roomID, toAdd); err != nil {
		return fmt.Errorf("add members: %w", err)
	}
	return nil
}

// RemoveMember removes targetID from the room. The owner can never be
// removed, not even by themself. Removal also drops any admin grant, so
// admins stay a subset of members.
func (s *MemberService) RemoveMember(ctx context.Context, actorID, roomID, targetID string) error {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsGroup {
		return domain.ErrNotGroup
	}
	if room.IsOwner(targetID) {
		return domain.ErrOwnerImmutable
	}
	if !room.CanAdminister(actorID) {
		return domain.ErrUnauthorized
	}
	if !room.IsMember(targetID) {
		return domain.ErrNotMember
	}

	if err := s.rooms.RemoveMember(ctx, roomID, targetID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}
