package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type RoomService struct {
	rooms RoomStore
}

func NewRoomService(rooms RoomStore) *RoomService {
	return &RoomService{rooms: rooms}
}

// CreateGroup создаёт групповую комнату; создатель становится owner-ом
// и её первым админом.
func (s *RoomService) CreateGroup(ctx context.Context, creatorID, name, description string, memberIDs []string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}
	if len(memberIDs) == 0 {
		return nil, domain.ErrNoTargets
	}

	members := slices.Clone(memberIDs)
	if !slices.Contains(members, creatorID) {
		members = append(members, creatorID)
	}

	room := &domain.Room{
		Name:        name,
		Description: description,
		IsGroup:     true,
		OwnerID:     creatorID,
		Members:     members,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("roomStore.Create: %w", err)
	}
	return room, nil
}

// CreateDirect creates a two-member non-group room, the "add contact"
// flow. Direct rooms have no owner and no admins.
func (s *RoomService) CreateDirect(ctx context.Context, userID, otherID string) (*domain.Room, error) {
	if userID == otherID {
		return nil, fmt.Errorf("cannot open a direct room with yourself")
	}
	room := &domain.Room{
		IsGroup: false,
		Members: []string{userID, otherID},
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("roomStore.Create: %w", err)
	}
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	return s.rooms.Get(ctx, id)
}

func (s *RoomService) ListRooms(ctx context.Context, userID string) ([]domain.Room, error) {
	return s.rooms.ListByMember(ctx, userID)
}
