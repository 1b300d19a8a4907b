package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// fakeRoomStore keeps rooms in memory and mirrors the relational
// behavior the postgres layer has: removing a member drops the matching
// admin grant with it.
type fakeRoomStore struct {
	mu    sync.Mutex
	rooms map[string]*domain.Room

	failGet      error
	failSetAdmin error
}

func newFakeRoomStore(rooms ...*domain.Room) *fakeRoomStore {
	s := &fakeRoomStore{rooms: make(map[string]*domain.Room)}
	for _, r := range rooms {
		s.rooms[r.ID] = r
	}
	return s
}

func (s *fakeRoomStore) Get(_ context.Context, id string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	r, ok := s.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	cp := *r
	cp.Members = slices.Clone(r.Members)
	cp.Admins = slices.Clone(r.Admins)
	return &cp, nil
}

func (s *fakeRoomStore) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if room.Name != "" && r.Name == room.Name {
			return domain.ErrRoomExists
		}
	}
	if room.ID == "" {
		room.ID = fmt.Sprintf("room-%d", len(s.rooms)+1)
	}
	room.CreatedAt = time.Now()
	if room.IsGroup {
		room.Admins = []string{room.OwnerID}
	}
	cp := *room
	s.rooms[room.ID] = &cp
	return nil
}

func (s *fakeRoomStore) AddMembers(_ context.Context, roomID string, userIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	for _, id := range userIDs {
		if !slices.Contains(r.Members, id) {
			r.Members = append(r.Members, id)
		}
	}
	return nil
}

func (s *fakeRoomStore) RemoveMember(_ context.Context, roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	i := slices.Index(r.Members, userID)
	if i < 0 {
		return domain.ErrNotMember
	}
	r.Members = slices.Delete(r.Members, i, i+1)
	if j := slices.Index(r.Admins, userID); j >= 0 {
		r.Admins = slices.Delete(r.Admins, j, j+1)
	}
	return nil
}

func (s *fakeRoomStore) SetAdmin(_ context.Context, roomID, userID string, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSetAdmin != nil {
		return s.failSetAdmin
	}
	r, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	i := slices.Index(r.Admins, userID)
	switch {
	case admin && i < 0:
		r.Admins = append(r.Admins, userID)
	case !admin && i >= 0:
		r.Admins = slices.Delete(r.Admins, i, i+1)
	}
	return nil
}

func (s *fakeRoomStore) UpdateLastMessage(_ context.Context, roomID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	r.LastMessageID = &messageID
	return nil
}

func (s *fakeRoomStore) ListByMember(_ context.Context, userID string) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Room
	for _, r := range s.rooms {
		if slices.Contains(r.Members, userID) {
			out = append(out, *r)
		}
	}
	return out, nil
}

// mustRoom reads the stored room directly, bypassing the Get copy.
func (s *fakeRoomStore) mustRoom(id string) *domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[id]
}

type fakeMessageStore struct {
	mu    sync.Mutex
	seq   int
	saved []*domain.ChatMessage
	fail  error
}

func (s *fakeMessageStore) Save(_ context.Context, m *domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.seq++
	m.ID = fmt.Sprintf("msg-%d", s.seq)
	m.CreatedAt = time.Now()
	s.saved = append(s.saved, m)
	return nil
}

func (s *fakeMessageStore) History(_ context.Context, roomID, _ string, limit int) ([]domain.ChatMessage, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ChatMessage
	for _, m := range s.saved {
		if m.RoomID == roomID {
			out = append(out, *m)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, "", nil
}

func groupRoom(id, owner string, members ...string) *domain.Room {
	all := append([]string{owner}, members...)
	return &domain.Room{
		ID:      id,
		Name:    "room-" + id,
		IsGroup: true,
		OwnerID: owner,
		Members: all,
		Admins:  []string{owner},
	}
}
