package store

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wonkchat/wonk/internal/domain"
)

// MemoryRooms is the in-process RoomStore. Rooms are never deleted.
type MemoryRooms struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]*domain.Room
}

func NewMemoryRooms() *MemoryRooms {
	return &MemoryRooms{rooms: make(map[domain.RoomName]*domain.Room)}
}

func (s *MemoryRooms) Create(name domain.RoomName, description string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[name]; ok {
		return nil, ErrRoomExists
	}
	room := &domain.Room{Name: name, Description: description}
	s.rooms[name] = room
	log.Info().Str("module", "store.rooms").Str("room", string(name)).Msg("room created")
	return room, nil
}

func (s *MemoryRooms) Get(name domain.RoomName) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[name]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// MemoryUsers caches the identities seen by the auth middleware so the
// /users lookup can resolve them.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[domain.UserID]domain.UserIdentity
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[domain.UserID]domain.UserIdentity)}
}

func (s *MemoryUsers) Put(user domain.UserIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *MemoryUsers) Get(id domain.UserID) (domain.UserIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.UserIdentity{}, ErrUserNotFound
	}
	return user, nil
}
