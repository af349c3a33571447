// Package registry holds the process-wide mutable state of the fanout
// core: room membership, live connections, presence subscriptions and
// typing slots. Each registry is constructed once at startup and shared
// by reference; all of them are safe for concurrent use.
package registry

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wonkchat/wonk/internal/domain"
)

var (
	ErrAlreadyMember = errors.New("already a member of this room")
	ErrNotMember     = errors.New("not a member of this room")
)

// Membership is the authoritative member-set per room and room-set per
// user. The two maps are mutated together under one lock so the
// lockstep invariant (user in byRoom[r] iff r in byUser[user]) holds at
// every observable point.
type Membership struct {
	mu     sync.RWMutex
	byRoom map[domain.RoomName]map[domain.UserID]struct{}
	byUser map[domain.UserID]map[domain.RoomName]struct{}
}

func NewMembership() *Membership {
	return &Membership{
		byRoom: make(map[domain.RoomName]map[domain.UserID]struct{}),
		byUser: make(map[domain.UserID]map[domain.RoomName]struct{}),
	}
}

func (m *Membership) Join(user domain.UserID, room domain.RoomName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byRoom[room][user]; ok {
		return ErrAlreadyMember
	}
	if m.byRoom[room] == nil {
		m.byRoom[room] = make(map[domain.UserID]struct{})
	}
	if m.byUser[user] == nil {
		m.byUser[user] = make(map[domain.RoomName]struct{})
	}
	m.byRoom[room][user] = struct{}{}
	m.byUser[user][room] = struct{}{}
	log.Info().Str("module", "registry.membership").Str("user", string(user)).Str("room", string(room)).Msg("joined")
	return nil
}

func (m *Membership) Leave(user domain.UserID, room domain.RoomName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byRoom[room][user]; !ok {
		return ErrNotMember
	}
	delete(m.byRoom[room], user)
	delete(m.byUser[user], room)
	if len(m.byUser[user]) == 0 {
		delete(m.byUser, user)
	}
	log.Info().Str("module", "registry.membership").Str("user", string(user)).Str("room", string(room)).Msg("left")
	return nil
}

func (m *Membership) IsMember(user domain.UserID, room domain.RoomName) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byRoom[room][user]
	return ok
}

// Members returns a snapshot of the room's member set. The set may
// change immediately after return; callers must tolerate that.
func (m *Membership) Members(room domain.RoomName) []domain.UserID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.UserID, 0, len(m.byRoom[room]))
	for id := range m.byRoom[room] {
		out = append(out, id)
	}
	return out
}

func (m *Membership) RoomsOf(user domain.UserID) []domain.RoomName {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RoomName, 0, len(m.byUser[user]))
	for name := range m.byUser[user] {
		out = append(out, name)
	}
	return out
}
