package registry

import (
	"sync"
	"time"

	"github.com/wonkchat/wonk/internal/domain"
)

type typingEntry struct {
	room domain.RoomName
	at   time.Time
}

// Typing is the ephemeral typing-indicator state. A user occupies at
// most one slot: starting to type in a second room moves the slot.
// Entries older than ttl are treated as cleared, since an explicit
// typing=false may never arrive from a client that disconnects mid-type.
type Typing struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[domain.UserID]typingEntry
	now     func() time.Time
}

// NewTyping builds the tracker. ttl <= 0 disables expiry.
func NewTyping(ttl time.Duration) *Typing {
	return &Typing{
		ttl:     ttl,
		entries: make(map[domain.UserID]typingEntry),
		now:     time.Now,
	}
}

func (t *Typing) Set(user domain.UserID, room domain.RoomName) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[user] = typingEntry{room: room, at: t.now()}
}

// Clear drops the user's slot regardless of room.
func (t *Typing) Clear(user domain.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, user)
}

// ClearIn drops the slot only if it points at room.
func (t *Typing) ClearIn(user domain.UserID, room domain.RoomName) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[user]; ok && e.room == room {
		delete(t.entries, user)
	}
}

// Slot reports the room the user is currently typing in, if any.
func (t *Typing) Slot(user domain.UserID) (domain.RoomName, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[user]
	if !ok || t.expired(e) {
		delete(t.entries, user)
		return "", false
	}
	return e.room, true
}

// ActiveIn snapshots the users currently typing in room, pruning
// expired entries on the way.
func (t *Typing) ActiveIn(room domain.RoomName) []domain.UserID {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []domain.UserID
	for user, e := range t.entries {
		if t.expired(e) {
			delete(t.entries, user)
			continue
		}
		if e.room == room {
			out = append(out, user)
		}
	}
	return out
}

func (t *Typing) expired(e typingEntry) bool {
	return t.ttl > 0 && t.now().Sub(e.at) > t.ttl
}
