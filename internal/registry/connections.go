package registry

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wonkchat/wonk/internal/domain"
)

// Conn is a live push transport bound to a single user.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	TrySend(data []byte) error
	Close()
}

// Connections maps a user to at most one live connection. It never
// opens or closes transports; it only owns the mapping.
type Connections struct {
	mu    sync.RWMutex
	conns map[domain.UserID]Conn
}

func NewConnections() *Connections {
	return &Connections{conns: make(map[domain.UserID]Conn)}
}

// Register stores conn as the user's live connection, replacing any
// existing one (last write wins). The displaced connection is returned
// so the caller may close it; it stops receiving fanout either way.
func (c *Connections) Register(user domain.UserID, conn Conn) Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.conns[user]
	c.conns[user] = conn
	log.Info().Str("module", "registry.connections").Str("user", string(user)).Bool("replaced", prev != nil).Msg("connection registered")
	return prev
}

// Unregister removes the mapping only if the stored connection is
// identical to conn. A stale unregister from a superseded connection
// must never clobber a newer one.
func (c *Connections) Unregister(user domain.UserID, conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conns[user] != conn {
		return false
	}
	delete(c.conns, user)
	log.Info().Str("module", "registry.connections").Str("user", string(user)).Msg("connection unregistered")
	return true
}

func (c *Connections) Get(user domain.UserID) (Conn, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.conns[user]
	return conn, ok
}

// All snapshots every live connection, for control broadcasts.
func (c *Connections) All() []Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Conn, 0, len(c.conns))
	for _, conn := range c.conns {
		out = append(out, conn)
	}
	return out
}
