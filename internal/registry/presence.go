package registry

import (
	"sync"

	"github.com/wonkchat/wonk/internal/domain"
)

// Presence tracks which users want live online/offline updates about
// which other users. Add/remove are idempotent set operations.
type Presence struct {
	mu   sync.RWMutex
	subs map[domain.UserID]map[domain.UserID]struct{} // target -> subscribers
}

func NewPresence() *Presence {
	return &Presence{subs: make(map[domain.UserID]map[domain.UserID]struct{})}
}

func (p *Presence) Subscribe(target, subscriber domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subs[target] == nil {
		p.subs[target] = make(map[domain.UserID]struct{})
	}
	p.subs[target][subscriber] = struct{}{}
}

func (p *Presence) Unsubscribe(target, subscriber domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subs[target], subscriber)
	if len(p.subs[target]) == 0 {
		delete(p.subs, target)
	}
}

func (p *Presence) SubscribersOf(target domain.UserID) []domain.UserID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.UserID, 0, len(p.subs[target]))
	for id := range p.subs[target] {
		out = append(out, id)
	}
	return out
}

// DropSubscriber removes the user from every target's subscriber set.
// Called on session teardown so subscriptions cannot outlive the
// session that created them.
func (p *Presence) DropSubscriber(subscriber domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for target, set := range p.subs {
		delete(set, subscriber)
		if len(set) == 0 {
			delete(p.subs, target)
		}
	}
}
