package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonkchat/wonk/internal/domain"
)

func TestPresenceSubscribeIsIdempotent(t *testing.T) {
	p := NewPresence()
	p.Subscribe("target", "s1")
	p.Subscribe("target", "s1")
	assert.ElementsMatch(t, []domain.UserID{"s1"}, p.SubscribersOf("target"))
}

func TestPresenceUnsubscribe(t *testing.T) {
	p := NewPresence()
	p.Subscribe("target", "s1")
	p.Subscribe("target", "s2")
	p.Unsubscribe("target", "s1")
	assert.ElementsMatch(t, []domain.UserID{"s2"}, p.SubscribersOf("target"))

	// Removing an absent subscriber is a no-op.
	p.Unsubscribe("target", "s1")
	assert.Len(t, p.SubscribersOf("target"), 1)
}

func TestPresenceDropSubscriber(t *testing.T) {
	p := NewPresence()
	p.Subscribe("a", "s1")
	p.Subscribe("b", "s1")
	p.Subscribe("b", "s2")

	p.DropSubscriber("s1")

	assert.Empty(t, p.SubscribersOf("a"))
	assert.ElementsMatch(t, []domain.UserID{"s2"}, p.SubscribersOf("b"))
}
