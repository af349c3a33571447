package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonkchat/wonk/internal/domain"
)

func TestTypingSingleSlotPerUser(t *testing.T) {
	tr := NewTyping(0)
	tr.Set("u1", "alpha")
	tr.Set("u1", "beta") // moving rooms moves the slot

	assert.Empty(t, tr.ActiveIn("alpha"))
	assert.ElementsMatch(t, []domain.UserID{"u1"}, tr.ActiveIn("beta"))

	room, ok := tr.Slot("u1")
	require.True(t, ok)
	assert.Equal(t, domain.RoomName("beta"), room)
}

func TestTypingClearIn(t *testing.T) {
	tr := NewTyping(0)
	tr.Set("u1", "alpha")

	tr.ClearIn("u1", "beta") // wrong room, slot survives
	_, ok := tr.Slot("u1")
	assert.True(t, ok)

	tr.ClearIn("u1", "alpha")
	_, ok = tr.Slot("u1")
	assert.False(t, ok)
}

func TestTypingExpiry(t *testing.T) {
	tr := NewTyping(10 * time.Second)
	current := time.Unix(1000, 0)
	tr.now = func() time.Time { return current }

	tr.Set("u1", "alpha")
	assert.Len(t, tr.ActiveIn("alpha"), 1)

	current = current.Add(11 * time.Second)
	assert.Empty(t, tr.ActiveIn("alpha"))
	_, ok := tr.Slot("u1")
	assert.False(t, ok)
}

func TestTypingNoExpiryWhenDisabled(t *testing.T) {
	tr := NewTyping(0)
	current := time.Unix(1000, 0)
	tr.now = func() time.Time { return current }

	tr.Set("u1", "alpha")
	current = current.Add(24 * time.Hour)
	assert.Len(t, tr.ActiveIn("alpha"), 1)
}
