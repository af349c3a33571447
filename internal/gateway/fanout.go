package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/wonkchat/wonk/internal/domain"
	"github.com/wonkchat/wonk/internal/registry"
)

// NoExclude broadcasts to every member, sender included.
const NoExclude = domain.UserID("")

// Dispatcher fans one event out to the live connections of a room's
// members. Delivery is best effort: members without a live connection
// are skipped, and a dead connection never aborts delivery to the rest.
type Dispatcher struct {
	members *registry.Membership
	conns   *registry.Connections
}

func NewDispatcher(members *registry.Membership, conns *registry.Connections) *Dispatcher {
	return &Dispatcher{members: members, conns: conns}
}

// Broadcast pushes event to every member of room except exclude. The
// event is marshaled once so all recipients see an identical frame
// (including its timestamp). Returns the number of deliveries.
//
// Sends are non-blocking; a recipient whose transport errors or whose
// buffer is full is treated as dead and evicted from the connection
// registry, then delivery continues with the remaining members.
func (d *Dispatcher) Broadcast(room domain.RoomName, event any, exclude domain.UserID) int {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway.fanout").Msg("marshal event")
		return 0
	}

	sent := 0
	for _, id := range d.members.Members(room) {
		if id == exclude {
			continue
		}
		conn, ok := d.conns.Get(id)
		if !ok {
			// Offline member; not an error.
			continue
		}
		if err := conn.TrySend(data); err != nil {
			d.conns.Unregister(id, conn)
			log.Warn().Err(err).Str("module", "gateway.fanout").Str("user", string(id)).Str("room", string(room)).Msg("dropped dead connection")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "gateway.fanout").Str("room", string(room)).Int("sent", sent).Msg("broadcast")
	return sent
}

// BroadcastAll pushes a control event to every live connection.
func (d *Dispatcher) BroadcastAll(event any) int {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway.fanout").Msg("marshal event")
		return 0
	}
	sent := 0
	for _, conn := range d.conns.All() {
		if err := conn.TrySend(data); err != nil {
			continue
		}
		sent++
	}
	return sent
}
