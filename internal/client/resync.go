package client

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
)

// Resync rebuilds the local room and member caches from the server,
// ignoring anything cached before the call: fetch the set of joined
// rooms, then each room's member list. Running it twice with no
// server-side change yields an identical cache both times.
func (c *Controller) Resync(ctx context.Context) error {
	var syncRes struct {
		Rooms map[string]struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"rooms"`
	}
	if err := c.get(ctx, "/api/sync/client", &syncRes); err != nil {
		return err
	}

	fresh := make(map[string]RoomSnapshot, len(syncRes.Rooms))
	for name, info := range syncRes.Rooms {
		members, err := c.fetchMembers(ctx, name)
		if err != nil {
			return err
		}
		fresh[name] = RoomSnapshot{
			Name:        info.Name,
			Description: info.Description,
			Members:     members,
		}
	}

	c.mu.Lock()
	c.rooms = fresh
	c.mu.Unlock()
	log.Info().Str("module", "client").Int("rooms", len(fresh)).Msg("resynced")
	return nil
}

func (c *Controller) fetchMembers(ctx context.Context, room string) ([]string, error) {
	var res struct {
		Members []string `json:"members"`
	}
	if err := c.get(ctx, "/api/rooms/"+room+"/members", &res); err != nil {
		return nil, err
	}
	// Membership is a set; keep the cache order-stable.
	sort.Strings(res.Members)
	return res.Members, nil
}
