// Package client owns the single logical session against a chat
// server: it drives the reconnect state machine, keeps a local
// room/member cache and replays the resync protocol after every
// (re)connection.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wonkchat/wonk/internal/domain"
)

type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
	StateReconnecting
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateReconnecting:
		return "reconnecting"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

var (
	// ErrDestroyed marks the terminal state: reconnect attempts are
	// exhausted and only a fresh session can recover.
	ErrDestroyed = errors.New("session destroyed")
	// ErrChatLocked rejects outgoing messages while disconnected.
	ErrChatLocked = errors.New("chat is locked while disconnected")
)

const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 3 * time.Second
)

type Options struct {
	// MaxAttempts is the number of consecutive failed connection
	// attempts tolerated before the session is destroyed.
	MaxAttempts int
	RetryDelay  time.Duration
}

// RoomSnapshot is the client-side cache entry for a joined room.
type RoomSnapshot struct {
	Name        string
	Description string
	Members     []string
}

type Controller struct {
	baseURL string
	wsURL   string
	httpc   *http.Client
	dialer  *websocket.Dialer
	opts    Options

	onEvent func(data []byte)
	onState func(s State)

	mu       sync.Mutex
	state    State
	attempts int
	canSend  bool
	rooms    map[string]RoomSnapshot
}

func New(baseURL string, opts Options) (*Controller, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	ws := *u
	switch u.Scheme {
	case "https":
		ws.Scheme = "wss"
	default:
		ws.Scheme = "ws"
	}
	ws.Path = "/api/gateway"

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Controller{
		baseURL: u.String(),
		wsURL:   ws.String(),
		httpc:   &http.Client{Jar: jar},
		dialer:  websocket.DefaultDialer,
		opts:    opts,
		state:   StateConnecting,
		rooms:   make(map[string]RoomSnapshot),
	}, nil
}

// OnEvent registers a callback for every inbound push frame. Must be
// set before Run.
func (c *Controller) OnEvent(fn func(data []byte)) { c.onEvent = fn }

// OnState registers a callback for state transitions. Must be set
// before Run.
func (c *Controller) OnState(fn func(s State)) { c.onState = fn }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Rooms returns a copy of the local room cache.
func (c *Controller) Rooms() map[string]RoomSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]RoomSnapshot, len(c.rooms))
	for name, snap := range c.rooms {
		members := make([]string, len(snap.Members))
		copy(members, snap.Members)
		snap.Members = members
		out[name] = snap
	}
	return out
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.onState != nil {
		c.onState(s)
	}
}

// Run drives the connection until ctx is cancelled or reconnect
// attempts are exhausted. At most one connection attempt or resync is
// in flight at a time. Calling Run on a destroyed controller is a
// no-op returning ErrDestroyed.
func (c *Controller) Run(ctx context.Context) error {
	if c.State() == StateDestroyed {
		return ErrDestroyed
	}
	for {
		c.setState(StateConnecting)
		ws, err := c.dial(ctx)
		if err == nil {
			c.mu.Lock()
			c.attempts = 0
			c.canSend = true
			c.mu.Unlock()
			c.setState(StateOpen)
			// Full resync: never trust state cached before the drop.
			if err := c.Resync(ctx); err != nil {
				log.Warn().Err(err).Str("module", "client").Msg("resync after open failed")
			}
			c.readLoop(ctx, ws)
		} else {
			log.Warn().Err(err).Str("module", "client").Msg("connect failed")
		}

		c.mu.Lock()
		c.canSend = false
		c.mu.Unlock()
		c.setState(StateClosed)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.mu.Lock()
		c.attempts++
		exhausted := c.attempts >= c.opts.MaxAttempts
		c.mu.Unlock()
		if exhausted {
			c.setState(StateDestroyed)
			log.Error().Str("module", "client").Int("attempts", c.opts.MaxAttempts).Msg("reconnect attempts exhausted")
			return ErrDestroyed
		}

		c.setState(StateReconnecting)
		timer := time.NewTimer(c.opts.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Controller) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if u, err := url.Parse(c.baseURL); err == nil {
		for _, ck := range c.httpc.Jar.Cookies(u) {
			header.Add("Cookie", ck.String())
		}
	}
	ws, resp, err := c.dialer.DialContext(ctx, c.wsURL, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	return ws, err
}

func (c *Controller) readLoop(ctx context.Context, ws *websocket.Conn) {
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.Close()
		case <-stop:
		}
	}()
	defer close(stop)
	defer ws.Close()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			log.Info().Err(err).Str("module", "client").Msg("connection dropped")
			return
		}
		c.handleEvent(ctx, data)
	}
}

func (c *Controller) handleEvent(ctx context.Context, data []byte) {
	var env struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "client").Msg("bad push frame")
		return
	}
	switch env.Event {
	case domain.EventRestart:
		// Server-forced resync, treated like a fresh open.
		if err := c.Resync(ctx); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("resync after restart failed")
		}
	case domain.EventUpdateMember:
		var ev domain.UpdateMemberEvent
		if err := json.Unmarshal(data, &ev); err == nil {
			c.applyMemberUpdate(ev)
		}
	}
	if c.onEvent != nil {
		c.onEvent(data)
	}
}

func (c *Controller) applyMemberUpdate(ev domain.UpdateMemberEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.rooms[string(ev.Room)]
	if !ok {
		return
	}
	id := string(ev.ID)
	switch ev.State {
	case domain.MemberStateJoin:
		for _, m := range snap.Members {
			if m == id {
				return
			}
		}
		snap.Members = append(snap.Members, id)
	case domain.MemberStateLeave:
		members := snap.Members[:0]
		for _, m := range snap.Members {
			if m != id {
				members = append(members, m)
			}
		}
		snap.Members = members
	}
	c.rooms[string(ev.Room)] = snap
}
