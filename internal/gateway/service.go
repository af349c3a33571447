package gateway

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wonkchat/wonk/internal/domain"
	"github.com/wonkchat/wonk/internal/registry"
	"github.com/wonkchat/wonk/internal/store"
)

// Service orchestrates room operations: it validates input, mutates the
// membership registry and invokes the fanout dispatcher. Each operation
// is a single atomic membership mutation followed by a best-effort,
// non-transactional broadcast.
type Service struct {
	rooms    store.RoomStore
	users    store.UserStore
	members  *registry.Membership
	conns    *registry.Connections
	presence *registry.Presence
	typing   *registry.Typing
	fanout   *Dispatcher

	now func() int64
}

func NewService(
	rooms store.RoomStore,
	users store.UserStore,
	members *registry.Membership,
	conns *registry.Connections,
	presence *registry.Presence,
	typing *registry.Typing,
) *Service {
	return &Service{
		rooms:    rooms,
		users:    users,
		members:  members,
		conns:    conns,
		presence: presence,
		typing:   typing,
		fanout:   NewDispatcher(members, conns),
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

func (s *Service) CreateRoom(name, description string) error {
	if err := domain.ValidateRoomName(name); err != nil {
		return ErrInvalidName
	}
	if _, err := s.rooms.Create(domain.RoomName(name), description); err != nil {
		if errors.Is(err, store.ErrRoomExists) {
			return ErrRoomExists
		}
		return err
	}
	return nil
}

func (s *Service) JoinRoom(user domain.UserIdentity, name string) (*domain.Room, error) {
	if err := domain.ValidateRoomName(name); err != nil {
		return nil, ErrInvalidName
	}
	roomName := domain.RoomName(name)
	if s.members.IsMember(user.ID, roomName) {
		return nil, ErrAlreadyJoined
	}
	room, err := s.rooms.Get(roomName)
	if err != nil {
		return nil, ErrRoomNotFound
	}
	if err := s.members.Join(user.ID, roomName); err != nil {
		// Lost a race with a concurrent join of the same user.
		return nil, ErrAlreadyJoined
	}
	s.fanout.Broadcast(roomName, domain.UpdateMemberEvent{
		Event:     domain.EventUpdateMember,
		Room:      roomName,
		ID:        user.ID,
		Timestamp: s.now(),
		State:     domain.MemberStateJoin,
	}, user.ID)
	return room, nil
}

func (s *Service) LeaveRoom(user domain.UserIdentity, name string) error {
	roomName := domain.RoomName(name)
	if !s.members.IsMember(user.ID, roomName) {
		return ErrNotInRoomLeave
	}
	if _, err := s.rooms.Get(roomName); err != nil {
		return ErrRoomNotFound
	}
	if err := s.members.Leave(user.ID, roomName); err != nil {
		return ErrNotInRoomLeave
	}
	s.typing.ClearIn(user.ID, roomName)
	s.fanout.Broadcast(roomName, domain.UpdateMemberEvent{
		Event:     domain.EventUpdateMember,
		Room:      roomName,
		ID:        user.ID,
		Timestamp: s.now(),
		State:     domain.MemberStateLeave,
	}, user.ID)
	return nil
}

// SendMessage broadcasts to all members including the sender: unlike
// join/leave, the author receives its own message echo.
func (s *Service) SendMessage(user domain.UserIdentity, name, content string, attachments []string) error {
	if attachments == nil {
		return ErrInvalidBody
	}
	if err := domain.ValidateMessageContent(content); err != nil {
		return ErrInvalidContent
	}
	roomName := domain.RoomName(name)
	if !s.members.IsMember(user.ID, roomName) {
		return ErrNotInRoomSend
	}
	if _, err := s.rooms.Get(roomName); err != nil {
		return ErrRoomNotFound
	}
	s.fanout.Broadcast(roomName, domain.MessageEvent{
		Event:       domain.EventMessage,
		Author:      user.Author(),
		Room:        roomName,
		Content:     content,
		Attachments: attachments,
		Timestamp:   s.now(),
	}, NoExclude)
	return nil
}

func (s *Service) SetTyping(user domain.UserIdentity, name string, typing bool) error {
	roomName := domain.RoomName(name)
	if !s.members.IsMember(user.ID, roomName) {
		return ErrNotInRoomSend
	}
	if _, err := s.rooms.Get(roomName); err != nil {
		return ErrRoomNotFound
	}
	if typing {
		s.typing.Set(user.ID, roomName)
	} else {
		s.typing.ClearIn(user.ID, roomName)
	}
	s.fanout.Broadcast(roomName, domain.TypingEvent{
		Event:  domain.EventTyping,
		Room:   roomName,
		User:   domain.TypingUser{ID: user.ID, Username: user.Username},
		Typing: typing,
	}, user.ID)
	return nil
}

func (s *Service) ListMembers(user domain.UserIdentity, name string) ([]domain.UserID, error) {
	roomName := domain.RoomName(name)
	if !s.members.IsMember(user.ID, roomName) {
		return nil, ErrNotInRoomQuery
	}
	if _, err := s.rooms.Get(roomName); err != nil {
		return nil, ErrRoomNotFound
	}
	return s.members.Members(roomName), nil
}

// SyncRooms returns the rooms the user has joined, keyed by name. This
// is the server half of the client resync protocol.
func (s *Service) SyncRooms(user domain.UserIdentity) map[string]*domain.Room {
	out := make(map[string]*domain.Room)
	for _, name := range s.members.RoomsOf(user.ID) {
		room, err := s.rooms.Get(name)
		if err != nil {
			continue
		}
		out[string(name)] = room
	}
	return out
}

// UserView is the /users response shape: identity plus liveness.
type UserView struct {
	domain.UserIdentity
	Offline bool `json:"offline"`
}

// LookupUsers resolves ids to identities. Unknown ids are skipped.
// subscribe toggles the requester's presence subscription on each
// resolved target.
func (s *Service) LookupUsers(requester domain.UserID, ids []string, subscribe string) ([]UserView, error) {
	if len(ids) == 0 {
		return nil, ErrMissingIDs
	}
	if subscribe != "" && subscribe != "yes" && subscribe != "no" {
		return nil, ErrBadSubscribe
	}
	views := make([]UserView, 0, len(ids))
	for _, raw := range ids {
		id := domain.UserID(raw)
		user, err := s.users.Get(id)
		if err != nil {
			continue
		}
		switch subscribe {
		case "yes":
			s.presence.Subscribe(id, requester)
		case "no":
			s.presence.Unsubscribe(id, requester)
		}
		_, online := s.conns.Get(id)
		views = append(views, UserView{UserIdentity: user, Offline: !online})
	}
	return views, nil
}

// Connected binds conn as the user's live connection and notifies the
// user's presence subscribers. The displaced connection, if any, is
// returned so the transport layer can close it.
func (s *Service) Connected(user domain.UserIdentity, conn registry.Conn) registry.Conn {
	prev := s.conns.Register(user.ID, conn)
	s.notifyPresence(user.ID, &user, false)
	return prev
}

// Disconnected tears the session down: identity-checked unregister,
// typing slot cleared (with a typing=false broadcast if one was live),
// presence subscriptions dropped, offline notification to subscribers.
// A stale call from a superseded connection is a no-op.
func (s *Service) Disconnected(user domain.UserIdentity, conn registry.Conn) {
	if !s.conns.Unregister(user.ID, conn) {
		return
	}
	if room, ok := s.typing.Slot(user.ID); ok {
		s.typing.Clear(user.ID)
		s.fanout.Broadcast(room, domain.TypingEvent{
			Event:  domain.EventTyping,
			Room:   room,
			User:   domain.TypingUser{ID: user.ID, Username: user.Username},
			Typing: false,
		}, user.ID)
	}
	s.presence.DropSubscriber(user.ID)
	s.notifyPresence(user.ID, nil, true)
	log.Info().Str("module", "gateway").Str("user", string(user.ID)).Msg("session torn down")
}

// Restart forces every live client to resync from scratch.
func (s *Service) Restart() int {
	return s.fanout.BroadcastAll(domain.RestartEvent{Event: domain.EventRestart})
}

func (s *Service) notifyPresence(target domain.UserID, user *domain.UserIdentity, offline bool) {
	subs := s.presence.SubscribersOf(target)
	if len(subs) == 0 {
		return
	}
	data, err := json.Marshal(domain.UpdateUserEvent{
		Event:   domain.EventUpdateUser,
		ID:      target,
		User:    user,
		Offline: offline,
	})
	if err != nil {
		return
	}
	for _, sub := range subs {
		conn, ok := s.conns.Get(sub)
		if !ok {
			continue
		}
		_ = conn.TrySend(data)
	}
}
