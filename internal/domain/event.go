package domain

// Push events delivered on the live connection. Every frame carries an
// "event" discriminator; timestamps are wall-clock milliseconds assigned
// once per broadcast so all recipients see the same time.

const (
	EventUpdateMember = "updateMember"
	EventMessage      = "message"
	EventTyping       = "typing"
	EventUpdateUser   = "updateUser"
	EventRestart      = "restart"
)

const (
	MemberStateJoin  = "join"
	MemberStateLeave = "leave"
)

type UpdateMemberEvent struct {
	Event     string   `json:"event"`
	Room      RoomName `json:"room"`
	ID        UserID   `json:"id"`
	Timestamp int64    `json:"timestamp"`
	State     string   `json:"state"`
}

type MessageEvent struct {
	Event       string   `json:"event"`
	Author      Author   `json:"author"`
	Room        RoomName `json:"room"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments"`
	Timestamp   int64    `json:"timestamp"`
}

type TypingUser struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

type TypingEvent struct {
	Event  string     `json:"event"`
	Room   RoomName   `json:"room"`
	User   TypingUser `json:"user"`
	Typing bool       `json:"typing"`
}

// UpdateUserEvent notifies presence subscribers about a user's online
// state. User is omitted on offline notifications.
type UpdateUserEvent struct {
	Event   string        `json:"event"`
	ID      UserID        `json:"id"`
	User    *UserIdentity `json:"user,omitempty"`
	Offline bool          `json:"offline"`
}

// RestartEvent is a control frame forcing clients to resync from scratch.
type RestartEvent struct {
	Event string `json:"event"`
}
