package gateway

// Error is a client-visible failure carrying the stable numeric code
// used on the wire. All gateway errors map to HTTP 400; callers are
// expected to resync rather than retry blindly on state conflicts.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrInvalidBody    = &Error{Code: 101, Message: "Invalid body"}
	ErrMissingIDs     = &Error{Code: 102, Message: "Missing query string"}
	ErrInvalidContent = &Error{Code: 201, Message: "Invalid message content"}
	ErrInvalidName    = &Error{Code: 301, Message: "Invalid room name"}
	ErrAlreadyJoined  = &Error{Code: 302, Message: "Already joined this room"}
	ErrRoomNotFound   = &Error{Code: 303, Message: "Room doesn't exist"}
	ErrNotInRoomSend  = &Error{Code: 304, Message: "Cannot send a message in a room that you are not in"}
	ErrRoomExists     = &Error{Code: 305, Message: "Room already exist"}
	ErrNotInRoomLeave = &Error{Code: 306, Message: "Cannot leave a room that you are already not in"}
	ErrNotInRoomQuery = &Error{Code: 307, Message: "Cannot query info about a room that you are not in"}
	ErrBadSubscribe   = &Error{Code: 401, Message: "Invalid subscribe value"}
)
