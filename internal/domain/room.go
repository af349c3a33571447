package domain

import (
	"errors"
	"regexp"
)

const (
	MinRoomNameLen = 3
	MaxRoomNameLen = 16
)

var ErrRoomNameInvalid = errors.New("invalid room name")

var roomNameRe = regexp.MustCompile(`^[a-z0-9_]+$`)

type RoomName string

type Room struct {
	Name        RoomName `json:"name"`
	Description string   `json:"description"`
}

// ValidateRoomName enforces the wire rule for room names:
// 3-16 characters, lowercase alphanumerics and underscores.
func ValidateRoomName(name string) error {
	if len(name) < MinRoomNameLen || len(name) > MaxRoomNameLen {
		return ErrRoomNameInvalid
	}
	if !roomNameRe.MatchString(name) {
		return ErrRoomNameInvalid
	}
	return nil
}
