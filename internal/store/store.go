// Package store holds the persistence seams of the gateway. Room and
// user lifecycle is owned here; the gateway only creates and reads.
package store

import (
	"errors"

	"github.com/wonkchat/wonk/internal/domain"
)

var (
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not found")
)

type RoomStore interface {
	Create(name domain.RoomName, description string) (*domain.Room, error)
	Get(name domain.RoomName) (*domain.Room, error)
}

type UserStore interface {
	Put(user domain.UserIdentity)
	Get(id domain.UserID) (domain.UserIdentity, error)
}
