// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"regexp"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 16
)

var (
	ErrUsernameInvalid = errors.New("invalid username")
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type UserID string

// UserIdentity is issued by the credential service and is immutable
// for the lifetime of a session.
type UserIdentity struct {
	ID            UserID `json:"id"`
	Username      string `json:"username"`
	Discriminator int    `json:"discriminator"`
	Color         string `json:"color"`
}

// Author is the identity subset attached to message events.
type Author struct {
	Username      string `json:"username"`
	Color         string `json:"color"`
	Discriminator int    `json:"discriminator"`
}

func (u UserIdentity) Author() Author {
	return Author{
		Username:      u.Username,
		Color:         u.Color,
		Discriminator: u.Discriminator,
	}
}

func ValidateUsername(name string) error {
	if len(name) < MinUsernameLen || len(name) > MaxUsernameLen {
		return ErrUsernameInvalid
	}
	if !usernameRe.MatchString(name) {
		return ErrUsernameInvalid
	}
	return nil
}
