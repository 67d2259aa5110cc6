// Package repository implements data access over the relational store.
// Lookups report "not found" as (nil, nil) rather than an error; a
// non-nil error always means the store itself failed. Sentinel values
// let handlers translate constraint violations into specific responses.
package repository

import (
	"errors"
	"strings"
)

// ErrUsernameExists is returned when a user insert collides with the
// unique key on users.username. Handlers never see this directly; the
// username-available validator catches the race before it matters in
// practice, and the handler maps it to a validation error otherwise.
var ErrUsernameExists = errors.New("username already exists")

// ErrEventExists is returned when an event insert or rename collides
// with the unique key on events.slug.
var ErrEventExists = errors.New("event already exists")

// ErrAlreadyRegistered is returned when a signup collides with the
// unique key on registrations (user_id, event_id). One registration per
// user per event. Handlers translate this into an HTTP 409 response.
var ErrAlreadyRegistered = errors.New("already registered")

// isDuplicate reports whether err is a MySQL duplicate-key violation
// (error 1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
