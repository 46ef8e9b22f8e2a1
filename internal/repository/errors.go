// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them onto HTTP status codes. For example, ErrNotFound becomes a 404
// while ErrConflict signals that a state-machine precondition was
// violated and becomes a 409.
package repository

import "errors"

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an update cannot be performed because
// the record is no longer in the expected state, such as validating an
// observation that has already been decided. Handlers should translate
// this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrNameExists is returned when a species name is already taken.
var ErrNameExists = errors.New("species name already exists")

// ErrEmailExists is returned when a user email is already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrUsernameExists is returned when a username is already registered.
var ErrUsernameExists = errors.New("username already exists")
