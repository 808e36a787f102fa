package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrExists is returned when an insert violates a uniqueness constraint.
var ErrExists = errors.New("already exists")
