package store

import "errors"

// ErrNotFound is returned when a row does not exist or an update matched
// nothing.
var ErrNotFound = errors.New("not found")
