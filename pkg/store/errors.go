package store

import "errors"

// Sentinel errors returned by the record and program stores.
// Explicit errors instead of nil, nil returns so callers can't confuse
// "not found" with "found but empty".
var (
	ErrNotFound      = errors.New("store: key not found")
	ErrAlreadyExists = errors.New("store: key already exists")
)
