package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrReadOnly indicates the backing store rejects mutations, e.g. a user
	// sourced from a read-only federation store.
	ErrReadOnly = errors.New("repository: read only store")
)
