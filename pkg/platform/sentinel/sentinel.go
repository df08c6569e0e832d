package sentinel

import "errors"

// Dependency errors. Stores and caches return these (optionally wrapped) so that
// services translate them into domain errors exactly once.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("unavailable")
	// ErrCacheMiss is returned by caches and never escapes the cached source.
	ErrCacheMiss = errors.New("cache miss")
)
