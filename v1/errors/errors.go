package errors

import "errors"

var (
	// ErrNotFound is returned when a key does not exist or has expired.
	ErrNotFound = errors.New("hoard: not found")
	// ErrInvalidMaxSize is returned for a negative maximum size.
	ErrInvalidMaxSize = errors.New("hoard: maxsize must be greater than or equal to 0")
	// ErrInvalidTTL is returned for a negative TTL.
	ErrInvalidTTL = errors.New("hoard: ttl must be greater than or equal to 0")
	// ErrNilTimer is returned when a nil timer function is configured.
	ErrNilTimer = errors.New("hoard: timer must not be nil")
	// ErrImmutableStrategy is returned when reconfiguration attempts to
	// change the eviction strategy of a live cache.
	ErrImmutableStrategy = errors.New("hoard: eviction strategy cannot be reconfigured")
)
