package port

import (
	"context"
	"time"
)

// Cache is the key-value contract the app programs against. The identity
// directory uses it to keep participant profile lookups off the hot path;
// nothing here knows about Redis.
//
// Values travel as strings so the port stays free of serialization choices.
// Implementations must be safe for concurrent use, and every call takes a
// context so callers control timeouts.
type Cache interface {
	// Get returns the value stored at key. A missing key is reported as
	// ("", ErrMiss); a non-nil error otherwise means the backend itself
	// failed.
	Get(ctx context.Context, key string) (string, error)

	// Set writes value at key, expiring after ttl. A ttl of zero or less
	// keeps the entry until the backend evicts it.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes the given keys and reports how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection pool.
	Close() error
}

// ErrMiss is the typed miss signal adapters return from Get, so callers can
// tell an absent key apart from a broken backend.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
