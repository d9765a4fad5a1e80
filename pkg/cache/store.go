package cache

import (
	"context"
	"time"
)

// Store is the capability set shared by all cache backings: a process-local
// in-memory store and an optional shared Redis store implement the identical
// contract, including glob-based pattern clearing. Callers pick a backing
// once at construction time and stay agnostic to which one is active.
type Store interface {
	// Get retrieves a value by key. ok is false if the key was never set,
	// was deleted, or has expired. A read error from a shared backing is
	// reported as a miss so the caller falls through to its handler.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key with expiry now+ttl, unconditionally
	// overwriting any existing entry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete removes an entry, reporting whether one existed.
	Delete(ctx context.Context, key string) bool

	// Clear removes all entries unconditionally.
	Clear(ctx context.Context)

	// ClearPattern removes every stored key matching a simple glob where
	// '*' matches any substring. Keys not matching are untouched.
	ClearPattern(ctx context.Context, pattern string)
}
