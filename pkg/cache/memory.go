package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore is the mandatory process-local Store backed by ttlcache.
// Entries carry per-entry expiry; an expired entry is logically absent on
// Get even if still physically present, and reads purge what they observe
// as expired (lazy eviction).
type MemoryStore struct {
	cache *ttlcache.Cache[string, []byte]
}

// NewMemoryStore creates an in-memory store. Touch-on-hit is disabled so a
// read never extends an entry's lifetime.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: ttlcache.New(
			ttlcache.WithDisableTouchOnHit[string, []byte](),
		),
	}
}

// Get retrieves a value if present and not expired.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	item := s.cache.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Set stores value with expiry now+ttl, overwriting unconditionally.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	s.cache.Set(key, value, ttl)
}

// Delete removes an entry, reporting whether a live entry existed.
func (s *MemoryStore) Delete(_ context.Context, key string) bool {
	existed := s.cache.Get(key) != nil
	s.cache.Delete(key)
	return existed
}

// Clear removes all entries.
func (s *MemoryStore) Clear(_ context.Context) {
	s.cache.DeleteAll()
}

// ClearPattern removes every currently stored key matching the glob,
// scanning keys as stored. Expired-but-unpurged entries are removed by the
// same scan when they match.
func (s *MemoryStore) ClearPattern(_ context.Context, pattern string) {
	for _, key := range s.cache.Keys() {
		if matchGlob(pattern, key) {
			s.cache.Delete(key)
		}
	}
}
