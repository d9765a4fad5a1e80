package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisKeyPrefix namespaces cache entries inside the shared Redis database
// so Clear never touches unrelated keys (rate limit state lives alongside).
const redisKeyPrefix = "bff:cache:"

// RedisStore is the optional shared Store backed by Redis. It honors the
// same contract as MemoryStore, including glob-based pattern clearing via
// SCAN. Expiry is delegated to Redis TTLs.
//
// Store errors are never fatal to callers: a failed read degrades to a
// cache miss and a failed write is logged and dropped.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed cache store.
func NewRedisStore(client *redis.Client, logger zerolog.Logger) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		client: client,
		logger: logger,
	}
}

// Get retrieves a value by key. Read errors are reported as misses so the
// caller falls through to its handler.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			CacheErrors.WithLabelValues("get").Inc()
			s.logger.Warn().Err(err).Str("key", key).Msg("Redis get failed, treating as miss")
		}
		return nil, false
	}
	return data, true
}

// Set stores value with the given TTL. Write errors are logged and dropped.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Redis set failed, entry dropped")
	}
}

// Delete removes an entry, reporting whether one existed.
func (s *RedisStore) Delete(ctx context.Context, key string) bool {
	removed, err := s.client.Del(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Redis delete failed")
		return false
	}
	return removed > 0
}

// Clear removes every cache entry in the store's namespace.
func (s *RedisStore) Clear(ctx context.Context) {
	s.scanDelete(ctx, redisKeyPrefix+"*")
}

// ClearPattern removes every key matching the glob. Only '*' is a wildcard;
// the other SCAN MATCH metacharacters are escaped so keys containing '?' or
// '[' match literally, as they do in the in-memory store.
func (s *RedisStore) ClearPattern(ctx context.Context, pattern string) {
	s.scanDelete(ctx, redisKeyPrefix+escapeMatchPattern(pattern))
}

// escapeMatchPattern escapes the Redis glob metacharacters other than '*'.
func escapeMatchPattern(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern))
	for _, r := range pattern {
		switch r {
		case '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// scanDelete iterates matching keys with SCAN and deletes them in batches.
func (s *RedisStore) scanDelete(ctx context.Context, match string) {
	iter := s.client.Scan(ctx, 0, match, 100).Iterator()

	batch := make([]string, 0, 100)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			CacheErrors.WithLabelValues("clear").Inc()
			s.logger.Warn().Err(err).Int("keys", len(batch)).Msg("Redis batch delete failed")
		}
		batch = batch[:0]
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			flush()
		}
	}
	flush()

	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("clear").Inc()
		s.logger.Warn().Err(err).Str("match", match).Msg("Redis scan failed")
	}
}
