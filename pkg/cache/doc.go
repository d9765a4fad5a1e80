// Package cache provides TTL-based response caching with pattern
// invalidation for the BFF gateway.
//
// The package has two halves: a Store - a key/value store with per-entry
// expiry, implemented in-process (MemoryStore) or shared via Redis
// (RedisStore) behind the identical five-operation contract - and an
// Interceptor that memoizes read-handler results keyed by endpoint identity
// plus normalized parameters.
//
// # Store Selection
//
// The backing store is chosen once at construction:
//
//	var store cache.Store = cache.NewMemoryStore()
//	if redisClient != nil {
//		store = cache.NewRedisStore(redisClient, logger)
//	}
//
// # Interception
//
//	icpt := cache.NewInterceptor(store, registry, logger)
//
//	result, err := icpt.Do(ctx, "issues", "list", params, bypass,
//		func(ctx context.Context) ([]byte, error) {
//			return upstreamClient.Get(ctx, "issues", "list", params, nil)
//		})
//	// result.Status is HIT, MISS, or BYPASS
//
// Every payload is annotated with its cache status so the HTTP layer can
// surface it as the X-Cache response header.
//
// # Invalidation
//
// Mutations invalidate by key or by glob pattern ('*' = any substring):
//
//	icpt.InvalidateEntity(ctx, issueEntity, "1234")
//	icpt.InvalidatePattern(ctx, "issues:*")
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - bff_cache_hits_total{endpoint} - Cache hits
//   - bff_cache_misses_total{endpoint} - Cache misses
//   - bff_cache_bypasses_total{endpoint} - Cache bypasses
//   - bff_cache_invalidations_total{entity} - Entity invalidations
//   - bff_cache_errors_total{operation} - Backing store errors
package cache
