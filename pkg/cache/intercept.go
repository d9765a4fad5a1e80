package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Status is the cache-status indicator carried by every response produced
// through the interception layer, observable by callers (e.g. as the
// X-Cache response header).
type Status string

const (
	// StatusHit marks a payload served from the cache store.
	StatusHit Status = "HIT"

	// StatusMiss marks a payload produced by the handler; stored when the
	// endpoint is cacheable.
	StatusMiss Status = "MISS"

	// StatusBypass marks a payload produced with the cache skipped entirely
	// on explicit caller signal - no store read, no store write.
	StatusBypass Status = "BYPASS"
)

// Handler is an arbitrary operation producing a serializable payload for a
// logical endpoint. The interceptor treats it as opaque; any timeout around
// it is the caller's responsibility.
type Handler func(ctx context.Context) ([]byte, error)

// Result is a handler payload annotated with its cache status.
type Result struct {
	Data   []byte
	Status Status
}

// TTLSource yields the configured cache TTL for an endpoint identity.
// Implemented by *endpoints.Registry; ok false means "never cache".
type TTLSource interface {
	CacheTTL(category, name string) (time.Duration, bool)
}

// Entity describes the cache footprint of one entity type for invalidation:
// where its point reads live and which glob covers its list reads.
type Entity struct {
	// DetailCategory/DetailName identify the point-read endpoint.
	DetailCategory string
	DetailName     string

	// IDParam is the parameter name carrying the entity identifier.
	IDParam string

	// ListPattern is the glob clearing list-level reads for the type.
	ListPattern string

	// AllPattern is the broad glob covering the entire entity-type
	// namespace, used when no identifier is supplied.
	AllPattern string
}

// Interceptor transparently memoizes read-handler results, addressed by the
// endpoint's (category, name) identity plus its normalized parameters. TTL
// policy comes from the endpoint registry.
//
// Two concurrent misses for the same key may both invoke the handler; there
// is deliberately no single-flight deduplication.
type Interceptor struct {
	store  Store
	ttls   TTLSource
	logger zerolog.Logger
}

// NewInterceptor creates an interception layer over the given store.
func NewInterceptor(store Store, ttls TTLSource, logger zerolog.Logger) *Interceptor {
	return &Interceptor{
		store:  store,
		ttls:   ttls,
		logger: logger,
	}
}

// Do runs a read through the cache.
//
// With bypass set, the handler runs and the store is neither read nor
// written. Otherwise a hit short-circuits with the stored payload; a miss
// invokes the handler and stores its result under the endpoint's configured
// TTL (skipped for endpoints whose TTL is absent, annotated MISS either
// way). Handler errors are returned without touching the store.
func (i *Interceptor) Do(ctx context.Context, category, name string, params map[string]string, bypass bool, handler Handler) (Result, error) {
	prefix := category + ":" + name
	key := Key(prefix, params)

	if bypass {
		data, err := handler(ctx)
		if err != nil {
			return Result{}, err
		}
		CacheBypasses.WithLabelValues(prefix).Inc()
		i.logger.Debug().Str("key", key).Msg("Cache bypassed")
		return Result{Data: data, Status: StatusBypass}, nil
	}

	if data, ok := i.store.Get(ctx, key); ok {
		CacheHits.WithLabelValues(prefix).Inc()
		i.logger.Debug().Str("key", key).Msg("Cache hit")
		return Result{Data: data, Status: StatusHit}, nil
	}

	data, err := handler(ctx)
	if err != nil {
		return Result{}, err
	}

	if ttl, ok := i.ttls.CacheTTL(category, name); ok {
		i.store.Set(ctx, key, data, ttl)
		i.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached handler result")
	}

	CacheMisses.WithLabelValues(prefix).Inc()
	return Result{Data: data, Status: StatusMiss}, nil
}

// Invalidate removes the single cached entry for an endpoint identity and
// parameter set.
func (i *Interceptor) Invalidate(ctx context.Context, category, name string, params map[string]string) bool {
	return i.store.Delete(ctx, Key(category+":"+name, params))
}

// InvalidatePattern clears every cached key matching the glob pattern.
func (i *Interceptor) InvalidatePattern(ctx context.Context, pattern string) {
	i.store.ClearPattern(ctx, pattern)
}

// InvalidateEntity reacts to a mutation on one entity: the point-read key
// for id is deleted and the list-level namespace is cleared, so both point
// reads and list reads observe the change. With an empty id it degrades to
// clearing the entire entity-type namespace.
func (i *Interceptor) InvalidateEntity(ctx context.Context, e Entity, id string) {
	CacheInvalidations.WithLabelValues(e.DetailCategory).Inc()

	if id == "" {
		i.store.ClearPattern(ctx, e.AllPattern)
		i.logger.Debug().Str("pattern", e.AllPattern).Msg("Entity namespace invalidated")
		return
	}

	key := Key(e.DetailCategory+":"+e.DetailName, map[string]string{e.IDParam: id})
	i.store.Delete(ctx, key)
	i.store.ClearPattern(ctx, e.ListPattern)

	i.logger.Debug().
		Str("key", key).
		Str("pattern", e.ListPattern).
		Msg("Entity invalidated")
}
