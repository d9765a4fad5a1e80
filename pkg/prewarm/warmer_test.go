package prewarm

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/crashlens/tracker-bff/pkg/cache"
)

type fakeFetcher struct {
	calls    atomic.Int32
	failName string
}

func (f *fakeFetcher) Get(ctx context.Context, category, name string, params map[string]string, query url.Values) ([]byte, error) {
	f.calls.Add(1)
	if name == f.failName {
		return nil, errors.New("upstream down")
	}
	return []byte(`{"from":"` + category + ":" + name + `"}`), nil
}

type ttlMap map[string]time.Duration

func (m ttlMap) CacheTTL(category, name string) (time.Duration, bool) {
	d, ok := m[category+":"+name]
	return d, ok
}

func newTestWarmer(t *testing.T, fetcher *fakeFetcher) (*Warmer, cache.Store) {
	t.Helper()

	store := cache.NewMemoryStore()
	ttls := ttlMap{
		"issues:list":  5 * time.Minute,
		"issue:detail": 10 * time.Minute,
	}
	interceptor := cache.NewInterceptor(store, ttls, zerolog.Nop())

	config := DefaultConfig()
	config.MaxConcurrency = 2

	return NewWarmer(fetcher, interceptor, config, zerolog.Nop()), store
}

func TestWarmer_PopulatesCache(t *testing.T) {
	fetcher := &fakeFetcher{}
	warmer, store := newTestWarmer(t, fetcher)

	targets := []Target{
		{Category: "issues", Name: "list", Params: map[string]string{"organization_slug": "acme", "project_slug": "backend"}},
		{Category: "issue", Name: "detail", Params: map[string]string{"issue_id": "42"}},
	}

	result := warmer.Warm(context.Background(), targets)
	if result.Warmed != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v, want 2 warmed 0 failed", result)
	}

	key := cache.Key("issue:detail", map[string]string{"issue_id": "42"})
	if _, ok := store.Get(context.Background(), key); !ok {
		t.Error("warmed entry not present in store")
	}
}

func TestWarmer_SecondPassHits(t *testing.T) {
	fetcher := &fakeFetcher{}
	warmer, _ := newTestWarmer(t, fetcher)

	targets := []Target{
		{Category: "issue", Name: "detail", Params: map[string]string{"issue_id": "7"}},
	}

	warmer.Warm(context.Background(), targets)
	result := warmer.Warm(context.Background(), targets)

	if result.Hits != 1 || result.Warmed != 0 {
		t.Errorf("second pass result = %+v, want 1 hit 0 warmed", result)
	}
	if fetcher.calls.Load() != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.calls.Load())
	}
}

func TestWarmer_QueryJoinsCacheKey(t *testing.T) {
	fetcher := &fakeFetcher{}
	warmer, store := newTestWarmer(t, fetcher)

	params := map[string]string{"organization_slug": "acme", "project_slug": "backend"}
	targets := []Target{
		{Category: "issues", Name: "list", Params: params, Query: url.Values{"query": {"is:unresolved"}}},
		{Category: "issues", Name: "list", Params: params, Query: url.Values{"query": {"is:resolved"}}},
	}

	result := warmer.Warm(context.Background(), targets)
	if result.Warmed != 2 {
		t.Fatalf("Warmed = %d, want 2 (distinct queries are distinct entries)", result.Warmed)
	}

	// The warmed keys carry the query, matching what the serving path
	// computes for the same request.
	key := cache.Key("issues:list", map[string]string{
		"organization_slug": "acme",
		"project_slug":      "backend",
		"query":             "is:unresolved",
	})
	if _, ok := store.Get(context.Background(), key); !ok {
		t.Error("entry for queried target missing under query-qualified key")
	}

	// A second pass hits both entries without refetching.
	result = warmer.Warm(context.Background(), targets)
	if result.Hits != 2 || fetcher.calls.Load() != 2 {
		t.Errorf("second pass = %+v with %d fetches, want 2 hits 2 fetches", result, fetcher.calls.Load())
	}
}

func TestWarmer_FailuresDoNotAbort(t *testing.T) {
	fetcher := &fakeFetcher{failName: "list"}
	warmer, _ := newTestWarmer(t, fetcher)

	targets := []Target{
		{Category: "issues", Name: "list", Params: map[string]string{"organization_slug": "acme", "project_slug": "backend"}},
		{Category: "issue", Name: "detail", Params: map[string]string{"issue_id": "42"}},
	}

	result := warmer.Warm(context.Background(), targets)
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
	if result.Warmed != 1 {
		t.Errorf("Warmed = %d, want 1 (other targets still warmed)", result.Warmed)
	}
}

func TestWarmer_ContextCancelled(t *testing.T) {
	fetcher := &fakeFetcher{}
	warmer, _ := newTestWarmer(t, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	targets := make([]Target, 20)
	for i := range targets {
		targets[i] = Target{Category: "issue", Name: "detail", Params: map[string]string{"issue_id": "1"}}
	}

	// Workers observe cancellation and drain without fetching everything.
	result := warmer.Warm(ctx, targets)
	if result.Warmed == 20 {
		t.Error("all targets warmed despite cancelled context")
	}
}
