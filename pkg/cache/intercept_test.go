package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// ttlMap is a TTLSource backed by a plain map for tests.
type ttlMap map[string]time.Duration

func (m ttlMap) CacheTTL(category, name string) (time.Duration, bool) {
	ttl, ok := m[category+":"+name]
	return ttl, ok
}

func newTestInterceptor() (*Interceptor, Store) {
	store := NewMemoryStore()
	ttls := ttlMap{
		"issues:list":  300 * time.Second,
		"issue:detail": 600 * time.Second,
	}
	return NewInterceptor(store, ttls, zerolog.Nop()), store
}

func countingHandler(calls *int, payload string) Handler {
	return func(ctx context.Context) ([]byte, error) {
		*calls++
		return []byte(payload), nil
	}
}

func TestInterceptor_MissThenHit(t *testing.T) {
	icpt, _ := newTestInterceptor()
	ctx := context.Background()
	params := map[string]string{"organization_slug": "acme", "project_slug": "web"}

	calls := 0
	handler := countingHandler(&calls, `[{"id": 1}]`)

	// First call: fresh key yields MISS and populates the store.
	result, err := icpt.Do(ctx, "issues", "list", params, false, handler)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if result.Status != StatusMiss {
		t.Errorf("first Status = %s, want MISS", result.Status)
	}
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}

	// Second call: identical key yields HIT without re-invoking the handler.
	result, err = icpt.Do(ctx, "issues", "list", params, false, handler)
	if err != nil {
		t.Fatalf("Do (second) failed: %v", err)
	}
	if result.Status != StatusHit {
		t.Errorf("second Status = %s, want HIT", result.Status)
	}
	if string(result.Data) != `[{"id": 1}]` {
		t.Errorf("cached Data = %s", result.Data)
	}
	if calls != 1 {
		t.Errorf("handler calls after hit = %d, want 1", calls)
	}
}

func TestInterceptor_Bypass(t *testing.T) {
	icpt, store := newTestInterceptor()
	ctx := context.Background()
	params := map[string]string{"organization_slug": "acme", "project_slug": "web"}

	// Seed the store; bypass must not read it.
	key := Key("issues:list", params)
	store.Set(ctx, key, []byte("stale"), time.Minute)

	calls := 0
	result, err := icpt.Do(ctx, "issues", "list", params, true, countingHandler(&calls, "fresh"))
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if result.Status != StatusBypass {
		t.Errorf("Status = %s, want BYPASS", result.Status)
	}
	if string(result.Data) != "fresh" {
		t.Errorf("Data = %s, want fresh (handler result, not cache)", result.Data)
	}
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}

	// Bypass performs no store write either - the seeded value survives.
	data, ok := store.Get(ctx, key)
	if !ok || string(data) != "stale" {
		t.Errorf("store after bypass = %s %v, want stale true", data, ok)
	}
}

func TestInterceptor_UncacheableEndpoint(t *testing.T) {
	icpt, store := newTestInterceptor()
	ctx := context.Background()

	calls := 0
	handler := countingHandler(&calls, "v")

	// alerts/rules has no TTL configured: MISS both times, nothing stored.
	for i := 0; i < 2; i++ {
		result, err := icpt.Do(ctx, "alerts", "rules", nil, false, handler)
		if err != nil {
			t.Fatalf("Do failed: %v", err)
		}
		if result.Status != StatusMiss {
			t.Errorf("Status = %s, want MISS", result.Status)
		}
	}
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
	if _, ok := store.Get(ctx, "alerts:rules"); ok {
		t.Error("uncacheable endpoint was stored")
	}
}

func TestInterceptor_HandlerError(t *testing.T) {
	icpt, store := newTestInterceptor()
	ctx := context.Background()

	wantErr := errors.New("upstream exploded")
	_, err := icpt.Do(ctx, "issues", "list", nil, false, func(ctx context.Context) ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Do error = %v, want %v", err, wantErr)
	}

	if _, ok := store.Get(ctx, "issues:list"); ok {
		t.Error("failed handler result was stored")
	}
}

func TestInterceptor_ParamNormalization(t *testing.T) {
	icpt, _ := newTestInterceptor()
	ctx := context.Background()

	calls := 0
	handler := countingHandler(&calls, "v")

	// An absent/empty parameter is omitted from the key, so these two
	// parameter sets address the same entry.
	if _, err := icpt.Do(ctx, "issues", "list", map[string]string{"a": "1", "b": ""}, false, handler); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	result, err := icpt.Do(ctx, "issues", "list", map[string]string{"a": "1"}, false, handler)
	if err != nil {
		t.Fatalf("Do (second) failed: %v", err)
	}
	if result.Status != StatusHit {
		t.Errorf("Status = %s, want HIT (keys should normalize identically)", result.Status)
	}
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}
}

var issueEntity = Entity{
	DetailCategory: "issue",
	DetailName:     "detail",
	IDParam:        "issue_id",
	ListPattern:    "issues:list*",
	AllPattern:     "issue*",
}

func TestInterceptor_InvalidateEntity(t *testing.T) {
	icpt, store := newTestInterceptor()
	ctx := context.Background()

	detailKey := Key("issue:detail", map[string]string{"issue_id": "42"})
	otherDetailKey := Key("issue:detail", map[string]string{"issue_id": "7"})
	listKey := Key("issues:list", map[string]string{"project_slug": "web"})

	store.Set(ctx, detailKey, []byte("d42"), time.Minute)
	store.Set(ctx, otherDetailKey, []byte("d7"), time.Minute)
	store.Set(ctx, listKey, []byte("l"), time.Minute)
	store.Set(ctx, "projects:list", []byte("p"), time.Minute)

	icpt.InvalidateEntity(ctx, issueEntity, "42")

	if _, ok := store.Get(ctx, detailKey); ok {
		t.Error("point-read key for mutated entity survived")
	}
	if _, ok := store.Get(ctx, listKey); ok {
		t.Error("list-level key survived entity invalidation")
	}
	if _, ok := store.Get(ctx, otherDetailKey); !ok {
		t.Error("unrelated entity's point-read key was removed")
	}
	if _, ok := store.Get(ctx, "projects:list"); !ok {
		t.Error("unrelated namespace was removed")
	}
}

func TestInterceptor_InvalidateEntity_NoID(t *testing.T) {
	icpt, store := newTestInterceptor()
	ctx := context.Background()

	store.Set(ctx, Key("issue:detail", map[string]string{"issue_id": "42"}), []byte("d"), time.Minute)
	store.Set(ctx, "issues:list:a=1", []byte("l"), time.Minute)
	store.Set(ctx, "projects:list", []byte("p"), time.Minute)

	// Without an id, invalidation degrades to the whole entity namespace.
	icpt.InvalidateEntity(ctx, issueEntity, "")

	if _, ok := store.Get(ctx, "issue:detail:issue_id=42"); ok {
		t.Error("detail key survived namespace invalidation")
	}
	if _, ok := store.Get(ctx, "issues:list:a=1"); ok {
		t.Error("list key survived namespace invalidation")
	}
	if _, ok := store.Get(ctx, "projects:list"); !ok {
		t.Error("unrelated namespace was removed")
	}
}
