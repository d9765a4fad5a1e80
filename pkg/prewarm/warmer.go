// Package prewarm populates the cache ahead of demand using a worker pool.
package prewarm

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/crashlens/tracker-bff/pkg/cache"
)

// Config holds warmer configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel upstream fetches.
	MaxConcurrency int
	// Timeout per target fetch.
	Timeout time.Duration
}

// DefaultConfig returns safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// Fetcher fetches one endpoint's payload from the upstream tracker.
// *upstream.Client satisfies this.
type Fetcher interface {
	Get(ctx context.Context, category, name string, params map[string]string, query url.Values) ([]byte, error)
}

// Target identifies one cacheable request to warm.
type Target struct {
	Category string
	Name     string
	Params   map[string]string
	Query    url.Values
}

// keyParams folds the query into the path parameters so warmed entries land
// under the same cache key the serving path computes for that query.
func (t Target) keyParams() map[string]string {
	if len(t.Query) == 0 {
		return t.Params
	}
	merged := make(map[string]string, len(t.Params)+len(t.Query))
	for k, v := range t.Params {
		merged[k] = v
	}
	for k, vals := range t.Query {
		merged[k] = strings.Join(vals, ",")
	}
	return merged
}

// Result summarizes one completed warming run.
type Result struct {
	Warmed  int // targets fetched and written to the cache
	Hits    int // targets already cached, no fetch needed
	Failed  int
	Elapsed time.Duration
}

// Warmer runs cache warming passes over a fixed target list.
type Warmer struct {
	fetcher     Fetcher
	interceptor *cache.Interceptor
	config      Config
	logger      zerolog.Logger
}

// NewWarmer creates a new warmer.
func NewWarmer(fetcher Fetcher, interceptor *cache.Interceptor, config Config, logger zerolog.Logger) *Warmer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Warmer{
		fetcher:     fetcher,
		interceptor: interceptor,
		config:      config,
		logger:      logger.With().Str("component", "prewarm").Logger(),
	}
}

// Warm fetches every target through the cache interceptor so misses are
// stored with the endpoint's configured TTL. Failures are logged and counted
// but never abort the run; the remaining targets still get warmed.
func (w *Warmer) Warm(ctx context.Context, targets []Target) Result {
	start := time.Now()

	w.logger.Info().
		Int("targets", len(targets)).
		Int("concurrency", w.config.MaxConcurrency).
		Msg("Starting cache warming pass")

	queue := make(chan Target, len(targets))
	for _, target := range targets {
		queue <- target
	}
	close(queue)

	var mu sync.Mutex
	var result Result

	var wg sync.WaitGroup
	for i := 0; i < w.config.MaxConcurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.worker(ctx, workerID, queue, &mu, &result)
		}(i)
	}
	wg.Wait()

	result.Elapsed = time.Since(start)

	w.logger.Info().
		Int("warmed", result.Warmed).
		Int("hits", result.Hits).
		Int("failed", result.Failed).
		Dur("elapsed", result.Elapsed).
		Msg("Cache warming pass complete")

	return result
}

// Run warms the targets once immediately and then on every interval tick
// until the context is cancelled. Intended to run in its own goroutine.
func (w *Warmer) Run(ctx context.Context, targets []Target, interval time.Duration) {
	w.Warm(ctx, targets)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Cache warming stopped")
			return
		case <-ticker.C:
			w.Warm(ctx, targets)
		}
	}
}

func (w *Warmer) worker(ctx context.Context, workerID int, queue <-chan Target, mu *sync.Mutex, result *Result) {
	for target := range queue {
		select {
		case <-ctx.Done():
			w.logger.Debug().
				Int("worker_id", workerID).
				Msg("Warming worker stopping (context cancelled)")
			return
		default:
		}

		targetCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
		res, err := w.interceptor.Do(targetCtx, target.Category, target.Name, target.keyParams(), false, func(ctx context.Context) ([]byte, error) {
			return w.fetcher.Get(ctx, target.Category, target.Name, target.Params, target.Query)
		})
		cancel()

		mu.Lock()
		switch {
		case err != nil:
			result.Failed++
			mu.Unlock()
			w.logger.Warn().
				Err(err).
				Str("category", target.Category).
				Str("name", target.Name).
				Msg("Warming target failed")
			continue
		case res.Status == cache.StatusHit:
			result.Hits++
		default:
			result.Warmed++
		}
		mu.Unlock()
	}
}
