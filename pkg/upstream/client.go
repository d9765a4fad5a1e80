// Package upstream provides the HTTP client for the third-party issue
// tracker, with registry-based URL resolution, rate limiting, retries, and
// error classification. The gateway core never performs HTTP calls itself;
// everything that talks to the tracker goes through this client.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/crashlens/tracker-bff/pkg/endpoints"
	"github.com/crashlens/tracker-bff/pkg/ratelimit"
)

// Prometheus metrics for upstream requests.
var (
	bffRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bff_upstream_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	bffRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bff_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	bffErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bff_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// Client performs HTTP requests against the issue tracker.
type Client struct {
	httpClient  *http.Client
	registry    *endpoints.Registry
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Registry resolves (category, name) pairs into upstream URLs.
	Registry *endpoints.Registry

	// Redis client for shared rate limit state (optional).
	Redis *redis.Client

	// AuthToken is the bearer token for the tracker API.
	AuthToken string

	// UserAgent header sent on every request.
	UserAgent string

	// Timeout per HTTP request.
	Timeout time.Duration

	// Retry behavior for retriable error classes.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(registry *endpoints.Registry, authToken string) Config {
	return Config{
		Registry:  registry,
		AuthToken: authToken,
		UserAgent: "tracker-bff/1.0",
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// New creates a new upstream client.
func New(cfg Config) (*Client, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("endpoint registry is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger := log.With().Str("component", "upstream-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		registry:    cfg.Registry,
		rateLimiter: ratelimit.NewTracker(cfg.Redis, logger),
		config:      cfg,
		logger:      logger,
	}, nil
}

// Get performs a read against a registry endpoint and returns the response
// body.
func (c *Client) Get(ctx context.Context, category, name string, params map[string]string, query url.Values) ([]byte, error) {
	return c.Do(ctx, category, name, params, query, nil)
}

// Do resolves the endpoint through the registry and performs the request
// with the endpoint's configured method. A non-nil body is sent as JSON.
//
// The request is gated by the rate limit tracker, retried with exponential
// backoff for retriable error classes, and surfaces failures as *Error.
func (c *Client) Do(ctx context.Context, category, name string, params map[string]string, query url.Values, body []byte) ([]byte, error) {
	ep, ok := c.registry.GetEndpoint(category, name)
	if !ok {
		return nil, &endpoints.UnknownEndpointError{Category: category, Name: name}
	}

	fullURL, err := c.registry.ResolveFullURL(category, name, params)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}

	endpointLabel := category + ":" + name
	startTime := time.Now()
	defer func() {
		bffRequestDuration.WithLabelValues(endpointLabel).Observe(time.Since(startTime).Seconds())
	}()

	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpointLabel).
			Msg("Request blocked by rate limiter")
		bffRequestsTotal.WithLabelValues(endpointLabel, "rate_limited").Inc()
		return nil, ErrRateLimitBlocked
	}

	c.logger.Debug().
		Str("endpoint", endpointLabel).
		Str("method", ep.Method).
		Str("url", fullURL).
		Msg("Executing upstream request")

	var payload []byte
	retryErr := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		return c.attempt(ctx, ep.Method, fullURL, endpointLabel, body, &payload)
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return payload, nil
}

// attempt performs one HTTP exchange. The request is rebuilt per attempt so
// the body reader is fresh on retries.
func (c *Client) attempt(ctx context.Context, method, fullURL, endpointLabel string, body []byte, payload *[]byte) error {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return &Error{
			ErrorClass: ErrorClassClient,
			Endpoint:   endpointLabel,
			Message:    "build request",
			Err:        err,
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpointLabel).Msg("HTTP request failed")
		bffErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		bffRequestsTotal.WithLabelValues(endpointLabel, "network_error").Inc()
		return &Error{
			ErrorClass: ErrorClassNetwork,
			Endpoint:   endpointLabel,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		bffErrorsTotal.WithLabelValues(string(errClass)).Inc()
		bffRequestsTotal.WithLabelValues(endpointLabel, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		c.logger.Warn().
			Str("endpoint", endpointLabel).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Upstream request error")

		return &Error{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Endpoint:   endpointLabel,
			Message:    resp.Status,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		bffErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return &Error{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Endpoint:   endpointLabel,
			Message:    "read response body",
			Err:        err,
		}
	}

	bffRequestsTotal.WithLabelValues(endpointLabel, fmt.Sprintf("%d", resp.StatusCode)).Inc()
	*payload = data
	return nil
}

// classifyStatus categorizes an HTTP error status for observability and
// retry decisions.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
