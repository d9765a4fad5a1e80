// Package ratelimit implements upstream rate limit tracking and request
// gating. It monitors the X-RateLimit-Remaining and X-RateLimit-Reset
// headers returned by the issue tracker so the gateway backs off before the
// upstream starts rejecting requests.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage. State is shared across gateway
// replicas so all of them observe the same upstream budget.
const (
	RedisKeyRemaining      = "bff:rate_limit:remaining"
	RedisKeyResetTimestamp = "bff:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "bff:rate_limit:last_update"
)

// Thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks all upstream requests when the remaining
	// budget falls below this value.
	ThresholdCritical = 5

	// ThresholdWarning applies throttling when the remaining budget falls
	// below this value.
	ThresholdWarning = 20

	// ThresholdHealthy indicates normal operation. At or above this value
	// no restrictions apply.
	ThresholdHealthy = 50
)

// State represents the current upstream rate limit state.
type State struct {
	// Remaining is the number of requests left in the current window,
	// extracted from the X-RateLimit-Remaining header.
	Remaining int `json:"remaining"`

	// ResetAt is the timestamp when the window resets, calculated from the
	// X-RateLimit-Reset header (seconds until reset).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last refreshed from headers.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *State) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical
}

// NeedsThrottling returns true if requests should be throttled.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field from the current Remaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
