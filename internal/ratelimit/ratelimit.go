package ratelimit

import (
	"sync"
	"time"
)

// APILimiter enforces sliding-window limits on report requests. Each
// report request can fan out into dozens of upstream probes, so the API
// edge is where the volume gets capped.
type APILimiter struct {
	requestsPerMinute int
	requestsPerHour   int
	enabled           bool

	minuteWindow []time.Time
	hourWindow   []time.Time
	mu           sync.Mutex
}

// NewAPILimiter creates a limiter with the given per-minute and per-hour caps.
func NewAPILimiter(requestsPerMinute, requestsPerHour int, enabled bool) *APILimiter {
	return &APILimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		enabled:           enabled,
	}
}

// AllowRequest records and admits a request unless a window is full.
func (rl *APILimiter) AllowRequest() bool {
	if !rl.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.cleanup(now)

	if rl.requestsPerMinute > 0 && len(rl.minuteWindow) >= rl.requestsPerMinute {
		return false
	}
	if rl.requestsPerHour > 0 && len(rl.hourWindow) >= rl.requestsPerHour {
		return false
	}

	rl.minuteWindow = append(rl.minuteWindow, now)
	rl.hourWindow = append(rl.hourWindow, now)
	return true
}

func (rl *APILimiter) cleanup(now time.Time) {
	rl.minuteWindow = filterTimes(rl.minuteWindow, now.Add(-1*time.Minute))
	rl.hourWindow = filterTimes(rl.hourWindow, now.Add(-1*time.Hour))
}

func filterTimes(times []time.Time, cutoff time.Time) []time.Time {
	result := make([]time.Time, 0, len(times))
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}

// Stats contains rate limiter statistics
type Stats struct {
	Enabled            bool `json:"enabled"`
	RequestsLastMinute int  `json:"requests_last_minute"`
	RequestsLastHour   int  `json:"requests_last_hour"`
	LimitPerMinute     int  `json:"limit_per_minute"`
	LimitPerHour       int  `json:"limit_per_hour"`
	RemainingMinute    int  `json:"remaining_this_minute"`
	RemainingHour      int  `json:"remaining_this_hour"`
}

// GetStats returns current rate limiter statistics
func (rl *APILimiter) GetStats() Stats {
	if !rl.enabled {
		return Stats{Enabled: false}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanup(time.Now())
	return Stats{
		Enabled:            true,
		RequestsLastMinute: len(rl.minuteWindow),
		RequestsLastHour:   len(rl.hourWindow),
		LimitPerMinute:     rl.requestsPerMinute,
		LimitPerHour:       rl.requestsPerHour,
		RemainingMinute:    max(0, rl.requestsPerMinute-len(rl.minuteWindow)),
		RemainingHour:      max(0, rl.requestsPerHour-len(rl.hourWindow)),
	}
}

// Reset clears all tracked requests (useful for testing)
func (rl *APILimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.minuteWindow = nil
	rl.hourWindow = nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
