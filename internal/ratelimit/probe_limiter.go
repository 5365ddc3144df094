package ratelimit

import (
	"math/rand"
	"sync"
	"time"
)

// ProbeLimiter paces candidate-tab probes against the publisher. It caps
// concurrent in-flight requests and enforces a jittered minimum gap
// between request starts so a burst of dashboard sessions cannot hammer
// the source.
type ProbeLimiter struct {
	maxInFlight     int
	currentInFlight int
	baseDelay       time.Duration
	jitter          time.Duration
	lastRequest     time.Time
	mu              sync.Mutex
}

// NewProbeLimiter creates a probe limiter. A zero baseDelay disables
// pacing and only the in-flight cap applies.
func NewProbeLimiter(maxInFlight int, baseDelay, jitter time.Duration) *ProbeLimiter {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &ProbeLimiter{
		maxInFlight: maxInFlight,
		baseDelay:   baseDelay,
		jitter:      jitter,
	}
}

// Acquire waits until it's safe to start another probe.
func (pl *ProbeLimiter) Acquire() {
	pl.mu.Lock()

	for pl.currentInFlight >= pl.maxInFlight {
		pl.mu.Unlock()
		time.Sleep(50 * time.Millisecond)
		pl.mu.Lock()
	}

	if pl.baseDelay > 0 {
		required := pl.baseDelay
		if pl.jitter > 0 {
			required += time.Duration(rand.Int63n(int64(pl.jitter)))
		}
		if elapsed := time.Since(pl.lastRequest); elapsed < required {
			time.Sleep(required - elapsed)
		}
	}

	pl.currentInFlight++
	pl.lastRequest = time.Now()
	pl.mu.Unlock()
}

// Release marks a probe as completed.
func (pl *ProbeLimiter) Release() {
	pl.mu.Lock()
	pl.currentInFlight--
	pl.mu.Unlock()
}

// GetInFlight returns the current in-flight probe count.
func (pl *ProbeLimiter) GetInFlight() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.currentInFlight
}
