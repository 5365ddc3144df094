package sheets

import (
	"log"
	"sync"
	"time"
)

// CircuitBreaker halts probing when the publisher starts failing hard.
// Candidate misses (404) never count here; only server errors and
// throttling responses do, since those indicate the source is down or
// rate limiting us and further probing just digs the hole deeper.
type CircuitBreaker struct {
	resetTimeout time.Duration

	failures            int
	successes           int
	totalRequests       int
	consecutiveFailures int
	isOpen              bool
	lastFailureTime     time.Time

	mutex sync.Mutex
}

// NewCircuitBreaker creates a breaker that stays open for resetTimeout.
func NewCircuitBreaker(resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{resetTimeout: resetTimeout}
}

// RecordSuccess records a successful fetch.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.successes++
	cb.totalRequests++
	cb.consecutiveFailures = 0
}

// RecordFailure records a failed fetch (5xx, 429, 403, network error).
func (cb *CircuitBreaker) RecordFailure(statusCode int) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.consecutiveFailures++
	cb.totalRequests++
	cb.lastFailureTime = time.Now()

	// Throttling responses open the breaker after 3 in a row.
	if cb.consecutiveFailures >= 3 && (statusCode == 429 || statusCode == 403) {
		cb.isOpen = true
		log.Printf("[Breaker] OPEN: %d consecutive %d responses from publisher, pausing probes for %v",
			cb.consecutiveFailures, statusCode, cb.resetTimeout)
		return
	}

	// Sustained failure rate over a 20-request window.
	if cb.totalRequests >= 20 {
		failureRate := float64(cb.failures) / float64(cb.totalRequests)
		if failureRate >= 0.50 {
			cb.isOpen = true
			log.Printf("[Breaker] OPEN: failure rate %.1f%% (%d/%d), pausing probes for %v",
				failureRate*100, cb.failures, cb.totalRequests, cb.resetTimeout)
		}
	}
}

// CanProceed checks if fetches are allowed.
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}

	if time.Since(cb.lastFailureTime) > cb.resetTimeout {
		log.Printf("[Breaker] half-open after %v, resuming probes", cb.resetTimeout)
		cb.isOpen = false
		cb.failures = 0
		cb.successes = 0
		cb.totalRequests = 0
		cb.consecutiveFailures = 0
		return true
	}

	return false
}

// GetStatus returns current circuit breaker status
func (cb *CircuitBreaker) GetStatus() (isOpen bool, failures int, total int) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.isOpen, cb.failures, cb.totalRequests
}
