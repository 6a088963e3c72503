// Package breaker tracks consecutive upstream failures and decides whether
// calls should be short-circuited.
//
// There is no scheduled OPEN -> CLOSED transition: the circuit is open
// exactly while now < openUntil, and every caller re-evaluates that
// predicate with its own clock reading.
package breaker

import (
	"sync"
	"time"

	"github.com/aura-edu/aura/pkg/models"
)

// Breaker is a failure-counting circuit breaker. It is safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	openUntil time.Time
}

// New creates a closed Breaker that opens for cooldown after threshold
// consecutive failures. A threshold below 1 is treated as 1.
func New(threshold int, cooldown time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{threshold: threshold, cooldown: cooldown}
}

// IsOpen reports whether the circuit is open at now.
func (b *Breaker) IsOpen(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Before(b.openUntil)
}

// RecordSuccess resets the consecutive failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	b.failures = 0
	b.mu.Unlock()
}

// RecordFailure counts a failed call. When the counter reaches the threshold
// the circuit opens until now+cooldown, the counter resets, and the returned
// instant is the new openUntil.
func (b *Breaker) RecordFailure(now time.Time) (opened bool, until time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures < b.threshold {
		return false, time.Time{}
	}
	b.failures = 0
	b.openUntil = now.Add(b.cooldown)
	return true, b.openUntil
}

// Status returns a snapshot of the circuit at now.
func (b *Breaker) Status(now time.Time) models.CircuitStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := models.CircuitStatus{
		Open:     now.Before(b.openUntil),
		Failures: b.failures,
	}
	if st.Open {
		st.OpenUntil = b.openUntil
	}
	return st
}
