package gateway

import (
	"sync"
	"time"
)

// CircuitBreakerState records the process-wide provider cooldown. A single
// instance is shared by every caller of the gateway.
type CircuitBreakerState struct {
	mu           sync.Mutex
	blockedUntil time.Time
	now          func() time.Time
}

// NewCircuitBreakerState constructs an open-for-traffic breaker using the wall clock.
func NewCircuitBreakerState() *CircuitBreakerState {
	return NewCircuitBreakerStateWithClock(time.Now)
}

// NewCircuitBreakerStateWithClock allows tests to control time.
func NewCircuitBreakerStateWithClock(now func() time.Time) *CircuitBreakerState {
	if now == nil {
		now = time.Now
	}
	return &CircuitBreakerState{now: now}
}

// Allow reports whether a call may proceed. When blocked it also returns the
// remaining cooldown.
func (s *CircuitBreakerState) Allow() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Before(s.blockedUntil) {
		return s.blockedUntil.Sub(now), false
	}
	return 0, true
}

// Trip extends the cooldown to now+cooldown unless it already ends later.
// It returns the effective blockedUntil.
func (s *CircuitBreakerState) Trip(cooldown time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	candidate := s.now().Add(cooldown)
	if candidate.After(s.blockedUntil) {
		s.blockedUntil = candidate
	}
	return s.blockedUntil
}

// BlockedUntil returns the current cooldown deadline (zero when never tripped).
func (s *CircuitBreakerState) BlockedUntil() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blockedUntil
}

// Now exposes the breaker clock so the gateway reports consistent timestamps.
func (s *CircuitBreakerState) Now() time.Time {
	return s.now()
}
