package authkit

import (
	"sync"
	"time"
)

type limiterEntry struct {
	attempts    []time.Time
	lockedUntil time.Time
}

// RateLimiter tracks failed attempts per key over a sliding window and
// enforces a lockout once the cap is reached. It is in-memory and
// process-local; per-key state is guarded by a single mutex, which is the
// only high-frequency mutable state in the engine.
//
// MaxAttempts=0 is a valid configuration meaning unconditional lockout:
// every key is locked, nothing gets through.
type RateLimiter struct {
	cfg RateLimitConfig
	mu  sync.Mutex
	m   map[string]*limiterEntry
	now func() time.Time
}

// NewRateLimiter creates a limiter from validated config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg: cfg,
		m:   make(map[string]*limiterEntry),
		now: time.Now,
	}
}

// WithClock replaces the limiter's clock. Test hook.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

// RecordAttempt registers a failed attempt for the key. Reaching the cap
// starts the lockout window.
func (l *RateLimiter) RecordAttempt(key string) {
	if l.cfg.MaxAttempts <= 0 {
		return
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.m[key]
	if !ok {
		e = &limiterEntry{}
		l.m[key] = e
	}
	e.attempts = pruneBefore(e.attempts, now.Add(-l.cfg.Window))
	e.attempts = append(e.attempts, now)
	if len(e.attempts) >= l.cfg.MaxAttempts {
		e.lockedUntil = now.Add(l.cfg.LockoutDuration)
	}
}

// IsLockedOut reports whether the key is inside a lockout window. An
// elapsed lockout clears the key's state.
func (l *RateLimiter) IsLockedOut(key string) bool {
	if l.cfg.MaxAttempts <= 0 {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.m[key]
	if !ok {
		return false
	}
	if !e.lockedUntil.IsZero() {
		if now.Before(e.lockedUntil) {
			return true
		}
		delete(l.m, key)
		return false
	}
	e.attempts = pruneBefore(e.attempts, now.Add(-l.cfg.Window))
	if len(e.attempts) == 0 {
		delete(l.m, key)
	}
	return false
}

// RemainingAttempts returns how many failures the key has left before
// lockout, never negative.
func (l *RateLimiter) RemainingAttempts(key string) int {
	if l.cfg.MaxAttempts <= 0 {
		return 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.m[key]
	if !ok {
		return l.cfg.MaxAttempts
	}
	if !e.lockedUntil.IsZero() && now.Before(e.lockedUntil) {
		return 0
	}
	e.attempts = pruneBefore(e.attempts, now.Add(-l.cfg.Window))
	remaining := l.cfg.MaxAttempts - len(e.attempts)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears all state for the key. Called on successful authentication.
func (l *RateLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.m, key)
	l.mu.Unlock()
}

func pruneBefore(attempts []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(attempts) && !attempts[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return attempts
	}
	return append(attempts[:0], attempts[idx:]...)
}
