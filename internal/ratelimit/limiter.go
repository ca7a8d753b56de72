package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a process-local fixed-window counter. Check and increment
// happen under one lock so two concurrent requests for the same key can
// never both slip past the threshold.
type Limiter struct {
	mu          sync.Mutex
	entries     map[string]*entry
	maxRequests int
	window      time.Duration

	now func() time.Time // injectable clock for tests
}

type entry struct {
	count       int
	windowStart time.Time
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	// RetryAfter is meaningful only when Allowed is false.
	RetryAfter time.Duration
}

func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		entries:     make(map[string]*entry),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow performs the atomic check-and-increment for the key. An elapsed
// window resets count and window start in the same critical section as
// the check.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= l.window {
		e = &entry{count: 0, windowStart: now}
		l.entries[key] = e
	}

	resetAt := e.windowStart.Add(l.window)

	if e.count >= l.maxRequests {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}
	}

	e.count++
	return Decision{
		Allowed:   true,
		Remaining: l.maxRequests - e.count,
		ResetAt:   resetAt,
	}
}

// Sweep drops entries whose window has elapsed. Called periodically so
// the map does not grow with one entry per client forever.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.entries {
		if now.Sub(e.windowStart) >= l.window {
			delete(l.entries, key)
		}
	}
}

// StartJanitor runs Sweep on the given interval until stop is closed.
func (l *Limiter) StartJanitor(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}
