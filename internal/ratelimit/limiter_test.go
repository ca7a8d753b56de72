package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowsUpToMax(t *testing.T) {
	l := New(5, time.Minute)

	for i := 0; i < 5; i++ {
		d := l.Allow("client-a")
		assert.True(t, d.Allowed, "call %d should be allowed", i+1)
		assert.Equal(t, 5-(i+1), d.Remaining)
	}

	d := l.Allow("client-a")
	assert.False(t, d.Allowed, "call 6 must be denied")
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New(1, time.Minute)

	assert.True(t, l.Allow("client-a").Allowed)
	assert.False(t, l.Allow("client-a").Allowed)
	assert.True(t, l.Allow("client-b").Allowed)
}

func TestLimiter_WindowReset(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(2, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("k").Allowed)
	assert.True(t, l.Allow("k").Allowed)

	denied := l.Allow("k")
	assert.False(t, denied.Allowed)
	assert.Equal(t, time.Minute, denied.RetryAfter)

	// Advance past the window: counter and window start reset with the
	// check itself.
	now = now.Add(time.Minute + time.Second)
	after := l.Allow("k")
	assert.True(t, after.Allowed)
	assert.Equal(t, 1, after.Remaining)
}

func TestLimiter_ConcurrentCheckAndIncrement(t *testing.T) {
	const max = 10
	const callers = 100

	l := New(max, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Exactly max admitted, never max+1: the check and increment are
	// one critical section.
	assert.Equal(t, max, allowed)
}

func TestLimiter_SweepDropsExpiredEntries(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	assert.Len(t, l.entries, 2)

	now = now.Add(2 * time.Minute)
	l.Sweep()
	assert.Len(t, l.entries, 0)
}
