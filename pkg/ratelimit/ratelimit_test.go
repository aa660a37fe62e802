package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(limit int, period time.Duration) (*Limiter, *fakeClock) {
	clock := newFakeClock()
	l := NewLimiter(Config{Limit: limit, Period: period})
	l.now = clock.Now
	return l, clock
}

func TestAdmitsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		admitted, retryAfter := l.CheckAndRecord("alice")
		assert.True(t, admitted, "request %d should be admitted", i+1)
		assert.Zero(t, retryAfter)
	}

	admitted, retryAfter := l.CheckAndRecord("alice")
	assert.False(t, admitted)
	assert.GreaterOrEqual(t, retryAfter, MinRetryAfter)
}

func TestRetryAfterTracksOldestEntry(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute)

	l.CheckAndRecord("alice")
	clock.Advance(10 * time.Second)
	l.CheckAndRecord("alice")
	l.CheckAndRecord("alice")

	// Window is full. The oldest entry is 10s old, so the wait is the
	// remaining 50s of its window.
	admitted, retryAfter := l.CheckAndRecord("alice")
	require.False(t, admitted)
	assert.Equal(t, 50*time.Second, retryAfter)

	clock.Advance(20 * time.Second)
	admitted, retryAfter = l.CheckAndRecord("alice")
	require.False(t, admitted)
	assert.Equal(t, 30*time.Second, retryAfter)
}

func TestWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	admitted, _ := l.CheckAndRecord("alice")
	require.True(t, admitted)
	admitted, _ = l.CheckAndRecord("alice")
	require.True(t, admitted)
	admitted, _ = l.CheckAndRecord("alice")
	require.False(t, admitted)

	clock.Advance(61 * time.Second)

	admitted, retryAfter := l.CheckAndRecord("alice")
	assert.True(t, admitted)
	assert.Zero(t, retryAfter)
	assert.Equal(t, 1, l.Pending("alice"))
}

func TestRejectionDoesNotConsume(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	l.CheckAndRecord("alice")
	l.CheckAndRecord("alice")

	// Rejected attempts must not extend the window.
	for i := 0; i < 10; i++ {
		admitted, _ := l.CheckAndRecord("alice")
		require.False(t, admitted)
	}
	assert.Equal(t, 2, l.Pending("alice"))

	clock.Advance(61 * time.Second)
	admitted, _ := l.CheckAndRecord("alice")
	assert.True(t, admitted)
}

func TestUsersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	admitted, _ := l.CheckAndRecord("alice")
	require.True(t, admitted)
	admitted, _ = l.CheckAndRecord("alice")
	require.False(t, admitted)

	admitted, _ = l.CheckAndRecord("bob")
	assert.True(t, admitted, "bob's window is not affected by alice")
}

func TestMinRetryAfterFloor(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)

	l.CheckAndRecord("alice")
	clock.Advance(time.Minute - 100*time.Millisecond)

	admitted, retryAfter := l.CheckAndRecord("alice")
	require.False(t, admitted)
	assert.Equal(t, MinRetryAfter, retryAfter)
}

func TestReset(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	l.CheckAndRecord("alice")
	admitted, _ := l.CheckAndRecord("alice")
	require.False(t, admitted)

	l.Reset("alice")

	admitted, _ = l.CheckAndRecord("alice")
	assert.True(t, admitted)
}

func TestDefaults(t *testing.T) {
	l := NewLimiter(Config{})
	assert.Equal(t, DefaultLimit, l.limit)
	assert.Equal(t, DefaultPeriod, l.period)
}

func TestConcurrentChecks(t *testing.T) {
	l, _ := newTestLimiter(100, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admittedCount := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", id%4)
			for j := 0; j < 50; j++ {
				if admitted, _ := l.CheckAndRecord(userID); admitted {
					mu.Lock()
					admittedCount++
					mu.Unlock()
				}
			}
		}(i)
	}
	wg.Wait()

	// 4 users, 250 attempts each, limit 100: exactly 100 admitted per user.
	assert.Equal(t, 400, admittedCount)
	for i := 0; i < 4; i++ {
		assert.Equal(t, 100, l.Pending(fmt.Sprintf("user-%d", i)))
	}
}
