// Package ratelimit implements sliding-window admission control, one
// independent window per user.
//
// The limiter keeps a log of admitted-request timestamps per user and lazily
// purges entries older than the window on every check. Burst tolerance is
// exactly Limit requests per rolling Period, per user.
package ratelimit

import (
	"sync"
	"time"
)

// Default limits applied when the config leaves them unset.
const (
	DefaultLimit  = 5
	DefaultPeriod = 60 * time.Second
)

// MinRetryAfter is the floor for the reported wait so a rejection never
// advertises a zero or negative delay.
const MinRetryAfter = time.Second

// Limiter is a per-user sliding-window rate limiter.
// It is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	log    map[string][]time.Time
	limit  int
	period time.Duration

	now func() time.Time
}

// Config configures a Limiter.
type Config struct {
	// Limit is the maximum admitted requests per window. Default: 5.
	Limit int

	// Period is the rolling window length. Default: 60s.
	Period time.Duration
}

// NewLimiter creates a sliding-window limiter.
func NewLimiter(cfg Config) *Limiter {
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	period := cfg.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Limiter{
		log:    make(map[string][]time.Time),
		limit:  limit,
		period: period,
		now:    time.Now,
	}
}

// CheckAndRecord decides admission for one request from userID.
//
// Timestamps older than the window are purged first. If the surviving count
// has reached the limit the request is rejected and retryAfter reports how
// long until the oldest surviving timestamp leaves the window (at least
// MinRetryAfter). Otherwise the current time is recorded and the request is
// admitted with retryAfter zero. Always returns a definite decision.
func (l *Limiter) CheckAndRecord(userID string) (admitted bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.period)

	entries := l.log[userID]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.log[userID] = kept
		wait := kept[0].Add(l.period).Sub(now)
		if wait < MinRetryAfter {
			wait = MinRetryAfter
		}
		return false, wait
	}

	l.log[userID] = append(kept, now)
	return true, 0
}

// Pending returns the number of timestamps currently inside userID's window.
func (l *Limiter) Pending(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.period)
	count := 0
	for _, ts := range l.log[userID] {
		if ts.After(cutoff) {
			count++
		}
	}
	return count
}

// Reset drops the request log for userID.
func (l *Limiter) Reset(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.log, userID)
}
