// Package ratelimit implements a sliding-window rate limiter: at most N calls
// are admitted within any rolling window of the configured duration.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits up to MaxCalls calls per Window. The zero value is not
// usable; construct with New.
type Limiter struct {
	mu       sync.Mutex
	maxCalls int
	window   time.Duration
	calls    []time.Time
	now      func() time.Time
}

// New creates a limiter allowing maxCalls per window. maxCalls below 1 is
// treated as 1.
func New(maxCalls int, window time.Duration) *Limiter {
	if maxCalls < 1 {
		maxCalls = 1
	}
	return &Limiter{
		maxCalls: maxCalls,
		window:   window,
		calls:    make([]time.Time, 0, maxCalls),
		now:      time.Now,
	}
}

// Allow reports whether a call may proceed right now, recording it if so.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.prune(now)
	if len(l.calls) >= l.maxCalls {
		return false
	}
	l.calls = append(l.calls, now)
	return true
}

// Wait blocks until a slot is available or ctx is done. On success the call
// is recorded against the window.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)
		if len(l.calls) < l.maxCalls {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}
		// Oldest recorded call leaves the window first.
		wakeAt := l.calls[0].Add(l.window)
		l.mu.Unlock()

		wait := wakeAt.Sub(now)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Pending returns how many calls currently count against the window.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.calls)
}

// prune drops call records older than the window. Caller holds l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}
