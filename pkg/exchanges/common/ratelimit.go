package common

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"
)

// throttleFraction is the share of the weight budget after which signed
// requests pause until the window resets.
const throttleFraction = 0.9

// WeightTracker follows a venue's request-weight budget from response
// headers and holds callers back when the budget is nearly exhausted.
type WeightTracker struct {
	mu            sync.Mutex
	usedWeight    int
	limit         int
	lastReset     time.Time
	resetInterval time.Duration
}

// NewWeightTracker tracks a budget of limit weight per resetInterval, for
// example 1200 per minute on Binance spot.
func NewWeightTracker(limit int, resetInterval time.Duration) *WeightTracker {
	return &WeightTracker{
		limit:         limit,
		resetInterval: resetInterval,
		lastReset:     time.Now(),
	}
}

// UpdateFromHeader records the venue-reported used weight from a response
// header. Empty or malformed values are ignored.
func (wt *WeightTracker) UpdateFromHeader(headerValue string) {
	if headerValue == "" {
		return
	}
	weight, err := strconv.Atoi(headerValue)
	if err != nil {
		return
	}

	wt.mu.Lock()
	defer wt.mu.Unlock()
	wt.rollWindow()
	wt.usedWeight = weight

	if used := float64(wt.usedWeight) / float64(wt.limit); used >= throttleFraction {
		log.Printf("ratelimit: weight %d/%d, throttling until window reset", wt.usedWeight, wt.limit)
	}
}

// Throttle blocks until the weight budget has headroom or ctx is done. It
// returns immediately while usage stays under the throttle fraction.
func (wt *WeightTracker) Throttle(ctx context.Context) error {
	wt.mu.Lock()
	wt.rollWindow()
	wait := time.Duration(0)
	if float64(wt.usedWeight) >= float64(wt.limit)*throttleFraction {
		wait = time.Until(wt.lastReset.Add(wt.resetInterval))
	}
	wt.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		wt.mu.Lock()
		wt.usedWeight = 0
		wt.lastReset = time.Now()
		wt.mu.Unlock()
		return nil
	}
}

// rollWindow zeroes the counter once the venue's window has passed. Callers
// hold wt.mu.
func (wt *WeightTracker) rollWindow() {
	if time.Since(wt.lastReset) >= wt.resetInterval {
		wt.usedWeight = 0
		wt.lastReset = time.Now()
	}
}
