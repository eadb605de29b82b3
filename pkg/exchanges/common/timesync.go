package common

import (
	"log"
	"sync"
	"time"
)

// resyncInterval bounds how long a measured clock offset is trusted before
// signed requests trigger a fresh measurement.
const resyncInterval = 30 * time.Minute

// TimeSync tracks the offset between the local clock and a venue's server
// clock so signed request timestamps stay inside the venue's recv window.
type TimeSync struct {
	getServerTime func() (int64, error)

	mu       sync.RWMutex
	offset   int64 // server minus local, milliseconds
	lastSync time.Time
}

// NewTimeSync returns an unsynced tracker; the first Sync establishes the
// offset.
func NewTimeSync(getServerTime func() (int64, error)) *TimeSync {
	return &TimeSync{getServerTime: getServerTime}
}

// Sync measures the clock offset against the venue, assuming symmetric
// network latency.
func (ts *TimeSync) Sync() error {
	localBefore := time.Now().UnixMilli()
	serverTime, err := ts.getServerTime()
	if err != nil {
		return err
	}
	localAfter := time.Now().UnixMilli()
	local := localBefore + (localAfter-localBefore)/2

	ts.mu.Lock()
	ts.offset = serverTime - local
	ts.lastSync = time.Now()
	ts.mu.Unlock()

	log.Printf("timesync: offset=%dms server=%d local=%d", serverTime-local, serverTime, local)
	return nil
}

// Stale reports whether the offset is older than the resync interval.
// Callers resync before signing when this returns true.
func (ts *TimeSync) Stale() bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return time.Since(ts.lastSync) > resyncInterval
}

// Now returns the current time in venue milliseconds.
func (ts *TimeSync) Now() int64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return time.Now().UnixMilli() + ts.offset
}

// Offset returns the last measured offset in milliseconds.
func (ts *TimeSync) Offset() int64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.offset
}
