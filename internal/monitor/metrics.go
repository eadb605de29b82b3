// Package monitor tracks runtime counters and latency histograms for the
// trading core.
package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks overall system performance.
type Metrics struct {
	// Latency histograms
	APILatency      *LatencyHistogram
	ExchangeLatency *LatencyHistogram

	// Counters
	apiRequests      uint64
	apiErrors        uint64
	ordersExecuted   uint64
	ordersRejected   uint64
	signalsGenerated uint64
	ticksProcessed   uint64
}

// LatencyHistogram tracks latency samples with a sliding window and lazily
// recomputed stats.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		APILatency:      NewLatencyHistogram(1000),
		ExchangeLatency: NewLatencyHistogram(1000),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99. Recomputes only when samples
// have changed.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// IncrementAPI increments the API request counter.
func (m *Metrics) IncrementAPI() { atomic.AddUint64(&m.apiRequests, 1) }

// IncrementAPIErrors increments the API error counter.
func (m *Metrics) IncrementAPIErrors() { atomic.AddUint64(&m.apiErrors, 1) }

// IncrementOrders increments the executed orders counter.
func (m *Metrics) IncrementOrders() { atomic.AddUint64(&m.ordersExecuted, 1) }

// IncrementRejections increments the rejected orders counter.
func (m *Metrics) IncrementRejections() { atomic.AddUint64(&m.ordersRejected, 1) }

// IncrementSignals increments the generated signals counter.
func (m *Metrics) IncrementSignals() { atomic.AddUint64(&m.signalsGenerated, 1) }

// IncrementTicks increments the processed ticks counter.
func (m *Metrics) IncrementTicks() { atomic.AddUint64(&m.ticksProcessed, 1) }

// Snapshot is a point-in-time metrics view.
type Snapshot struct {
	APILatency       LatencyStats `json:"api_latency"`
	ExchangeLatency  LatencyStats `json:"exchange_latency"`
	APIRequests      uint64       `json:"api_requests"`
	APIErrors        uint64       `json:"api_errors"`
	OrdersExecuted   uint64       `json:"orders_executed"`
	OrdersRejected   uint64       `json:"orders_rejected"`
	SignalsGenerated uint64       `json:"signals_generated"`
	TicksProcessed   uint64       `json:"ticks_processed"`
	GoroutineCount   int          `json:"goroutine_count"`
	HeapAlloc        uint64       `json:"heap_alloc_bytes"`
	HeapSys          uint64       `json:"heap_sys_bytes"`
	Timestamp        time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *Metrics) GetSnapshot() Snapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return Snapshot{
		APILatency:       m.APILatency.Stats(),
		ExchangeLatency:  m.ExchangeLatency.Stats(),
		APIRequests:      atomic.LoadUint64(&m.apiRequests),
		APIErrors:        atomic.LoadUint64(&m.apiErrors),
		OrdersExecuted:   atomic.LoadUint64(&m.ordersExecuted),
		OrdersRejected:   atomic.LoadUint64(&m.ordersRejected),
		SignalsGenerated: atomic.LoadUint64(&m.signalsGenerated),
		TicksProcessed:   atomic.LoadUint64(&m.ticksProcessed),
		GoroutineCount:   runtime.NumGoroutine(),
		HeapAlloc:        memStats.HeapAlloc,
		HeapSys:          memStats.HeapSys,
		Timestamp:        time.Now(),
	}
}
