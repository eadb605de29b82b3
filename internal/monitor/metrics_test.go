package monitor

import (
	"context"
	"testing"
	"time"

	"crypto-core/internal/events"
)

func TestLatencyHistogramStats(t *testing.T) {
	h := NewLatencyHistogram(10)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		h.Record(v)
	}
	stats := h.Stats()
	if stats.Min != 1 || stats.Max != 5 {
		t.Fatalf("min/max = %v/%v, want 1/5", stats.Min, stats.Max)
	}
	if stats.Avg != 3 {
		t.Fatalf("avg = %v, want 3", stats.Avg)
	}
	if stats.Count != 5 {
		t.Fatalf("count = %v, want 5", stats.Count)
	}
}

func TestLatencyHistogramWindowSlides(t *testing.T) {
	h := NewLatencyHistogram(3)
	for _, v := range []float64{10, 20, 30, 40} {
		h.Record(v)
	}
	stats := h.Stats()
	if stats.Min != 20 || stats.Max != 40 || stats.Count != 3 {
		t.Fatalf("stats = %+v, want window of last 3", stats)
	}
}

func TestSnapshotCounters(t *testing.T) {
	m := NewMetrics()
	m.IncrementAPI()
	m.IncrementAPI()
	m.IncrementAPIErrors()
	m.IncrementOrders()
	m.IncrementSignals()

	snap := m.GetSnapshot()
	if snap.APIRequests != 2 || snap.APIErrors != 1 {
		t.Fatalf("api counters = %d/%d, want 2/1", snap.APIRequests, snap.APIErrors)
	}
	if snap.OrdersExecuted != 1 || snap.SignalsGenerated != 1 {
		t.Fatalf("order/signal counters = %d/%d, want 1/1", snap.OrdersExecuted, snap.SignalsGenerated)
	}
	if snap.GoroutineCount <= 0 {
		t.Fatal("goroutine count missing")
	}
}

func TestCollectorCountsBusEvents(t *testing.T) {
	bus := events.NewBus()
	m := NewMetrics()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := Collector{Bus: bus, Metrics: m}
	c.Start(ctx)

	bus.Publish(events.EventOrderExecuted, "o1")
	bus.Publish(events.EventOrderExecuted, "o2")
	bus.Publish(events.EventSignalGenerated, "s1")

	deadline := time.After(time.Second)
	for {
		snap := m.GetSnapshot()
		if snap.OrdersExecuted == 2 && snap.SignalsGenerated == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("counters = %d/%d, want 2/1", snap.OrdersExecuted, snap.SignalsGenerated)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
