package monitor

import (
	"context"

	"crypto-core/internal/events"
)

// Collector folds bus events into metrics counters.
type Collector struct {
	Bus     *events.Bus
	Metrics *Metrics
}

// Start subscribes to the bus and counts events until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	if c.Bus == nil || c.Metrics == nil {
		return
	}
	count := func(e events.Event, inc func()) {
		ch, unsub := c.Bus.Subscribe(e, 100)
		go func() {
			defer unsub()
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-ch:
					if !ok {
						return
					}
					inc()
				}
			}
		}()
	}
	count(events.EventPriceTick, c.Metrics.IncrementTicks)
	count(events.EventOrderExecuted, c.Metrics.IncrementOrders)
	count(events.EventOrderRejected, c.Metrics.IncrementRejections)
	count(events.EventSignalGenerated, c.Metrics.IncrementSignals)
}
