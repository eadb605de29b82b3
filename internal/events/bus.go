// Package events carries the trading core's in-process notifications: price
// ticks, generated signals, order lifecycle and risk alerts fan out through
// one Bus.
package events

import (
	"sync"
)

// Bus is a channel-based broker. Publishing never blocks; a subscriber that
// falls behind misses payloads rather than stalling the trading path.
type Bus struct {
	mu   sync.RWMutex
	subs map[Event][]chan any
}

// NewBus creates an empty broker.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]chan any)}
}

// Subscribe registers a listener for an event. The returned function
// unsubscribes and closes the channel; buffer sets how many payloads may
// queue before drops start.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, buffer)
	b.subs[e] = append(b.subs[e], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[e]
		for i, c := range subs {
			if c == ch {
				close(c)
				b.subs[e] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	return ch, unsub
}

// Publish fans the payload out to every subscriber of e. Full subscriber
// buffers drop the payload.
func (b *Bus) Publish(e Event, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[e] {
		select {
		case ch <- payload:
		default:
		}
	}
}
