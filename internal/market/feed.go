package market

import (
	"context"
	"log"

	"crypto-core/internal/events"
	"crypto-core/internal/indicators"
)

// Feed streams live prices into the event bus and the indicator engine.
type Feed struct {
	Stream     *StreamClient
	Bus        *events.Bus
	Indicators *indicators.Engine
	Symbols    []string
}

// Start begins websocket streaming for the configured symbols.
func (f *Feed) Start(ctx context.Context) {
	if f.Stream == nil || f.Bus == nil {
		log.Println("market feed not fully configured; skipping start")
		return
	}

	for _, sym := range f.Symbols {
		symbol := sym
		ch, stop, err := f.Stream.SubscribeTicker(ctx, symbol)
		if err != nil {
			log.Printf("market feed: ws subscribe %s error: %v", symbol, err)
			continue
		}

		go func() {
			defer stop()
			for tk := range ch {
				if f.Indicators != nil {
					f.Indicators.Update(tk.Symbol, tk.Last)
				}
				f.Bus.Publish(events.EventPriceTick, tk)
			}
		}()
	}
}
