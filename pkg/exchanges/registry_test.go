package exchanges

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"crypto-core/pkg/config"
	"crypto-core/pkg/exchanges/common"
	"crypto-core/pkg/model"
)

type fakeAdapter struct {
	venue model.Venue
	inits atomic.Int32
}

func (f *fakeAdapter) Name() model.Venue { return f.venue }
func (f *fakeAdapter) Initialize(ctx context.Context) error {
	f.inits.Add(1)
	return nil
}
func (f *fakeAdapter) GetBalance(ctx context.Context) ([]model.Balance, error) { return nil, nil }
func (f *fakeAdapter) PlaceOrder(ctx context.Context, req common.OrderRequest) (model.Order, error) {
	return model.Order{}, nil
}
func (f *fakeAdapter) GetOrders(ctx context.Context, q common.OrderQuery) ([]model.Order, error) {
	return nil, nil
}
func (f *fakeAdapter) CancelOrder(ctx context.Context, symbol, orderID string) error { return nil }
func (f *fakeAdapter) GetTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	return model.Ticker{}, nil
}

func TestGetCachesPerVenueAndMode(t *testing.T) {
	r := NewRegistry(&config.Config{})
	built := 0
	r.Register(model.VenueBinance, func(cfg *config.Config, sandbox bool) common.Adapter {
		built++
		return &fakeAdapter{venue: model.VenueBinance}
	})

	a1, err := r.Get(model.VenueBinance, true)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	a2, _ := r.Get(model.VenueBinance, true)
	if a1 != a2 {
		t.Fatalf("same (venue, sandbox) pair should share one adapter")
	}

	// Different sandbox flag gets its own client.
	a3, _ := r.Get(model.VenueBinance, false)
	if a3 == a1 {
		t.Fatalf("sandbox and live adapters must be distinct")
	}
	if built != 2 {
		t.Fatalf("built=%d, want 2", built)
	}
}

func TestGetUnknownVenue(t *testing.T) {
	r := NewRegistry(&config.Config{})
	if _, err := r.Get(model.Venue("ftx"), false); err == nil {
		t.Fatalf("expected error for unregistered venue")
	}
}

func TestGetConcurrent(t *testing.T) {
	r := NewRegistry(&config.Config{})
	var built atomic.Int32
	r.Register(model.VenueCoinbase, func(cfg *config.Config, sandbox bool) common.Adapter {
		built.Add(1)
		return &fakeAdapter{venue: model.VenueCoinbase}
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Get(model.VenueCoinbase, true); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	wg.Wait()
	if built.Load() != 1 {
		t.Fatalf("built=%d, want 1", built.Load())
	}
}

func TestBuiltinVenues(t *testing.T) {
	r := NewRegistry(&config.Config{})
	venues := r.Venues()
	if len(venues) != 2 {
		t.Fatalf("venues=%v, want binance and coinbase", venues)
	}
}
