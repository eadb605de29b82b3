// Package exchanges wires venue adapters behind a process-wide registry.
// Adapters are cached per (venue, sandbox) pair so repeated lookups share a
// single client and its lazy initialization.
package exchanges

import (
	"sync"

	"crypto-core/pkg/config"
	"crypto-core/pkg/errs"
	"crypto-core/pkg/exchanges/binance"
	"crypto-core/pkg/exchanges/coinbase"
	"crypto-core/pkg/exchanges/common"
	"crypto-core/pkg/model"
)

// Factory builds an adapter for a venue. Registered per venue; tests swap in
// fakes.
type Factory func(cfg *config.Config, sandbox bool) common.Adapter

type registryKey struct {
	venue   model.Venue
	sandbox bool
}

// Registry resolves and caches venue adapters.
type Registry struct {
	cfg       *config.Config
	mu        sync.Mutex
	adapters  map[registryKey]common.Adapter
	factories map[model.Venue]Factory
}

// NewRegistry builds a registry with the built-in venue factories.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		cfg:       cfg,
		adapters:  make(map[registryKey]common.Adapter),
		factories: make(map[model.Venue]Factory),
	}
	r.Register(model.VenueBinance, func(cfg *config.Config, sandbox bool) common.Adapter {
		return binance.New(binance.Config{
			APIKey:    cfg.BinanceAPIKey,
			APISecret: cfg.BinanceAPISecret,
			Sandbox:   sandbox,
		})
	})
	r.Register(model.VenueCoinbase, func(cfg *config.Config, sandbox bool) common.Adapter {
		return coinbase.New(coinbase.Config{
			APIKey:     cfg.CoinbaseAPIKey,
			APISecret:  cfg.CoinbaseAPISecret,
			Passphrase: cfg.CoinbasePassphrase,
			Sandbox:    sandbox,
		})
	})
	return r
}

// Register installs a factory for a venue, replacing any existing one.
// Cached adapters for that venue are dropped.
func (r *Registry) Register(venue model.Venue, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[venue] = f
	for k := range r.adapters {
		if k.venue == venue {
			delete(r.adapters, k)
		}
	}
}

// Get returns the shared adapter for (venue, sandbox), constructing it on
// first use.
func (r *Registry) Get(venue model.Venue, sandbox bool) (common.Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey{venue: venue, sandbox: sandbox}
	if a, ok := r.adapters[key]; ok {
		return a, nil
	}
	f, ok := r.factories[venue]
	if !ok {
		return nil, errs.Validation("unsupported exchange: %s", venue)
	}
	a := f(r.cfg, sandbox)
	r.adapters[key] = a
	return a, nil
}

// Venues lists the venues with registered factories.
func (r *Registry) Venues() []model.Venue {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Venue, 0, len(r.factories))
	for v := range r.factories {
		out = append(out, v)
	}
	return out
}
