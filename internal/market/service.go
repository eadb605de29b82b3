// Package market serves prices and candles. Outbound lookups run through the
// shared cache, rate limit and retry layers so hot symbols are answered from
// cache without spending request budget.
package market

import (
	"context"

	"crypto-core/pkg/cache"
	"crypto-core/pkg/config"
	"crypto-core/pkg/exchanges"
	"crypto-core/pkg/model"
	"crypto-core/pkg/netcall"
	"crypto-core/pkg/ratelimit"
	"crypto-core/pkg/retry"
)

// Service resolves tickers through venue adapters and candles through the
// public kline API.
type Service struct {
	registry *exchanges.Registry
	klines   *KlineClient
	caller   *netcall.Caller
	sandbox  bool
}

// NewService wires the market service from config.
func NewService(cfg *config.Config, registry *exchanges.Registry) *Service {
	return &Service{
		registry: registry,
		klines:   NewKlineClient(cfg.BinanceSandbox),
		caller: netcall.New(
			cache.NewTTL(),
			cfg.CacheTTL,
			ratelimit.New(cfg.RateLimitCalls, cfg.RateLimitSpan),
			retry.Policy{Attempts: cfg.RetryAttempts, Base: cfg.RetryBase},
		),
		sandbox: cfg.BinanceSandbox,
	}
}

// Ticker returns the current ticker for symbol on venue.
func (s *Service) Ticker(ctx context.Context, venue model.Venue, symbol string) (model.Ticker, error) {
	key := cache.Key("ticker", venue, symbol)
	return netcall.Get(ctx, s.caller, key, func(ctx context.Context) (model.Ticker, error) {
		adapter, err := s.registry.Get(venue, s.sandbox)
		if err != nil {
			return model.Ticker{}, err
		}
		return adapter.GetTicker(ctx, symbol)
	})
}

// Price returns the last trade price for symbol on venue.
func (s *Service) Price(ctx context.Context, venue model.Venue, symbol string) (float64, error) {
	tk, err := s.Ticker(ctx, venue, symbol)
	if err != nil {
		return 0, err
	}
	return tk.Last, nil
}

// Candles returns the most recent limit candles for symbol at interval.
func (s *Service) Candles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	key := cache.Key("candles", symbol, interval, limit)
	return netcall.Get(ctx, s.caller, key, func(ctx context.Context) ([]model.Candle, error) {
		return s.klines.GetCandles(ctx, symbol, interval, limit)
	})
}
