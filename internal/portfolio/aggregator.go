// Package portfolio aggregates balances from every configured venue and
// chain wallet into one USD-valued snapshot. Individual source failures are
// logged and skipped; aggregation never fails atomically.
package portfolio

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"crypto-core/internal/wallet"
	"crypto-core/pkg/config"
	"crypto-core/pkg/exchanges"
	"crypto-core/pkg/model"
	"crypto-core/pkg/retry"
)

// PriceSource resolves a spot price for a symbol. Satisfied by the market
// service.
type PriceSource interface {
	Price(ctx context.Context, venue model.Venue, symbol string) (float64, error)
}

// ChainReader reads one native balance per address. Satisfied by the wallet
// clients.
type ChainReader interface {
	Chain() model.Chain
	NativeBalance(ctx context.Context, address string) (model.Balance, error)
}

// chainAccount pairs a reader with one address to poll.
type chainAccount struct {
	reader  ChainReader
	address string
}

// Aggregator polls every balance source and values the result in USD.
type Aggregator struct {
	cfg      *config.Config
	registry *exchanges.Registry
	venues   []model.Venue
	accounts []chainAccount
	prices   PriceSource
	retryOn  retry.Policy

	// PositionSource is optional; spot-only deployments leave it nil.
	Positions func(ctx context.Context) []model.Position
}

// NewAggregator wires the aggregator from config. Every EVM address is
// polled on every configured EVM chain; Solana addresses only on Solana.
func NewAggregator(cfg *config.Config, registry *exchanges.Registry, prices PriceSource) *Aggregator {
	a := &Aggregator{
		cfg:      cfg,
		registry: registry,
		venues:   registry.Venues(),
		prices:   prices,
		retryOn:  retry.Policy{Attempts: cfg.RetryAttempts, Base: cfg.RetryBase},
	}
	for chainName, rpcURL := range cfg.ChainRPC {
		chain := model.Chain(chainName)
		if chain == model.ChainSolana {
			client := wallet.NewSolana(rpcURL)
			for _, addr := range cfg.SolanaAddresses {
				a.accounts = append(a.accounts, chainAccount{reader: client, address: addr})
			}
			continue
		}
		client := wallet.NewEVM(chain, rpcURL)
		for _, addr := range cfg.EVMAddresses {
			a.accounts = append(a.accounts, chainAccount{reader: client, address: addr})
		}
	}
	return a
}

// Snapshot polls all sources concurrently and returns the valued portfolio.
func (a *Aggregator) Snapshot(ctx context.Context) *model.Portfolio {
	type result struct {
		balances []model.Balance
		source   string
		err      error
	}

	tasks := make([]func(ctx context.Context) result, 0, len(a.venues)+len(a.accounts))
	for _, v := range a.venues {
		venue := v
		tasks = append(tasks, func(ctx context.Context) result {
			adapter, err := a.registry.Get(venue, a.cfg.SandboxFor(string(venue)))
			if err != nil {
				return result{source: string(venue), err: err}
			}
			balances, err := retry.DoValue(ctx, a.retryOn, func(ctx context.Context) ([]model.Balance, error) {
				return adapter.GetBalance(ctx)
			})
			return result{balances: balances, source: string(venue), err: err}
		})
	}
	for _, acc := range a.accounts {
		account := acc
		tasks = append(tasks, func(ctx context.Context) result {
			b, err := retry.DoValue(ctx, a.retryOn, func(ctx context.Context) (model.Balance, error) {
				return account.reader.NativeBalance(ctx, account.address)
			})
			if err != nil {
				return result{source: string(account.reader.Chain()), err: err}
			}
			return result{balances: []model.Balance{b}, source: string(account.reader.Chain())}
		})
	}

	results := make([]result, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task func(ctx context.Context) result) {
			defer wg.Done()
			results[i] = task(ctx)
		}(i, task)
	}
	wg.Wait()

	var balances []model.Balance
	for _, r := range results {
		if r.err != nil {
			// Degrade gracefully; a dead venue never sinks the snapshot.
			log.Printf("portfolio: %s balance fetch failed: %v", r.source, r.err)
			continue
		}
		balances = append(balances, r.balances...)
	}

	var positions []model.Position
	if a.Positions != nil {
		positions = a.Positions(ctx)
	}

	return a.value(ctx, balances, positions)
}

// value prices every non-zero balance in USD. Balances without a price stay
// in the list but are excluded from the total.
func (a *Aggregator) value(ctx context.Context, balances []model.Balance, positions []model.Position) *model.Portfolio {
	total := 0.0
	for _, b := range balances {
		if b.Total == 0 {
			continue
		}
		price, ok := a.priceUSD(ctx, b.Currency)
		if !ok {
			log.Printf("portfolio: no USD price for %s; excluded from valuation", b.Currency)
			continue
		}
		total += b.Total * price
	}

	unrealized, realized := 0.0, 0.0
	for _, p := range positions {
		unrealized += p.UnrealizedPnL
		realized += p.RealizedPnL
	}

	return &model.Portfolio{
		TotalValueUSD: total,
		Balances:      balances,
		Positions:     positions,
		UnrealizedPnL: unrealized,
		RealizedPnL:   realized,
		// Without a historical store, daily PnL is approximated from open
		// exposure; treat as indicative only.
		DailyPnL:  unrealized * 0.1,
		UpdatedAt: time.Now().UTC(),
	}
}

// priceUSD resolves the USD price for one currency. Stablecoins are taken at
// face value.
func (a *Aggregator) priceUSD(ctx context.Context, currency string) (float64, bool) {
	upper := strings.ToUpper(currency)
	switch upper {
	case "USDT", "USDC", "DAI", "BUSD", "USD":
		return 1, true
	}
	if a.prices == nil {
		return 0, false
	}
	price, err := a.prices.Price(ctx, model.VenueBinance, upper+"USDT")
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

// Allocation is one currency's share of the portfolio.
type Allocation struct {
	Currency string  `json:"currency"`
	ValueUSD float64 `json:"value_usd"`
	Fraction float64 `json:"fraction"`
}

// Allocations derives the top-N USD allocation from a snapshot.
func (a *Aggregator) Allocations(ctx context.Context, portfolio *model.Portfolio, top int) []Allocation {
	if portfolio == nil || portfolio.TotalValueUSD <= 0 {
		return nil
	}
	byCurrency := make(map[string]float64)
	for _, b := range portfolio.Balances {
		if b.Total == 0 {
			continue
		}
		if price, ok := a.priceUSD(ctx, b.Currency); ok {
			byCurrency[strings.ToUpper(b.Currency)] += b.Total * price
		}
	}

	out := make([]Allocation, 0, len(byCurrency))
	for currency, value := range byCurrency {
		out = append(out, Allocation{
			Currency: currency,
			ValueUSD: value,
			Fraction: value / portfolio.TotalValueUSD,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValueUSD > out[j].ValueUSD })
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out
}
