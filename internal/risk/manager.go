// Package risk gates every trade behind hard limits and soft warnings, and
// tracks the per-day realized loss ledger that feeds the daily ceiling.
package risk

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"crypto-core/pkg/db"
	"crypto-core/pkg/model"
)

// Manager evaluates candidate trades and portfolio-wide risk. The daily-loss
// ledger is its only mutable state; risk checks never write it.
type Manager struct {
	limits Limits
	store  *db.Database

	mu       sync.Mutex
	dayLoss  map[string]float64 // date -> cumulative loss magnitude
	now      func() time.Time
}

// NewManager builds a manager. store may be nil for in-memory ledger only.
func NewManager(limits Limits, store *db.Database) *Manager {
	log.Printf("risk manager: max_order=%.0f USD, daily_loss_limit=%.0f USD",
		limits.MaxOrderUSD, limits.DailyLossLimitUSD)
	return &Manager{
		limits:  limits,
		store:   store,
		dayLoss: make(map[string]float64),
		now:     time.Now,
	}
}

// CheckTradeRisk evaluates a candidate trade against the portfolio snapshot.
// Pure with respect to manager state except for reading the daily ledger.
func (m *Manager) CheckTradeRisk(ctx context.Context, symbol string, side model.Side, amount, price float64, portfolio *model.Portfolio) Verdict {
	notional := amount * price
	var violations, warnings []string

	// Hard limit: single order size.
	if notional > m.limits.MaxOrderUSD {
		violations = append(violations,
			fmt.Sprintf("order notional %.2f USD exceeds maximum %.2f USD", notional, m.limits.MaxOrderUSD))
	}

	// Hard limit: daily loss ceiling.
	todayLoss := m.DailyLoss(ctx)
	if todayLoss+notional > m.limits.DailyLossLimitUSD {
		violations = append(violations,
			fmt.Sprintf("daily loss %.2f USD plus order %.2f USD exceeds ceiling %.2f USD",
				todayLoss, notional, m.limits.DailyLossLimitUSD))
	}

	base := baseAsset(symbol)

	// Soft: concentration against portfolio value.
	if portfolio != nil && portfolio.TotalValueUSD > 0 {
		exposure := (currencyValue(portfolio, base) + notional) / portfolio.TotalValueUSD
		if exposure > m.limits.ConcentrationStrong {
			warnings = append(warnings,
				fmt.Sprintf("position would be %.0f%% of portfolio (strong concentration)", exposure*100))
		} else if exposure > m.limits.ConcentrationWarn {
			warnings = append(warnings,
				fmt.Sprintf("position would be %.0f%% of portfolio (concentration)", exposure*100))
		}
	}

	// Soft: correlated asset classes among open positions.
	if portfolio != nil {
		for group, members := range m.limits.CorrelationGroups {
			count := 0
			inGroup := false
			for _, member := range members {
				if member == base {
					inGroup = true
				}
			}
			for _, p := range portfolio.Positions {
				pb := baseAsset(p.Symbol)
				for _, member := range members {
					if member == pb {
						count++
						break
					}
				}
			}
			if inGroup {
				count++
			}
			if count > 2 {
				warnings = append(warnings,
					fmt.Sprintf("%d open positions share the %s asset class", count, group))
			}
		}
	}

	// Soft: configured high-volatility assets.
	for _, asset := range m.limits.HighVolatility {
		if strings.EqualFold(asset, base) {
			warnings = append(warnings, fmt.Sprintf("%s is on the high-volatility list", base))
			break
		}
	}

	return Verdict{
		Approved:       len(violations) == 0,
		Violations:     violations,
		Warnings:       warnings,
		Score:          score(len(violations), len(warnings)),
		Recommendation: recommendation(len(violations), len(warnings)),
	}
}

// RecordTradeOutcome folds a realized PnL into the daily ledger. Only losses
// count toward the daily ceiling; wins are journaled but do not offset it.
func (m *Manager) RecordTradeOutcome(ctx context.Context, symbol string, pnl float64) error {
	date := m.today()

	m.mu.Lock()
	if pnl < 0 {
		m.dayLoss[date] += -pnl
	}
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.AddDayOutcome(ctx, date, pnl); err != nil {
			return fmt.Errorf("record trade outcome: %w", err)
		}
	}
	return nil
}

// DailyLoss returns the cumulative loss magnitude recorded today.
func (m *Manager) DailyLoss(ctx context.Context) float64 {
	date := m.today()

	if m.store != nil {
		if day, err := m.store.DayLedger(ctx, date); err == nil {
			loss := float64(0)
			if day.RealizedPnL < 0 {
				loss = -day.RealizedPnL
			}
			m.mu.Lock()
			if mem := m.dayLoss[date]; mem > loss {
				loss = mem
			}
			m.mu.Unlock()
			return loss
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dayLoss[date]
}

// PortfolioMetrics computes portfolio-wide risk figures from a snapshot.
func (m *Manager) PortfolioMetrics(portfolio *model.Portfolio) Metrics {
	metrics := Metrics{}
	if portfolio == nil || portfolio.TotalValueUSD <= 0 {
		return metrics
	}
	metrics.TotalValueUSD = portfolio.TotalValueUSD
	metrics.DailyPnL = portfolio.DailyPnL
	metrics.ConcentrationRisk = largestExposure(portfolio)
	metrics.ValueAtRisk = m.limits.ValueAtRiskFraction * portfolio.TotalValueUSD
	metrics.Volatility = math.Abs(portfolio.DailyPnL) / portfolio.TotalValueUSD
	return metrics
}

// EmergencyStopCheck reports whether trading must halt, with the triggering
// reasons. Any single condition is sufficient.
func (m *Manager) EmergencyStopCheck(ctx context.Context, portfolio *model.Portfolio) (bool, []string) {
	var reasons []string

	if loss := m.DailyLoss(ctx); loss > m.limits.DailyLossLimitUSD {
		reasons = append(reasons,
			fmt.Sprintf("daily loss %.2f USD exceeds ceiling %.2f USD", loss, m.limits.DailyLossLimitUSD))
	}

	if portfolio != nil && portfolio.TotalValueUSD > 0 {
		if drawdown := -portfolio.DailyPnL / portfolio.TotalValueUSD; drawdown > m.limits.DrawdownStop {
			reasons = append(reasons, fmt.Sprintf("drawdown %.0f%% exceeds %.0f%% threshold",
				drawdown*100, m.limits.DrawdownStop*100))
		}
		if concentration := largestExposure(portfolio); concentration > m.limits.ConcentrationStop {
			reasons = append(reasons, fmt.Sprintf("concentration %.0f%% exceeds %.0f%% threshold",
				concentration*100, m.limits.ConcentrationStop*100))
		}
	}

	return len(reasons) > 0, reasons
}

// Limits exposes the active thresholds.
func (m *Manager) Limits() Limits { return m.limits }

func (m *Manager) today() string {
	return m.now().UTC().Format("2006-01-02")
}

// largestExposure returns the biggest single-currency fraction of total
// value, positions and balances combined.
func largestExposure(portfolio *model.Portfolio) float64 {
	if portfolio.TotalValueUSD <= 0 {
		return 0
	}
	byCurrency := make(map[string]float64)
	for _, p := range portfolio.Positions {
		byCurrency[baseAsset(p.Symbol)] += p.Value()
	}
	for _, b := range portfolio.Balances {
		// Balance USD value is not carried on the record; approximate
		// stablecoins at face value so cash concentration still registers.
		if isStablecoin(b.Currency) {
			byCurrency[b.Currency] += b.Total
		}
	}
	max := 0.0
	for _, v := range byCurrency {
		if frac := v / portfolio.TotalValueUSD; frac > max {
			max = frac
		}
	}
	return max
}

// currencyValue sums the USD value of open positions whose base asset is
// currency.
func currencyValue(portfolio *model.Portfolio, currency string) float64 {
	total := 0.0
	for _, p := range portfolio.Positions {
		if baseAsset(p.Symbol) == currency {
			total += p.Value()
		}
	}
	return total
}

func isStablecoin(currency string) bool {
	switch strings.ToUpper(currency) {
	case "USDT", "USDC", "DAI", "BUSD", "TUSD":
		return true
	}
	return false
}

// baseAsset extracts the base currency from BTCUSDT, BTC/USDT or BTC-USDT.
func baseAsset(symbol string) string {
	s := strings.ToUpper(symbol)
	for _, sep := range []string{"/", "-"} {
		if i := strings.Index(s, sep); i > 0 {
			return s[:i]
		}
	}
	for _, quote := range []string{"USDT", "USDC", "USD", "DAI", "BTC", "ETH", "EUR"} {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s[:len(s)-len(quote)]
		}
	}
	return s
}
