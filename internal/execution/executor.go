// Package execution turns trade intents into simulated or live fills. Every
// intent passes the same validation and risk gate regardless of destination;
// live submission additionally requires both process-level confirmation
// flags.
package execution

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"crypto-core/internal/events"
	"crypto-core/internal/risk"
	"crypto-core/pkg/config"
	"crypto-core/pkg/db"
	"crypto-core/pkg/errs"
	"crypto-core/pkg/exchanges"
	"crypto-core/pkg/exchanges/common"
	"crypto-core/pkg/model"
	"crypto-core/pkg/retry"
)

const (
	// simulatedFeeRate is the proportional fee applied to synthetic fills.
	simulatedFeeRate = 0.001
	// fallbackPrice stands in when no reference price is available at all.
	fallbackPrice = 50000.0
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,12}([/-][A-Z0-9]{2,12})?$`)

// TradeRequest is one trade intent.
type TradeRequest struct {
	Symbol    string          `json:"symbol"`
	Side      model.Side      `json:"side"`
	Type      model.OrderType `json:"type"`
	Amount    float64         `json:"amount"`
	Price     float64         `json:"price,omitempty"`
	StopPrice float64         `json:"stop_price,omitempty"`
	Venue     model.Venue     `json:"exchange,omitempty"`
	Live      bool            `json:"live,omitempty"`
}

// TickerSource resolves current prices. Satisfied by the market service.
type TickerSource interface {
	Ticker(ctx context.Context, venue model.Venue, symbol string) (model.Ticker, error)
}

// PortfolioSource supplies the snapshot handed to the risk gate. May be nil.
type PortfolioSource interface {
	Snapshot(ctx context.Context) *model.Portfolio
}

// Executor runs the validate, risk-gate, execute pipeline.
type Executor struct {
	cfg       *config.Config
	registry  *exchanges.Registry
	market    TickerSource
	risk      *risk.Manager
	portfolio PortfolioSource
	store     *db.Database
	bus       *events.Bus
	retryOn   retry.Policy

	now   func() time.Time
	newID func() string
}

// NewExecutor wires the pipeline. store, bus and portfolio may be nil.
func NewExecutor(cfg *config.Config, registry *exchanges.Registry, market TickerSource, riskMgr *risk.Manager, portfolio PortfolioSource, store *db.Database, bus *events.Bus) *Executor {
	return &Executor{
		cfg:       cfg,
		registry:  registry,
		market:    market,
		risk:      riskMgr,
		portfolio: portfolio,
		store:     store,
		bus:       bus,
		retryOn:   retry.Policy{Attempts: cfg.RetryAttempts, Base: cfg.RetryBase},
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Execute validates, risk-gates and executes one trade intent. Live requests
// only reach a venue when both confirmation flags are set.
func (e *Executor) Execute(ctx context.Context, req TradeRequest) (model.Order, error) {
	if err := e.validate(req); err != nil {
		return model.Order{}, err
	}
	venue := req.Venue
	if venue == "" {
		venue = model.VenueBinance
	}

	reference := e.referencePrice(ctx, venue, req)
	notional := req.Amount * reference

	var portfolio *model.Portfolio
	if e.portfolio != nil {
		portfolio = e.portfolio.Snapshot(ctx)
	}
	verdict := e.risk.CheckTradeRisk(ctx, req.Symbol, req.Side, req.Amount, reference, portfolio)
	if !verdict.Approved {
		e.publish(events.EventOrderRejected, verdict)
		return model.Order{}, errs.RiskManagement("trade rejected: %s", strings.Join(verdict.Violations, "; "))
	}

	if req.Live {
		if err := e.requireLiveConfirmations(); err != nil {
			return model.Order{}, err
		}
	}

	// Intent is recorded before submission so it survives a failed send.
	log.Printf("execution: %s %s %.8f %s at %.2f on %s (simulated=%t, notional=%.2f USD)",
		req.Side, req.Type, req.Amount, req.Symbol, reference, venue, !req.Live, notional)

	var order model.Order
	var err error
	if req.Live {
		order, err = e.placeLive(ctx, venue, req)
	} else {
		order = e.simulateFill(ctx, venue, req, reference, notional)
	}
	if err != nil {
		return model.Order{}, err
	}

	e.journal(ctx, venue, order)
	e.publish(events.EventOrderExecuted, order)
	return order, nil
}

// Cancel withdraws an open order. The live path is risk-gated by the same
// two confirmation flags as placement.
func (e *Executor) Cancel(ctx context.Context, venue model.Venue, symbol, orderID string, live bool) error {
	if orderID == "" {
		return errs.Validation("order id is required")
	}
	if live {
		if err := e.requireLiveConfirmations(); err != nil {
			return err
		}
		adapter, err := e.registry.Get(venue, e.sandbox(venue))
		if err != nil {
			return err
		}
		// Cancelling an already-cancelled id is a no-op at the venue, so a
		// transient failure is safe to retry.
		err = retry.Do(ctx, e.retryOn, func(ctx context.Context) error {
			return adapter.CancelOrder(ctx, symbol, orderID)
		})
		if err != nil {
			return err
		}
	}
	if e.store != nil {
		if err := e.store.UpdateOrderStatus(ctx, orderID, string(model.StatusCancelled)); err != nil {
			log.Printf("execution: journal cancel %s failed: %v", orderID, err)
		}
	}
	e.publish(events.EventOrderCancelled, orderID)
	return nil
}

// OrderSizeFor sizes an order as a fraction of the available balance on the
// venue. Buys spend a fraction of the quote balance converted at the current
// price; sells release a fraction of the base balance directly.
func (e *Executor) OrderSizeFor(ctx context.Context, venue model.Venue, symbol string, fraction float64, side model.Side) (float64, error) {
	if fraction <= 0 || fraction > 1 {
		return 0, errs.Validation("position fraction must be in (0, 1], got %v", fraction)
	}
	base, quote := splitSymbol(symbol)

	adapter, err := e.registry.Get(venue, e.sandbox(venue))
	if err != nil {
		return 0, err
	}
	balances, err := retry.DoValue(ctx, e.retryOn, func(ctx context.Context) ([]model.Balance, error) {
		return adapter.GetBalance(ctx)
	})
	if err != nil {
		return 0, err
	}

	if side == model.SideSell {
		return available(balances, base) * fraction, nil
	}

	ticker, err := e.market.Ticker(ctx, venue, symbol)
	if err != nil {
		return 0, err
	}
	if ticker.Last <= 0 {
		return 0, errs.Exchange("no price available for %s", symbol)
	}
	return available(balances, quote) * fraction / ticker.Last, nil
}

func available(balances []model.Balance, currency string) float64 {
	for _, b := range balances {
		if strings.EqualFold(b.Currency, currency) {
			return b.Available
		}
	}
	return 0
}

var quoteSuffixes = []string{"USDT", "USDC", "BUSD", "USD", "BTC", "ETH"}

// splitSymbol resolves base and quote from either a separated pair
// ("BTC/USDT", "BTC-USDT") or a concatenated one ("BTCUSDT").
func splitSymbol(symbol string) (base, quote string) {
	s := strings.ToUpper(symbol)
	for _, sep := range []string{"/", "-"} {
		if i := strings.Index(s, sep); i > 0 {
			return s[:i], s[i+1:]
		}
	}
	for _, suffix := range quoteSuffixes {
		if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
			return strings.TrimSuffix(s, suffix), suffix
		}
	}
	return s, "USDT"
}

func (e *Executor) validate(req TradeRequest) error {
	if !symbolPattern.MatchString(strings.ToUpper(req.Symbol)) {
		return errs.Validation("malformed symbol: %q", req.Symbol)
	}
	if req.Side != model.SideBuy && req.Side != model.SideSell {
		return errs.Validation("invalid side: %q", req.Side)
	}
	if req.Amount <= 0 {
		return errs.Validation("amount must be positive, got %v", req.Amount)
	}
	if req.Price < 0 {
		return errs.Validation("price must be positive, got %v", req.Price)
	}
	if req.Type == model.OrderTypeLimit && req.Price == 0 {
		return errs.Validation("limit orders require a price")
	}
	return nil
}

// requireLiveConfirmations enforces the two-flag gate. Absence of either is
// a safety violation, not a warning.
func (e *Executor) requireLiveConfirmations() error {
	if !e.cfg.LiveTrading() {
		return errs.RiskManagement("live trading requires both LIVE and AM_I_SURE to be set")
	}
	return nil
}

// referencePrice prefers the supplied price, then the live ticker, then the
// static fallback.
func (e *Executor) referencePrice(ctx context.Context, venue model.Venue, req TradeRequest) float64 {
	if req.Price > 0 {
		return req.Price
	}
	if e.market != nil {
		ticker, err := e.market.Ticker(ctx, venue, req.Symbol)
		if err == nil && ticker.Last > 0 {
			return ticker.Last
		}
		log.Printf("execution: ticker lookup for %s failed, using fallback price: %v", req.Symbol, err)
	}
	return fallbackPrice
}

// simulateFill synthesizes a fully filled order without touching any venue.
func (e *Executor) simulateFill(ctx context.Context, venue model.Venue, req TradeRequest, reference, notional float64) model.Order {
	price := reference
	if req.Type != model.OrderTypeMarket && req.Price > 0 {
		price = req.Price
	}
	now := e.now().UTC()
	return model.Order{
		ID:           "SIM_" + e.newID(),
		Symbol:       req.Symbol,
		Side:         req.Side,
		Type:         req.Type,
		Amount:       req.Amount,
		Price:        price,
		StopPrice:    req.StopPrice,
		Status:       model.StatusFilled,
		Exchange:     venue,
		FilledAmount: req.Amount,
		Fee:          notional * simulatedFeeRate,
		FeeCurrency:  "USDT",
		DryRun:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (e *Executor) placeLive(ctx context.Context, venue model.Venue, req TradeRequest) (model.Order, error) {
	adapter, err := e.registry.Get(venue, e.sandbox(venue))
	if err != nil {
		return model.Order{}, err
	}
	// Placement is sent at most once; a retry after an ambiguous failure
	// could submit the order twice.
	return adapter.PlaceOrder(ctx, common.OrderRequest{
		Symbol: req.Symbol,
		Side:   req.Side,
		Type:   req.Type,
		Qty:    req.Amount,
		Price:  req.Price,
	})
}

func (e *Executor) journal(ctx context.Context, venue model.Venue, order model.Order) {
	if e.store == nil {
		return
	}
	row := db.OrderRow{
		ID:        order.ID,
		Venue:     string(venue),
		Symbol:    order.Symbol,
		Side:      string(order.Side),
		Type:      string(order.Type),
		Price:     order.Price,
		Qty:       order.Amount,
		FilledQty: order.FilledAmount,
		Status:    string(order.Status),
		Simulated: order.DryRun,
		Fee:       order.Fee,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
	if err := e.store.CreateOrder(ctx, row); err != nil {
		log.Printf("execution: journal order %s failed: %v", order.ID, err)
	}
	if order.FilledAmount > 0 {
		trade := db.TradeRow{
			ID:        e.newID(),
			OrderID:   order.ID,
			Venue:     string(venue),
			Symbol:    order.Symbol,
			Side:      string(order.Side),
			Price:     order.Price,
			Qty:       order.FilledAmount,
			Fee:       order.Fee,
			CreatedAt: order.UpdatedAt,
		}
		if err := e.store.CreateTrade(ctx, trade); err != nil {
			log.Printf("execution: journal fill for %s failed: %v", order.ID, err)
		}
	}
}

func (e *Executor) publish(event events.Event, payload any) {
	if e.bus != nil {
		e.bus.Publish(event, payload)
	}
}

// SyncOrders lists a symbol's orders at the venue and folds status and fill
// progress back into the journal.
func (e *Executor) SyncOrders(ctx context.Context, venue model.Venue, symbol string) ([]model.Order, error) {
	if symbol == "" {
		return nil, errs.Validation("symbol is required to sync orders")
	}
	adapter, err := e.registry.Get(venue, e.sandbox(venue))
	if err != nil {
		return nil, err
	}
	orders, err := retry.DoValue(ctx, e.retryOn, func(ctx context.Context) ([]model.Order, error) {
		return adapter.GetOrders(ctx, common.OrderQuery{Symbol: symbol})
	})
	if err != nil {
		return nil, err
	}
	if e.store != nil {
		for _, o := range orders {
			if err := e.store.UpdateOrderFill(ctx, o.ID, string(o.Status), o.FilledAmount, o.Price); err != nil {
				log.Printf("execution: journal sync for %s failed: %v", o.ID, err)
			}
		}
	}
	return orders, nil
}

func (e *Executor) sandbox(venue model.Venue) bool {
	return e.cfg.SandboxFor(string(venue))
}
