package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := New(filepath.Join(t.TempDir(), "trading.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := ApplyMigrations(d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func TestOrderLifecycle(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	o := OrderRow{
		ID: "SIM_abc123", Venue: "binance", Symbol: "BTCUSDT",
		Side: "buy", Type: "market", Price: 64000, Qty: 0.01,
		Status: "filled", Simulated: true, Fee: 0.64,
	}
	if err := d.CreateOrder(ctx, o); err != nil {
		t.Fatalf("create order: %v", err)
	}

	orders, err := d.ListOrders(ctx, "binance", "BTCUSDT", 10)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(orders))
	}
	got := orders[0]
	if got.ID != o.ID || got.Status != "filled" || !got.Simulated {
		t.Fatalf("unexpected row: %+v", got)
	}

	if err := d.UpdateOrderStatus(ctx, o.ID, "cancelled"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	orders, _ = d.ListOrders(ctx, "", "", 10)
	if orders[0].Status != "cancelled" {
		t.Fatalf("status=%s, want cancelled", orders[0].Status)
	}
}

func TestListOrdersFilters(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	seed := []OrderRow{
		{ID: "1", Venue: "binance", Symbol: "BTCUSDT", Side: "buy", Type: "market", Price: 1, Qty: 1, Status: "open"},
		{ID: "2", Venue: "binance", Symbol: "ETHUSDT", Side: "sell", Type: "limit", Price: 1, Qty: 1, Status: "open"},
		{ID: "3", Venue: "coinbase", Symbol: "BTC-USDT", Side: "buy", Type: "market", Price: 1, Qty: 1, Status: "filled"},
	}
	for _, o := range seed {
		if err := d.CreateOrder(ctx, o); err != nil {
			t.Fatalf("seed %s: %v", o.ID, err)
		}
	}

	all, err := d.ListOrders(ctx, "", "", 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all=%d, want 3", len(all))
	}

	binance, _ := d.ListOrders(ctx, "binance", "", 0)
	if len(binance) != 2 {
		t.Fatalf("binance=%d, want 2", len(binance))
	}

	eth, _ := d.ListOrders(ctx, "binance", "ETHUSDT", 0)
	if len(eth) != 1 || eth[0].ID != "2" {
		t.Fatalf("unexpected filtered result: %+v", eth)
	}
}

func TestDayLedgerAccumulates(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	const date = "2026-08-30"

	// Absent day reads as zero.
	day, err := d.DayLedger(ctx, date)
	if err != nil {
		t.Fatalf("empty ledger: %v", err)
	}
	if day.RealizedPnL != 0 || day.TradeCount != 0 {
		t.Fatalf("unexpected empty day: %+v", day)
	}

	outcomes := []float64{-120.5, 80, -30, 0}
	for _, pnl := range outcomes {
		if err := d.AddDayOutcome(ctx, date, pnl); err != nil {
			t.Fatalf("add outcome %v: %v", pnl, err)
		}
	}

	day, err = d.DayLedger(ctx, date)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if day.RealizedPnL != -70.5 {
		t.Fatalf("realized=%v, want -70.5", day.RealizedPnL)
	}
	if day.TradeCount != 4 || day.Wins != 1 || day.Losses != 2 {
		t.Fatalf("counts=%+v, want 4 trades, 1 win, 2 losses", day)
	}

	// Another day is tracked independently.
	if err := d.AddDayOutcome(ctx, "2026-08-31", 10); err != nil {
		t.Fatalf("next day: %v", err)
	}
	next, _ := d.DayLedger(ctx, "2026-08-31")
	if next.RealizedPnL != 10 || next.TradeCount != 1 {
		t.Fatalf("unexpected next day: %+v", next)
	}
}

func TestListSignalsSkipsExpired(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []SignalRow{
		{ID: "fresh", Symbol: "BTCUSDT", Type: "buy", Score: 0.8, Confidence: 0.8,
			Mode: "combined", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
		{ID: "stale", Symbol: "ETHUSDT", Type: "sell", Score: 0.6, Confidence: 0.6,
			Mode: "combined", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{ID: "open-ended", Symbol: "SOLUSDT", Type: "hold", Score: 0.5, Confidence: 0.5,
			Mode: "technical", CreatedAt: now.Add(-time.Minute)},
	}
	for _, s := range seed {
		if err := d.CreateSignal(ctx, s); err != nil {
			t.Fatalf("seed %s: %v", s.ID, err)
		}
	}

	signals, err := d.ListSignals(ctx, 10)
	if err != nil {
		t.Fatalf("list signals: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("got %d signals, want 2", len(signals))
	}
	if signals[0].ID != "fresh" || signals[1].ID != "open-ended" {
		t.Fatalf("order = %s, %s; want fresh, open-ended", signals[0].ID, signals[1].ID)
	}
	if !signals[1].ExpiresAt.IsZero() {
		t.Fatalf("open-ended signal should have no expiry, got %v", signals[1].ExpiresAt)
	}

	limited, err := d.ListSignals(ctx, 1)
	if err != nil {
		t.Fatalf("limited list: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "fresh" {
		t.Fatalf("limited = %+v, want just the newest", limited)
	}
}

func TestCreateTradeAndSignal(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	if err := d.CreateTrade(ctx, TradeRow{
		ID: "t1", OrderID: "o1", Venue: "binance", Symbol: "BTCUSDT",
		Side: "buy", Price: 64000, Qty: 0.01, Fee: 0.64,
	}); err != nil {
		t.Fatalf("create trade: %v", err)
	}

	if err := d.CreateSignal(ctx, SignalRow{
		ID: "s1", Symbol: "BTCUSDT", Type: "buy",
		Score: 0.72, Confidence: 0.72, Mode: "combined",
	}); err != nil {
		t.Fatalf("create signal: %v", err)
	}
}
