package signal

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"crypto-core/internal/indicators"
	"crypto-core/pkg/db"
	"crypto-core/pkg/errs"
	"crypto-core/pkg/model"
)

type fakeMarket struct {
	tickers map[string]model.Ticker
	candles map[string][]model.Candle
}

func (f *fakeMarket) Ticker(ctx context.Context, venue model.Venue, symbol string) (model.Ticker, error) {
	t, ok := f.tickers[symbol]
	if !ok {
		return model.Ticker{}, errs.Exchange("no ticker for %s", symbol)
	}
	return t, nil
}

func (f *fakeMarket) Candles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	c, ok := f.candles[symbol]
	if !ok {
		return nil, errs.Exchange("no candles for %s", symbol)
	}
	return c, nil
}

type fakeSentiment struct {
	scores map[string]float64
}

func (f *fakeSentiment) Score(ctx context.Context, asset string, lookbackHours int) float64 {
	return f.scores[asset]
}

func testCandles(n int, base float64) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		price := base + float64(i%5)
		out[i] = model.Candle{
			Open:  price,
			High:  price + 1,
			Low:   price - 1,
			Close: price,
		}
	}
	return out
}

func TestTechnicalScoreAlignedWeakSignals(t *testing.T) {
	// Five bullish contributions firing together still average out to a
	// score far below the buy threshold.
	snap := indicators.Snapshot{
		Price:          100.5,
		RSI:            25,
		SMA:            98.5, // price just over 2% above
		BollingerUpper: 130,
		BollingerMid:   115,
		BollingerLower: 101, // price below the lower band
		Support:        100, // price within 1% of support
		Resistance:     130,
	}
	score, reasons := TechnicalScore(snap, 6)
	want := (0.3 + 0.2 + 0.25 + 0.2 + 0.15) / 5
	if math.Abs(score-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", score, want)
	}
	if len(reasons) != 5 {
		t.Fatalf("reasons = %d, want 5: %v", len(reasons), reasons)
	}
	if classify(score) != model.SignalHold {
		t.Fatalf("classified %s, want hold", classify(score))
	}
}

func TestTechnicalScoreBearish(t *testing.T) {
	snap := indicators.Snapshot{
		Price:          131,
		RSI:            78,
		SMA:            135, // more than 2% below the average
		BollingerUpper: 130,
		BollingerLower: 120,
		Support:        100,
		Resistance:     131.5,
	}
	score, _ := TechnicalScore(snap, -7)
	want := -(0.3 + 0.2 + 0.25 + 0.2 + 0.15) / 5
	if math.Abs(score-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", score, want)
	}
}

func TestTechnicalScoreQuietMarket(t *testing.T) {
	snap := indicators.Snapshot{
		Price:          100,
		RSI:            50,
		SMA:            100,
		BollingerUpper: 105,
		BollingerLower: 95,
		Support:        90,
		Resistance:     110,
	}
	score, _ := TechnicalScore(snap, 1)
	if math.Abs(score-0.1/5) > 1e-9 {
		t.Fatalf("score = %v, want %v", score, 0.1/5)
	}
}

func TestClassifyAndConfidence(t *testing.T) {
	cases := []struct {
		score      float64
		wantType   model.SignalType
		confidence float64
	}{
		{0.75, model.SignalBuy, 0.75},
		{-0.8, model.SignalSell, 0.8},
		{0.22, model.SignalHold, 0.5},
		{0.6, model.SignalHold, 0.6},
		{0.99, model.SignalBuy, 0.95},
		{-0.99, model.SignalSell, 0.95},
	}
	for _, tc := range cases {
		if got := classify(tc.score); got != tc.wantType {
			t.Errorf("classify(%v) = %s, want %s", tc.score, got, tc.wantType)
		}
		if got := confidence(tc.score); math.Abs(got-tc.confidence) > 1e-9 {
			t.Errorf("confidence(%v) = %v, want %v", tc.score, got, tc.confidence)
		}
	}
}

func TestApplyTargets(t *testing.T) {
	snap := indicators.Snapshot{Price: 100, Support: 95, Resistance: 112}

	buy := model.Signal{Type: model.SignalBuy}
	applyTargets(&buy, snap)
	if buy.Target != 112 || buy.StopLoss != 95 {
		t.Fatalf("buy targets = %+v", buy)
	}
	if math.Abs(buy.TakeProfit-108) > 1e-9 {
		t.Fatalf("buy take profit = %v, want 108", buy.TakeProfit)
	}

	sell := model.Signal{Type: model.SignalSell}
	applyTargets(&sell, snap)
	if sell.Target != 95 || sell.StopLoss != 112 {
		t.Fatalf("sell targets = %+v", sell)
	}
	if math.Abs(sell.TakeProfit-92) > 1e-9 {
		t.Fatalf("sell take profit = %v, want 92", sell.TakeProfit)
	}

	hold := model.Signal{Type: model.SignalHold}
	applyTargets(&hold, snap)
	if hold.Target != 0 || hold.StopLoss != 0 || hold.TakeProfit != 0 {
		t.Fatalf("hold should carry no targets: %+v", hold)
	}
}

func TestGenerateSentimentMode(t *testing.T) {
	mkt := &fakeMarket{
		tickers: map[string]model.Ticker{"BTCUSDT": {Symbol: "BTCUSDT", Last: 60000}},
		candles: map[string][]model.Candle{"BTCUSDT": testCandles(30, 60000)},
	}
	g := NewGenerator(mkt, &fakeSentiment{scores: map[string]float64{"BTC": 0.8}}, nil)
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	sig, err := g.Generate(context.Background(), "BTCUSDT", ModeSentiment)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if sig.Type != model.SignalBuy {
		t.Fatalf("type = %s, want buy", sig.Type)
	}
	if math.Abs(sig.Confidence-0.8) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.8", sig.Confidence)
	}
	if !sig.ExpiresAt.Equal(fixed.Add(4 * time.Hour)) {
		t.Fatalf("expiry = %v, want creation + 4h", sig.ExpiresAt)
	}
	if sig.ID == "" || sig.Timeframe != "1h" {
		t.Fatalf("unexpected signal metadata: %+v", sig)
	}
}

func TestGenerateMissingHistory(t *testing.T) {
	mkt := &fakeMarket{
		tickers: map[string]model.Ticker{"BTCUSDT": {Last: 60000}},
		candles: map[string][]model.Candle{"BTCUSDT": nil},
	}
	g := NewGenerator(mkt, nil, nil)
	_, err := g.Generate(context.Background(), "BTCUSDT", ModeTechnical)
	if err == nil {
		t.Fatal("expected error for empty history")
	}
	if errs.CategoryOf(err) != errs.CategoryValidation {
		t.Fatalf("category = %s, want validation", errs.CategoryOf(err))
	}
}

func TestScanFiltersAndSorts(t *testing.T) {
	mkt := &fakeMarket{
		tickers: map[string]model.Ticker{
			"BTCUSDT": {Last: 60000},
			"ETHUSDT": {Last: 3000},
			"SOLUSDT": {Last: 150},
		},
		candles: map[string][]model.Candle{
			"BTCUSDT": testCandles(30, 60000),
			"ETHUSDT": testCandles(30, 3000),
			"SOLUSDT": testCandles(30, 150),
		},
	}
	sent := &fakeSentiment{scores: map[string]float64{"BTC": 0.7, "ETH": 0.9, "SOL": 0.3}}
	g := NewGenerator(mkt, sent, nil)

	// DOGEUSDT has no market data; its failure must not abort the scan.
	out := g.Scan(context.Background(), []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "DOGEUSDT"}, ModeSentiment)
	if len(out) != 2 {
		t.Fatalf("signals = %d, want 2: %+v", len(out), out)
	}
	if out[0].Symbol != "ETHUSDT" || out[1].Symbol != "BTCUSDT" {
		t.Fatalf("unexpected order: %s, %s", out[0].Symbol, out[1].Symbol)
	}
}

func TestGenerateJournalsSignal(t *testing.T) {
	d, err := db.New(filepath.Join(t.TempDir(), "trading.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := db.ApplyMigrations(d); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mkt := &fakeMarket{
		tickers: map[string]model.Ticker{"BTCUSDT": {Last: 60000}},
		candles: map[string][]model.Candle{"BTCUSDT": testCandles(30, 60000)},
	}
	g := NewGenerator(mkt, nil, d)
	sig, err := g.Generate(context.Background(), "BTCUSDT", ModeTechnical)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var count int
	if err := d.DB.QueryRow(`SELECT COUNT(*) FROM signals WHERE id = ?`, sig.ID).Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 {
		t.Fatalf("journaled rows = %d, want 1", count)
	}
}

func TestLatestExcludesExpired(t *testing.T) {
	d, err := db.New(filepath.Join(t.TempDir(), "trading.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := db.ApplyMigrations(d); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	now := time.Now().UTC()
	seed := []db.SignalRow{
		{ID: "fresh", Symbol: "BTCUSDT", Type: "buy", Score: 0.8, Confidence: 0.8,
			Mode: "combined", CreatedAt: now, ExpiresAt: now.Add(4 * time.Hour)},
		// Alive by the clock on disk but dead by the generator's clock below.
		{ID: "edge", Symbol: "ETHUSDT", Type: "sell", Score: 0.7, Confidence: 0.7,
			Mode: "combined", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(30 * time.Minute)},
	}
	for _, s := range seed {
		if err := d.CreateSignal(context.Background(), s); err != nil {
			t.Fatalf("seed %s: %v", s.ID, err)
		}
	}

	g := NewGenerator(nil, nil, d)
	g.now = func() time.Time { return now.Add(time.Hour) }

	out, err := g.Latest(context.Background(), 10)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("signals = %d, want 1: %+v", len(out), out)
	}
	if out[0].ID != "fresh" || out[0].Type != model.SignalBuy {
		t.Fatalf("unexpected signal: %+v", out[0])
	}

	// No journal configured means no history, not an error.
	bare := NewGenerator(nil, nil, nil)
	if out, err := bare.Latest(context.Background(), 10); err != nil || out != nil {
		t.Fatalf("bare latest = %v, %v; want empty", out, err)
	}
}

func TestBaseAsset(t *testing.T) {
	cases := map[string]string{
		"BTCUSDT":  "BTC",
		"ETH-USD":  "ETH",
		"SOL/USDT": "SOL",
		"DOGEUSDC": "DOGE",
		"BTC":      "BTC",
	}
	for symbol, want := range cases {
		if got := baseAsset(symbol); got != want {
			t.Errorf("baseAsset(%q) = %q, want %q", symbol, got, want)
		}
	}
}
