// Package signal fuses technical indicators with market sentiment into
// actionable trading signals.
package signal

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"crypto-core/internal/events"
	"crypto-core/internal/indicators"
	"crypto-core/pkg/db"
	"crypto-core/pkg/errs"
	"crypto-core/pkg/model"
)

// Mode selects which scores feed the final signal.
type Mode string

const (
	ModeTechnical Mode = "technical"
	ModeSentiment Mode = "sentiment"
	ModeCombined  Mode = "combined"
)

// Blend weights for combined mode.
const (
	technicalWeight = 0.7
	sentimentWeight = 0.3
)

const (
	buyThreshold  = 0.6
	sellThreshold = -0.6
	maxConfidence = 0.95
	holdFloor     = 0.5
	takeProfitPct = 0.08
	signalExpiry  = 4 * time.Hour
)

// MarketData supplies tickers and candle history. Satisfied by the market
// service.
type MarketData interface {
	Ticker(ctx context.Context, venue model.Venue, symbol string) (model.Ticker, error)
	Candles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
}

// SentimentScorer returns a sentiment score in [-1, 1] for a base asset.
// Satisfied by the sentiment client.
type SentimentScorer interface {
	Score(ctx context.Context, asset string, lookbackHours int) float64
}

// Generator produces trading signals per symbol.
type Generator struct {
	market    MarketData
	sentiment SentimentScorer
	store     *db.Database

	// Bus receives a signal_generated event per produced signal. Optional.
	Bus *events.Bus

	// ConfidenceFloor discards weaker signals during a scan.
	ConfidenceFloor float64
	Interval        string
	HistoryBars     int

	now func() time.Time
}

// NewGenerator wires a generator. store may be nil to skip journaling.
func NewGenerator(market MarketData, sentiment SentimentScorer, store *db.Database) *Generator {
	return &Generator{
		market:          market,
		sentiment:       sentiment,
		store:           store,
		ConfidenceFloor: 0.6,
		Interval:        "1h",
		HistoryBars:     100,
		now:             time.Now,
	}
}

// Generate builds one signal for a symbol under the requested mode.
func (g *Generator) Generate(ctx context.Context, symbol string, mode Mode) (model.Signal, error) {
	ticker, err := g.market.Ticker(ctx, model.VenueBinance, symbol)
	if err != nil {
		return model.Signal{}, err
	}
	candles, err := g.market.Candles(ctx, symbol, g.Interval, g.HistoryBars)
	if err != nil {
		return model.Signal{}, err
	}
	snap, ok := indicators.FromCandles(candles)
	if !ok {
		return model.Signal{}, errs.Validation("not enough history for %s", symbol)
	}
	if ticker.Last > 0 {
		snap.Price = ticker.Last
	}

	techScore, reasons := TechnicalScore(snap, ticker.ChangePct24h)

	var sentScore float64
	if mode == ModeSentiment || mode == ModeCombined {
		sentScore = g.sentimentScore(ctx, symbol)
	}

	var score float64
	var sources []string
	switch mode {
	case ModeSentiment:
		score = sentScore
		sources = []string{"sentiment"}
	case ModeCombined:
		score = technicalWeight*techScore + sentimentWeight*sentScore
		sources = []string{"technical", "sentiment"}
	default:
		score = techScore
		sources = []string{"technical"}
	}

	now := g.now().UTC()
	sig := model.Signal{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Type:       classify(score),
		Confidence: confidence(score),
		Timeframe:  g.Interval,
		Reasoning:  strings.Join(reasons, "; "),
		Sources:    sources,
		CreatedAt:  now,
		ExpiresAt:  now.Add(signalExpiry),
	}
	applyTargets(&sig, snap)

	if g.store != nil {
		row := db.SignalRow{
			ID:         sig.ID,
			Symbol:     sig.Symbol,
			Type:       string(sig.Type),
			Score:      score,
			Confidence: sig.Confidence,
			Mode:       string(mode),
			CreatedAt:  sig.CreatedAt,
			ExpiresAt:  sig.ExpiresAt,
		}
		if err := g.store.CreateSignal(ctx, row); err != nil {
			log.Printf("signal: journal %s failed: %v", sig.ID, err)
		}
	}
	if g.Bus != nil {
		g.Bus.Publish(events.EventSignalGenerated, sig)
	}
	return sig, nil
}

// Scan generates signals for many symbols concurrently, discards those below
// the confidence floor, and returns the rest sorted by confidence descending.
func (g *Generator) Scan(ctx context.Context, symbols []string, mode Mode) []model.Signal {
	results := make([]*model.Signal, len(symbols))
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			sig, err := g.Generate(ctx, symbol, mode)
			if err != nil {
				log.Printf("signal: %s generation failed: %v", symbol, err)
				return
			}
			results[i] = &sig
		}(i, symbol)
	}
	wg.Wait()

	var out []model.Signal
	for _, sig := range results {
		if sig == nil || sig.Confidence < g.ConfidenceFloor {
			continue
		}
		out = append(out, *sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// Latest returns recent journaled signals, newest first. Expired signals
// are never returned.
func (g *Generator) Latest(ctx context.Context, limit int) ([]model.Signal, error) {
	if g.store == nil {
		return nil, nil
	}
	rows, err := g.store.ListSignals(ctx, limit)
	if err != nil {
		return nil, err
	}
	now := g.now().UTC()
	out := make([]model.Signal, 0, len(rows))
	for _, r := range rows {
		sig := model.Signal{
			ID:         r.ID,
			Symbol:     r.Symbol,
			Type:       model.SignalType(r.Type),
			Confidence: r.Confidence,
			Timeframe:  g.Interval,
			Sources:    []string{r.Mode},
			CreatedAt:  r.CreatedAt,
			ExpiresAt:  r.ExpiresAt,
		}
		if sig.Expired(now) {
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}

// sentimentScore degrades to neutral when no scorer is configured.
func (g *Generator) sentimentScore(ctx context.Context, symbol string) float64 {
	if g.sentiment == nil {
		return 0
	}
	return g.sentiment.Score(ctx, baseAsset(symbol), 24)
}

func classify(score float64) model.SignalType {
	switch {
	case score > buyThreshold:
		return model.SignalBuy
	case score < sellThreshold:
		return model.SignalSell
	default:
		return model.SignalHold
	}
}

// confidence clamps |score| to maxConfidence, with a floor for holds so a
// neutral reading still carries weight.
func confidence(score float64) float64 {
	abs := score
	if abs < 0 {
		abs = -abs
	}
	if abs > maxConfidence {
		abs = maxConfidence
	}
	if classify(score) == model.SignalHold && abs < holdFloor {
		return holdFloor
	}
	return abs
}

// applyTargets fills price targets for directional signals. Buys target
// resistance with support as the stop; sells mirror it.
func applyTargets(sig *model.Signal, snap indicators.Snapshot) {
	switch sig.Type {
	case model.SignalBuy, model.SignalStrongBuy:
		sig.Target = snap.Resistance
		sig.StopLoss = snap.Support
		sig.TakeProfit = snap.Price * (1 + takeProfitPct)
	case model.SignalSell, model.SignalStrongSell:
		sig.Target = snap.Support
		sig.StopLoss = snap.Resistance
		sig.TakeProfit = snap.Price * (1 - takeProfitPct)
	}
}

// baseAsset strips a known quote suffix from a spot symbol.
func baseAsset(symbol string) string {
	upper := strings.ToUpper(symbol)
	for _, sep := range []string{"/", "-"} {
		if i := strings.Index(upper, sep); i > 0 {
			return upper[:i]
		}
	}
	for _, quote := range []string{"USDT", "USDC", "BUSD", "USD", "BTC", "ETH"} {
		if strings.HasSuffix(upper, quote) && len(upper) > len(quote) {
			return strings.TrimSuffix(upper, quote)
		}
	}
	return upper
}
