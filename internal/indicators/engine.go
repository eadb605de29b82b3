package indicators

import (
	"sync"

	"crypto-core/pkg/model"
)

// Snapshot holds the indicator values used for technical scoring.
type Snapshot struct {
	Price          float64
	RSI            float64
	SMA            float64
	BollingerMid   float64
	BollingerUpper float64
	BollingerLower float64
	Support        float64
	Resistance     float64
}

// Engine maintains per-symbol price windows and computes the indicator
// snapshot used by signal generation.
type Engine struct {
	mu          sync.Mutex
	closes      map[string][]float64
	highs       map[string][]float64
	lows        map[string][]float64
	window      int
	smaPeriod   int
	rsiPeriod   int
	bollPeriod  int
	bollK       float64
	levelPeriod int
}

// NewEngine builds an indicator engine with default windows.
func NewEngine() *Engine {
	return &Engine{
		closes:      make(map[string][]float64),
		highs:       make(map[string][]float64),
		lows:        make(map[string][]float64),
		window:      100,
		smaPeriod:   20,
		rsiPeriod:   14,
		bollPeriod:  20,
		bollK:       2,
		levelPeriod: 20,
	}
}

// Ingest loads a candle series, replacing any window held for the symbol.
func (e *Engine) Ingest(symbol string, candles []model.Candle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	closes := make([]float64, 0, len(candles))
	highs := make([]float64, 0, len(candles))
	lows := make([]float64, 0, len(candles))
	for _, c := range candles {
		closes = append(closes, c.Close)
		highs = append(highs, c.High)
		lows = append(lows, c.Low)
	}
	e.closes[symbol] = trim(closes, e.window)
	e.highs[symbol] = trim(highs, e.window)
	e.lows[symbol] = trim(lows, e.window)
}

// Update appends one closing price (intra-bar ticks reuse high=low=close).
func (e *Engine) Update(symbol string, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closes[symbol] = trim(append(e.closes[symbol], price), e.window)
	e.highs[symbol] = trim(append(e.highs[symbol], price), e.window)
	e.lows[symbol] = trim(append(e.lows[symbol], price), e.window)
}

// Compute returns the snapshot for a symbol, false when the window holds no
// data.
func (e *Engine) Compute(symbol string) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	closes := e.closes[symbol]
	if len(closes) == 0 {
		return Snapshot{}, false
	}

	mid, upper, lower := Bollinger(closes, e.bollPeriod, e.bollK)
	support, resistance := SupportResistance(e.highs[symbol], e.lows[symbol], e.levelPeriod)
	return Snapshot{
		Price:          closes[len(closes)-1],
		RSI:            RSI(closes, e.rsiPeriod),
		SMA:            SMA(closes, e.smaPeriod),
		BollingerMid:   mid,
		BollingerUpper: upper,
		BollingerLower: lower,
		Support:        support,
		Resistance:     resistance,
	}, true
}

// FromCandles computes a snapshot directly from a candle series without
// touching engine state.
func FromCandles(candles []model.Candle) (Snapshot, bool) {
	e := NewEngine()
	e.Ingest("x", candles)
	return e.Compute("x")
}

func trim(values []float64, window int) []float64 {
	if len(values) > window {
		return values[len(values)-window:]
	}
	return values
}
