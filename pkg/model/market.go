package model

import "time"

// Ticker holds current price info for a symbol with 24h statistics.
type Ticker struct {
	Symbol        string    `json:"symbol"`
	Last          float64   `json:"last"`
	Change24h     float64   `json:"change_24h"`
	ChangePct24h  float64   `json:"change_pct_24h"`
	High24h       float64   `json:"high_24h"`
	Low24h        float64   `json:"low_24h"`
	Volume24h     float64   `json:"volume_24h"`
	QuoteVolume   float64   `json:"quote_volume"`
	Source        Venue     `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// Candle is one OHLCV bar.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timeframe string    `json:"timeframe"`
}
