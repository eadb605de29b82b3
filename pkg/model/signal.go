package model

import "time"

// Signal is a generated trading signal. Expired signals must not be consumed.
type Signal struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Type       SignalType `json:"signal_type"`
	Confidence float64    `json:"confidence"` // in [0,1]
	Target     float64    `json:"price_target,omitempty"`
	StopLoss   float64    `json:"stop_loss,omitempty"`
	TakeProfit float64    `json:"take_profit,omitempty"`
	Timeframe  string     `json:"timeframe"`
	Reasoning  string     `json:"reasoning"`
	Sources    []string   `json:"sources"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// Expired reports whether the signal is past its expiry at the given time.
func (s Signal) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
