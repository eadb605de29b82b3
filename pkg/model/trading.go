package model

import "time"

// Order is a normalized trading order. Owned by the adapter request that
// produced it; treat as an immutable value.
type Order struct {
	ID           string      `json:"id"`
	Symbol       string      `json:"symbol"`
	Side         Side        `json:"side"`
	Type         OrderType   `json:"type"`
	Amount       float64     `json:"amount"`
	Price        float64     `json:"price,omitempty"`
	StopPrice    float64     `json:"stop_price,omitempty"`
	Status       OrderStatus `json:"status"`
	Exchange     Venue       `json:"exchange"`
	FilledAmount float64     `json:"filled_amount"`
	Fee          float64     `json:"fee"`
	FeeCurrency  string      `json:"fee_currency,omitempty"`
	DryRun       bool        `json:"dry_run"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Remaining returns the unfilled amount, never negative.
func (o Order) Remaining() float64 {
	r := o.Amount - o.FilledAmount
	if r < 0 {
		return 0
	}
	return r
}

// Balance is a normalized account balance. It belongs either to an exchange
// (Exchange set) or to a chain wallet (Chain + Address set), never both.
type Balance struct {
	Currency  string    `json:"currency"`
	Total     float64   `json:"total"`
	Available float64   `json:"available"`
	Locked    float64   `json:"locked"`
	Exchange  Venue     `json:"exchange,omitempty"`
	Chain     Chain     `json:"chain,omitempty"`
	Address   string    `json:"address,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Position is a simplified (spot-oriented) position record.
type Position struct {
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"` // long or short
	Size          float64   `json:"size"`
	EntryPrice    float64   `json:"entry_price"`
	CurrentPrice  float64   `json:"current_price"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	RealizedPnL   float64   `json:"realized_pnl"`
	Margin        float64   `json:"margin"`
	Leverage      float64   `json:"leverage"`
	Exchange      Venue     `json:"exchange"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Value returns the position notional at the current price.
func (p Position) Value() float64 { return p.Size * p.CurrentPrice }

// Portfolio is a derived point-in-time snapshot. It is recomputed on demand
// and never persisted as a source of truth.
type Portfolio struct {
	TotalValueUSD float64    `json:"total_value_usd"`
	Balances      []Balance  `json:"balances"`
	Positions     []Position `json:"positions"`
	UnrealizedPnL float64    `json:"unrealized_pnl"`
	RealizedPnL   float64    `json:"realized_pnl"`
	DailyPnL      float64    `json:"daily_pnl"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
