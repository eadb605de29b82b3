package db

import "time"

// OrderRow is a trading order as stored in the journal.
type OrderRow struct {
	ID        string
	Venue     string
	Symbol    string
	Side      string
	Type      string
	Price     float64
	Qty       float64
	FilledQty float64
	Status    string
	Simulated bool
	Fee       float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TradeRow is a fill as stored in the journal.
type TradeRow struct {
	ID        string
	OrderID   string
	Venue     string
	Symbol    string
	Side      string
	Price     float64
	Qty       float64
	Fee       float64
	PnL       float64
	CreatedAt time.Time
}

// SignalRow is a generated trading signal as stored for audit.
type SignalRow struct {
	ID         string
	Symbol     string
	Type       string
	Score      float64
	Confidence float64
	Mode       string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// RiskDay accumulates realized results for one UTC calendar day.
type RiskDay struct {
	Date        string
	RealizedPnL float64
	TradeCount  int
	Wins        int
	Losses      int
}
