// Package model holds the canonical market model shared by every component:
// orders, balances, positions, portfolio snapshots, tickers and signals.
// Records from different venues are normalized into these types and never
// merged at the record level.
package model

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType denotes supported order types.
type OrderType string

const (
	OrderTypeMarket     OrderType = "market"
	OrderTypeLimit      OrderType = "limit"
	OrderTypeStopLoss   OrderType = "stop_loss"
	OrderTypeTakeProfit OrderType = "take_profit"
	OrderTypeStopLimit  OrderType = "stop_limit"
)

// OrderStatus normalizes backend status vocabularies into a small set.
// Transitions are monotonic: a terminal status never re-opens.
type OrderStatus string

const (
	StatusPending         OrderStatus = "pending"
	StatusOpen            OrderStatus = "open"
	StatusFilled          OrderStatus = "filled"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusCancelled       OrderStatus = "cancelled"
	StatusRejected        OrderStatus = "rejected"
	StatusExpired         OrderStatus = "expired"
)

// Terminal reports whether the status allows no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Venue identifies a supported exchange.
type Venue string

const (
	VenueBinance  Venue = "binance"
	VenueCoinbase Venue = "coinbase"
	VenueKraken   Venue = "kraken"
	VenueBybit    Venue = "bybit"
	VenueOKX      Venue = "okx"
)

// Chain identifies a supported blockchain network.
type Chain string

const (
	ChainEthereum  Chain = "ethereum"
	ChainPolygon   Chain = "polygon"
	ChainArbitrum  Chain = "arbitrum"
	ChainOptimism  Chain = "optimism"
	ChainBase      Chain = "base"
	ChainBSC       Chain = "bsc"
	ChainAvalanche Chain = "avalanche"
	ChainSolana    Chain = "solana"
)

// EVM reports whether the chain speaks the Ethereum JSON-RPC interface.
func (c Chain) EVM() bool { return c != ChainSolana }

// NativeCurrency returns the gas/native token symbol for the chain.
func (c Chain) NativeCurrency() string {
	switch c {
	case ChainPolygon:
		return "MATIC"
	case ChainBSC:
		return "BNB"
	case ChainAvalanche:
		return "AVAX"
	case ChainSolana:
		return "SOL"
	default:
		return "ETH"
	}
}

// SignalType classifies a trading signal.
type SignalType string

const (
	SignalBuy        SignalType = "buy"
	SignalSell       SignalType = "sell"
	SignalHold       SignalType = "hold"
	SignalStrongBuy  SignalType = "strong_buy"
	SignalStrongSell SignalType = "strong_sell"
)
