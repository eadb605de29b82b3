// Package common defines the venue-neutral adapter contract plus the error
// classification shared by every exchange client.
package common

import (
	"context"

	"crypto-core/pkg/model"
)

// OrderRequest captures an order intent to be sent to an exchange.
type OrderRequest struct {
	Symbol   string
	Side     model.Side
	Type     model.OrderType
	Qty      float64
	Price    float64 // required for limit orders
	ClientID string  // optional client order id
}

// OrderQuery filters order listings. Zero values mean no filter.
type OrderQuery struct {
	Symbol   string
	Status   model.OrderStatus
	OpenOnly bool
	Limit    int
}

// Adapter abstracts a trading venue. Implementations initialize lazily on
// first use; Initialize is idempotent and safe to call concurrently.
type Adapter interface {
	Name() model.Venue
	Initialize(ctx context.Context) error
	GetBalance(ctx context.Context) ([]model.Balance, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (model.Order, error)
	GetOrders(ctx context.Context, q OrderQuery) ([]model.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	GetTicker(ctx context.Context, symbol string) (model.Ticker, error)
}
