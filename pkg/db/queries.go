package db

import (
	"context"
	"database/sql"
	"time"
)

// CreateOrder inserts a new order row.
func (d *Database) CreateOrder(ctx context.Context, o OrderRow) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO orders (
			id, venue, symbol, side, type, price, qty, filled_qty, status, simulated, fee, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`,
		o.ID, o.Venue, o.Symbol, o.Side, o.Type, o.Price, o.Qty, o.FilledQty,
		o.Status, boolToInt(o.Simulated), o.Fee, nullableTime(o.CreatedAt),
	)
	return err
}

// UpdateOrderStatus sets the status of an order.
func (d *Database) UpdateOrderStatus(ctx context.Context, id, status string) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, id)
	return err
}

// UpdateOrderFill sets status, filled quantity and fill price.
func (d *Database) UpdateOrderFill(ctx context.Context, id, status string, filledQty, price float64) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, filled_qty = ?, price = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, filledQty, price, id)
	return err
}

// ListOrders returns journal orders, newest first. venue and symbol filter
// when non-empty.
func (d *Database) ListOrders(ctx context.Context, venue, symbol string, limit int) ([]OrderRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, venue, symbol, side, type, price, qty, filled_qty, status, simulated, fee, created_at, updated_at
		FROM orders
		WHERE (? = '' OR venue = ?) AND (? = '' OR symbol = ?)
		ORDER BY created_at DESC
		LIMIT ?`, venue, venue, symbol, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []OrderRow
	for rows.Next() {
		var o OrderRow
		var simulated int
		if err := rows.Scan(&o.ID, &o.Venue, &o.Symbol, &o.Side, &o.Type, &o.Price, &o.Qty,
			&o.FilledQty, &o.Status, &simulated, &o.Fee, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Simulated = simulated != 0
		res = append(res, o)
	}
	return res, rows.Err()
}

// CreateTrade inserts a fill row.
func (d *Database) CreateTrade(ctx context.Context, t TradeRow) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO trades (
			id, order_id, venue, symbol, side, price, qty, fee, pnl, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`,
		t.ID, t.OrderID, t.Venue, t.Symbol, t.Side, t.Price, t.Qty, t.Fee, t.PnL,
		nullableTime(t.CreatedAt),
	)
	return err
}

// CreateSignal stores a generated signal for audit.
func (d *Database) CreateSignal(ctx context.Context, s SignalRow) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO signals (id, symbol, type, score, confidence, mode, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP), ?)
	`, s.ID, s.Symbol, s.Type, s.Score, s.Confidence, s.Mode,
		nullableTime(s.CreatedAt), nullableTime(s.ExpiresAt))
	return err
}

// ListSignals returns journaled signals newest first, excluding rows past
// their expiry.
func (d *Database) ListSignals(ctx context.Context, limit int) ([]SignalRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, symbol, type, score, confidence, mode, created_at, expires_at
		FROM signals
		WHERE expires_at IS NULL OR expires_at > ?
		ORDER BY created_at DESC
		LIMIT ?`, time.Now().UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []SignalRow
	for rows.Next() {
		var s SignalRow
		var expires sql.NullTime
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Type, &s.Score, &s.Confidence,
			&s.Mode, &s.CreatedAt, &expires); err != nil {
			return nil, err
		}
		if expires.Valid {
			s.ExpiresAt = expires.Time
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// AddDayOutcome folds one realized trade outcome into the day's ledger row.
func (d *Database) AddDayOutcome(ctx context.Context, date string, pnl float64) error {
	win, loss := 0, 0
	if pnl > 0 {
		win = 1
	} else if pnl < 0 {
		loss = 1
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO risk_days (date, realized_pnl, trade_count, wins, losses)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			realized_pnl = realized_pnl + excluded.realized_pnl,
			trade_count = trade_count + 1,
			wins = wins + excluded.wins,
			losses = losses + excluded.losses
	`, date, pnl, win, loss)
	return err
}

// DayLedger returns the ledger row for date, zero-valued when absent.
func (d *Database) DayLedger(ctx context.Context, date string) (RiskDay, error) {
	day := RiskDay{Date: date}
	err := d.DB.QueryRowContext(ctx, `
		SELECT realized_pnl, trade_count, wins, losses FROM risk_days WHERE date = ?
	`, date).Scan(&day.RealizedPnL, &day.TradeCount, &day.Wins, &day.Losses)
	if err == sql.ErrNoRows {
		return day, nil
	}
	return day, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
