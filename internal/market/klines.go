package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crypto-core/pkg/errs"
	"crypto-core/pkg/model"
)

// KlineClient fetches historical candles from the Binance public REST API.
type KlineClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewKlineClient builds a public kline client; sandbox toggles the host.
func NewKlineClient(sandbox bool) *KlineClient {
	base := "https://api.binance.com"
	if sandbox {
		base = "https://testnet.binance.vision"
	}
	return &KlineClient{
		BaseURL:    base,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetCandles fetches the most recent limit candles for symbol at interval.
func (c *KlineClient) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	u := fmt.Sprintf("%s/api/v3/klines?%s", c.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryNetwork, err, "binance klines %s", symbol)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errs.Exchange("binance klines status %d", res.StatusCode)
	}

	var raw [][]any
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(raw))
	for _, item := range raw {
		// Binance returns 12 fields per kline.
		if len(item) < 7 {
			continue
		}
		candles = append(candles, model.Candle{
			Symbol:    symbol,
			Timestamp: time.UnixMilli(toInt64(item[0])).UTC(),
			Open:      toFloat(item[1]),
			High:      toFloat(item[2]),
			Low:       toFloat(item[3]),
			Close:     toFloat(item[4]),
			Volume:    toFloat(item[5]),
			Timeframe: interval,
		})
	}
	return candles, nil
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case json.Number:
		f, _ := t.Float64()
		return f
	case float64:
		return t
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	case json.Number:
		i, _ := t.Int64()
		return i
	default:
		return 0
	}
}
