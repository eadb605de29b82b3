// Package binance implements the venue adapter for Binance spot.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"crypto-core/pkg/errs"
	"crypto-core/pkg/exchanges/common"
	"crypto-core/pkg/model"
)

// Config holds Binance credentials.
type Config struct {
	APIKey     string
	APISecret  string
	Sandbox    bool
	RecvWindow int64 // ms
}

// Client is a Binance spot adapter.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	timeSync   *common.TimeSync
	weights    *common.WeightTracker

	initMu      sync.Mutex
	initialized bool
}

// New builds an uninitialized client; connectivity is verified lazily on
// first use.
func New(cfg Config) *Client {
	base := "https://api.binance.com"
	if cfg.Sandbox {
		base = "https://testnet.binance.vision"
	}
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = 5000
	}
	c := &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	c.timeSync = common.NewTimeSync(func() (int64, error) {
		return c.getServerTime()
	})
	// 1200 weight/min for spot.
	c.weights = common.NewWeightTracker(1200, time.Minute)
	return c
}

func (c *Client) Name() model.Venue { return model.VenueBinance }

// Initialize verifies connectivity and syncs server time. It is idempotent;
// a failed attempt may be retried.
func (c *Client) Initialize(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/ping", nil)
	if err != nil {
		return err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.CategoryNetwork, err, "binance ping")
	}
	res.Body.Close()
	if res.StatusCode >= 300 {
		return errs.Exchange("binance ping status %d", res.StatusCode)
	}
	if err := c.timeSync.Sync(); err != nil {
		return errs.Wrap(errs.CategoryExchange, err, "binance time sync")
	}
	c.initialized = true
	return nil
}

// GetBalance returns all non-zero asset balances.
func (c *Client) GetBalance(ctx context.Context) ([]model.Balance, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	params := url.Values{}
	body, err := c.doSigned(ctx, http.MethodGet, "/api/v3/account", params)
	if err != nil {
		return nil, err
	}
	var info struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode account info: %w", err)
	}
	now := time.Now().UTC()
	var out []model.Balance
	for _, b := range info.Balances {
		free, _ := strconv.ParseFloat(b.Free, 64)
		locked, _ := strconv.ParseFloat(b.Locked, 64)
		if free == 0 && locked == 0 {
			continue
		}
		out = append(out, model.Balance{
			Currency:  b.Asset,
			Total:     free + locked,
			Available: free,
			Locked:    locked,
			Exchange:  model.VenueBinance,
			UpdatedAt: now,
		})
	}
	return out, nil
}

// PlaceOrder submits an order and returns the normalized ack.
func (c *Client) PlaceOrder(ctx context.Context, req common.OrderRequest) (model.Order, error) {
	if err := c.ready(ctx); err != nil {
		return model.Order{}, err
	}
	symbol := NormalizeSymbol(req.Symbol)
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", strings.ToUpper(string(req.Side)))
	params.Set("type", strings.ToUpper(string(req.Type)))
	params.Set("quantity", formatFloat(req.Qty))
	if req.Type == model.OrderTypeLimit {
		params.Set("price", formatFloat(req.Price))
		params.Set("timeInForce", "GTC")
	}
	if req.ClientID != "" {
		params.Set("newClientOrderId", req.ClientID)
	}

	body, err := c.doSigned(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return model.Order{}, err
	}

	var resp struct {
		OrderID       int64  `json:"orderId"`
		ClientOrderID string `json:"clientOrderId"`
		Status        string `json:"status"`
		Price         string `json:"price"`
		ExecutedQty   string `json:"executedQty"`
		Fills         []struct {
			Price string `json:"price"`
			Qty   string `json:"qty"`
		} `json:"fills"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Order{}, fmt.Errorf("decode order response: %w", err)
	}

	filled, _ := strconv.ParseFloat(resp.ExecutedQty, 64)
	price, _ := strconv.ParseFloat(resp.Price, 64)
	if price == 0 && len(resp.Fills) > 0 {
		price, _ = strconv.ParseFloat(resp.Fills[0].Price, 64)
	}
	now := time.Now().UTC()
	return model.Order{
		ID:           strconv.FormatInt(resp.OrderID, 10),
		Exchange:     model.VenueBinance,
		Symbol:       symbol,
		Side:         req.Side,
		Type:         req.Type,
		Amount:       req.Qty,
		Price:        price,
		FilledAmount: filled,
		Status:       MapStatus(resp.Status),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// GetOrders lists orders; q.OpenOnly selects only resting orders.
func (c *Client) GetOrders(ctx context.Context, q common.OrderQuery) ([]model.Order, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	params := url.Values{}
	path := "/api/v3/allOrders"
	if q.OpenOnly {
		path = "/api/v3/openOrders"
	}
	if q.Symbol != "" {
		params.Set("symbol", NormalizeSymbol(q.Symbol))
	} else if !q.OpenOnly {
		return nil, errs.Validation("binance: symbol required when listing order history")
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	body, err := c.doSigned(ctx, http.MethodGet, path, params)
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Symbol      string `json:"symbol"`
		OrderID     int64  `json:"orderId"`
		Side        string `json:"side"`
		Type        string `json:"type"`
		Price       string `json:"price"`
		OrigQty     string `json:"origQty"`
		ExecutedQty string `json:"executedQty"`
		Status      string `json:"status"`
		Time        int64  `json:"time"`
		UpdateTime  int64  `json:"updateTime"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	out := make([]model.Order, 0, len(raw))
	for _, r := range raw {
		status := MapStatus(r.Status)
		if q.Status != "" && status != q.Status {
			continue
		}
		price, _ := strconv.ParseFloat(r.Price, 64)
		qty, _ := strconv.ParseFloat(r.OrigQty, 64)
		filled, _ := strconv.ParseFloat(r.ExecutedQty, 64)
		out = append(out, model.Order{
			ID:           strconv.FormatInt(r.OrderID, 10),
			Exchange:     model.VenueBinance,
			Symbol:       r.Symbol,
			Side:         model.Side(strings.ToLower(r.Side)),
			Type:         model.OrderType(strings.ToLower(r.Type)),
			Amount:       qty,
			Price:        price,
			FilledAmount: filled,
			Status:       status,
			CreatedAt:    time.UnixMilli(r.Time).UTC(),
			UpdatedAt:    time.UnixMilli(r.UpdateTime).UTC(),
		})
	}
	return out, nil
}

// CancelOrder cancels a resting order by exchange order id.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	params := url.Values{}
	params.Set("symbol", NormalizeSymbol(symbol))
	params.Set("orderId", orderID)
	_, err := c.doSigned(ctx, http.MethodDelete, "/api/v3/order", params)
	return err
}

// GetTicker fetches 24h stats for a symbol. Public endpoint, no signature.
func (c *Client) GetTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	symbol = NormalizeSymbol(symbol)
	endpoint := c.baseURL + "/api/v3/ticker/24hr?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Ticker{}, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return model.Ticker{}, errs.Wrap(errs.CategoryNetwork, err, "binance ticker %s", symbol)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return model.Ticker{}, common.ClassifyHTTP("binance", res.StatusCode, string(body))
	}

	var raw struct {
		Symbol             string `json:"symbol"`
		LastPrice          string `json:"lastPrice"`
		PriceChange        string `json:"priceChange"`
		PriceChangePercent string `json:"priceChangePercent"`
		HighPrice          string `json:"highPrice"`
		LowPrice           string `json:"lowPrice"`
		Volume             string `json:"volume"`
		QuoteVolume        string `json:"quoteVolume"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.Ticker{}, fmt.Errorf("decode ticker: %w", err)
	}

	last, _ := strconv.ParseFloat(raw.LastPrice, 64)
	change, _ := strconv.ParseFloat(raw.PriceChange, 64)
	changePct, _ := strconv.ParseFloat(raw.PriceChangePercent, 64)
	high, _ := strconv.ParseFloat(raw.HighPrice, 64)
	low, _ := strconv.ParseFloat(raw.LowPrice, 64)
	vol, _ := strconv.ParseFloat(raw.Volume, 64)
	quoteVol, _ := strconv.ParseFloat(raw.QuoteVolume, 64)
	return model.Ticker{
		Symbol:       raw.Symbol,
		Last:         last,
		Change24h:    change,
		ChangePct24h: changePct,
		High24h:      high,
		Low24h:       low,
		Volume24h:    vol,
		QuoteVolume:  quoteVol,
		Source:       model.VenueBinance,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// ready runs lazy initialization and checks credentials for signed calls.
func (c *Client) ready(ctx context.Context) error {
	if err := common.RequireCredentials("binance", c.cfg.APIKey, c.cfg.APISecret); err != nil {
		return err
	}
	return c.Initialize(ctx)
}

// doSigned signs the query and performs the HTTP request.
func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if c.weights != nil {
		if err := c.weights.Throttle(ctx); err != nil {
			return nil, err
		}
	}

	timestamp := time.Now().UnixMilli()
	if c.timeSync != nil {
		// A stale offset drifts outside the recv window; refresh before
		// signing.
		if c.timeSync.Stale() {
			if err := c.timeSync.Sync(); err != nil {
				log.Printf("binance: time resync failed: %v", err)
			}
		}
		if c.timeSync.Offset() != 0 {
			timestamp = c.timeSync.Now()
		}
	}
	params.Set("timestamp", strconv.FormatInt(timestamp, 10))
	params.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))
	params.Set("signature", sign(params.Encode(), c.cfg.APISecret))

	endpoint := c.baseURL + path
	encoded := params.Encode()
	var (
		req *http.Request
		err error
	)
	switch method {
	case http.MethodGet, http.MethodDelete:
		// For GET/DELETE Binance expects signed params in the query string.
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+encoded, nil)
	default:
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(encoded))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryNetwork, err, "binance %s %s", method, path)
	}
	defer res.Body.Close()

	if c.weights != nil {
		c.weights.UpdateFromHeader(res.Header.Get("X-MBX-USED-WEIGHT-1M"))
	}

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return nil, common.ClassifyHTTP("binance", res.StatusCode, string(body))
	}
	return body, nil
}

func (c *Client) getServerTime() (int64, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/api/v3/time")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("server time status %d: %s", resp.StatusCode, string(b))
	}
	var res struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return 0, err
	}
	return res.ServerTime, nil
}

// MapStatus normalizes a Binance order status.
func MapStatus(s string) model.OrderStatus {
	switch strings.ToUpper(s) {
	case "NEW":
		return model.StatusOpen
	case "PARTIALLY_FILLED":
		return model.StatusPartiallyFilled
	case "FILLED":
		return model.StatusFilled
	case "CANCELED", "PENDING_CANCEL":
		return model.StatusCancelled
	case "REJECTED":
		return model.StatusRejected
	case "EXPIRED", "EXPIRED_IN_MATCH":
		return model.StatusExpired
	default:
		return model.StatusPending
	}
}

// NormalizeSymbol converts BTC/USDT or BTC-USDT into Binance's BTCUSDT.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(symbol)
	s = strings.ReplaceAll(s, "/", "")
	return strings.ReplaceAll(s, "-", "")
}

func sign(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
