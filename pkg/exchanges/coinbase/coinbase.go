// Package coinbase implements the venue adapter for Coinbase Exchange.
package coinbase

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"crypto-core/pkg/errs"
	"crypto-core/pkg/exchanges/common"
	"crypto-core/pkg/model"
)

// Config holds Coinbase Exchange credentials. APISecret is the base64 key
// from the API settings page.
type Config struct {
	APIKey     string
	APISecret  string
	Passphrase string
	Sandbox    bool
}

// Client is a Coinbase Exchange adapter.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client

	initMu      sync.Mutex
	initialized bool
}

// New builds an uninitialized client; connectivity is verified lazily on
// first use.
func New(cfg Config) *Client {
	base := "https://api.exchange.coinbase.com"
	if cfg.Sandbox {
		base = "https://api-public.sandbox.exchange.coinbase.com"
	}
	return &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Name() model.Venue { return model.VenueCoinbase }

// Initialize verifies connectivity. Idempotent; a failed attempt may be
// retried.
func (c *Client) Initialize(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/time", nil)
	if err != nil {
		return err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.CategoryNetwork, err, "coinbase time")
	}
	res.Body.Close()
	if res.StatusCode >= 300 {
		return errs.Exchange("coinbase time status %d", res.StatusCode)
	}
	c.initialized = true
	return nil
}

// GetBalance returns all non-zero account balances.
func (c *Client) GetBalance(ctx context.Context) ([]model.Balance, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	body, err := c.doSigned(ctx, http.MethodGet, "/accounts", nil)
	if err != nil {
		return nil, err
	}
	var accounts []struct {
		Currency  string `json:"currency"`
		Balance   string `json:"balance"`
		Available string `json:"available"`
		Hold      string `json:"hold"`
	}
	if err := json.Unmarshal(body, &accounts); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	now := time.Now().UTC()
	var out []model.Balance
	for _, a := range accounts {
		total, _ := strconv.ParseFloat(a.Balance, 64)
		if total == 0 {
			continue
		}
		available, _ := strconv.ParseFloat(a.Available, 64)
		hold, _ := strconv.ParseFloat(a.Hold, 64)
		out = append(out, model.Balance{
			Currency:  a.Currency,
			Total:     total,
			Available: available,
			Locked:    hold,
			Exchange:  model.VenueCoinbase,
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
	productID := NormalizeSymbol(req.Symbol)
	payload := map[string]any{
		"product_id": productID,
		"side":       string(req.Side),
		"type":       string(req.Type),
		"size":       formatFloat(req.Qty),
	}
	if req.Type == model.OrderTypeLimit {
		payload["price"] = formatFloat(req.Price)
	}
	if req.ClientID != "" {
		payload["client_oid"] = req.ClientID
	}

	body, err := c.doSigned(ctx, http.MethodPost, "/orders", payload)
	if err != nil {
		return model.Order{}, err
	}
	var resp orderPayload
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Order{}, fmt.Errorf("decode order response: %w", err)
	}
	return resp.toOrder(), nil
}

// GetOrders lists orders; q.OpenOnly restricts to resting orders.
func (c *Client) GetOrders(ctx context.Context, q common.OrderQuery) ([]model.Order, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	path := "/orders?status=all"
	if q.OpenOnly {
		path = "/orders?status=open"
	}
	if q.Symbol != "" {
		path += "&product_id=" + NormalizeSymbol(q.Symbol)
	}
	if q.Limit > 0 {
		path += "&limit=" + strconv.Itoa(q.Limit)
	}

	body, err := c.doSigned(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var raw []orderPayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	out := make([]model.Order, 0, len(raw))
	for _, r := range raw {
		o := r.toOrder()
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// CancelOrder cancels a resting order by exchange order id.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	path := "/orders/" + orderID
	if symbol != "" {
		path += "?product_id=" + NormalizeSymbol(symbol)
	}
	_, err := c.doSigned(ctx, http.MethodDelete, path, nil)
	return err
}

// GetTicker combines the product ticker and 24h stats. Public endpoints.
func (c *Client) GetTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	productID := NormalizeSymbol(symbol)

	var tick struct {
		Price  string `json:"price"`
		Volume string `json:"volume"`
	}
	if err := c.getPublic(ctx, "/products/"+productID+"/ticker", &tick); err != nil {
		return model.Ticker{}, err
	}
	var stats struct {
		Open   string `json:"open"`
		High   string `json:"high"`
		Low    string `json:"low"`
		Volume string `json:"volume"`
	}
	if err := c.getPublic(ctx, "/products/"+productID+"/stats", &stats); err != nil {
		return model.Ticker{}, err
	}

	last, _ := strconv.ParseFloat(tick.Price, 64)
	open, _ := strconv.ParseFloat(stats.Open, 64)
	high, _ := strconv.ParseFloat(stats.High, 64)
	low, _ := strconv.ParseFloat(stats.Low, 64)
	vol, _ := strconv.ParseFloat(stats.Volume, 64)
	change := last - open
	changePct := 0.0
	if open != 0 {
		changePct = change / open * 100
	}
	return model.Ticker{
		Symbol:       productID,
		Last:         last,
		Change24h:    change,
		ChangePct24h: changePct,
		High24h:      high,
		Low24h:       low,
		Volume24h:    vol,
		QuoteVolume:  vol * last,
		Source:       model.VenueCoinbase,
		Timestamp:    time.Now().UTC(),
	}, nil
}

func (c *Client) ready(ctx context.Context) error {
	if err := common.RequireCredentials("coinbase", c.cfg.APIKey, c.cfg.APISecret); err != nil {
		return err
	}
	if c.cfg.Passphrase == "" {
		return errs.Authentication("coinbase: API passphrase required")
	}
	return c.Initialize(ctx)
}

// doSigned performs an authenticated request. The signature is a base64
// HMAC-SHA256 of timestamp+method+path+body keyed with the decoded secret.
func (c *Client) doSigned(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	sig, err := sign(c.cfg.APISecret, timestamp+method+path+string(bodyBytes))
	if err != nil {
		return nil, errs.Wrap(errs.CategoryAuthentication, err, "coinbase sign")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("CB-ACCESS-KEY", c.cfg.APIKey)
	req.Header.Set("CB-ACCESS-SIGN", sig)
	req.Header.Set("CB-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("CB-ACCESS-PASSPHRASE", c.cfg.Passphrase)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryNetwork, err, "coinbase %s %s", method, path)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return nil, common.ClassifyHTTP("coinbase", res.StatusCode, string(body))
	}
	return body, nil
}

func (c *Client) getPublic(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.CategoryNetwork, err, "coinbase GET %s", path)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return common.ClassifyHTTP("coinbase", res.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

type orderPayload struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Side       string `json:"side"`
	Type       string `json:"type"`
	Price      string `json:"price"`
	Size       string `json:"size"`
	FilledSize string `json:"filled_size"`
	FillFees   string `json:"fill_fees"`
	Status     string `json:"status"`
	DoneReason string `json:"done_reason"`
	CreatedAt  string `json:"created_at"`
	DoneAt     string `json:"done_at"`
}

func (p orderPayload) toOrder() model.Order {
	price, _ := strconv.ParseFloat(p.Price, 64)
	size, _ := strconv.ParseFloat(p.Size, 64)
	filled, _ := strconv.ParseFloat(p.FilledSize, 64)
	fee, _ := strconv.ParseFloat(p.FillFees, 64)
	created, _ := time.Parse(time.RFC3339, p.CreatedAt)
	updated := created
	if done, err := time.Parse(time.RFC3339, p.DoneAt); err == nil {
		updated = done
	}
	return model.Order{
		ID:           p.ID,
		Exchange:     model.VenueCoinbase,
		Symbol:       p.ProductID,
		Side:         model.Side(p.Side),
		Type:         model.OrderType(p.Type),
		Amount:       size,
		Price:        price,
		FilledAmount: filled,
		Fee:          fee,
		Status:       MapStatus(p.Status, p.DoneReason),
		CreatedAt:    created,
		UpdatedAt:    updated,
	}
}

// MapStatus normalizes a Coinbase order status. Done orders split into
// filled and cancelled by done_reason.
func MapStatus(status, doneReason string) model.OrderStatus {
	switch strings.ToLower(status) {
	case "open", "active":
		return model.StatusOpen
	case "pending", "received":
		return model.StatusPending
	case "rejected":
		return model.StatusRejected
	case "done", "settled":
		if strings.ToLower(doneReason) == "filled" || doneReason == "" {
			return model.StatusFilled
		}
		return model.StatusCancelled
	default:
		return model.StatusPending
	}
}

// NormalizeSymbol converts BTCUSDT or BTC/USDT into Coinbase's BTC-USDT.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(symbol)
	if strings.Contains(s, "-") {
		return s
	}
	if strings.Contains(s, "/") {
		return strings.ReplaceAll(s, "/", "-")
	}
	for _, quote := range []string{"USDT", "USDC", "USD", "EUR", "GBP", "BTC", "ETH", "DAI"} {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s[:len(s)-len(quote)] + "-" + quote
		}
	}
	return s
}

func sign(secret, message string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}
	h := hmac.New(sha256.New, key)
	h.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
