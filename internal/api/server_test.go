package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-core/internal/events"
	"crypto-core/internal/execution"
	"crypto-core/internal/monitor"
	"crypto-core/internal/portfolio"
	"crypto-core/internal/risk"
	"crypto-core/internal/signal"
	"crypto-core/pkg/config"
	"crypto-core/pkg/db"
	"crypto-core/pkg/errs"
	"crypto-core/pkg/model"
)

type stubExecutor struct {
	order model.Order
	err   error
	calls int
}

func (s *stubExecutor) Execute(ctx context.Context, req execution.TradeRequest) (model.Order, error) {
	s.calls++
	return s.order, s.err
}

func (s *stubExecutor) Cancel(ctx context.Context, venue model.Venue, symbol, orderID string, live bool) error {
	return s.err
}

type stubPortfolio struct {
	snapshot *model.Portfolio
}

func (s *stubPortfolio) Snapshot(ctx context.Context) *model.Portfolio { return s.snapshot }
func (s *stubPortfolio) Allocations(ctx context.Context, p *model.Portfolio, top int) []portfolio.Allocation {
	return []portfolio.Allocation{{Currency: "BTC", ValueUSD: 100, Fraction: 1}}
}

type stubSignals struct {
	sig    model.Signal
	latest []model.Signal
	err    error
}

func (s *stubSignals) Generate(ctx context.Context, symbol string, mode signal.Mode) (model.Signal, error) {
	return s.sig, s.err
}

func (s *stubSignals) Scan(ctx context.Context, symbols []string, mode signal.Mode) []model.Signal {
	return []model.Signal{s.sig}
}

func (s *stubSignals) Latest(ctx context.Context, limit int) ([]model.Signal, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.latest) {
		return s.latest[:limit], nil
	}
	return s.latest, nil
}

type stubMarket struct {
	ticker model.Ticker
	err    error
}

func (s *stubMarket) Ticker(ctx context.Context, venue model.Venue, symbol string) (model.Ticker, error) {
	return s.ticker, s.err
}

func (s *stubMarket) Candles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	return nil, nil
}

type testServer struct {
	http     *httptest.Server
	executor *stubExecutor
	signals  *stubSignals
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:         "test-secret",
		APIPassword:       "hunter2",
		MaxOrderUSD:       1000,
		DailyLossLimitUSD: 5000,
	}
	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.ApplyMigrations(database))

	executor := &stubExecutor{order: model.Order{
		ID: "SIM_1", Symbol: "BTCUSDT", Status: model.StatusFilled, DryRun: true,
	}}
	signals := &stubSignals{sig: model.Signal{ID: "sig-1", Symbol: "BTCUSDT", Type: model.SignalHold, Confidence: 0.5}}
	s := NewServer(cfg, events.NewBus(), database,
		risk.NewManager(risk.DefaultLimits(cfg), database),
		executor,
		&stubPortfolio{snapshot: &model.Portfolio{
			TotalValueUSD: 100,
			Balances: []model.Balance{
				{Currency: "BTC", Available: 0.001, Total: 0.001, Exchange: model.VenueBinance},
				{Currency: "USDT", Available: 40, Total: 40, Exchange: model.VenueBinance},
			},
		}},
		signals,
		&stubMarket{ticker: model.Ticker{Symbol: "BTCUSDT", Last: 60000}},
		monitor.NewMetrics(),
		"test")

	ts := httptest.NewServer(s.Router)
	t.Cleanup(ts.Close)
	return &testServer{http: ts, executor: executor, signals: signals}
}

func (ts *testServer) login(t *testing.T, password string) (*http.Response, model.Result) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"password": password})
	resp, err := http.Post(ts.http.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var result model.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	return resp, result
}

func (ts *testServer) token(t *testing.T) string {
	t.Helper()
	resp, result := ts.login(t, "hunter2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := result.Data.(map[string]any)
	return data["token"].(string)
}

func (ts *testServer) request(t *testing.T, method, path, token string, body any) (*http.Response, model.Result) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.http.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var result model.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	return resp, result
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	ts := newTestServer(t)
	resp, result := ts.login(t, "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, result.Success)
	assert.Equal(t, string(errs.CategoryAuthentication), result.Category)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	resp, result := ts.request(t, http.MethodGet, "/api/portfolio", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, result.Success)
}

func TestPortfolioSnapshot(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t)
	resp, result := ts.request(t, http.MethodGet, "/api/portfolio", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, result.Success)
	data := result.Data.(map[string]any)
	assert.Equal(t, float64(100), data["total_value_usd"])
}

func TestExecuteTrade(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t)
	resp, result := ts.request(t, http.MethodPost, "/api/trade", token, execution.TradeRequest{
		Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeMarket, Amount: 0.001,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, result.Success)
	assert.Equal(t, 1, ts.executor.calls)
	data := result.Data.(map[string]any)
	assert.Equal(t, "SIM_1", data["id"])
}

func TestRiskRejectionMapsToForbidden(t *testing.T) {
	ts := newTestServer(t)
	ts.executor.err = errs.RiskManagement("trade rejected: too large")
	token := ts.token(t)
	resp, result := ts.request(t, http.MethodPost, "/api/trade", token, execution.TradeRequest{
		Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeMarket, Amount: 5,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, result.Success)
	assert.Equal(t, string(errs.CategoryRiskManagement), result.Category)
}

func TestSignalsWithoutSymbolsReturnsJournal(t *testing.T) {
	ts := newTestServer(t)
	ts.signals.latest = []model.Signal{
		{ID: "sig-2", Symbol: "ETHUSDT", Type: model.SignalBuy, Confidence: 0.8},
		{ID: "sig-1", Symbol: "BTCUSDT", Type: model.SignalHold, Confidence: 0.5},
	}
	token := ts.token(t)

	resp, result := ts.request(t, http.MethodGet, "/api/signals", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, result.Success)
	signals := result.Data.([]any)
	require.Len(t, signals, 2)
	first := signals[0].(map[string]any)
	assert.Equal(t, "sig-2", first["id"])

	resp, result = ts.request(t, http.MethodGet, "/api/signals?limit=1", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, result.Data.([]any), 1)
}

func TestSignalsRejectsBadLimit(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t)
	resp, result := ts.request(t, http.MethodGet, "/api/signals?limit=zero", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(errs.CategoryValidation), result.Category)
}

func TestScanSignals(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t)
	resp, result := ts.request(t, http.MethodGet, "/api/signals?symbols=BTCUSDT,ETHUSDT", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, result.Success)
	signals := result.Data.([]any)
	assert.Len(t, signals, 1)
}

func TestGetBalances(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t)

	resp, result := ts.request(t, http.MethodGet, "/api/balances", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, result.Success)
	balances := result.Data.([]any)
	assert.Len(t, balances, 2)

	resp, result = ts.request(t, http.MethodGet, "/api/balances?currency=usdt", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	balances = result.Data.([]any)
	require.Len(t, balances, 1)
	entry := balances[0].(map[string]any)
	assert.Equal(t, "USDT", entry["currency"])
}

func TestGetTicker(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t)
	resp, result := ts.request(t, http.MethodGet, "/api/ticker/BTCUSDT", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := result.Data.(map[string]any)
	assert.Equal(t, float64(60000), data["last"])
}

func TestRiskMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t)
	resp, result := ts.request(t, http.MethodGet, "/api/risk/metrics", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, result.Success)
	data := result.Data.(map[string]any)
	assert.Contains(t, data, "metrics")
	assert.Contains(t, data, "daily_loss")
}

func TestRecordOutcomeFeedsDailyLoss(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t)

	resp, result := ts.request(t, http.MethodPost, "/api/risk/outcome", token, map[string]any{
		"symbol": "BTCUSDT", "pnl": -250.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, result.Success)
	data := result.Data.(map[string]any)
	assert.Equal(t, float64(250), data["daily_loss"])

	resp, result = ts.request(t, http.MethodGet, "/api/risk/metrics", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = result.Data.(map[string]any)
	assert.Equal(t, float64(250), data["daily_loss"])
}

func TestRecordOutcomeRequiresSymbol(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t)
	resp, result := ts.request(t, http.MethodPost, "/api/risk/outcome", token, map[string]any{"pnl": -10.0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(errs.CategoryValidation), result.Category)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	// Prior requests should already be counted by the logger middleware.
	resp, err := http.Get(ts.http.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	resp2, result := ts.request(t, http.MethodGet, "/api/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	require.True(t, result.Success)
	data := result.Data.(map[string]any)
	assert.GreaterOrEqual(t, data["api_requests"], float64(1))
}

func TestSystemStatusIsPublic(t *testing.T) {
	ts := newTestServer(t)
	resp, result := ts.request(t, http.MethodGet, "/api/system/status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := result.Data.(map[string]any)
	assert.Equal(t, false, data["live_trading"])
}
