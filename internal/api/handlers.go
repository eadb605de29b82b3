package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"crypto-core/internal/events"
	"crypto-core/internal/execution"
	"crypto-core/internal/signal"
	"crypto-core/pkg/errs"
	"crypto-core/pkg/model"
)

// statusFor maps an error category onto an HTTP status code.
func statusFor(err error) int {
	switch errs.CategoryOf(err) {
	case errs.CategoryValidation, errs.CategoryInsufficientFunds:
		return http.StatusBadRequest
	case errs.CategoryAuthentication:
		return http.StatusUnauthorized
	case errs.CategoryRiskManagement:
		return http.StatusForbidden
	case errs.CategoryRateLimit:
		return http.StatusTooManyRequests
	case errs.CategoryExchange, errs.CategoryBlockchain, errs.CategoryNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), model.Fail(err, string(errs.CategoryOf(err))))
}

func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, model.OK(gin.H{
		"version":      s.Version,
		"live_trading": s.cfg.LiveTrading(),
		"sandbox":      s.cfg.BinanceSandbox,
	}, "system status"))
}

func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		c.JSON(http.StatusOK, model.OK(nil, "metrics disabled"))
		return
	}
	c.JSON(http.StatusOK, model.OK(s.Metrics.GetSnapshot(), "system metrics"))
}

func (s *Server) getPortfolio(c *gin.Context) {
	snapshot := s.Portfolio.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, model.OK(snapshot, "portfolio snapshot"))
}

func (s *Server) getBalances(c *gin.Context) {
	snapshot := s.Portfolio.Snapshot(c.Request.Context())
	balances := snapshot.Balances
	if currency := c.Query("currency"); currency != "" {
		filtered := balances[:0:0]
		for _, b := range balances {
			if strings.EqualFold(b.Currency, currency) {
				filtered = append(filtered, b)
			}
		}
		balances = filtered
	}
	c.JSON(http.StatusOK, model.OK(balances, "balances"))
}

func (s *Server) getAllocation(c *gin.Context) {
	top, err := strconv.Atoi(c.DefaultQuery("top", "10"))
	if err != nil || top <= 0 {
		fail(c, errs.Validation("top must be a positive integer"))
		return
	}
	ctx := c.Request.Context()
	snapshot := s.Portfolio.Snapshot(ctx)
	c.JSON(http.StatusOK, model.OK(s.Portfolio.Allocations(ctx, snapshot, top), "asset allocation"))
}

func (s *Server) getSignal(c *gin.Context) {
	symbol := c.Param("symbol")
	mode := signal.Mode(c.DefaultQuery("mode", string(signal.ModeCombined)))
	sig, err := s.Signals.Generate(c.Request.Context(), symbol, mode)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.OK(sig, "signal generated"))
}

// scanSignals serves two shapes: with a symbols query it generates fresh
// signals, without one it returns the latest journaled signals.
func (s *Server) scanSignals(c *gin.Context) {
	raw := c.Query("symbols")
	if raw == "" {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if err != nil || limit <= 0 {
			fail(c, errs.Validation("limit must be a positive integer"))
			return
		}
		signals, err := s.Signals.Latest(c.Request.Context(), limit)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, model.OK(signals, "latest signals"))
		return
	}
	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			symbols = append(symbols, trimmed)
		}
	}
	mode := signal.Mode(c.DefaultQuery("mode", string(signal.ModeCombined)))
	out := s.Signals.Scan(c.Request.Context(), symbols, mode)
	c.JSON(http.StatusOK, model.OK(out, "scan complete"))
}

func (s *Server) getTicker(c *gin.Context) {
	venue := model.Venue(c.DefaultQuery("exchange", string(model.VenueBinance)))
	ticker, err := s.Market.Ticker(c.Request.Context(), venue, c.Param("symbol"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.OK(ticker, "ticker"))
}

func (s *Server) getOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	rows, err := s.DB.ListOrders(c.Request.Context(), c.Query("exchange"), c.Query("symbol"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.OK(rows, "order history"))
}

func (s *Server) executeTrade(c *gin.Context) {
	var req execution.TradeRequest
	if err := c.BindJSON(&req); err != nil {
		fail(c, errs.Validation("invalid request payload"))
		return
	}
	order, err := s.Executor.Execute(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	message := "order simulated"
	if !order.DryRun {
		message = "order submitted"
	}
	c.JSON(http.StatusOK, model.OK(order, message))
}

func (s *Server) cancelOrder(c *gin.Context) {
	var req struct {
		Exchange model.Venue `json:"exchange"`
		Symbol   string      `json:"symbol"`
		Live     bool        `json:"live"`
	}
	if err := c.BindJSON(&req); err != nil {
		fail(c, errs.Validation("invalid request payload"))
		return
	}
	if req.Exchange == "" {
		req.Exchange = model.VenueBinance
	}
	orderID := c.Param("id")
	if err := s.Executor.Cancel(c.Request.Context(), req.Exchange, req.Symbol, orderID, req.Live); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.OK(gin.H{"order_id": orderID}, "order cancelled"))
}

func (s *Server) getRiskMetrics(c *gin.Context) {
	snapshot := s.Portfolio.Snapshot(c.Request.Context())
	metrics := s.Risk.PortfolioMetrics(snapshot)
	c.JSON(http.StatusOK, model.OK(gin.H{
		"metrics":    metrics,
		"daily_loss": s.Risk.DailyLoss(c.Request.Context()),
		"limits":     s.Risk.Limits(),
	}, "risk metrics"))
}

// recordOutcome books a realised trade result into the daily risk ledger.
func (s *Server) recordOutcome(c *gin.Context) {
	var req struct {
		Symbol string  `json:"symbol"`
		PnL    float64 `json:"pnl"`
	}
	if err := c.BindJSON(&req); err != nil {
		fail(c, errs.Validation("invalid request payload"))
		return
	}
	if req.Symbol == "" {
		fail(c, errs.Validation("symbol is required"))
		return
	}
	ctx := c.Request.Context()
	if err := s.Risk.RecordTradeOutcome(ctx, req.Symbol, req.PnL); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.OK(gin.H{
		"symbol":     req.Symbol,
		"pnl":        req.PnL,
		"daily_loss": s.Risk.DailyLoss(ctx),
	}, "outcome recorded"))
}

func (s *Server) getEmergencyStop(c *gin.Context) {
	ctx := c.Request.Context()
	snapshot := s.Portfolio.Snapshot(ctx)
	stop, reasons := s.Risk.EmergencyStopCheck(ctx, snapshot)
	if stop && s.Bus != nil {
		s.Bus.Publish(events.EventEmergencyStop, reasons)
	}
	c.JSON(http.StatusOK, model.OK(gin.H{
		"stop":    stop,
		"reasons": reasons,
	}, "emergency stop evaluated"))
}
