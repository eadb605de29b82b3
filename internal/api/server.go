// Package api exposes the trading core over HTTP: portfolio snapshots,
// signal generation, risk-gated trade execution and a websocket price feed.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"crypto-core/internal/events"
	"crypto-core/internal/execution"
	"crypto-core/internal/monitor"
	"crypto-core/internal/portfolio"
	"crypto-core/internal/risk"
	"crypto-core/internal/signal"
	"crypto-core/pkg/config"
	"crypto-core/pkg/db"
	"crypto-core/pkg/model"
)

// TradeExecutor runs the trade pipeline. Satisfied by the executor.
type TradeExecutor interface {
	Execute(ctx context.Context, req execution.TradeRequest) (model.Order, error)
	Cancel(ctx context.Context, venue model.Venue, symbol, orderID string, live bool) error
}

// PortfolioReader aggregates balance sources. Satisfied by the aggregator.
type PortfolioReader interface {
	Snapshot(ctx context.Context) *model.Portfolio
	Allocations(ctx context.Context, p *model.Portfolio, top int) []portfolio.Allocation
}

// SignalService generates trading signals and serves the journal of recent
// ones. Satisfied by the generator.
type SignalService interface {
	Generate(ctx context.Context, symbol string, mode signal.Mode) (model.Signal, error)
	Scan(ctx context.Context, symbols []string, mode signal.Mode) []model.Signal
	Latest(ctx context.Context, limit int) ([]model.Signal, error)
}

// MarketReader resolves tickers and history. Satisfied by the market service.
type MarketReader interface {
	Ticker(ctx context.Context, venue model.Venue, symbol string) (model.Ticker, error)
	Candles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
}

// Server wires HTTP endpoints around the trading core.
type Server struct {
	Router    *gin.Engine
	cfg       *config.Config
	Bus       *events.Bus
	DB        *db.Database
	Risk      *risk.Manager
	Executor  TradeExecutor
	Portfolio PortfolioReader
	Signals   SignalService
	Market    MarketReader
	Metrics   *monitor.Metrics
	Version   string
}

// NewServer assembles the router and middleware stack.
func NewServer(cfg *config.Config, bus *events.Bus, database *db.Database, riskMgr *risk.Manager, executor TradeExecutor, reader PortfolioReader, signals SignalService, market MarketReader, metrics *monitor.Metrics, version string) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(metrics))
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		cfg:       cfg,
		Bus:       bus,
		DB:        database,
		Risk:      riskMgr,
		Executor:  executor,
		Portfolio: reader,
		Signals:   signals,
		Market:    market,
		Metrics:   metrics,
		Version:   version,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.POST("/auth/login", s.login)
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/metrics", s.getMetrics)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.cfg.JWTSecret))
		{
			protected.GET("/portfolio", s.getPortfolio)
			protected.GET("/portfolio/allocation", s.getAllocation)
			protected.GET("/balances", s.getBalances)
			protected.GET("/signals", s.scanSignals)
			protected.GET("/signals/:symbol", s.getSignal)
			protected.GET("/ticker/:symbol", s.getTicker)
			protected.GET("/orders", s.getOrders)
			protected.POST("/trade", s.executeTrade)
			protected.POST("/orders/:id/cancel", s.cancelOrder)
			protected.GET("/risk/metrics", s.getRiskMetrics)
			protected.POST("/risk/outcome", s.recordOutcome)
			protected.GET("/risk/emergency-stop", s.getEmergencyStop)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
