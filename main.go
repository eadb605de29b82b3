package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"crypto-core/internal/api"
	"crypto-core/internal/events"
	"crypto-core/internal/execution"
	"crypto-core/internal/indicators"
	"crypto-core/internal/market"
	"crypto-core/internal/monitor"
	"crypto-core/internal/portfolio"
	"crypto-core/internal/risk"
	"crypto-core/internal/sentiment"
	tradesignal "crypto-core/internal/signal"
	"crypto-core/pkg/config"
	"crypto-core/pkg/db"
	"crypto-core/pkg/exchanges"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("starting trading core on port %s (live=%t)", cfg.Port, cfg.LiveTrading())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("db migrations failed: %v", err)
	}

	limits, err := risk.LoadLimits(cfg)
	if err != nil {
		log.Printf("risk config load failed, using defaults: %v", err)
		limits = risk.DefaultLimits(cfg)
	}
	riskMgr := risk.NewManager(limits, database)

	registry := exchanges.NewRegistry(cfg)
	marketSvc := market.NewService(cfg, registry)
	sentimentClient := sentiment.NewClient(cfg)

	aggregator := portfolio.NewAggregator(cfg, registry, marketSvc)
	signals := tradesignal.NewGenerator(marketSvc, sentimentClient, database)
	signals.Bus = bus
	executor := execution.NewExecutor(cfg, registry, marketSvc, riskMgr, aggregator, database, bus)

	// Live price feed into the indicator engine and event bus.
	indEngine := indicators.NewEngine()
	feed := market.Feed{
		Stream:     market.NewStreamClient(cfg.BinanceSandbox),
		Bus:        bus,
		Indicators: indEngine,
		Symbols:    cfg.Symbols,
	}
	feed.Start(ctx)

	metrics := monitor.NewMetrics()
	collector := monitor.Collector{Bus: bus, Metrics: metrics}
	collector.Start(ctx)

	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = "dev"
	}
	server := api.NewServer(cfg, bus, database, riskMgr, executor, aggregator, signals, marketSvc, metrics, version)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
}
