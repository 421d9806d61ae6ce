// Kestrel - Transaction fraud scoring that deploys in 60 seconds.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/kestrel/internal/alert"
	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/intake"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"github.com/opensource-finance/kestrel/internal/seed"
	"github.com/opensource-finance/kestrel/internal/velocity"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration
	cfg, err := domain.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"rule_cache_ttl", cfg.Cache.RuleTTL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Seed sample users and default rules on first start
	if cfg.Seed {
		if err := seed.Run(ctx, repo); err != nil {
			slog.Error("failed to seed data", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Velocity Service
	velocitySvc := velocity.NewService(repo)

	// Initialize built-in heuristics
	heuristics, err := rules.NewHeuristics(cfg.Detection, velocitySvc.Counter())
	if err != nil {
		slog.Error("failed to initialize heuristics", "error", err)
		os.Exit(1)
	}
	slog.Info("heuristics initialized",
		"max_amount_threshold", cfg.Detection.MaxAmountThreshold,
		"velocity_window_minutes", cfg.Detection.VelocityWindowMinutes,
		"max_txns_per_window", cfg.Detection.MaxTransactionsPerWindow,
	)

	// Initialize stored-rule Evaluator
	evaluator, err := rules.NewEvaluator(velocitySvc.Counter())
	if err != nil {
		slog.Error("failed to initialize rule evaluator", "error", err)
		os.Exit(1)
	}

	// Active rules are read through the cache layer; with a zero TTL every
	// analysis re-reads the store.
	ruleSource := cache.NewRuleSource(
		domain.RuleSourceFunc(repo.ListActiveRules),
		cacheImpl,
		cfg.Cache.RuleTTL,
	)

	// Initialize Scoring Engine
	scorer := scoring.NewEngine(heuristics, evaluator, ruleSource)
	slog.Info("scoring engine initialized")

	// Initialize Intake Pipeline
	intakeSvc := intake.NewService(repo, scorer, busImpl)

	// Initialize Alert Notifier
	notifier := alert.NewNotifier(busImpl)
	if err := notifier.Start(ctx); err != nil {
		slog.Error("failed to start alert notifier", "error", err)
		os.Exit(1)
	}
	slog.Info("alert notifier started")

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, intakeSvc, evaluator, ruleSource, cacheImpl, busImpl, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if err := notifier.Stop(); err != nil {
		slog.Error("failed to stop alert notifier", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 KESTREL                  ║")
	fmt.Println("  ║      Transaction Fraud Scoring            ║")
	fmt.Println("  ║      Eyes on every transaction.           ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /api/transactions                  - Submit and analyze a transaction")
	fmt.Println("    GET  /api/transactions/{id}             - Get transaction by ID")
	fmt.Println("    POST /api/transactions/{id}/reanalyze   - Re-run fraud analysis")
	fmt.Println("    PUT  /api/transactions/{id}/status      - Override fraud status")
	fmt.Println("    GET  /api/transactions/status/{status}  - List transactions by status")
	fmt.Println("    GET  /api/fraud-rules                   - List all fraud rules")
	fmt.Println("    POST /api/fraud-rules                   - Create a fraud rule")
	fmt.Println("    PUT  /api/fraud-rules/{id}/toggle       - Toggle a fraud rule")
	fmt.Println("    GET  /api/users                         - List users")
	fmt.Println("    GET  /health                            - Health check")
	fmt.Println("    GET  /metrics                           - Prometheus metrics")
	fmt.Println()
}
