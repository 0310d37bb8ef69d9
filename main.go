package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quotefeed/internal/api"
	"quotefeed/internal/config"
	"quotefeed/internal/engine"
	"quotefeed/internal/logger"
	"quotefeed/internal/quotes"
	"quotefeed/internal/registry"
	"quotefeed/internal/store"
)

var version = "dev"

func main() {
	logger.Banner(version)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("CONFIG", fmt.Sprintf("failed to load configuration: %v", err))
		os.Exit(1)
	}

	reg, err := registry.Load(cfg.Universe, cfg.InstrumentsFile)
	if err != nil {
		logger.Error("REGISTRY", fmt.Sprintf("failed to load instrument registry: %v", err))
		os.Exit(1)
	}
	logger.Success("REGISTRY", fmt.Sprintf("%d instruments loaded", len(reg.Symbols())))

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("failed to open database: %v", err))
		os.Exit(1)
	}
	defer db.Close()

	provider := quotes.NewHTTPProvider(quoteProviderBaseURL())
	cache := quotes.NewCache()
	quoteSvc := quotes.NewService(reg, provider, cache)

	mtm := engine.NewMarkToMarketer(db, reg, cfg.MTMAllPositions)
	rules := engine.NewRuleEvaluator(db)
	closer := engine.NewCloser(db, reg, rules)

	backfiller := engine.NewBackfiller(reg, provider, db, cfg.WatermarkFile, cfg.BackfillDays)
	if err := backfiller.Run(context.Background()); err != nil {
		logger.Warn("BACKFILL", fmt.Sprintf("historical backfill failed: %v", err))
	}

	poller := engine.NewPoller(reg, quoteSvc, db, mtm, closer, cfg.CacheTTLPoller, cfg.PollIntervalOpen, cfg.PollIntervalClosed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pollerDone := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(pollerDone)
	}()

	srv := api.NewServer(reg, quoteSvc, cfg.CacheTTLAPI, func() (int, time.Time) {
		return poller.CyclesRun(), poller.LastCycleAt()
	})

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		<-ctx.Done()
		logger.Info("SERVER", "shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("SERVER", fmt.Sprintf("shutdown error: %v", err))
		}
	}()

	logger.Info("SERVER", "listening on "+addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("SERVER", fmt.Sprintf("failed: %v", err))
		os.Exit(1)
	}
	<-pollerDone
	logger.Info("SERVER", "stopped")
}

// quoteProviderBaseURL resolves the upstream quote provider's base URL,
// defaulting to a placeholder URL so the binary still starts in an
// environment without a configured provider.
func quoteProviderBaseURL() string {
	if v := os.Getenv("QUOTE_PROVIDER_BASE_URL"); v != "" {
		return v
	}
	return "https://query1.finance.example.com/v8/finance"
}
