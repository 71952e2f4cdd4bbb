package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/yourorg/appraisal-api/attom"
	"github.com/yourorg/appraisal-api/internal/config"
	"github.com/yourorg/appraisal-api/internal/logger"
	"github.com/yourorg/appraisal-api/internal/marketsync"
	"github.com/yourorg/appraisal-api/internal/store"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("marketsync stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("APPRAISAL_CONFIG"))
	if err != nil {
		return err
	}
	log, err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	if err := config.Require(map[string]string{
		"attom.api_key": cfg.Attom.APIKey,
		"database.dsn":  cfg.Database.DSN,
	}); err != nil {
		return err
	}
	if len(cfg.MarketSync.Zips) == 0 {
		return fmt.Errorf("marketsync.zips must be provided")
	}

	client := attom.NewClient(cfg.Attom.APIKey, attom.Options{BaseURL: cfg.Attom.BaseURL, RPS: cfg.Attom.RPS})

	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("store open: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.Ping(ctx); err != nil {
		cancel()
		return fmt.Errorf("postgres ping: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		cancel()
		return fmt.Errorf("postgres migrate: %w", err)
	}
	cancel()

	job := &marketsync.Job{
		Client: client,
		Store:  st,
		Logger: log,
		Config: marketsync.Config{
			Zips:                 cfg.MarketSync.Zips,
			PageSize:             cfg.MarketSync.PageSize,
			MaxPagesPerZip:       cfg.MarketSync.MaxPages,
			Interval:             cfg.MarketSync.Interval,
			PauseBetweenRequests: cfg.MarketSync.PauseBetweenRequests,
			RequestTimeout:       cfg.MarketSync.RequestTimeout,
			IncludeTrend:         true,
		},
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MarketSync.RunOnce {
		if err := job.RunOnce(rootCtx); err != nil {
			return fmt.Errorf("market sync run failed: %w", err)
		}
		return nil
	}
	return job.Run(rootCtx)
}
