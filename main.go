package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/yourorg/appraisal-api/attom"
	httpapi "github.com/yourorg/appraisal-api/http"
	httpv1 "github.com/yourorg/appraisal-api/http/v1"
	"github.com/yourorg/appraisal-api/internal/appraisal"
	"github.com/yourorg/appraisal-api/internal/config"
	"github.com/yourorg/appraisal-api/internal/events"
	"github.com/yourorg/appraisal-api/internal/logger"
	"github.com/yourorg/appraisal-api/internal/marketsync"
	"github.com/yourorg/appraisal-api/internal/redisx"
	"github.com/yourorg/appraisal-api/internal/refresh"
	"github.com/yourorg/appraisal-api/internal/revaluer"
	"github.com/yourorg/appraisal-api/internal/store"
	"github.com/yourorg/appraisal-api/internal/valuation"
)

func main() {
	if err := run(); err != nil {
		slog.Error("appraisal-api stopped", "error", err)
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
	if err := config.Require(map[string]string{"database.dsn": cfg.Database.DSN}); err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return err
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

	var (
		cache appraisal.Cache
		lock  httpv1.Locker
	)
	if cfg.Redis.Addr != "" {
		rc := redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rc.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn("redis unavailable; valuations will not be cached", "addr", cfg.Redis.Addr, "error", err)
		} else {
			cache, lock = rc, rc
		}
		cancel()
	}

	eng, err := valuation.NewEngine(cfg.Valuation)
	if err != nil {
		return err
	}
	svc := &appraisal.Service{Store: st, Engine: eng, Cache: cache, CacheTTL: cfg.Cache.TTL, Logger: log}

	pub := events.NewInMemory(cfg.Refresh.Queue)
	rv := &revaluer.Revaluer{Pub: pub, Service: svc, Logger: log}
	queue := refresh.New(cfg.Refresh.Queue, cfg.Refresh.Workers, cfg.Refresh.Timeout, rv.Revalue)
	rv.Queue = queue

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	revaluerDone := make(chan struct{})
	go func() {
		defer close(revaluerDone)
		rv.Run(rootCtx)
	}()

	api := httpapi.Deps{Store: st, Pub: pub, Logger: log}
	if cfg.Attom.APIKey != "" {
		client := attom.NewClient(cfg.Attom.APIKey, attom.Options{BaseURL: cfg.Attom.BaseURL, RPS: cfg.Attom.RPS})
		api.Sales = client
		api.Syncer = &marketsync.Job{
			Client: client,
			Store:  st,
			Logger: log,
			Config: marketsync.Config{
				PageSize:       cfg.MarketSync.PageSize,
				MaxPagesPerZip: cfg.MarketSync.MaxPages,
				RequestTimeout: cfg.MarketSync.RequestTimeout,
				IncludeTrend:   true,
			},
		}
	} else {
		log.Info("attom.api_key not set; comparable import and market sync endpoints disabled")
	}

	router := BuildRouter(RouterDeps{
		API:       api,
		Valuation: httpv1.ValuationDeps{Engine: eng, Service: svc, Lock: lock},
		RateLimit: cfg.HTTP.RateLimit,
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("appraisal-api listening", "port", cfg.HTTP.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-rootCtx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	// the revaluer is the only caller of Enqueue; it must stop before the queue closes
	stop()
	<-revaluerDone
	queue.Close()
	return nil
}
