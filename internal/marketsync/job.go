// Package marketsync pulls recent sales per ZIP from ATTOM and stores the
// aggregated market statistics.
package marketsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/appraisal-api/attom"
	"github.com/yourorg/appraisal-api/internal/store"
)

// Client is satisfied by *attom.Client.
type Client interface {
	SalesByPostal(ctx context.Context, postal string, page, pageSize int) ([]byte, error)
	SalesTrend(ctx context.Context, postal string) ([]byte, error)
}

// Store is satisfied by *store.Store.
type Store interface {
	UpsertMarketData(ctx context.Context, m *store.MarketData) error
}

type Config struct {
	Zips                 []string
	PageSize             int
	MaxPagesPerZip       int
	Interval             time.Duration
	PauseBetweenRequests time.Duration
	RequestTimeout       time.Duration
	IncludeTrend         bool
	Source               string
}

type Job struct {
	Client Client
	Store  Store
	Logger *slog.Logger
	Config Config
	Now    func() time.Time
}

func (j *Job) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *Job) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *Job) validate() error {
	if j == nil {
		return errors.New("nil market sync job")
	}
	if j.Client == nil {
		return errors.New("market sync job missing client")
	}
	if j.Store == nil {
		return errors.New("market sync job missing store")
	}
	if j.Config.Source == "" {
		j.Config.Source = "attom"
	}
	return nil
}

// Run syncs immediately and then on every interval until ctx is cancelled.
// A zero interval runs once.
func (j *Job) Run(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	if len(j.Config.Zips) == 0 {
		return errors.New("market sync job requires at least one zip")
	}
	interval := j.Config.Interval
	if interval <= 0 {
		return j.RunOnce(ctx)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	j.log().Info("market sync starting", "interval", interval, "zips", len(j.Config.Zips))
	if err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		j.log().Error("market sync initial run failed", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			j.log().Info("market sync stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				j.log().Error("market sync iteration failed", "error", err)
			}
		}
	}
}

// RunOnce syncs every configured ZIP. Per-ZIP failures are joined; a quota
// error stops the pass.
func (j *Job) RunOnce(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	var joined error
	for _, rawZip := range j.Config.Zips {
		zip := strings.TrimSpace(rawZip)
		if zip == "" {
			continue
		}
		if _, err := j.SyncZip(ctx, zip); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, attom.ErrDailyLimitExceeded) {
				return err
			}
			joined = errors.Join(joined, err)
		}
	}
	return joined
}

// SyncZip pages through recent sales for zip, upserts the summary for the
// current month and, when enabled, one row per sales trend period.
func (j *Job) SyncZip(ctx context.Context, zip string) (store.MarketData, error) {
	if err := j.validate(); err != nil {
		return store.MarketData{}, err
	}
	records, err := j.fetchSales(ctx, zip)
	if err != nil {
		return store.MarketData{}, err
	}
	sum := attom.SummarizeSales(zip, records)
	if sum.SalesCount == 0 {
		j.log().Warn("market sync found no priced sales", "zip", zip)
	}
	now := j.now().UTC()
	row := store.MarketData{
		Zip:             zip,
		Period:          time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		MedianSalePrice: decimal.NewFromFloat(sum.MedianSalePrice).Round(2),
		AvgPricePerSqft: decimal.NewFromFloat(sum.AvgPricePerSqft).Round(2),
		SalesCount:      sum.SalesCount,
		Source:          j.Config.Source,
	}
	if err := j.Store.UpsertMarketData(ctx, &row); err != nil {
		return store.MarketData{}, fmt.Errorf("zip %s: %w", zip, err)
	}
	j.log().Info("market sync stored summary", "zip", zip, "sales", sum.SalesCount,
		"median", sum.MedianSalePrice, "price_per_sqft", sum.AvgPricePerSqft)

	if j.Config.IncludeTrend {
		if err := j.syncTrend(ctx, zip); err != nil {
			return row, err
		}
	}
	return row, nil
}

func (j *Job) fetchSales(ctx context.Context, zip string) ([]attom.SaleRecord, error) {
	pageSize := j.Config.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	maxPages := j.Config.MaxPagesPerZip
	if maxPages <= 0 {
		maxPages = 5
	}
	pause := j.Config.PauseBetweenRequests

	var all []attom.SaleRecord
	for page := 1; page <= maxPages; page++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		reqCtx, cancel := j.requestContext(ctx)
		raw, err := j.Client.SalesByPostal(reqCtx, zip, page, pageSize)
		cancel()
		if err != nil {
			if errors.Is(err, attom.ErrDailyLimitExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("zip %s page %d fetch: %w", zip, page, err)
		}
		recs, err := attom.MapSalesToComparables(raw)
		if err != nil {
			return nil, fmt.Errorf("zip %s page %d map: %w", zip, page, err)
		}
		all = append(all, recs...)
		if len(recs) < pageSize {
			break
		}
		if pause > 0 && page < maxPages {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(pause):
			}
		}
	}
	return all, nil
}

func (j *Job) syncTrend(ctx context.Context, zip string) error {
	reqCtx, cancel := j.requestContext(ctx)
	raw, err := j.Client.SalesTrend(reqCtx, zip)
	cancel()
	if err != nil {
		if errors.Is(err, attom.ErrDailyLimitExceeded) {
			return err
		}
		return fmt.Errorf("zip %s trend fetch: %w", zip, err)
	}
	points, err := attom.MapSalesTrend(raw)
	if err != nil {
		return fmt.Errorf("zip %s trend map: %w", zip, err)
	}
	for _, p := range points {
		row := store.MarketData{
			Zip:             zip,
			Period:          p.Period,
			MedianSalePrice: decimal.NewFromFloat(p.MedianSalePrice).Round(2),
			SalesCount:      p.SalesCount,
			Source:          j.Config.Source + "_trend",
		}
		if err := j.Store.UpsertMarketData(ctx, &row); err != nil {
			return fmt.Errorf("zip %s trend: %w", zip, err)
		}
	}
	return nil
}

func (j *Job) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := j.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
