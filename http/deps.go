package httpapi

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/yourorg/appraisal-api/internal/events"
	"github.com/yourorg/appraisal-api/internal/store"
)

// Store is the persistence surface the CRUD handlers need. *store.Store
// satisfies it.
type Store interface {
	CreateProperty(ctx context.Context, p *store.Property) error
	GetProperty(ctx context.Context, id string) (store.Property, error)
	ListProperties(ctx context.Context, zip string, limit, offset int) ([]store.Property, error)
	UpdateProperty(ctx context.Context, p *store.Property) error
	DeleteProperty(ctx context.Context, id string) error

	CreateAppraisal(ctx context.Context, a *store.Appraisal) error
	GetAppraisal(ctx context.Context, id string) (store.Appraisal, error)
	ListAppraisals(ctx context.Context, f store.AppraisalFilter) ([]store.Appraisal, error)
	UpdateAppraisal(ctx context.Context, a *store.Appraisal) error
	DeleteAppraisal(ctx context.Context, id string) error

	CreateComparable(ctx context.Context, c *store.Comparable) error
	GetComparable(ctx context.Context, id string) (store.Comparable, error)
	ListComparables(ctx context.Context, appraisalID string) ([]store.Comparable, error)
	UpdateComparable(ctx context.Context, c *store.Comparable) error
	DeleteComparable(ctx context.Context, id string) error
	SetAdjustedPrice(ctx context.Context, comparableID string, price decimal.Decimal) error

	CreateAdjustment(ctx context.Context, a *store.Adjustment) error
	ListAdjustments(ctx context.Context, comparableID string) ([]store.Adjustment, error)
	DeleteAdjustment(ctx context.Context, id string) (string, error)

	UpsertMarketData(ctx context.Context, m *store.MarketData) error
	GetMarketData(ctx context.Context, id string) (store.MarketData, error)
	ListMarketData(ctx context.Context, zip string, limit int) ([]store.MarketData, error)
	DeleteMarketData(ctx context.Context, id string) error
}

// SalesSource is satisfied by *attom.Client.
type SalesSource interface {
	SalesByPostal(ctx context.Context, postal string, page, pageSize int) ([]byte, error)
}

// MarketSyncer is satisfied by *marketsync.Job.
type MarketSyncer interface {
	SyncZip(ctx context.Context, zip string) (store.MarketData, error)
}

type Deps struct {
	Store  Store
	Pub    events.Publisher // optional
	Sales  SalesSource      // optional; enables comparable import
	Syncer MarketSyncer     // optional; enables POST /v1/market-data/sync
	Logger *slog.Logger
}

func (d Deps) log() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) publish(ctx context.Context, appraisalID, reason string) {
	if d.Pub == nil || appraisalID == "" {
		return
	}
	d.Pub.PublishAppraisalChanged(ctx, events.AppraisalChanged{AppraisalID: appraisalID, Reason: reason})
}

// Register mounts every CRUD route.
func Register(r chi.Router, d Deps) {
	RegisterProperties(r, d)
	RegisterAppraisals(r, d)
	RegisterComparables(r, d)
	RegisterMarket(r, d)
}
