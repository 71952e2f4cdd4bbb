package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"
	"github.com/yourorg/appraisal-api/internal/store"
)

type MarketDataRequest struct {
	Zip             string          `json:"zip"`
	Period          string          `json:"period"`
	MedianSalePrice decimal.Decimal `json:"median_sale_price"`
	AvgPricePerSqft decimal.Decimal `json:"avg_price_per_sqft"`
	AvgDaysOnMarket float64         `json:"avg_days_on_market"`
	SalesCount      int             `json:"sales_count"`
	ActiveListings  int             `json:"active_listings"`
	Source          string          `json:"source,omitempty"`
}

type SyncRequest struct {
	Zip string `json:"zip"`
}

func (b MarketDataRequest) toMarketData() (store.MarketData, error) {
	zip := strings.TrimSpace(b.Zip)
	if zip == "" {
		return store.MarketData{}, badRequest("zip is required")
	}
	period, err := parseDate("period", b.Period)
	if err != nil {
		return store.MarketData{}, err
	}
	if period == nil {
		return store.MarketData{}, badRequest("period is required")
	}
	if b.MedianSalePrice.IsNegative() || b.AvgPricePerSqft.IsNegative() {
		return store.MarketData{}, badRequest("prices must not be negative")
	}
	if b.AvgDaysOnMarket < 0 || b.SalesCount < 0 || b.ActiveListings < 0 {
		return store.MarketData{}, badRequest("counts must not be negative")
	}
	return store.MarketData{
		Zip:             zip,
		Period:          time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, time.UTC),
		MedianSalePrice: b.MedianSalePrice,
		AvgPricePerSqft: b.AvgPricePerSqft,
		AvgDaysOnMarket: b.AvgDaysOnMarket,
		SalesCount:      b.SalesCount,
		ActiveListings:  b.ActiveListings,
		Source:          strings.TrimSpace(b.Source),
	}, nil
}

func RegisterMarket(r chi.Router, d Deps) {
	r.Route("/v1/market-data", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			rows, err := d.Store.ListMarketData(req.Context(), strings.TrimSpace(req.URL.Query().Get("zip")), queryInt(req, "limit", 24))
			if err != nil {
				Fail(w, req, err)
				return
			}
			render.JSON(w, req, map[string]any{"ok": true, "count": len(rows), "market_data": rows})
		})

		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var body MarketDataRequest
			if !DecodeOrFail(w, req, &body) {
				return
			}
			m, err := body.toMarketData()
			if err != nil {
				Fail(w, req, err)
				return
			}
			if err := d.Store.UpsertMarketData(req.Context(), &m); err != nil {
				Fail(w, req, err)
				return
			}
			render.Status(req, http.StatusCreated)
			render.JSON(w, req, map[string]any{"ok": true, "market_data": m})
		})

		r.Post("/sync", func(w http.ResponseWriter, req *http.Request) {
			if d.Syncer == nil {
				Error(w, req, http.StatusServiceUnavailable, "sync_disabled", "no market data provider configured")
				return
			}
			var body SyncRequest
			if !DecodeOrFail(w, req, &body) {
				return
			}
			zip := strings.TrimSpace(body.Zip)
			if zip == "" {
				Fail(w, req, badRequest("zip is required"))
				return
			}
			m, err := d.Syncer.SyncZip(req.Context(), zip)
			if err != nil {
				Fail(w, req, err)
				return
			}
			render.JSON(w, req, map[string]any{"ok": true, "market_data": m})
		})

		r.Get("/{marketDataID}", func(w http.ResponseWriter, req *http.Request) {
			m, err := d.Store.GetMarketData(req.Context(), chi.URLParam(req, "marketDataID"))
			if err != nil {
				Fail(w, req, err)
				return
			}
			render.JSON(w, req, map[string]any{"ok": true, "market_data": m})
		})

		r.Delete("/{marketDataID}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "marketDataID")
			if err := d.Store.DeleteMarketData(req.Context(), id); err != nil {
				Fail(w, req, err)
				return
			}
			render.JSON(w, req, map[string]any{"ok": true, "id": id})
		})
	})
}
