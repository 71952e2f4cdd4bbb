package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	httpapi "github.com/yourorg/appraisal-api/http"
	"github.com/yourorg/appraisal-api/internal/appraisal"
	"github.com/yourorg/appraisal-api/internal/valuation"
)

// Valuator is satisfied by *appraisal.Service.
type Valuator interface {
	Valuate(ctx context.Context, appraisalID string, bypassCache bool) (appraisal.Valuation, error)
	Recompute(ctx context.Context, appraisalID string) (appraisal.Valuation, error)
}

// Locker is satisfied by *redisx.Client.
type Locker interface {
	SetNX(ctx context.Context, key string, val string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

type ValuationDeps struct {
	Engine  *valuation.Engine
	Service Valuator
	Lock    Locker // optional; guards concurrent recomputes of one appraisal
	LockTTL time.Duration
}

type AdjustedPriceRequest struct {
	SalePrice   float64                        `json:"sale_price"`
	Adjustments []valuation.AdjustmentLineItem `json:"adjustments"`
}

type lineContribution struct {
	valuation.AdjustmentLineItem
	Contribution float64 `json:"contribution"`
}

func RegisterValuation(r chi.Router, d ValuationDeps) {
	r.Route("/v1/valuations", func(r chi.Router) {
		r.Post("/calculate", func(w http.ResponseWriter, req *http.Request) {
			var in valuation.Input
			if !httpapi.DecodeOrFail(w, req, &in) {
				return
			}
			res, err := d.Engine.Evaluate(in)
			if err != nil {
				httpapi.Fail(w, req, err)
				return
			}
			render.JSON(w, req, map[string]any{"ok": true, "result": res})
		})

		r.Post("/adjusted-price", func(w http.ResponseWriter, req *http.Request) {
			var body AdjustedPriceRequest
			if !httpapi.DecodeOrFail(w, req, &body) {
				return
			}
			price, err := valuation.AdjustedPrice(body.SalePrice, body.Adjustments)
			if err != nil {
				httpapi.Fail(w, req, err)
				return
			}
			lines := make([]lineContribution, 0, len(body.Adjustments))
			for _, a := range body.Adjustments {
				lines = append(lines, lineContribution{AdjustmentLineItem: a, Contribution: valuation.Contribution(body.SalePrice, a)})
			}
			render.JSON(w, req, map[string]any{"ok": true, "sale_price": body.SalePrice, "adjusted_price": price, "adjustments": lines})
		})
	})

	r.Get("/v1/appraisals/{appraisalID}/valuation", func(w http.ResponseWriter, req *http.Request) {
		refresh := req.URL.Query().Get("refresh")
		bypass := refresh == "1" || refresh == "true"
		v, err := d.Service.Valuate(req.Context(), chi.URLParam(req, "appraisalID"), bypass)
		if err != nil {
			httpapi.Fail(w, req, err)
			return
		}
		render.JSON(w, req, map[string]any{"ok": true, "source": v.Source, "valuation": v})
	})

	r.Post("/v1/appraisals/{appraisalID}/valuation", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "appraisalID")
		ctx := req.Context()
		if d.Lock != nil {
			ttl := d.LockTTL
			if ttl <= 0 {
				ttl = 8 * time.Second
			}
			key := "val:lock:" + id
			// recompute anyway when the lock store errors
			ok, err := d.Lock.SetNX(ctx, key, "1", ttl)
			if err == nil && !ok {
				render.Status(req, http.StatusAccepted)
				render.JSON(w, req, map[string]any{"ok": false, "in_progress": true, "appraisal_id": id})
				return
			}
			if ok {
				defer func() {
					if err := d.Lock.Del(context.WithoutCancel(ctx), key); err != nil {
						slog.WarnContext(ctx, "valuation lock release failed", "appraisal_id", id, "error", err)
					}
				}()
			}
		}
		v, err := d.Service.Recompute(ctx, id)
		if err != nil {
			httpapi.Fail(w, req, err)
			return
		}
		render.JSON(w, req, map[string]any{"ok": true, "source": v.Source, "valuation": v})
	})
}
