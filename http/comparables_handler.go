package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"
	"github.com/yourorg/appraisal-api/attom"
	"github.com/yourorg/appraisal-api/internal/appraisal"
	"github.com/yourorg/appraisal-api/internal/canon"
	"github.com/yourorg/appraisal-api/internal/store"
)

type ComparableRequest struct {
	Address       string          `json:"address"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	SaleDate      string          `json:"sale_date,omitempty"`
	SquareFeet    float64         `json:"square_feet"`
	Bedrooms      float64         `json:"bedrooms"`
	Bathrooms     float64         `json:"bathrooms"`
	YearBuilt     int             `json:"year_built"`
	LotSizeAcres  float64         `json:"lot_size_acres"`
	DistanceMiles float64         `json:"distance_miles"`
	Source        string          `json:"source,omitempty"`
}

func (b ComparableRequest) apply(c *store.Comparable) error {
	if strings.TrimSpace(b.Address) == "" {
		return badRequest("address is required")
	}
	if !b.SalePrice.IsPositive() {
		return badRequest("sale_price must be positive")
	}
	saleDate, err := parseDate("sale_date", b.SaleDate)
	if err != nil {
		return err
	}
	for field, v := range map[string]float64{
		"square_feet": b.SquareFeet, "bedrooms": b.Bedrooms, "bathrooms": b.Bathrooms,
		"lot_size_acres": b.LotSizeAcres, "distance_miles": b.DistanceMiles,
	} {
		if err := nonNegative(field, v); err != nil {
			return err
		}
	}
	if b.YearBuilt < 0 {
		return badRequest("year_built must not be negative")
	}
	c.Address = strings.TrimSpace(b.Address)
	c.SalePrice = b.SalePrice
	c.SaleDate = saleDate
	c.SquareFeet = b.SquareFeet
	c.Bedrooms = b.Bedrooms
	c.Bathrooms = b.Bathrooms
	c.YearBuilt = b.YearBuilt
	c.LotSizeAcres = b.LotSizeAcres
	c.DistanceMiles = b.DistanceMiles
	if s := strings.TrimSpace(b.Source); s != "" {
		c.Source = s
	}
	return nil
}

type AdjustmentRequest struct {
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	IsPercentage bool            `json:"is_percentage"`
	Description  string          `json:"description,omitempty"`
}

type ImportRequest struct {
	Limit int `json:"limit"`
}

func RegisterComparables(r chi.Router, d Deps) {
	r.Get("/v1/appraisals/{appraisalID}/comparables", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "appraisalID")
		if _, err := d.Store.GetAppraisal(req.Context(), id); err != nil {
			Fail(w, req, err)
			return
		}
		comps, err := d.Store.ListComparables(req.Context(), id)
		if err != nil {
			Fail(w, req, err)
			return
		}
		render.JSON(w, req, map[string]any{"ok": true, "count": len(comps), "comparables": comps})
	})

	r.Post("/v1/appraisals/{appraisalID}/comparables", func(w http.ResponseWriter, req *http.Request) {
		var body ComparableRequest
		if !DecodeOrFail(w, req, &body) {
			return
		}
		c := store.Comparable{AppraisalID: chi.URLParam(req, "appraisalID")}
		if err := body.apply(&c); err != nil {
			Fail(w, req, err)
			return
		}
		c.AdjustedPrice = c.SalePrice
		if err := d.Store.CreateComparable(req.Context(), &c); err != nil {
			Fail(w, req, err)
			return
		}
		d.publish(req.Context(), c.AppraisalID, "comparable.created")
		render.Status(req, http.StatusCreated)
		render.JSON(w, req, map[string]any{"ok": true, "comparable": c})
	})

	r.Post("/v1/appraisals/{appraisalID}/comparables/import", func(w http.ResponseWriter, req *http.Request) {
		if d.Sales == nil {
			Error(w, req, http.StatusServiceUnavailable, "import_disabled", "no sales provider configured")
			return
		}
		var body ImportRequest
		if req.ContentLength != 0 && !DecodeOrFail(w, req, &body) {
			return
		}
		created, err := importComparables(req.Context(), d, chi.URLParam(req, "appraisalID"), body.Limit)
		if err != nil {
			Fail(w, req, err)
			return
		}
		render.Status(req, http.StatusCreated)
		render.JSON(w, req, map[string]any{"ok": true, "count": len(created), "comparables": created})
	})

	r.Get("/v1/comparables/{comparableID}", func(w http.ResponseWriter, req *http.Request) {
		c, err := d.Store.GetComparable(req.Context(), chi.URLParam(req, "comparableID"))
		if err != nil {
			Fail(w, req, err)
			return
		}
		render.JSON(w, req, map[string]any{"ok": true, "comparable": c})
	})

	r.Put("/v1/comparables/{comparableID}", func(w http.ResponseWriter, req *http.Request) {
		var body ComparableRequest
		if !DecodeOrFail(w, req, &body) {
			return
		}
		ctx := req.Context()
		c, err := d.Store.GetComparable(ctx, chi.URLParam(req, "comparableID"))
		if err != nil {
			Fail(w, req, err)
			return
		}
		if err := body.apply(&c); err != nil {
			Fail(w, req, err)
			return
		}
		adjs, err := d.Store.ListAdjustments(ctx, c.ID)
		if err != nil {
			Fail(w, req, err)
			return
		}
		if c.AdjustedPrice, err = appraisal.AdjustedPrice(c.SalePrice, adjs); err != nil {
			Fail(w, req, err)
			return
		}
		if err := d.Store.UpdateComparable(ctx, &c); err != nil {
			Fail(w, req, err)
			return
		}
		d.publish(ctx, c.AppraisalID, "comparable.updated")
		render.JSON(w, req, map[string]any{"ok": true, "comparable": c})
	})

	r.Delete("/v1/comparables/{comparableID}", func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		c, err := d.Store.GetComparable(ctx, chi.URLParam(req, "comparableID"))
		if err != nil {
			Fail(w, req, err)
			return
		}
		if err := d.Store.DeleteComparable(ctx, c.ID); err != nil {
			Fail(w, req, err)
			return
		}
		d.publish(ctx, c.AppraisalID, "comparable.deleted")
		render.JSON(w, req, map[string]any{"ok": true, "id": c.ID})
	})

	r.Get("/v1/comparables/{comparableID}/adjustments", func(w http.ResponseWriter, req *http.Request) {
		c, err := d.Store.GetComparable(req.Context(), chi.URLParam(req, "comparableID"))
		if err != nil {
			Fail(w, req, err)
			return
		}
		adjs, err := d.Store.ListAdjustments(req.Context(), c.ID)
		if err != nil {
			Fail(w, req, err)
			return
		}
		render.JSON(w, req, map[string]any{
			"ok": true, "count": len(adjs), "adjustments": adjs,
			"sale_price": c.SalePrice, "adjusted_price": c.AdjustedPrice,
		})
	})

	r.Post("/v1/comparables/{comparableID}/adjustments", func(w http.ResponseWriter, req *http.Request) {
		var body AdjustmentRequest
		if !DecodeOrFail(w, req, &body) {
			return
		}
		if strings.TrimSpace(body.Category) == "" {
			Fail(w, req, badRequest("category is required"))
			return
		}
		ctx := req.Context()
		c, err := d.Store.GetComparable(ctx, chi.URLParam(req, "comparableID"))
		if err != nil {
			Fail(w, req, err)
			return
		}
		adjs, err := d.Store.ListAdjustments(ctx, c.ID)
		if err != nil {
			Fail(w, req, err)
			return
		}
		a := store.Adjustment{
			ComparableID: c.ID,
			Category:     strings.TrimSpace(body.Category),
			Amount:       body.Amount,
			IsPercentage: body.IsPercentage,
			Description:  body.Description,
		}
		// price first so an invalid line item is never stored
		price, err := appraisal.AdjustedPrice(c.SalePrice, append(adjs, a))
		if err != nil {
			Fail(w, req, err)
			return
		}
		if err := d.Store.CreateAdjustment(ctx, &a); err != nil {
			Fail(w, req, err)
			return
		}
		if err := d.Store.SetAdjustedPrice(ctx, c.ID, price); err != nil {
			Fail(w, req, err)
			return
		}
		d.publish(ctx, c.AppraisalID, "adjustment.created")
		render.Status(req, http.StatusCreated)
		render.JSON(w, req, map[string]any{"ok": true, "adjustment": a, "adjusted_price": price})
	})

	r.Delete("/v1/adjustments/{adjustmentID}", func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		id := chi.URLParam(req, "adjustmentID")
		compID, err := d.Store.DeleteAdjustment(ctx, id)
		if err != nil {
			Fail(w, req, err)
			return
		}
		c, price, err := reprice(ctx, d.Store, compID)
		if err != nil {
			Fail(w, req, err)
			return
		}
		d.publish(ctx, c.AppraisalID, "adjustment.deleted")
		render.JSON(w, req, map[string]any{"ok": true, "id": id, "comparable_id": compID, "adjusted_price": price})
	})
}

func reprice(ctx context.Context, st Store, comparableID string) (store.Comparable, decimal.Decimal, error) {
	c, err := st.GetComparable(ctx, comparableID)
	if err != nil {
		return c, decimal.Zero, err
	}
	adjs, err := st.ListAdjustments(ctx, comparableID)
	if err != nil {
		return c, decimal.Zero, err
	}
	price, err := appraisal.AdjustedPrice(c.SalePrice, adjs)
	if err != nil {
		return c, decimal.Zero, err
	}
	if err := st.SetAdjustedPrice(ctx, comparableID, price); err != nil {
		return c, decimal.Zero, err
	}
	c.AdjustedPrice = price
	return c, price, nil
}

const defaultImportLimit = 6

// importComparables pulls recent sales in the subject's ZIP and stores the
// usable ones as comparables. The subject's own sale is skipped.
func importComparables(ctx context.Context, d Deps, appraisalID string, limit int) ([]store.Comparable, error) {
	if limit <= 0 {
		limit = defaultImportLimit
	}
	if limit > 50 {
		return nil, badRequest("limit must be at most 50")
	}
	a, err := d.Store.GetAppraisal(ctx, appraisalID)
	if err != nil {
		return nil, err
	}
	subject, err := d.Store.GetProperty(ctx, a.PropertyID)
	if err != nil {
		return nil, err
	}
	raw, err := d.Sales.SalesByPostal(ctx, subject.Zip, 1, limit*2)
	if err != nil {
		return nil, err
	}
	records, err := attom.MapSalesToComparables(raw)
	if err != nil {
		return nil, err
	}
	subjectAddr := canon.Normalize(subject.AddressLine1, subject.City, subject.State, subject.Zip)

	created := make([]store.Comparable, 0, limit)
	for _, rec := range records {
		if len(created) == limit {
			break
		}
		if _, ok := rec.PricePerSqft(); !ok {
			continue
		}
		addr := canon.Normalize(rec.Address, rec.City, rec.State, rec.Zip)
		if canon.SameParcel(addr, subjectAddr) {
			continue
		}
		price := decimal.NewFromFloat(rec.SalePrice).Round(2)
		c := store.Comparable{
			AppraisalID:   appraisalID,
			Address:       rec.Address,
			SalePrice:     price,
			SaleDate:      rec.SaleDate,
			SquareFeet:    rec.SquareFeet,
			Bedrooms:      rec.Bedrooms,
			Bathrooms:     rec.Bathrooms,
			YearBuilt:     rec.YearBuilt,
			LotSizeAcres:  rec.LotSizeAcres,
			AdjustedPrice: price,
			Source:        rec.Source,
		}
		if err := d.Store.CreateComparable(ctx, &c); err != nil {
			return created, err
		}
		created = append(created, c)
	}
	if len(created) > 0 {
		d.publish(ctx, appraisalID, "comparable.imported")
	}
	d.log().Info("comparables imported", "appraisal_id", appraisalID, "zip", subject.Zip,
		"fetched", len(records), "created", len(created))
	return created, nil
}
