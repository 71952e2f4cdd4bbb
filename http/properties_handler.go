package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/yourorg/appraisal-api/internal/canon"
	"github.com/yourorg/appraisal-api/internal/store"
)

type PropertyRequest struct {
	AddressLine1 string  `json:"address_line1"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Zip          string  `json:"zip"`
	PropertyType string  `json:"property_type,omitempty"`
	SquareFeet   float64 `json:"square_feet"`
	Bedrooms     float64 `json:"bedrooms"`
	Bathrooms    float64 `json:"bathrooms"`
	YearBuilt    int     `json:"year_built"`
	LotSizeAcres float64 `json:"lot_size_acres"`
}

// toProperty canonicalizes the address so the same parcel always gets the
// same property_key.
func (b PropertyRequest) toProperty(p *store.Property) error {
	addr := canon.Normalize(b.AddressLine1, b.City, b.State, b.Zip)
	if !addr.Complete() {
		return badRequest("address_line1, city, state and zip are required")
	}
	for field, v := range map[string]float64{
		"square_feet": b.SquareFeet, "bedrooms": b.Bedrooms,
		"bathrooms": b.Bathrooms, "lot_size_acres": b.LotSizeAcres,
	} {
		if err := nonNegative(field, v); err != nil {
			return err
		}
	}
	if b.YearBuilt < 0 {
		return badRequest("year_built must not be negative")
	}
	p.PropertyKey = addr.Key
	p.AddressLine1 = addr.Line1
	p.City = addr.City
	p.State = addr.State
	p.Zip = addr.Zip
	p.PropertyType = strings.TrimSpace(b.PropertyType)
	p.SquareFeet = b.SquareFeet
	p.Bedrooms = b.Bedrooms
	p.Bathrooms = b.Bathrooms
	p.YearBuilt = b.YearBuilt
	p.LotSizeAcres = b.LotSizeAcres
	return nil
}

func RegisterProperties(r chi.Router, d Deps) {
	r.Route("/v1/properties", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			props, err := d.Store.ListProperties(req.Context(), req.URL.Query().Get("zip"),
				queryInt(req, "limit", 50), queryInt(req, "offset", 0))
			if err != nil {
				Fail(w, req, err)
				return
			}
			render.JSON(w, req, map[string]any{"ok": true, "count": len(props), "properties": props})
		})

		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var body PropertyRequest
			if !DecodeOrFail(w, req, &body) {
				return
			}
			var p store.Property
			if err := body.toProperty(&p); err != nil {
				Fail(w, req, err)
				return
			}
			if err := d.Store.CreateProperty(req.Context(), &p); err != nil {
				Fail(w, req, err)
				return
			}
			d.log().Info("property created", "property_id", p.ID, "property_key", p.PropertyKey)
			render.Status(req, http.StatusCreated)
			render.JSON(w, req, map[string]any{"ok": true, "property": p})
		})

		r.Get("/{propertyID}", func(w http.ResponseWriter, req *http.Request) {
			p, err := d.Store.GetProperty(req.Context(), chi.URLParam(req, "propertyID"))
			if err != nil {
				Fail(w, req, err)
				return
			}
			render.JSON(w, req, map[string]any{"ok": true, "property": p})
		})

		r.Put("/{propertyID}", func(w http.ResponseWriter, req *http.Request) {
			var body PropertyRequest
			if !DecodeOrFail(w, req, &body) {
				return
			}
			p := store.Property{ID: chi.URLParam(req, "propertyID")}
			if err := body.toProperty(&p); err != nil {
				Fail(w, req, err)
				return
			}
			if err := d.Store.UpdateProperty(req.Context(), &p); err != nil {
				Fail(w, req, err)
				return
			}
			// the subject changed, so every appraisal of it needs revaluing
			apps, err := d.Store.ListAppraisals(req.Context(), store.AppraisalFilter{PropertyID: p.ID, Limit: 1000})
			if err != nil {
				d.log().Warn("list appraisals for property update failed", "property_id", p.ID, "error", err)
			}
			for _, a := range apps {
				d.publish(req.Context(), a.ID, "property.updated")
			}
			render.JSON(w, req, map[string]any{"ok": true, "property": p})
		})

		r.Delete("/{propertyID}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "propertyID")
			if err := d.Store.DeleteProperty(req.Context(), id); err != nil {
				Fail(w, req, err)
				return
			}
			d.log().Info("property deleted", "property_id", id)
			render.JSON(w, req, map[string]any{"ok": true, "id": id})
		})
	})
}
