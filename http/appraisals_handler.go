package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"
	"github.com/yourorg/appraisal-api/internal/store"
	"github.com/yourorg/appraisal-api/internal/valuation"
)

type AppraisalRequest struct {
	PropertyID    string `json:"property_id"`
	Appraiser     string `json:"appraiser"`
	Purpose       string `json:"purpose,omitempty"`
	Status        string `json:"status,omitempty"`
	EffectiveDate string `json:"effective_date,omitempty"`
	Approach      string `json:"approach,omitempty"`

	MonthlyRent  decimal.Decimal `json:"monthly_rent"`
	VacancyRate  float64         `json:"vacancy_rate"`
	ExpenseRatio float64         `json:"expense_ratio"`
	CapRate      float64         `json:"cap_rate"`

	ConstructionCostPerSqft decimal.Decimal `json:"construction_cost_per_sqft"`
	LandValuePerSqft        decimal.Decimal `json:"land_value_per_sqft"`

	Notes string `json:"notes,omitempty"`
}

func (b AppraisalRequest) apply(a *store.Appraisal) error {
	status := strings.TrimSpace(b.Status)
	if status == "" {
		status = store.StatusDraft
	}
	if !store.ValidStatus(status) {
		return badRequest("status must be one of draft, in_review, completed; got %q", b.Status)
	}
	approach, err := valuation.ParseApproach(strings.TrimSpace(b.Approach))
	if err != nil {
		return badRequest("approach must be one of sales_comparison, income, cost; got %q", b.Approach)
	}
	eff, err := parseDate("effective_date", b.EffectiveDate)
	if err != nil {
		return err
	}
	for field, v := range map[string]float64{
		"vacancy_rate": b.VacancyRate, "expense_ratio": b.ExpenseRatio, "cap_rate": b.CapRate,
	} {
		if err := nonNegative(field, v); err != nil {
			return err
		}
	}
	for field, v := range map[string]float64{"vacancy_rate": b.VacancyRate, "expense_ratio": b.ExpenseRatio} {
		if v > 100 {
			return badRequest("%s must be a percentage between 0 and 100", field)
		}
	}
	for field, v := range map[string]decimal.Decimal{
		"monthly_rent":               b.MonthlyRent,
		"construction_cost_per_sqft": b.ConstructionCostPerSqft,
		"land_value_per_sqft":        b.LandValuePerSqft,
	} {
		if v.IsNegative() {
			return badRequest("%s must not be negative", field)
		}
	}

	a.Appraiser = strings.TrimSpace(b.Appraiser)
	a.Purpose = strings.TrimSpace(b.Purpose)
	a.Status = status
	a.Approach = string(approach)
	if eff != nil {
		a.EffectiveDate = *eff
	} else if a.EffectiveDate.IsZero() {
		a.EffectiveDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	a.MonthlyRent = b.MonthlyRent
	a.VacancyRate = b.VacancyRate
	a.ExpenseRatio = b.ExpenseRatio
	a.CapRate = b.CapRate
	a.ConstructionCostPerSqft = b.ConstructionCostPerSqft
	a.LandValuePerSqft = b.LandValuePerSqft
	a.Notes = b.Notes
	return nil
}

func RegisterAppraisals(r chi.Router, d Deps) {
	r.Get("/v1/appraisals", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		f := store.AppraisalFilter{
			PropertyID: q.Get("property_id"),
			Status:     q.Get("status"),
			Limit:      queryInt(req, "limit", 50),
			Offset:     queryInt(req, "offset", 0),
		}
		if f.Status != "" && !store.ValidStatus(f.Status) {
			Fail(w, req, badRequest("unknown status filter %q", f.Status))
			return
		}
		apps, err := d.Store.ListAppraisals(req.Context(), f)
		if err != nil {
			Fail(w, req, err)
			return
		}
		render.JSON(w, req, map[string]any{"ok": true, "count": len(apps), "appraisals": apps})
	})

	r.Post("/v1/appraisals", func(w http.ResponseWriter, req *http.Request) {
		var body AppraisalRequest
		if !DecodeOrFail(w, req, &body) {
			return
		}
		if strings.TrimSpace(body.PropertyID) == "" {
			Fail(w, req, badRequest("property_id is required"))
			return
		}
		a := store.Appraisal{PropertyID: strings.TrimSpace(body.PropertyID)}
		if err := body.apply(&a); err != nil {
			Fail(w, req, err)
			return
		}
		if err := d.Store.CreateAppraisal(req.Context(), &a); err != nil {
			Fail(w, req, err)
			return
		}
		d.log().Info("appraisal created", "appraisal_id", a.ID, "property_id", a.PropertyID)
		d.publish(req.Context(), a.ID, "appraisal.created")
		render.Status(req, http.StatusCreated)
		render.JSON(w, req, map[string]any{"ok": true, "appraisal": a})
	})

	r.Get("/v1/appraisals/{appraisalID}", func(w http.ResponseWriter, req *http.Request) {
		a, err := d.Store.GetAppraisal(req.Context(), chi.URLParam(req, "appraisalID"))
		if err != nil {
			Fail(w, req, err)
			return
		}
		render.JSON(w, req, map[string]any{"ok": true, "appraisal": a})
	})

	r.Put("/v1/appraisals/{appraisalID}", func(w http.ResponseWriter, req *http.Request) {
		var body AppraisalRequest
		if !DecodeOrFail(w, req, &body) {
			return
		}
		a, err := d.Store.GetAppraisal(req.Context(), chi.URLParam(req, "appraisalID"))
		if err != nil {
			Fail(w, req, err)
			return
		}
		if body.PropertyID != "" && body.PropertyID != a.PropertyID {
			Fail(w, req, badRequest("property_id cannot be changed"))
			return
		}
		if err := body.apply(&a); err != nil {
			Fail(w, req, err)
			return
		}
		if err := d.Store.UpdateAppraisal(req.Context(), &a); err != nil {
			Fail(w, req, err)
			return
		}
		d.publish(req.Context(), a.ID, "appraisal.updated")
		render.JSON(w, req, map[string]any{"ok": true, "appraisal": a})
	})

	r.Delete("/v1/appraisals/{appraisalID}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "appraisalID")
		if err := d.Store.DeleteAppraisal(req.Context(), id); err != nil {
			Fail(w, req, err)
			return
		}
		d.publish(req.Context(), id, "appraisal.deleted")
		render.JSON(w, req, map[string]any{"ok": true, "id": id})
	})
}
