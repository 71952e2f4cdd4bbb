package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusDraft     = "draft"
	StatusInReview  = "in_review"
	StatusCompleted = "completed"
)

// ValidStatus reports whether s is a known appraisal status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusInReview, StatusCompleted:
		return true
	}
	return false
}

type Appraisal struct {
	ID            string    `json:"id"`
	PropertyID    string    `json:"property_id"`
	Appraiser     string    `json:"appraiser"`
	Purpose       string    `json:"purpose"`
	Status        string    `json:"status"`
	EffectiveDate time.Time `json:"effective_date"`
	Approach      string    `json:"approach"`

	MonthlyRent  decimal.Decimal `json:"monthly_rent"`
	VacancyRate  float64         `json:"vacancy_rate"`
	ExpenseRatio float64         `json:"expense_ratio"`
	CapRate      float64         `json:"cap_rate"`

	ConstructionCostPerSqft decimal.Decimal `json:"construction_cost_per_sqft"`
	LandValuePerSqft        decimal.Decimal `json:"land_value_per_sqft"`

	Valuation *StoredValuation `json:"valuation,omitempty"`

	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoredValuation is the last computed valuation persisted on an appraisal.
type StoredValuation struct {
	ComparableValue int64     `json:"comparable_value"`
	IncomeValue     int64     `json:"income_value"`
	CostValue       int64     `json:"cost_value"`
	ReconciledValue int64     `json:"reconciled_value"`
	FinalValue      int64     `json:"final_value"`
	ValuedAt        time.Time `json:"valued_at"`
}

// AppraisalFilter narrows ListAppraisals; empty fields match everything.
type AppraisalFilter struct {
	PropertyID string
	Status     string
	Limit      int
	Offset     int
}

const appraisalColumns = `id, property_id, appraiser, purpose, status, effective_date, approach,
	monthly_rent, vacancy_rate, expense_ratio, cap_rate, construction_cost_per_sqft, land_value_per_sqft,
	comparable_value, income_value, cost_value, reconciled_value, final_value, valued_at,
	notes, created_at, updated_at`

func scanAppraisal(r rowScanner) (Appraisal, error) {
	var a Appraisal
	var comp, income, cost, reconciled, final sql.NullInt64
	var valuedAt sql.NullTime
	err := r.Scan(&a.ID, &a.PropertyID, &a.Appraiser, &a.Purpose, &a.Status, &a.EffectiveDate, &a.Approach,
		&a.MonthlyRent, &a.VacancyRate, &a.ExpenseRatio, &a.CapRate, &a.ConstructionCostPerSqft, &a.LandValuePerSqft,
		&comp, &income, &cost, &reconciled, &final, &valuedAt,
		&a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	if valuedAt.Valid {
		a.Valuation = &StoredValuation{
			ComparableValue: comp.Int64,
			IncomeValue:     income.Int64,
			CostValue:       cost.Int64,
			ReconciledValue: reconciled.Int64,
			FinalValue:      final.Int64,
			ValuedAt:        valuedAt.Time,
		}
	}
	return a, nil
}

func (s *Store) CreateAppraisal(ctx context.Context, a *Appraisal) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusDraft
	}
	if a.EffectiveDate.IsZero() {
		a.EffectiveDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO appraisals (id, property_id, appraiser, purpose, status, effective_date, approach,
			monthly_rent, vacancy_rate, expense_ratio, cap_rate, construction_cost_per_sqft, land_value_per_sqft, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		a.ID, a.PropertyID, a.Appraiser, a.Purpose, a.Status, a.EffectiveDate, a.Approach,
		a.MonthlyRent, a.VacancyRate, a.ExpenseRatio, a.CapRate, a.ConstructionCostPerSqft, a.LandValuePerSqft, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appraisal: %w", classify(err))
	}
	return nil
}

func (s *Store) GetAppraisal(ctx context.Context, id string) (Appraisal, error) {
	a, err := scanAppraisal(s.DB.QueryRowContext(ctx, `SELECT `+appraisalColumns+` FROM appraisals WHERE id=$1`, id))
	if err != nil {
		return a, notFound(err)
	}
	return a, nil
}

func (s *Store) ListAppraisals(ctx context.Context, f AppraisalFilter) ([]Appraisal, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+appraisalColumns+` FROM appraisals
		WHERE ($1 = '' OR property_id::text = $1) AND ($2 = '' OR status = $2)
		ORDER BY effective_date DESC, created_at DESC
		LIMIT $3 OFFSET $4`, f.PropertyID, f.Status, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list appraisals: %w", err)
	}
	defer rows.Close()
	out := make([]Appraisal, 0)
	for rows.Next() {
		a, err := scanAppraisal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAppraisalIDs returns every appraisal id, oldest first.
func (s *Store) ListAppraisalIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id FROM appraisals ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list appraisal ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateAppraisal writes the editable fields; stored valuation columns are left alone.
func (s *Store) UpdateAppraisal(ctx context.Context, a *Appraisal) error {
	err := s.DB.QueryRowContext(ctx, `
		UPDATE appraisals SET appraiser=$2, purpose=$3, status=$4, effective_date=$5, approach=$6,
			monthly_rent=$7, vacancy_rate=$8, expense_ratio=$9, cap_rate=$10,
			construction_cost_per_sqft=$11, land_value_per_sqft=$12, notes=$13, updated_at=now()
		WHERE id=$1
		RETURNING property_id, created_at, updated_at`,
		a.ID, a.Appraiser, a.Purpose, a.Status, a.EffectiveDate, a.Approach,
		a.MonthlyRent, a.VacancyRate, a.ExpenseRatio, a.CapRate,
		a.ConstructionCostPerSqft, a.LandValuePerSqft, a.Notes,
	).Scan(&a.PropertyID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return notFound(err)
	}
	return nil
}

func (s *Store) DeleteAppraisal(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM appraisals WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete appraisal: %w", err)
	}
	return expectOne(res)
}

// SaveValuation records a computed valuation on the appraisal row.
func (s *Store) SaveValuation(ctx context.Context, appraisalID string, v StoredValuation) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE appraisals SET comparable_value=$2, income_value=$3, cost_value=$4,
			reconciled_value=$5, final_value=$6, valued_at=$7, updated_at=now()
		WHERE id=$1`,
		appraisalID, v.ComparableValue, v.IncomeValue, v.CostValue, v.ReconciledValue, v.FinalValue, v.ValuedAt)
	if err != nil {
		return fmt.Errorf("save valuation %s: %w", appraisalID, err)
	}
	return expectOne(res)
}

// AppraisalBundle is everything needed to value one appraisal.
type AppraisalBundle struct {
	Appraisal   Appraisal
	Property    Property
	Comparables []Comparable
}

// LoadBundle reads an appraisal with its subject property and comparables.
func (s *Store) LoadBundle(ctx context.Context, appraisalID string) (AppraisalBundle, error) {
	var b AppraisalBundle
	a, err := s.GetAppraisal(ctx, appraisalID)
	if err != nil {
		return b, err
	}
	p, err := s.GetProperty(ctx, a.PropertyID)
	if err != nil {
		return b, fmt.Errorf("subject property %s: %w", a.PropertyID, err)
	}
	comps, err := s.ListComparables(ctx, appraisalID)
	if err != nil {
		return b, err
	}
	b.Appraisal, b.Property, b.Comparables = a, p, comps
	return b, nil
}
