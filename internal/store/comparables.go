package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Comparable struct {
	ID            string          `json:"id"`
	AppraisalID   string          `json:"appraisal_id"`
	Address       string          `json:"address"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	SaleDate      *time.Time      `json:"sale_date,omitempty"`
	SquareFeet    float64         `json:"square_feet"`
	Bedrooms      float64         `json:"bedrooms"`
	Bathrooms     float64         `json:"bathrooms"`
	YearBuilt     int             `json:"year_built"`
	LotSizeAcres  float64         `json:"lot_size_acres"`
	DistanceMiles float64         `json:"distance_miles"`
	AdjustedPrice decimal.Decimal `json:"adjusted_price"`
	Source        string          `json:"source"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Adjustment struct {
	ID           string          `json:"id"`
	ComparableID string          `json:"comparable_id"`
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	IsPercentage bool            `json:"is_percentage"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"created_at"`
}

const comparableColumns = `id, appraisal_id, address, sale_price, sale_date, square_feet, bedrooms, bathrooms,
	year_built, lot_size_acres, distance_miles, adjusted_price, source, created_at, updated_at`

func scanComparable(r rowScanner) (Comparable, error) {
	var (
		c        Comparable
		saleDate sql.NullTime
	)
	err := r.Scan(&c.ID, &c.AppraisalID, &c.Address, &c.SalePrice, &saleDate, &c.SquareFeet, &c.Bedrooms, &c.Bathrooms,
		&c.YearBuilt, &c.LotSizeAcres, &c.DistanceMiles, &c.AdjustedPrice, &c.Source, &c.CreatedAt, &c.UpdatedAt)
	if saleDate.Valid {
		d := saleDate.Time
		c.SaleDate = &d
	}
	return c, err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (s *Store) CreateComparable(ctx context.Context, c *Comparable) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Source == "" {
		c.Source = "manual"
	}
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO comparables (id, appraisal_id, address, sale_price, sale_date, square_feet, bedrooms, bathrooms,
			year_built, lot_size_acres, distance_miles, adjusted_price, source)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`,
		c.ID, c.AppraisalID, c.Address, c.SalePrice, nullTime(c.SaleDate), c.SquareFeet, c.Bedrooms, c.Bathrooms,
		c.YearBuilt, c.LotSizeAcres, c.DistanceMiles, c.AdjustedPrice, c.Source,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert comparable: %w", classify(err))
	}
	return nil
}

func (s *Store) GetComparable(ctx context.Context, id string) (Comparable, error) {
	c, err := scanComparable(s.DB.QueryRowContext(ctx, `SELECT `+comparableColumns+` FROM comparables WHERE id=$1`, id))
	if err != nil {
		return c, notFound(err)
	}
	return c, nil
}

func (s *Store) ListComparables(ctx context.Context, appraisalID string) ([]Comparable, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+comparableColumns+` FROM comparables
		WHERE appraisal_id=$1
		ORDER BY distance_miles, created_at`, appraisalID)
	if err != nil {
		return nil, fmt.Errorf("list comparables: %w", err)
	}
	defer rows.Close()
	out := make([]Comparable, 0)
	for rows.Next() {
		c, err := scanComparable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateComparable(ctx context.Context, c *Comparable) error {
	err := s.DB.QueryRowContext(ctx, `
		UPDATE comparables SET address=$2, sale_price=$3, sale_date=$4, square_feet=$5, bedrooms=$6, bathrooms=$7,
			year_built=$8, lot_size_acres=$9, distance_miles=$10, adjusted_price=$11, source=$12, updated_at=now()
		WHERE id=$1
		RETURNING appraisal_id, created_at, updated_at`,
		c.ID, c.Address, c.SalePrice, nullTime(c.SaleDate), c.SquareFeet, c.Bedrooms, c.Bathrooms,
		c.YearBuilt, c.LotSizeAcres, c.DistanceMiles, c.AdjustedPrice, c.Source,
	).Scan(&c.AppraisalID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return notFound(err)
	}
	return nil
}

func (s *Store) DeleteComparable(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM comparables WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete comparable: %w", err)
	}
	return expectOne(res)
}

func (s *Store) SetAdjustedPrice(ctx context.Context, comparableID string, price decimal.Decimal) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE comparables SET adjusted_price=$2, updated_at=now() WHERE id=$1`, comparableID, price)
	if err != nil {
		return fmt.Errorf("set adjusted price: %w", err)
	}
	return expectOne(res)
}

// CreateAdjustment appends a line item to a comparable.
func (s *Store) CreateAdjustment(ctx context.Context, a *Adjustment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO adjustments (id, comparable_id, category, amount, is_percentage, description)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		a.ID, a.ComparableID, a.Category, a.Amount, a.IsPercentage, a.Description,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", classify(err))
	}
	return nil
}

func (s *Store) ListAdjustments(ctx context.Context, comparableID string) ([]Adjustment, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, comparable_id, category, amount, is_percentage, description, created_at
		FROM adjustments WHERE comparable_id=$1 ORDER BY created_at, id`, comparableID)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()
	out := make([]Adjustment, 0)
	for rows.Next() {
		var a Adjustment
		if err := rows.Scan(&a.ID, &a.ComparableID, &a.Category, &a.Amount, &a.IsPercentage, &a.Description, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAdjustment removes a line item and reports the comparable it belonged to.
func (s *Store) DeleteAdjustment(ctx context.Context, id string) (string, error) {
	var comparableID string
	err := s.DB.QueryRowContext(ctx, `DELETE FROM adjustments WHERE id=$1 RETURNING comparable_id`, id).Scan(&comparableID)
	if err != nil {
		return "", notFound(err)
	}
	return comparableID, nil
}
