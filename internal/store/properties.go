package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Property struct {
	ID           string    `json:"id"`
	PropertyKey  string    `json:"property_key"`
	AddressLine1 string    `json:"address_line1"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Zip          string    `json:"zip"`
	PropertyType string    `json:"property_type"`
	SquareFeet   float64   `json:"square_feet"`
	Bedrooms     float64   `json:"bedrooms"`
	Bathrooms    float64   `json:"bathrooms"`
	YearBuilt    int       `json:"year_built"`
	LotSizeAcres float64   `json:"lot_size_acres"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const propertyColumns = `id, property_key, address_line1, city, state, zip, property_type,
	square_feet, bedrooms, bathrooms, year_built, lot_size_acres, created_at, updated_at`

func scanProperty(r rowScanner) (Property, error) {
	var p Property
	err := r.Scan(&p.ID, &p.PropertyKey, &p.AddressLine1, &p.City, &p.State, &p.Zip, &p.PropertyType,
		&p.SquareFeet, &p.Bedrooms, &p.Bathrooms, &p.YearBuilt, &p.LotSizeAcres, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreateProperty inserts p, assigning its id and timestamps.
func (s *Store) CreateProperty(ctx context.Context, p *Property) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO properties (id, property_key, address_line1, city, state, zip, property_type,
			square_feet, bedrooms, bathrooms, year_built, lot_size_acres)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		p.ID, p.PropertyKey, p.AddressLine1, p.City, p.State, p.Zip, p.PropertyType,
		p.SquareFeet, p.Bedrooms, p.Bathrooms, p.YearBuilt, p.LotSizeAcres,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert property: %w", classify(err))
	}
	return nil
}

func (s *Store) GetProperty(ctx context.Context, id string) (Property, error) {
	p, err := scanProperty(s.DB.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id=$1`, id))
	if err != nil {
		return p, notFound(err)
	}
	return p, nil
}

// ListProperties returns properties newest first, optionally filtered by zip.
func (s *Store) ListProperties(ctx context.Context, zip string, limit, offset int) ([]Property, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+propertyColumns+` FROM properties
		WHERE ($1 = '' OR zip = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, zip, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()
	out := make([]Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProperty(ctx context.Context, p *Property) error {
	err := s.DB.QueryRowContext(ctx, `
		UPDATE properties SET property_key=$2, address_line1=$3, city=$4, state=$5, zip=$6, property_type=$7,
			square_feet=$8, bedrooms=$9, bathrooms=$10, year_built=$11, lot_size_acres=$12, updated_at=now()
		WHERE id=$1
		RETURNING created_at, updated_at`,
		p.ID, p.PropertyKey, p.AddressLine1, p.City, p.State, p.Zip, p.PropertyType,
		p.SquareFeet, p.Bedrooms, p.Bathrooms, p.YearBuilt, p.LotSizeAcres,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return classify(notFound(err))
	}
	return nil
}

func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM properties WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	return expectOne(res)
}
