package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarketData is one period of aggregate sales statistics for a ZIP code.
type MarketData struct {
	ID              string          `json:"id"`
	Zip             string          `json:"zip"`
	Period          time.Time       `json:"period"`
	MedianSalePrice decimal.Decimal `json:"median_sale_price"`
	AvgPricePerSqft decimal.Decimal `json:"avg_price_per_sqft"`
	AvgDaysOnMarket float64         `json:"avg_days_on_market"`
	SalesCount      int             `json:"sales_count"`
	ActiveListings  int             `json:"active_listings"`
	Source          string          `json:"source"`
	CreatedAt       time.Time       `json:"created_at"`
}

const marketColumns = `id, zip, period, median_sale_price, avg_price_per_sqft, avg_days_on_market,
	sales_count, active_listings, source, created_at`

func scanMarket(r rowScanner) (MarketData, error) {
	var m MarketData
	err := r.Scan(&m.ID, &m.Zip, &m.Period, &m.MedianSalePrice, &m.AvgPricePerSqft, &m.AvgDaysOnMarket,
		&m.SalesCount, &m.ActiveListings, &m.Source, &m.CreatedAt)
	return m, err
}

// UpsertMarketData inserts m or replaces the row for the same zip, period and source.
func (s *Store) UpsertMarketData(ctx context.Context, m *MarketData) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Source == "" {
		m.Source = "manual"
	}
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO market_data (id, zip, period, median_sale_price, avg_price_per_sqft, avg_days_on_market,
			sales_count, active_listings, source)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (zip, period, source)
		DO UPDATE SET median_sale_price=EXCLUDED.median_sale_price, avg_price_per_sqft=EXCLUDED.avg_price_per_sqft,
			avg_days_on_market=EXCLUDED.avg_days_on_market, sales_count=EXCLUDED.sales_count,
			active_listings=EXCLUDED.active_listings
		RETURNING id, created_at`,
		m.ID, m.Zip, m.Period, m.MedianSalePrice, m.AvgPricePerSqft, m.AvgDaysOnMarket,
		m.SalesCount, m.ActiveListings, m.Source,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert market data %s/%s: %w", m.Zip, m.Period.Format("2006-01-02"), err)
	}
	return nil
}

func (s *Store) GetMarketData(ctx context.Context, id string) (MarketData, error) {
	m, err := scanMarket(s.DB.QueryRowContext(ctx, `SELECT `+marketColumns+` FROM market_data WHERE id=$1`, id))
	if err != nil {
		return m, notFound(err)
	}
	return m, nil
}

// ListMarketData returns the newest periods first.
func (s *Store) ListMarketData(ctx context.Context, zip string, limit int) ([]MarketData, error) {
	if limit <= 0 {
		limit = 24
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+marketColumns+` FROM market_data
		WHERE ($1 = '' OR zip = $1)
		ORDER BY period DESC, zip
		LIMIT $2`, zip, limit)
	if err != nil {
		return nil, fmt.Errorf("list market data: %w", err)
	}
	defer rows.Close()
	out := make([]MarketData, 0)
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) DeleteMarketData(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM market_data WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete market data: %w", err)
	}
	return expectOne(res)
}
