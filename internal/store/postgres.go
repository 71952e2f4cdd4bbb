package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	// ErrNotFound is returned when a lookup by id matches no row.
	ErrNotFound  = errors.New("not found")
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict  = errors.New("conflict")
	// ErrReference is returned when a row points at a parent that does not exist.
	ErrReference = errors.New("referenced row does not exist")
)

type Store struct{ DB *sql.DB }

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{DB: db} }

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Close() error { return s.DB.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS properties (
		id              UUID PRIMARY KEY,
		property_key    TEXT NOT NULL,
		address_line1   TEXT NOT NULL,
		city            TEXT NOT NULL,
		state           TEXT NOT NULL,
		zip             TEXT NOT NULL,
		property_type   TEXT NOT NULL DEFAULT '',
		square_feet     DOUBLE PRECISION NOT NULL DEFAULT 0,
		bedrooms        DOUBLE PRECISION NOT NULL DEFAULT 0,
		bathrooms       DOUBLE PRECISION NOT NULL DEFAULT 0,
		year_built      INTEGER NOT NULL DEFAULT 0,
		lot_size_acres  DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_properties_property_key ON properties(property_key);`,
	`CREATE INDEX IF NOT EXISTS idx_properties_zip ON properties(zip);`,
	`CREATE TABLE IF NOT EXISTS appraisals (
		id                          UUID PRIMARY KEY,
		property_id                 UUID NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		appraiser                   TEXT NOT NULL DEFAULT '',
		purpose                     TEXT NOT NULL DEFAULT '',
		status                      TEXT NOT NULL DEFAULT 'draft',
		effective_date              DATE NOT NULL DEFAULT CURRENT_DATE,
		approach                    TEXT NOT NULL DEFAULT 'sales_comparison',
		monthly_rent                NUMERIC(14,2) NOT NULL DEFAULT 0,
		vacancy_rate                DOUBLE PRECISION NOT NULL DEFAULT 0,
		expense_ratio               DOUBLE PRECISION NOT NULL DEFAULT 0,
		cap_rate                    DOUBLE PRECISION NOT NULL DEFAULT 0,
		construction_cost_per_sqft  NUMERIC(12,2) NOT NULL DEFAULT 0,
		land_value_per_sqft         NUMERIC(12,2) NOT NULL DEFAULT 0,
		comparable_value            BIGINT,
		income_value                BIGINT,
		cost_value                  BIGINT,
		reconciled_value            BIGINT,
		final_value                 BIGINT,
		valued_at                   TIMESTAMPTZ,
		notes                       TEXT NOT NULL DEFAULT '',
		created_at                  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at                  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_appraisals_property ON appraisals(property_id);`,
	`CREATE INDEX IF NOT EXISTS idx_appraisals_status ON appraisals(status);`,
	`CREATE TABLE IF NOT EXISTS comparables (
		id              UUID PRIMARY KEY,
		appraisal_id    UUID NOT NULL REFERENCES appraisals(id) ON DELETE CASCADE,
		address         TEXT NOT NULL DEFAULT '',
		sale_price      NUMERIC(14,2) NOT NULL,
		sale_date       DATE,
		square_feet     DOUBLE PRECISION NOT NULL DEFAULT 0,
		bedrooms        DOUBLE PRECISION NOT NULL DEFAULT 0,
		bathrooms       DOUBLE PRECISION NOT NULL DEFAULT 0,
		year_built      INTEGER NOT NULL DEFAULT 0,
		lot_size_acres  DOUBLE PRECISION NOT NULL DEFAULT 0,
		distance_miles  DOUBLE PRECISION NOT NULL DEFAULT 0,
		adjusted_price  NUMERIC(14,2) NOT NULL DEFAULT 0,
		source          TEXT NOT NULL DEFAULT 'manual',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_comparables_appraisal ON comparables(appraisal_id);`,
	`CREATE TABLE IF NOT EXISTS adjustments (
		id              UUID PRIMARY KEY,
		comparable_id   UUID NOT NULL REFERENCES comparables(id) ON DELETE CASCADE,
		category        TEXT NOT NULL,
		amount          NUMERIC(14,2) NOT NULL,
		is_percentage   BOOLEAN NOT NULL DEFAULT false,
		description     TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_adjustments_comparable ON adjustments(comparable_id);`,
	`CREATE TABLE IF NOT EXISTS market_data (
		id                  UUID PRIMARY KEY,
		zip                 TEXT NOT NULL,
		period              DATE NOT NULL,
		median_sale_price   NUMERIC(14,2) NOT NULL DEFAULT 0,
		avg_price_per_sqft  NUMERIC(10,2) NOT NULL DEFAULT 0,
		avg_days_on_market  DOUBLE PRECISION NOT NULL DEFAULT 0,
		sales_count         INTEGER NOT NULL DEFAULT 0,
		active_listings     INTEGER NOT NULL DEFAULT 0,
		source              TEXT NOT NULL DEFAULT 'manual',
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_market_data_zip_period ON market_data(zip, period, source);`,
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, q := range schema {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// classify maps Postgres constraint violations onto the package sentinels.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrReference, pgErr.ConstraintName)
		}
	}
	return err
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
