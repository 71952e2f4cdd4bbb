package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestMigrate_RunsEveryStatement(t *testing.T) {
	s, mock := newMock(t)
	for range schema {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnError(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS properties").WillReturnError(errors.New("permission denied"))
	err := s.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestCreateProperty_AssignsIDAndTimestamps(t *testing.T) {
	s, mock := newMock(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO properties")).
		WithArgs(sqlmock.AnyArg(), "123 main st|austin|tx|78701", "123 MAIN ST", "AUSTIN", "TX", "78701", "single_family",
			1800.0, 3.0, 2.0, 1995, 0.2).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	p := &Property{
		PropertyKey: "123 main st|austin|tx|78701", AddressLine1: "123 MAIN ST", City: "AUSTIN", State: "TX", Zip: "78701",
		PropertyType: "single_family", SquareFeet: 1800, Bedrooms: 3, Bathrooms: 2, YearBuilt: 1995, LotSizeAcres: 0.2,
	}
	require.NoError(t, s.CreateProperty(context.Background(), p))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, now, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProperty_NotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM properties WHERE id=$1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err := s.GetProperty(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListComparables_ScansDecimalsAndDates(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now().UTC()
	saleDate := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "appraisal_id", "address", "sale_price", "sale_date", "square_feet", "bedrooms", "bathrooms",
		"year_built", "lot_size_acres", "distance_miles", "adjusted_price", "source", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM comparables")).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("c1", "a1", "1 Elm", "440000.00", saleDate, 2000.0, 3.0, 2.0, int64(2008), 0.25, 0.4, "452000.00", "manual", now, now).
			AddRow("c2", "a1", "2 Oak", "330000.50", nil, 1500.0, 2.0, 1.0, int64(0), 0.0, 1.1, "330001.00", "attom", now, now))

	comps, err := s.ListComparables(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, comps, 2)
	assert.True(t, decimal.RequireFromString("440000").Equal(comps[0].SalePrice))
	require.NotNil(t, comps[0].SaleDate)
	assert.Equal(t, saleDate, *comps[0].SaleDate)
	assert.Nil(t, comps[1].SaleDate)
	assert.Equal(t, "330000.5", comps[1].SalePrice.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveValuation_MissingAppraisal(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE appraisals SET comparable_value")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := s.SaveValuation(context.Background(), "nope", StoredValuation{ValuedAt: time.Now()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAdjustment_ReturnsComparable(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM adjustments WHERE id=$1 RETURNING comparable_id")).
		WithArgs("adj1").
		WillReturnRows(sqlmock.NewRows([]string{"comparable_id"}).AddRow("c9"))
	compID, err := s.DeleteAdjustment(context.Background(), "adj1")
	require.NoError(t, err)
	assert.Equal(t, "c9", compID)
}

func TestUpsertMarketData_DefaultsSource(t *testing.T) {
	s, mock := newMock(t)
	period := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO market_data")).
		WithArgs(sqlmock.AnyArg(), "78701", period, sqlmock.AnyArg(), sqlmock.AnyArg(), 31.5, 42, 0, "manual").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("existing-id", time.Now()))

	m := &MarketData{
		Zip: "78701", Period: period,
		MedianSalePrice: decimal.NewFromInt(515000), AvgPricePerSqft: decimal.NewFromFloat(287.4),
		AvgDaysOnMarket: 31.5, SalesCount: 42,
	}
	require.NoError(t, s.UpsertMarketData(context.Background(), m))
	assert.Equal(t, "existing-id", m.ID)
	assert.Equal(t, "manual", m.Source)
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusDraft, StatusInReview, StatusCompleted} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("archived"))
	assert.False(t, ValidStatus(""))
}

func TestCreateProperty_DuplicateKeyIsConflict(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO properties")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ux_properties_property_key"})

	err := s.CreateProperty(context.Background(), &Property{PropertyKey: "1 main st|austin|tx|78701"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "ux_properties_property_key")
}

func TestCreateComparable_MissingAppraisalIsReference(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO comparables")).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "comparables_appraisal_id_fkey"})

	err := s.CreateComparable(context.Background(), &Comparable{AppraisalID: "gone"})
	assert.ErrorIs(t, err, ErrReference)
}
