package marketsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/appraisal-api/attom"
	"github.com/yourorg/appraisal-api/internal/store"
)

type fakeClient struct {
	mu    sync.Mutex
	pages map[string][]string // zip -> payload per page
	trend map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeClient) SalesByPostal(_ context.Context, zip string, page, _ int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("%s/%d", zip, page))
	if err := f.errs[zip]; err != nil {
		return nil, err
	}
	pages := f.pages[zip]
	if page > len(pages) {
		return []byte(`{"property": []}`), nil
	}
	return []byte(pages[page-1]), nil
}

func (f *fakeClient) SalesTrend(_ context.Context, zip string) ([]byte, error) {
	return []byte(f.trend[zip]), nil
}

type memStore struct {
	mu   sync.Mutex
	rows []store.MarketData
	err  error
}

func (m *memStore) UpsertMarketData(_ context.Context, d *store.MarketData) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = fmt.Sprintf("md-%d", len(m.rows)+1)
	m.rows = append(m.rows, *d)
	return nil
}

func sale(price, sqft int) string {
	return fmt.Sprintf(`{"building": {"size": {"livingsize": %d}}, "sale": {"amount": {"saleamt": %d}}}`, sqft, price)
}

func page(sales ...string) string {
	out := `{"property": [`
	for i, s := range sales {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out + `]}`
}

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }

func TestSyncZip_PagesAndSummarizes(t *testing.T) {
	fc := &fakeClient{pages: map[string][]string{
		"78701": {
			page(sale(440000, 2000), sale(330000, 1500)),
			page(sale(300000, 0)),
		},
	}}
	ms := &memStore{}
	j := &Job{Client: fc, Store: ms, Now: fixedNow, Config: Config{PageSize: 2, MaxPagesPerZip: 5}}

	row, err := j.SyncZip(context.Background(), "78701")
	require.NoError(t, err)
	assert.Equal(t, []string{"78701/1", "78701/2"}, fc.calls)

	assert.Equal(t, "md-1", row.ID)
	assert.Equal(t, "attom", row.Source)
	assert.Equal(t, 3, row.SalesCount)
	assert.Equal(t, "330000", row.MedianSalePrice.String())
	assert.Equal(t, "220", row.AvgPricePerSqft.String())
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), row.Period)
}

func TestSyncZip_StopsAtMaxPages(t *testing.T) {
	full := page(sale(100000, 1000))
	fc := &fakeClient{pages: map[string][]string{"1": {full, full, full}}}
	j := &Job{Client: fc, Store: &memStore{}, Now: fixedNow, Config: Config{PageSize: 1, MaxPagesPerZip: 2}}

	row, err := j.SyncZip(context.Background(), "1")
	require.NoError(t, err)
	assert.Len(t, fc.calls, 2)
	assert.Equal(t, 2, row.SalesCount)
}

func TestSyncZip_Trend(t *testing.T) {
	fc := &fakeClient{
		pages: map[string][]string{"78701": {page(sale(400000, 2000))}},
		trend: map[string]string{"78701": `{"salestrends": [
			{"daterange": {"start": "2026-08"}, "salesTrend": {"homeSaleCount": 12, "medSalePrice": 390000}},
			{"daterange": {"start": "2026-09"}, "salesTrend": {"homeSaleCount": 9, "medSalePrice": 401000}}
		]}`},
	}
	ms := &memStore{}
	j := &Job{Client: fc, Store: ms, Now: fixedNow, Config: Config{PageSize: 10, IncludeTrend: true}}

	_, err := j.SyncZip(context.Background(), "78701")
	require.NoError(t, err)
	require.Len(t, ms.rows, 3)
	assert.Equal(t, "attom_trend", ms.rows[1].Source)
	assert.Equal(t, time.August, ms.rows[1].Period.Month())
	assert.Equal(t, 9, ms.rows[2].SalesCount)
	assert.Equal(t, "401000", ms.rows[2].MedianSalePrice.String())
}

func TestRunOnce_JoinsErrorsAcrossZips(t *testing.T) {
	fc := &fakeClient{
		pages: map[string][]string{"ok": {page(sale(200000, 1000))}},
		errs:  map[string]error{"bad1": errors.New("boom"), "bad2": errors.New("bang")},
	}
	ms := &memStore{}
	j := &Job{Client: fc, Store: ms, Now: fixedNow, Config: Config{Zips: []string{"bad1", " ", "ok", "bad2"}}}

	err := j.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip bad1 page 1 fetch: boom")
	assert.Contains(t, err.Error(), "zip bad2 page 1 fetch: bang")
	assert.Len(t, ms.rows, 1)
}

func TestRunOnce_StopsOnQuota(t *testing.T) {
	fc := &fakeClient{errs: map[string]error{"a": attom.ErrDailyLimitExceeded}}
	j := &Job{Client: fc, Store: &memStore{}, Now: fixedNow, Config: Config{Zips: []string{"a", "b"}}}

	err := j.RunOnce(context.Background())
	assert.ErrorIs(t, err, attom.ErrDailyLimitExceeded)
	assert.Equal(t, []string{"a/1"}, fc.calls)
}

func TestRunOnce_StoreErrorWrapped(t *testing.T) {
	fc := &fakeClient{pages: map[string][]string{"a": {page(sale(1, 1))}}}
	j := &Job{Client: fc, Store: &memStore{err: errors.New("db down")}, Now: fixedNow, Config: Config{Zips: []string{"a"}}}
	err := j.RunOnce(context.Background())
	assert.EqualError(t, err, "zip a: db down")
}

func TestRun_Validation(t *testing.T) {
	assert.Error(t, (&Job{Store: &memStore{}}).Run(context.Background()))
	assert.Error(t, (&Job{Client: &fakeClient{}, Store: &memStore{}}).Run(context.Background()))
}

func TestRun_IntervalStopsOnCancel(t *testing.T) {
	fc := &fakeClient{pages: map[string][]string{"a": {page(sale(1, 1))}}}
	ms := &memStore{}
	j := &Job{Client: fc, Store: ms, Now: fixedNow, Config: Config{Zips: []string{"a"}, Interval: 10 * time.Millisecond}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	assert.Eventually(t, func() bool {
		ms.mu.Lock()
		defer ms.mu.Unlock()
		return len(ms.rows) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
