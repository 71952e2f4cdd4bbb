package httpapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/appraisal-api/internal/events"
	"github.com/yourorg/appraisal-api/internal/store"
)

// memStore is an in-memory Store. Rows keep insertion order.
type memStore struct {
	mu          sync.Mutex
	seq         int
	properties  []store.Property
	appraisals  []store.Appraisal
	comparables []store.Comparable
	adjustments []store.Adjustment
	market      []store.MarketData
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

var fakeNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func (m *memStore) CreateProperty(_ context.Context, p *store.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.properties {
		if x.PropertyKey == p.PropertyKey {
			return fmt.Errorf("insert property: %w: ux_properties_property_key", store.ErrConflict)
		}
	}
	p.ID = m.nextID("p")
	p.CreatedAt, p.UpdatedAt = fakeNow, fakeNow
	m.properties = append(m.properties, *p)
	return nil
}

func (m *memStore) GetProperty(_ context.Context, id string) (store.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.properties {
		if p.ID == id {
			return p, nil
		}
	}
	return store.Property{}, store.ErrNotFound
}

func (m *memStore) ListProperties(_ context.Context, zip string, limit, offset int) ([]store.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Property, 0)
	for _, p := range m.properties {
		if zip == "" || p.Zip == zip {
			out = append(out, p)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) UpdateProperty(_ context.Context, p *store.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.properties {
		if x.ID == p.ID {
			p.CreatedAt = x.CreatedAt
			m.properties[i] = *p
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) DeleteProperty(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.properties {
		if x.ID == id {
			m.properties = append(m.properties[:i], m.properties[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) CreateAppraisal(_ context.Context, a *store.Appraisal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	for _, p := range m.properties {
		found = found || p.ID == a.PropertyID
	}
	if !found {
		return fmt.Errorf("insert appraisal: %w: appraisals_property_id_fkey", store.ErrReference)
	}
	a.ID = m.nextID("a")
	m.appraisals = append(m.appraisals, *a)
	return nil
}

func (m *memStore) GetAppraisal(_ context.Context, id string) (store.Appraisal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appraisals {
		if a.ID == id {
			return a, nil
		}
	}
	return store.Appraisal{}, store.ErrNotFound
}

func (m *memStore) ListAppraisals(_ context.Context, f store.AppraisalFilter) ([]store.Appraisal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Appraisal, 0)
	for _, a := range m.appraisals {
		if (f.PropertyID == "" || a.PropertyID == f.PropertyID) && (f.Status == "" || a.Status == f.Status) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) UpdateAppraisal(_ context.Context, a *store.Appraisal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.appraisals {
		if x.ID == a.ID {
			a.PropertyID = x.PropertyID
			m.appraisals[i] = *a
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) DeleteAppraisal(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.appraisals {
		if x.ID == id {
			m.appraisals = append(m.appraisals[:i], m.appraisals[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) CreateComparable(_ context.Context, c *store.Comparable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	for _, a := range m.appraisals {
		found = found || a.ID == c.AppraisalID
	}
	if !found {
		return fmt.Errorf("insert comparable: %w: comparables_appraisal_id_fkey", store.ErrReference)
	}
	c.ID = m.nextID("c")
	if c.Source == "" {
		c.Source = "manual"
	}
	m.comparables = append(m.comparables, *c)
	return nil
}

func (m *memStore) GetComparable(_ context.Context, id string) (store.Comparable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.comparables {
		if c.ID == id {
			return c, nil
		}
	}
	return store.Comparable{}, store.ErrNotFound
}

func (m *memStore) ListComparables(_ context.Context, appraisalID string) ([]store.Comparable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Comparable, 0)
	for _, c := range m.comparables {
		if c.AppraisalID == appraisalID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) UpdateComparable(_ context.Context, c *store.Comparable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.comparables {
		if x.ID == c.ID {
			m.comparables[i] = *c
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) DeleteComparable(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.comparables {
		if x.ID == id {
			m.comparables = append(m.comparables[:i], m.comparables[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) SetAdjustedPrice(_ context.Context, comparableID string, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.comparables {
		if x.ID == comparableID {
			m.comparables[i].AdjustedPrice = price
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) CreateAdjustment(_ context.Context, a *store.Adjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextID("adj")
	a.CreatedAt = fakeNow
	m.adjustments = append(m.adjustments, *a)
	return nil
}

func (m *memStore) ListAdjustments(_ context.Context, comparableID string) ([]store.Adjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Adjustment, 0)
	for _, a := range m.adjustments {
		if a.ComparableID == comparableID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) DeleteAdjustment(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.adjustments {
		if x.ID == id {
			m.adjustments = append(m.adjustments[:i], m.adjustments[i+1:]...)
			return x.ComparableID, nil
		}
	}
	return "", store.ErrNotFound
}

func (m *memStore) UpsertMarketData(_ context.Context, d *store.MarketData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.Source == "" {
		d.Source = "manual"
	}
	for i, x := range m.market {
		if x.Zip == d.Zip && x.Period.Equal(d.Period) && x.Source == d.Source {
			d.ID = x.ID
			m.market[i] = *d
			return nil
		}
	}
	d.ID = m.nextID("md")
	m.market = append(m.market, *d)
	return nil
}

func (m *memStore) GetMarketData(_ context.Context, id string) (store.MarketData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.market {
		if x.ID == id {
			return x, nil
		}
	}
	return store.MarketData{}, store.ErrNotFound
}

func (m *memStore) ListMarketData(_ context.Context, zip string, limit int) ([]store.MarketData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.MarketData, 0)
	for _, x := range m.market {
		if zip == "" || x.Zip == zip {
			out = append(out, x)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) DeleteMarketData(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.market {
		if x.ID == id {
			m.market = append(m.market[:i], m.market[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// recordingPub captures published events.
type recordingPub struct {
	mu     sync.Mutex
	events []events.AppraisalChanged
}

func (r *recordingPub) PublishAppraisalChanged(_ context.Context, evt events.AppraisalChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingPub) SubscribeAppraisalChanged() <-chan events.AppraisalChanged { return nil }

func (r *recordingPub) reasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.AppraisalID+":"+e.Reason)
	}
	return out
}
