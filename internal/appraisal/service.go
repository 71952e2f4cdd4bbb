// Package appraisal connects stored appraisals to the valuation engine: it maps
// rows to engine input, caches results and persists recomputed valuations.
package appraisal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/appraisal-api/internal/redisx"
	"github.com/yourorg/appraisal-api/internal/store"
	"github.com/yourorg/appraisal-api/internal/valuation"
)

type Store interface {
	LoadBundle(ctx context.Context, appraisalID string) (store.AppraisalBundle, error)
	SaveValuation(ctx context.Context, appraisalID string, v store.StoredValuation) error
}

// Cache is satisfied by *redisx.Client.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Valuation is a computed result for one appraisal.
type Valuation struct {
	AppraisalID string           `json:"appraisal_id"`
	Result      valuation.Result `json:"result"`
	ComputedAt  time.Time        `json:"computed_at"`
	Source      string           `json:"source"` // "cache" or "fresh"
}

type Service struct {
	Store    Store
	Engine   *valuation.Engine
	Cache    Cache // optional
	CacheTTL time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(appraisalID string) string { return "val:appraisal:" + appraisalID }

// Valuate returns the cached valuation when present, computing it otherwise.
// Computing here does not persist; use Recompute for that.
func (s *Service) Valuate(ctx context.Context, appraisalID string, bypassCache bool) (Valuation, error) {
	if s.Cache != nil && !bypassCache {
		var v Valuation
		err := s.Cache.GetJSON(ctx, cacheKey(appraisalID), &v)
		if err == nil {
			v.Source = "cache"
			return v, nil
		}
		if !errors.Is(err, redisx.ErrMiss) {
			s.log().Warn("valuation cache read failed", "appraisal_id", appraisalID, "error", err)
		}
	}
	v, err := s.compute(ctx, appraisalID)
	if err != nil {
		return v, err
	}
	s.store(ctx, v)
	return v, nil
}

// Recompute evaluates the appraisal, persists the result on its row and
// refreshes the cache.
func (s *Service) Recompute(ctx context.Context, appraisalID string) (Valuation, error) {
	v, err := s.compute(ctx, appraisalID)
	if err != nil {
		return v, err
	}
	err = s.Store.SaveValuation(ctx, appraisalID, store.StoredValuation{
		ComparableValue: v.Result.Comparable.Value,
		IncomeValue:     v.Result.Income.Value,
		CostValue:       v.Result.Cost.Value,
		ReconciledValue: v.Result.Average,
		FinalValue:      v.Result.Selected,
		ValuedAt:        v.ComputedAt,
	})
	if err != nil {
		return v, err
	}
	s.store(ctx, v)
	s.log().Info("appraisal revalued", "appraisal_id", appraisalID,
		"selected", v.Result.Selected, "approach", v.Result.Approach, "average", v.Result.Average)
	return v, nil
}

// Invalidate drops any cached valuation for the appraisal.
func (s *Service) Invalidate(ctx context.Context, appraisalID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, cacheKey(appraisalID)); err != nil {
		s.log().Warn("valuation cache delete failed", "appraisal_id", appraisalID, "error", err)
	}
}

func (s *Service) compute(ctx context.Context, appraisalID string) (Valuation, error) {
	b, err := s.Store.LoadBundle(ctx, appraisalID)
	if err != nil {
		return Valuation{}, err
	}
	in, err := BuildInput(b)
	if err != nil {
		return Valuation{}, err
	}
	res, err := s.Engine.Evaluate(in)
	if err != nil {
		return Valuation{}, fmt.Errorf("appraisal %s: %w", appraisalID, err)
	}
	return Valuation{AppraisalID: appraisalID, Result: res, ComputedAt: s.now().UTC(), Source: "fresh"}, nil
}

func (s *Service) store(ctx context.Context, v Valuation) {
	if s.Cache == nil {
		return
	}
	ttl := s.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := s.Cache.SetJSON(ctx, cacheKey(v.AppraisalID), v, ttl); err != nil {
		s.log().Warn("valuation cache write failed", "appraisal_id", v.AppraisalID, "error", err)
	}
}

// BuildInput maps an appraisal bundle onto engine input. Comparables are
// priced by their raw sale price; adjustments only affect AdjustedPrice.
func BuildInput(b store.AppraisalBundle) (valuation.Input, error) {
	p, a := b.Property, b.Appraisal
	approach, err := valuation.ParseApproach(a.Approach)
	if err != nil {
		return valuation.Input{}, err
	}
	in := valuation.Input{
		Subject: valuation.PropertyCharacteristics{
			SquareFeet:   p.SquareFeet,
			Bedrooms:     p.Bedrooms,
			Bathrooms:    p.Bathrooms,
			YearBuilt:    p.YearBuilt,
			LotSizeAcres: p.LotSizeAcres,
		},
		Income: valuation.IncomeAssumptions{
			MonthlyRentalIncome:          a.MonthlyRent.InexactFloat64(),
			VacancyRatePercent:           a.VacancyRate,
			OperatingExpenseRatioPercent: a.ExpenseRatio,
			CapRatePercent:               a.CapRate,
		},
		Cost: valuation.CostAssumptions{
			ConstructionCostPerSqft: a.ConstructionCostPerSqft.InexactFloat64(),
			LandValuePerSqft:        a.LandValuePerSqft.InexactFloat64(),
			LotSizeAcres:            p.LotSizeAcres,
			YearBuilt:               p.YearBuilt,
			SquareFeet:              p.SquareFeet,
		},
		Approach: approach,
	}
	in.Comparables = make([]valuation.ComparableSale, 0, len(b.Comparables))
	for _, c := range b.Comparables {
		in.Comparables = append(in.Comparables, valuation.ComparableSale{
			SalePrice:    c.SalePrice.InexactFloat64(),
			SquareFeet:   c.SquareFeet,
			Bedrooms:     c.Bedrooms,
			Bathrooms:    c.Bathrooms,
			YearBuilt:    c.YearBuilt,
			LotSizeAcres: c.LotSizeAcres,
		})
	}
	return in, nil
}

// AdjustedPrice prices a stored comparable with its stored adjustments.
func AdjustedPrice(salePrice decimal.Decimal, adjs []store.Adjustment) (decimal.Decimal, error) {
	items := make([]valuation.AdjustmentLineItem, 0, len(adjs))
	for _, a := range adjs {
		items = append(items, valuation.AdjustmentLineItem{
			Category:     a.Category,
			Amount:       a.Amount.InexactFloat64(),
			IsPercentage: a.IsPercentage,
		})
	}
	price, err := valuation.AdjustedPrice(salePrice.InexactFloat64(), items)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(price), nil
}
