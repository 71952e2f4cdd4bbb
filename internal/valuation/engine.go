package valuation

import (
	"math"
	"time"
)

// Engine evaluates the three approaches against a fixed Config.
type Engine struct {
	cfg Config
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the source of the current year used for age bands and
// depreciation.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the constants the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) currentYear() int { return e.now().Year() }

// AveragePricePerSqft averages $/sqft over comparables with a positive sale
// price and square footage, falling back to the configured constant when none
// qualify.
func (e *Engine) AveragePricePerSqft(comps []ComparableSale) float64 {
	var sum float64
	n := 0
	for _, c := range comps {
		ppsf, ok := c.PricePerSqft()
		if !ok {
			continue
		}
		sum += ppsf
		n++
	}
	if n == 0 {
		return e.cfg.FallbackPricePerSqft
	}
	avg := sum / float64(n)
	if math.IsNaN(avg) || math.IsInf(avg, 0) {
		return e.cfg.FallbackPricePerSqft
	}
	return avg
}

// SalesComparison values the subject from comparable $/sqft with bedroom,
// bathroom and age adjustments. The multipliers are heuristics, not a certified
// appraisal method.
func (e *Engine) SalesComparison(subject PropertyCharacteristics, comps []ComparableSale) (Estimate, error) {
	year := e.currentYear()
	if err := validateSubject(subject, year); err != nil {
		return NotComputable, err
	}
	if subject.SquareFeet <= 0 {
		return NotComputable, nil
	}

	value := subject.SquareFeet * e.AveragePricePerSqft(comps)
	if subject.Bedrooms > e.cfg.BedroomBaseline {
		value *= 1 + (subject.Bedrooms-e.cfg.BedroomBaseline)*e.cfg.BedroomPremium
	}
	if subject.Bathrooms > e.cfg.BathroomBaseline {
		value *= 1 + (subject.Bathrooms-e.cfg.BathroomBaseline)*e.cfg.BathroomPremium
	}
	if subject.YearBuilt > 0 {
		value *= e.ageFactor(year - subject.YearBuilt)
	}
	return computed("comparable_value", value)
}

// ageFactor applies the first matching age band; 20..50 years is neutral.
func (e *Engine) ageFactor(age int) float64 {
	switch {
	case age < e.cfg.NewConstructionMaxAge:
		return e.cfg.NewConstructionFactor
	case age < e.cfg.RecentMaxAge:
		return e.cfg.RecentFactor
	case age > e.cfg.AgedMinAge:
		return e.cfg.AgedFactor
	}
	return 1
}

// Income capitalizes net operating income at the cap rate. A result pushed
// below zero by ratios above 100% is clamped to 0.
func (e *Engine) Income(a IncomeAssumptions) (Estimate, error) {
	if err := validateIncome(a); err != nil {
		return NotComputable, err
	}
	if a.MonthlyRentalIncome <= 0 || a.CapRatePercent <= 0 {
		return NotComputable, nil
	}
	annualRent := a.MonthlyRentalIncome * 12
	effectiveGross := annualRent * (1 - a.VacancyRatePercent/100)
	noi := effectiveGross * (1 - a.OperatingExpenseRatioPercent/100)
	value := noi / (a.CapRatePercent / 100)
	if value < 0 {
		value = 0
	}
	return computed("income_value", value)
}

// DepreciationFraction is straight-line depreciation over the economic life,
// capped at MaxDepreciation. Negative ages count as new.
func (e *Engine) DepreciationFraction(age int) float64 {
	if age <= 0 {
		return 0
	}
	return math.Min(float64(age)/e.cfg.EconomicLifeYears, e.cfg.MaxDepreciation)
}

// Cost values the property as land plus depreciated replacement cost.
func (e *Engine) Cost(a CostAssumptions) (Estimate, error) {
	year := e.currentYear()
	if err := validateCost(a, year); err != nil {
		return NotComputable, err
	}
	if a.SquareFeet <= 0 || a.YearBuilt <= 0 {
		return NotComputable, nil
	}
	land := a.LotSizeAcres * e.cfg.SqftPerAcre * a.LandValuePerSqft
	replacement := a.SquareFeet * a.ConstructionCostPerSqft
	depreciation := replacement * e.DepreciationFraction(year-a.YearBuilt)
	return computed("cost_value", land+replacement-depreciation)
}

// Evaluate runs the three approaches independently and reconciles them. The
// subject's square footage, year built and lot size fill any zero fields of the
// cost assumptions.
func (e *Engine) Evaluate(in Input) (Result, error) {
	approach, err := ParseApproach(string(in.Approach))
	if err != nil {
		return Result{}, err
	}
	comparable, err := e.SalesComparison(in.Subject, in.Comparables)
	if err != nil {
		return Result{}, err
	}
	income, err := e.Income(in.Income)
	if err != nil {
		return Result{}, err
	}
	cost, err := e.Cost(in.costAssumptions())
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Comparable:     comparable,
		Income:         income,
		Cost:           cost,
		Reconciliation: Reconcile(comparable.Value, income.Value, cost.Value),
		Approach:       approach,
	}
	switch approach {
	case ApproachIncome:
		res.Selected = income.Value
	case ApproachCost:
		res.Selected = cost.Value
	default:
		res.Selected = comparable.Value
	}
	return res, nil
}

func (in Input) costAssumptions() CostAssumptions {
	c := in.Cost
	if c.SquareFeet == 0 {
		c.SquareFeet = in.Subject.SquareFeet
	}
	if c.YearBuilt == 0 {
		c.YearBuilt = in.Subject.YearBuilt
	}
	if c.LotSizeAcres == 0 {
		c.LotSizeAcres = in.Subject.LotSizeAcres
	}
	return c
}

func validateSubject(s PropertyCharacteristics, year int) error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"square_feet", s.SquareFeet},
		{"bedrooms", s.Bedrooms},
		{"bathrooms", s.Bathrooms},
		{"lot_size_acres", s.LotSizeAcres},
	} {
		if err := checkNonNegative(f.name, f.v); err != nil {
			return err
		}
	}
	return checkYear("year_built", s.YearBuilt, year)
}

func validateIncome(a IncomeAssumptions) error {
	if err := checkNonNegative("monthly_rental_income", a.MonthlyRentalIncome); err != nil {
		return err
	}
	if err := checkPercent("vacancy_rate_percent", a.VacancyRatePercent); err != nil {
		return err
	}
	if err := checkPercent("operating_expense_ratio_percent", a.OperatingExpenseRatioPercent); err != nil {
		return err
	}
	return checkFinite("cap_rate_percent", a.CapRatePercent)
}

func validateCost(a CostAssumptions, year int) error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"construction_cost_per_sqft", a.ConstructionCostPerSqft},
		{"land_value_per_sqft", a.LandValuePerSqft},
		{"lot_size_acres", a.LotSizeAcres},
		{"square_feet", a.SquareFeet},
	} {
		if err := checkNonNegative(f.name, f.v); err != nil {
			return err
		}
	}
	return checkYear("year_built", a.YearBuilt, year)
}
