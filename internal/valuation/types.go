package valuation

import (
	"fmt"
	"math"
)

// PropertyCharacteristics describes the subject property.
type PropertyCharacteristics struct {
	SquareFeet   float64 `json:"square_feet" mapstructure:"square_feet"`
	Bedrooms     float64 `json:"bedrooms" mapstructure:"bedrooms"`
	Bathrooms    float64 `json:"bathrooms" mapstructure:"bathrooms"`
	YearBuilt    int     `json:"year_built" mapstructure:"year_built"` // 0 = unknown
	LotSizeAcres float64 `json:"lot_size_acres" mapstructure:"lot_size_acres"`
}

// ComparableSale is a recently sold property used as a pricing reference.
type ComparableSale struct {
	SalePrice    float64 `json:"sale_price" mapstructure:"sale_price"`
	SquareFeet   float64 `json:"square_feet" mapstructure:"square_feet"`
	Bedrooms     float64 `json:"bedrooms,omitempty" mapstructure:"bedrooms"`
	Bathrooms    float64 `json:"bathrooms,omitempty" mapstructure:"bathrooms"`
	YearBuilt    int     `json:"year_built,omitempty" mapstructure:"year_built"`
	LotSizeAcres float64 `json:"lot_size_acres,omitempty" mapstructure:"lot_size_acres"`
}

// PricePerSqft reports the comparable's $/sqft, or false when the sale cannot
// contribute to an average.
func (c ComparableSale) PricePerSqft() (float64, bool) {
	if !(c.SalePrice > 0) || !(c.SquareFeet > 0) {
		return 0, false
	}
	ppsf := c.SalePrice / c.SquareFeet
	if math.IsNaN(ppsf) || math.IsInf(ppsf, 0) {
		return 0, false
	}
	return ppsf, true
}

// AdjustmentLineItem is a signed correction to a comparable's sale price.
type AdjustmentLineItem struct {
	Category     string  `json:"category" mapstructure:"category"`
	Amount       float64 `json:"amount" mapstructure:"amount"`
	IsPercentage bool    `json:"is_percentage" mapstructure:"is_percentage"`
}

// IncomeAssumptions feed the income approach. Percentages are 0..100.
type IncomeAssumptions struct {
	MonthlyRentalIncome          float64 `json:"monthly_rental_income" mapstructure:"monthly_rental_income"`
	VacancyRatePercent           float64 `json:"vacancy_rate_percent" mapstructure:"vacancy_rate_percent"`
	OperatingExpenseRatioPercent float64 `json:"operating_expense_ratio_percent" mapstructure:"operating_expense_ratio_percent"`
	CapRatePercent               float64 `json:"cap_rate_percent" mapstructure:"cap_rate_percent"`
}

// CostAssumptions feed the cost approach.
type CostAssumptions struct {
	ConstructionCostPerSqft float64 `json:"construction_cost_per_sqft" mapstructure:"construction_cost_per_sqft"`
	LandValuePerSqft        float64 `json:"land_value_per_sqft" mapstructure:"land_value_per_sqft"`
	LotSizeAcres            float64 `json:"lot_size_acres" mapstructure:"lot_size_acres"`
	YearBuilt               int     `json:"year_built" mapstructure:"year_built"`
	SquareFeet              float64 `json:"square_feet" mapstructure:"square_feet"`
}

// Estimate is the output of one approach. Value is always 0 when Computable is
// false, so a caller reading only Value sees "0 = insufficient data".
type Estimate struct {
	Value      int64 `json:"value"`
	Computable bool  `json:"computable"`
}

// NotComputable is the estimate returned when required inputs are missing.
var NotComputable = Estimate{}

func computed(field string, v float64) (Estimate, error) {
	rounded, err := roundCurrency(field, v)
	if err != nil {
		return NotComputable, err
	}
	return Estimate{Value: rounded, Computable: true}, nil
}

// Approach names one of the three valuation methods.
type Approach string

const (
	ApproachSalesComparison Approach = "sales_comparison"
	ApproachIncome          Approach = "income"
	ApproachCost            Approach = "cost"
)

// ParseApproach maps a stored or user-supplied name to an Approach. The empty
// string selects sales comparison.
func ParseApproach(s string) (Approach, error) {
	switch Approach(s) {
	case "", ApproachSalesComparison:
		return ApproachSalesComparison, nil
	case ApproachIncome, ApproachCost:
		return Approach(s), nil
	}
	return "", fmt.Errorf("%w: unknown approach %q", ErrInvalidInput, s)
}

// Input bundles everything Evaluate needs for one subject property.
type Input struct {
	Subject     PropertyCharacteristics `json:"subject" mapstructure:"subject"`
	Comparables []ComparableSale        `json:"comparables" mapstructure:"comparables"`
	Income      IncomeAssumptions       `json:"income" mapstructure:"income"`
	Cost        CostAssumptions         `json:"cost" mapstructure:"cost"`
	Approach    Approach                `json:"approach,omitempty" mapstructure:"approach"`
}

// Result holds the three estimates and their reconciliation.
type Result struct {
	Comparable Estimate `json:"comparable"`
	Income     Estimate `json:"income"`
	Cost       Estimate `json:"cost"`
	Reconciliation
	Approach Approach `json:"approach"`
	Selected int64    `json:"selected"`
}

// MaxCurrency bounds every currency result. Larger magnitudes come from
// nonsensical inputs and are rejected instead of overflowing int64.
const MaxCurrency = 1e15

// roundCurrency rounds half up to a whole currency unit.
func roundCurrency(field string, v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > MaxCurrency {
		return 0, invalid(field, v, fmt.Sprintf("result exceeds %.0f", MaxCurrency))
	}
	return int64(math.Floor(v + 0.5)), nil
}
