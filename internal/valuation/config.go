// Package valuation estimates residential property value with the three classic
// appraisal approaches (sales comparison, income, cost) and reconciles them.
//
// Every function in this package is pure. An Engine is immutable once built and may be
// shared across goroutines.
package valuation

import "fmt"

// Config holds the tunable constants used by the estimators.
type Config struct {
	// FallbackPricePerSqft is used when no comparable yields a usable $/sqft.
	// It is a placeholder, not market data.
	FallbackPricePerSqft float64 `mapstructure:"fallback_price_per_sqft" json:"fallback_price_per_sqft"`

	BedroomBaseline  float64 `mapstructure:"bedroom_baseline" json:"bedroom_baseline"`
	BedroomPremium   float64 `mapstructure:"bedroom_premium" json:"bedroom_premium"`
	BathroomBaseline float64 `mapstructure:"bathroom_baseline" json:"bathroom_baseline"`
	BathroomPremium  float64 `mapstructure:"bathroom_premium" json:"bathroom_premium"`

	// Age bands, checked in order: age < NewConstructionMaxAge, age < RecentMaxAge,
	// age > AgedMinAge.
	NewConstructionMaxAge int     `mapstructure:"new_construction_max_age" json:"new_construction_max_age"`
	NewConstructionFactor float64 `mapstructure:"new_construction_factor" json:"new_construction_factor"`
	RecentMaxAge          int     `mapstructure:"recent_max_age" json:"recent_max_age"`
	RecentFactor          float64 `mapstructure:"recent_factor" json:"recent_factor"`
	AgedMinAge            int     `mapstructure:"aged_min_age" json:"aged_min_age"`
	AgedFactor            float64 `mapstructure:"aged_factor" json:"aged_factor"`

	SqftPerAcre       float64 `mapstructure:"sqft_per_acre" json:"sqft_per_acre"`
	EconomicLifeYears float64 `mapstructure:"economic_life_years" json:"economic_life_years"`
	MaxDepreciation   float64 `mapstructure:"max_depreciation" json:"max_depreciation"`
}

// DefaultConfig returns the standard policy constants.
func DefaultConfig() Config {
	return Config{
		FallbackPricePerSqft:  200,
		BedroomBaseline:       2,
		BedroomPremium:        0.05,
		BathroomBaseline:      1.5,
		BathroomPremium:       0.04,
		NewConstructionMaxAge: 5,
		NewConstructionFactor: 1.15,
		RecentMaxAge:          20,
		RecentFactor:          1.05,
		AgedMinAge:            50,
		AgedFactor:            0.85,
		SqftPerAcre:           43560,
		EconomicLifeYears:     60,
		MaxDepreciation:       0.7,
	}
}

// Validate reports constants that would make an estimator divide by zero or
// produce a negative residual value.
func (c Config) Validate() error {
	switch {
	case c.FallbackPricePerSqft <= 0:
		return fmt.Errorf("fallback price per sqft must be positive, got %.2f", c.FallbackPricePerSqft)
	case c.SqftPerAcre <= 0:
		return fmt.Errorf("sqft per acre must be positive, got %.2f", c.SqftPerAcre)
	case c.EconomicLifeYears <= 0:
		return fmt.Errorf("economic life must be positive, got %.2f", c.EconomicLifeYears)
	case c.MaxDepreciation <= 0 || c.MaxDepreciation > 1:
		return fmt.Errorf("max depreciation must be in (0, 1], got %.2f", c.MaxDepreciation)
	case c.BedroomPremium < 0 || c.BathroomPremium < 0:
		return fmt.Errorf("room premiums must not be negative")
	case c.NewConstructionMaxAge > c.RecentMaxAge:
		return fmt.Errorf("new construction age band (%d) exceeds recent band (%d)", c.NewConstructionMaxAge, c.RecentMaxAge)
	case c.RecentMaxAge > c.AgedMinAge:
		return fmt.Errorf("recent age band (%d) overlaps aged band (%d)", c.RecentMaxAge, c.AgedMinAge)
	}
	return nil
}
