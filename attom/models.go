package attom

import "time"

// SaleRecord is one recorded sale from the sale snapshot, flattened into the
// fields a comparable needs.
type SaleRecord struct {
	ID           string     `json:"id"`
	Address      string     `json:"address"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	Zip          string     `json:"zip"`
	PropertyType string     `json:"property_type"`
	SalePrice    float64    `json:"sale_price"`
	SaleDate     *time.Time `json:"sale_date,omitempty"`
	SquareFeet   float64    `json:"square_feet"`
	Bedrooms     float64    `json:"bedrooms"`
	Bathrooms    float64    `json:"bathrooms"`
	YearBuilt    int        `json:"year_built"`
	LotSizeAcres float64    `json:"lot_size_acres"`
	Coords       [2]float64 `json:"coords"` // [lng, lat]
	Source       string     `json:"source"`
}

// PricePerSqft is false when the record lacks a price or living area.
func (r SaleRecord) PricePerSqft() (float64, bool) {
	if r.SalePrice <= 0 || r.SquareFeet <= 0 {
		return 0, false
	}
	return r.SalePrice / r.SquareFeet, true
}

// TrendPoint is one interval of the ZIP-level sales trend.
type TrendPoint struct {
	Period          time.Time `json:"period"`
	SalesCount      int       `json:"sales_count"`
	MedianSalePrice float64   `json:"median_sale_price"`
	AvgSalePrice    float64   `json:"avg_sale_price"`
}

// MarketSummary aggregates a batch of sale records for one ZIP.
type MarketSummary struct {
	Zip             string  `json:"zip"`
	SalesCount      int     `json:"sales_count"`
	MedianSalePrice float64 `json:"median_sale_price"`
	AvgPricePerSqft float64 `json:"avg_price_per_sqft"`
}
