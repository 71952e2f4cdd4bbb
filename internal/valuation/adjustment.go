package valuation

// AdjustedPrice applies adjustment line items to a comparable's sale price.
// A percentage item contributes salePrice*amount/100, a fixed item its amount.
// The adjusted price never drops below zero.
func AdjustedPrice(salePrice float64, adjustments []AdjustmentLineItem) (int64, error) {
	if err := checkFinite("sale_price", salePrice); err != nil {
		return 0, err
	}
	if salePrice <= 0 {
		return 0, invalid("sale_price", salePrice, "must be positive")
	}
	var total float64
	for _, adj := range adjustments {
		if err := checkFinite("adjustment "+adj.Category, adj.Amount); err != nil {
			return 0, err
		}
		total += Contribution(salePrice, adj)
	}
	price, err := roundCurrency("adjusted_price", salePrice+total)
	if err != nil {
		return 0, err
	}
	if price < 0 {
		return 0, nil
	}
	return price, nil
}

// Contribution is the signed currency effect of a single line item.
func Contribution(salePrice float64, adj AdjustmentLineItem) float64 {
	if adj.IsPercentage {
		return salePrice * adj.Amount / 100
	}
	return adj.Amount
}
