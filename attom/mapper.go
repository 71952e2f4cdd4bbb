package attom

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// stringNumber accepts string or number JSON and stores as string
type stringNumber string

func (s *stringNumber) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = stringNumber(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*s = stringNumber(num.String())
	return nil
}

func (s stringNumber) Float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

const sqftPerAcre = 43560

// MapSalesToComparables maps a sale snapshot payload to sale records. ATTOM
// payload shape differs by plan, so every field is optional.
func MapSalesToComparables(raw []byte) ([]SaleRecord, error) {
	type sAddress struct {
		OneLine     string `json:"oneLine"`
		Line1       string `json:"line1"`
		City        string `json:"locality"`
		CountrySubd string `json:"countrySubd"`
		Region      string `json:"region"`
		Zip         string `json:"postal1"`
	}
	type sProperty struct {
		Identifier struct {
			AttomID stringNumber `json:"attomId"`
			APN     stringNumber `json:"apn"`
		} `json:"identifier"`
		Address  sAddress `json:"address"`
		Location struct {
			Latitude  stringNumber `json:"latitude"`
			Longitude stringNumber `json:"longitude"`
		} `json:"location"`
		Summary struct {
			PropClass string       `json:"propclass"`
			YearBuilt stringNumber `json:"yearbuilt"`
		} `json:"summary"`
		Building struct {
			Size struct {
				Universal stringNumber `json:"universalsize"`
				Living    stringNumber `json:"livingsize"`
			} `json:"size"`
			Rooms struct {
				Beds       stringNumber `json:"beds"`
				BathsTotal stringNumber `json:"bathstotal"`
			} `json:"rooms"`
		} `json:"building"`
		Lot struct {
			Acres stringNumber `json:"lotsize1"`
			Sqft  stringNumber `json:"lotsize2"`
		} `json:"lot"`
		Sale struct {
			TransDate string `json:"saleTransDate"`
			Amount    struct {
				Price   stringNumber `json:"saleamt"`
				RecDate string       `json:"salerecdate"`
			} `json:"amount"`
		} `json:"sale"`
	}

	var root struct {
		Property []sProperty `json:"property"`
	}
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, err
	}

	out := make([]SaleRecord, 0, len(root.Property))
	for _, p := range root.Property {
		sqft := p.Building.Size.Living.Float()
		if sqft == 0 {
			sqft = p.Building.Size.Universal.Float()
		}
		acres := p.Lot.Acres.Float()
		if acres == 0 && p.Lot.Sqft.Float() > 0 {
			acres = p.Lot.Sqft.Float() / sqftPerAcre
		}
		out = append(out, SaleRecord{
			ID:           firstNonEmpty(string(p.Identifier.AttomID), string(p.Identifier.APN)),
			Address:      firstNonEmpty(p.Address.Line1, p.Address.OneLine),
			City:         p.Address.City,
			State:        firstNonEmpty(p.Address.CountrySubd, p.Address.Region),
			Zip:          p.Address.Zip,
			PropertyType: p.Summary.PropClass,
			SalePrice:    math.Max(p.Sale.Amount.Price.Float(), 0),
			SaleDate:     parseDate(firstNonEmpty(p.Sale.TransDate, p.Sale.Amount.RecDate)),
			SquareFeet:   math.Max(sqft, 0),
			Bedrooms:     math.Max(p.Building.Rooms.Beds.Float(), 0),
			Bathrooms:    math.Max(p.Building.Rooms.BathsTotal.Float(), 0),
			YearBuilt:    int(math.Max(p.Summary.YearBuilt.Float(), 0)),
			LotSizeAcres: math.Max(acres, 0),
			Coords:       [2]float64{p.Location.Longitude.Float(), p.Location.Latitude.Float()},
			Source:       "attom",
		})
	}
	return out, nil
}

// MapSalesTrend maps a sales trend payload, oldest period first.
func MapSalesTrend(raw []byte) ([]TrendPoint, error) {
	type trend struct {
		DateRange struct {
			Start string `json:"start"`
		} `json:"daterange"`
		SalesTrend struct {
			Count  stringNumber `json:"homeSaleCount"`
			Median stringNumber `json:"medSalePrice"`
			Avg    stringNumber `json:"avgSalePrice"`
		} `json:"salesTrend"`
	}
	var root struct {
		SalesTrends []trend `json:"salestrends"`
	}
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	out := make([]TrendPoint, 0, len(root.SalesTrends))
	for _, t := range root.SalesTrends {
		period := parseDate(t.DateRange.Start)
		if period == nil {
			continue
		}
		out = append(out, TrendPoint{
			Period:          *period,
			SalesCount:      int(t.SalesTrend.Count.Float()),
			MedianSalePrice: t.SalesTrend.Median.Float(),
			AvgSalePrice:    t.SalesTrend.Avg.Float(),
		})
	}
	slices.SortFunc(out, func(a, b TrendPoint) int { return a.Period.Compare(b.Period) })
	return out, nil
}

// SummarizeSales computes the median sale price over records with a price and
// the mean $/sqft over records that also have a living area.
func SummarizeSales(zip string, records []SaleRecord) MarketSummary {
	sum := MarketSummary{Zip: zip}
	prices := make([]float64, 0, len(records))
	var ppsTotal float64
	var ppsCount int
	for _, r := range records {
		if r.SalePrice <= 0 {
			continue
		}
		prices = append(prices, r.SalePrice)
		if pps, ok := r.PricePerSqft(); ok {
			ppsTotal += pps
			ppsCount++
		}
	}
	sum.SalesCount = len(prices)
	if len(prices) == 0 {
		return sum
	}
	slices.Sort(prices)
	mid := len(prices) / 2
	if len(prices)%2 == 0 {
		sum.MedianSalePrice = (prices[mid-1] + prices[mid]) / 2
	} else {
		sum.MedianSalePrice = prices[mid]
	}
	if ppsCount > 0 {
		sum.AvgPricePerSqft = math.Round(ppsTotal/float64(ppsCount)*100) / 100
	}
	return sum
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "2006-01", "2006-01-02T15:04:05"}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
