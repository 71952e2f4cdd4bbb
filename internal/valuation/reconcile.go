package valuation

import "math"

// Reconciliation summarizes the three approach values.
type Reconciliation struct {
	Min     int64 `json:"min"`
	Max     int64 `json:"max"`
	Average int64 `json:"average"`
}

// Reconcile takes the plain mean of the three values. A non-computable approach
// contributes 0 and pulls the average down; callers that want to exclude it must
// do so before calling.
func Reconcile(comparable, income, cost int64) Reconciliation {
	lo, hi := comparable, comparable
	for _, v := range []int64{income, cost} {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	// float64 sum so three large values cannot overflow int64
	avg := math.Floor((float64(comparable)+float64(income)+float64(cost))/3 + 0.5)
	r := Reconciliation{Min: lo, Max: hi}
	switch {
	case avg >= float64(hi):
		r.Average = hi
	case avg <= float64(lo):
		r.Average = lo
	default:
		r.Average = int64(avg)
	}
	return r
}
