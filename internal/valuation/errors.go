package valuation

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is wrapped by every InputError.
var ErrInvalidInput = errors.New("invalid valuation input")

// InputError describes a malformed input that cannot be read as "missing".
type InputError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Reason, e.Value)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalid(field string, v float64, reason string) error {
	return &InputError{Field: field, Value: v, Reason: reason}
}

func checkFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, v, "must be a finite number")
	}
	return nil
}

func checkNonNegative(field string, v float64) error {
	if err := checkFinite(field, v); err != nil {
		return err
	}
	if v < 0 {
		return invalid(field, v, "must not be negative")
	}
	return nil
}

func checkPercent(field string, v float64) error {
	if err := checkNonNegative(field, v); err != nil {
		return err
	}
	if v > 100 {
		return invalid(field, v, "must not exceed 100")
	}
	return nil
}

func checkYear(field string, year, currentYear int) error {
	if year < 0 {
		return invalid(field, float64(year), "must not be negative")
	}
	if year > currentYear {
		return invalid(field, float64(year), fmt.Sprintf("must not be after %d", currentYear))
	}
	return nil
}
