// Package types provides common value types shared across the domain.
package types

import (
	"github.com/shopspring/decimal"
)

// Quantity is a count of whole stock units.
//
// Stock is tracked in indivisible units (the source system never splits a
// unit), so a plain int64 is enough. Fractional values only appear in
// reorder-point arithmetic, which uses Rate below.
type Quantity int64

func (q Quantity) Int64() int64 { return int64(q) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

// Rate represents a fractional per-day quantity (e.g. average daily
// consumption). Uses decimal.Decimal to avoid floating-point drift in
// threshold calculations.
type Rate = decimal.Decimal

// NewRate creates a Rate from a float.
// WARNING: Use NewRateFromString for precise values.
func NewRate(f float64) Rate {
	return decimal.NewFromFloat(f)
}

// NewRateFromString creates a Rate from a string.
// This is the preferred constructor for configuration values.
func NewRateFromString(s string) (Rate, error) {
	return decimal.NewFromString(s)
}

// MustRate creates a Rate from a string, panics on error.
// Use only for constants and tests.
func MustRate(s string) Rate {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ZeroRate returns the zero Rate value.
func ZeroRate() Rate {
	return decimal.Zero
}
