// Package money implements a fixed-point decimal amount for two-decimal-place
// currency values, avoiding the float64 rounding drift that would otherwise
// violate the hourly row's money-conservation invariants.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// Amount is a money value stored as an integer number of minor units (cents).
type Amount int64

// Zero is the additive identity.
const Zero Amount = 0

// Epsilon is the tolerance used when comparing totals for the TotalTakings ≈
// Cash + CreditCards invariant. Amounts are whole minor units, so the
// tolerance is zero and the comparison is exact.
const Epsilon = 0

// Parse reads a decimal string such as "2.50" or "-1.00" into an Amount.
// It tolerates a leading currency symbol having already been stripped by the
// caller; Parse itself only understands digits, an optional sign and one
// decimal point.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("money: empty value")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !hasFrac {
		frac = "00"
	}
	switch len(frac) {
	case 0:
		frac = "00"
	case 1:
		frac += "0"
	default:
		frac = frac[:2]
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid value %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid value %q: %w", s, err)
	}

	amt := Amount(w*100 + f)
	if neg {
		amt = -amt
	}
	return amt, nil
}

// MustParse is Parse, panicking on error. Used for literal test fixtures.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a+b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a-b.
func (a Amount) Sub(b Amount) Amount { return a - b }

// Neg returns -a.
func (a Amount) Neg() Amount { return -a }

// IsNegative reports whether a < 0.
func (a Amount) IsNegative() bool { return a < 0 }

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a < b }

// GreaterOrEqual reports whether a >= b.
func (a Amount) GreaterOrEqual(b Amount) bool { return a >= b }

// Abs returns the absolute value of a.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// String renders the amount with exactly two decimal places, per §4.5.
func (a Amount) String() string {
	neg := a < 0
	v := int64(a)
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d.%02d", v/100, v%100)
	if neg {
		s = "-" + s
	}
	return s
}

// Float64 converts to a float64, used only where an external API demands one
// (e.g. viper's float-valued config defaults). Never used for accumulation
// internally.
func (a Amount) Float64() float64 {
	return float64(a) / 100
}

// FromFloat64 converts a float64 (e.g. a config value decoded by viper) into
// an Amount, rounding to the nearest minor unit. Never used on the hot
// parsing path, where Parse's string-exact decoding avoids float drift.
func FromFloat64(f float64) Amount {
	if f < 0 {
		return Amount(f*100 - 0.5)
	}
	return Amount(f*100 + 0.5)
}
