// Package money implements exact two-decimal-place arithmetic over credit
// amounts represented as strings ("1.00"). Amounts are converted to integer
// minor units (cents) before any arithmetic so repeated add/subtract never
// accumulates binary floating-point drift.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToCents parses a decimal string and returns its value in minor units.
// Returns an error for malformed input; use this at API boundaries where
// the amount comes from the outside.
func ToCents(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("money: malformed amount %q: %w", s, err)
	}
	return d.Mul(hundred).Round(0).IntPart(), nil
}

// FromCents formats minor units as a two-decimal string.
func FromCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// mustCents is for amounts produced by this service itself. A parse failure
// here is a programmer error and must not be silently coerced to zero.
func mustCents(s string) int64 {
	c, err := ToCents(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Add returns a+b as a two-decimal string.
func Add(a, b string) string {
	return FromCents(mustCents(a) + mustCents(b))
}

// Subtract returns a-b as a two-decimal string.
func Subtract(a, b string) string {
	return FromCents(mustCents(a) - mustCents(b))
}

// Compare returns -1, 0 or 1 as a is less than, equal to or greater than b.
func Compare(a, b string) int {
	ac, bc := mustCents(a), mustCents(b)
	switch {
	case ac < bc:
		return -1
	case ac > bc:
		return 1
	default:
		return 0
	}
}

func IsPositive(a string) bool { return mustCents(a) > 0 }

func IsNegative(a string) bool { return mustCents(a) < 0 }

func IsZero(a string) bool { return mustCents(a) == 0 }

// Negate flips the sign of a, used for spend-side transaction amounts.
func Negate(a string) string { return FromCents(-mustCents(a)) }
