// Package money provides an exact GBP amount held in integer minor units.
package money

import (
	fpmath "TrancheAllocator/internal/math"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is fixed: every amount in the system is GBP.
const Currency = "GBP"

// Precision is the number of decimal places of the minor unit (pence).
const Precision int32 = 2

var (
	ErrDivisionByZero = errors.New("money: division by zero")
	ErrTooPrecise     = errors.New("money: amount has more decimal places than the currency allows")
	ErrOutOfRange     = errors.New("money: amount out of range")
)

// Money is an exact signed amount in pence. The zero value is zero GBP.
type Money struct {
	amount int64
}

// Zero is 0.00 GBP.
var Zero = Money{}

// New creates Money from a minor-unit amount (pence).
func New(minorUnits int64) Money {
	return Money{amount: minorUnits}
}

// Pounds creates Money from whole major units. It panics when the amount
// does not fit; use Parse for untrusted input.
func Pounds(major int64) Money {
	if major > math.MaxInt64/100 || major < math.MinInt64/100 {
		panic(fmt.Sprintf("money: %d pounds out of range", major))
	}
	return Money{amount: major * 100}
}

// Parse reads a major-unit decimal string ("12.34", "1000", "-0.5").
// More than two fractional digits is an error rather than a rounding.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts a major-unit decimal to Money.
func FromDecimal(d decimal.Decimal) (Money, error) {
	minor := d.Shift(Precision)
	if !minor.Equal(minor.Truncate(0)) {
		return Zero, fmt.Errorf("%w: %s", ErrTooPrecise, d.String())
	}
	if !minor.BigInt().IsInt64() {
		return Zero, fmt.Errorf("%w: %s", ErrOutOfRange, d.String())
	}
	return Money{amount: minor.IntPart()}, nil
}

// Amount returns the amount in minor units.
func (m Money) Amount() int64 {
	return m.amount
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.amount, -Precision)
}

// String renders the amount in major units with exactly two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(Precision)
}

func (m Money) Add(other Money) Money {
	return Money{amount: m.amount + other.amount}
}

// CheckedAdd is Add failing with ErrOutOfRange instead of wrapping around.
func (m Money) CheckedAdd(other Money) (Money, error) {
	sum := m.amount + other.amount
	if (other.amount > 0 && sum < m.amount) || (other.amount < 0 && sum > m.amount) {
		return Zero, fmt.Errorf("%w: %s + %s", ErrOutOfRange, m, other)
	}
	return Money{amount: sum}, nil
}

func (m Money) Subtract(other Money) Money {
	return Money{amount: m.amount - other.amount}
}

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(other Money) int {
	switch {
	case m.amount < other.amount:
		return -1
	case m.amount > other.amount:
		return 1
	default:
		return 0
	}
}

func (m Money) Equals(other Money) bool      { return m.amount == other.amount }
func (m Money) GreaterThan(other Money) bool { return m.amount > other.amount }
func (m Money) LessThan(other Money) bool    { return m.amount < other.amount }
func (m Money) IsZero() bool                 { return m.amount == 0 }
func (m Money) IsPositive() bool             { return m.amount > 0 }
func (m Money) IsNegative() bool             { return m.amount < 0 }

// RatioOf returns m / total as an exact rational, for use as an Allocate weight.
func (m Money) RatioOf(total Money) (*big.Rat, error) {
	if total.IsZero() {
		return nil, ErrDivisionByZero
	}
	return big.NewRat(m.amount, total.amount), nil
}

// Allocate splits m into len(weights) parts proportional to weights without
// losing or creating a single penny (largest remainder method).
func (m Money) Allocate(weights []*big.Rat) ([]Money, error) {
	parts, err := fpmath.Apportion(m.amount, weights)
	if err != nil {
		return nil, err
	}

	out := make([]Money, len(parts))
	for i, p := range parts {
		out[i] = Money{amount: p}
	}
	return out, nil
}

// AllocateTo splits m into n parts that differ by at most one penny.
func (m Money) AllocateTo(n int) []Money {
	parts := fpmath.SplitEvenly(m.amount, n)

	out := make([]Money, len(parts))
	for i, p := range parts {
		out[i] = Money{amount: p}
	}
	return out
}

// MarshalJSON encodes the amount as a major-unit decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a major-unit decimal string or number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("money: %w", err)
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
