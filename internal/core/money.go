// Package core provides money parsing and handling utilities.
//
// Amounts are decimals held to two places. Storage layers keep integer
// cents so sums pushed down to the database stay exact.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const centsExp = -2

// Money is a decimal amount rounded to cents.
type Money struct {
	Amount decimal.Decimal
}

// Zero is the additive identity.
var Zero = Money{Amount: decimal.Zero}

// MaxAmount caps a single transaction so integer-cent sums over any
// realistic ledger stay inside int64.
var MaxAmount = MoneyFromCents(99_999_999_999)

// NewMoney rounds d half away from zero to two places.
func NewMoney(d decimal.Decimal) Money {
	return Money{Amount: d.Round(2)}
}

// MoneyFromCents converts integer cents back into a decimal amount.
func MoneyFromCents(cents int64) Money {
	return Money{Amount: decimal.New(cents, centsExp)}
}

// ParseAmount converts a decimal string into Money.
//
// It accepts both dot (12.34) and comma (12,34) separators and rounds to
// cents. Non-numeric input, amounts that are not strictly positive after
// rounding and amounts above MaxAmount return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-5")     -> ErrInvalidAmount
//	ParseAmount("1e12")   -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	m := NewMoney(d)
	if err := m.Validate(); err != nil {
		return Zero, err
	}
	return m, nil
}

// Validate rejects zero, negative and oversized amounts.
func (m Money) Validate() error {
	if !m.Amount.IsPositive() {
		return fmt.Errorf("%w: must be greater than 0", ErrInvalidAmount)
	}
	if m.Amount.GreaterThan(MaxAmount.Amount) {
		return fmt.Errorf("%w: must not exceed %s", ErrInvalidAmount, MaxAmount)
	}
	return nil
}

// Cents returns the amount in integer cents. The result is only meaningful
// for amounts that passed Validate; larger values do not fit in int64.
func (m Money) Cents() int64 {
	return m.Amount.Shift(2).Round(0).IntPart()
}

func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount.Add(other.Amount)}
}

func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount.Sub(other.Amount)}
}

func (m Money) Cmp(other Money) int {
	return m.Amount.Cmp(other.Amount)
}

func (m Money) Equal(other Money) bool {
	return m.Amount.Equal(other.Amount)
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// String formats with exactly two decimals ("1500.00").
func (m Money) String() string {
	return m.Amount.StringFixed(2)
}

// Float64 is for chart renderers only; never use it for arithmetic.
func (m Money) Float64() float64 {
	f, _ := m.Amount.Float64()
	return f
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*m = Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	*m = NewMoney(d)
	return nil
}
