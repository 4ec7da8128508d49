// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents and exchanged as plain JSON numbers
// (80, 12.5). Decoding goes through shopspring/decimal so that numeric
// strings and long fractions round the same way everywhere.
package core

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency used for display. The ledger has no multi-currency support.
const Currency = money.EUR

// ParseAmount converts a user supplied decimal string to cents.
//
// It accepts both dot (12.34) and comma (12,34) separators and rounds half
// away from zero on the third decimal. Zero is allowed, negatives are not.
//
// Examples:
//
//	ParseAmount("12.34") -> 1234, nil
//	ParseAmount("12,345") -> 1235, nil
//	ParseAmount("0") -> 0, nil
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount", ErrInvalidAmount)
	}
	return d.Round(2).Shift(2).IntPart(), nil
}

// MoneyFromDecimal rounds d to cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

// Decimal returns the amount as a decimal in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Euros returns the value as float64 for chart series.
// Use Cents for arithmetic.
func (m Money) Euros() float64 {
	return m.Decimal().InexactFloat64()
}

// Display formats the amount with the currency symbol, e.g. €1,234.50.
func (m Money) Display() string {
	return money.New(m.Cents, Currency).Display()
}

// String is the plain decimal form with two digits, e.g. 80.00.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts numbers and numeric strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" || string(b) == `""` {
		*m = Money{}
		return nil
	}
	s := strings.ReplaceAll(strings.Trim(string(b), `"`), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: amount %s", ErrInvalidAmount, string(b))
	}
	*m = MoneyFromDecimal(d)
	return nil
}
