// Package core provides the transaction model and money handling.
//
// Amounts are kept as decimals so that sums and ratios are exact; the
// statistical stages convert to float64 only where a model needs it.
package core

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a nullable monetary value. A JSON null or a missing field leaves
// it invalid; invalid amounts are skipped by every aggregate.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NewAmount returns a valid amount.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Value: d, Valid: true}
}

// AmountFromFloat is a convenience for tests and fixtures.
func AmountFromFloat(f float64) Amount {
	return NewAmount(decimal.NewFromFloat(f))
}

// UnmarshalJSON accepts JSON numbers and null. Quoted numbers are rejected:
// the input contract carries amounts as numbers.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = Amount{}
		return nil
	}
	if len(b) == 0 || b[0] == '"' {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, b)
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, b)
	}
	*a = NewAmount(d)
	return nil
}

// MarshalJSON writes the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

// Float64 returns the amount for numeric models. The second result is false
// for invalid amounts.
func (a Amount) Float64() (float64, bool) {
	if !a.Valid {
		return 0, false
	}
	return a.Value.InexactFloat64(), true
}
