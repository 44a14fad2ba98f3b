package models

import (
	"errors"
	"fmt"
	"math"
	"regexp"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ErrAmountOverflow is returned when an amount no longer fits in int64 cents.
var ErrAmountOverflow = errors.New("money amount overflows int64 cents")

// Money is an amount in minor units of a single currency.
type Money struct {
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

// NewMoney validates amount and currency code.
func NewMoney(amountCents int64, currency string) (Money, error) {
	if amountCents < 0 {
		return Money{}, fmt.Errorf("money amount must be >= 0, got %d", amountCents)
	}
	if !currencyPattern.MatchString(currency) {
		return Money{}, fmt.Errorf("currency must be a 3-letter uppercase code, got %q", currency)
	}
	return Money{AmountCents: amountCents, Currency: currency}, nil
}

// Add sums two values of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	if other.AmountCents > 0 && m.AmountCents > math.MaxInt64-other.AmountCents {
		return Money{}, fmt.Errorf("add %d to %d: %w", other.AmountCents, m.AmountCents, ErrAmountOverflow)
	}
	return NewMoney(m.AmountCents+other.AmountCents, m.Currency)
}

// Multiply scales the amount by a positive quantity.
func (m Money) Multiply(quantity int) (Money, error) {
	if quantity < 1 {
		return Money{}, fmt.Errorf("quantity must be >= 1, got %d", quantity)
	}
	if m.AmountCents > 0 && int64(quantity) > math.MaxInt64/m.AmountCents {
		return Money{}, fmt.Errorf("multiply %d by %d: %w", m.AmountCents, quantity, ErrAmountOverflow)
	}
	return NewMoney(m.AmountCents*int64(quantity), m.Currency)
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.AmountCents, m.Currency)
}
