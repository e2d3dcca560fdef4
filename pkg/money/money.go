// Package money provides currency-safe amount handling for the import
// pipeline and the finance domain. Amounts are stored as integer minor units
// (the Fowler Money pattern); parsing and rounding go through
// shopspring/decimal so no float arithmetic leaks into stored values.
package money

import (
	"errors"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when the caller does not carry a currency code.
const DefaultCurrency = "USD"

var ErrInvalidAmount = errors.New("invalid amount")

// Money represents a monetary value with currency.
type Money struct {
	m *gomoney.Money
}

// New creates a Money value from minor units (cents) and a currency code.
func New(amountMinor int64, currencyCode string) *Money {
	return &Money{m: gomoney.New(amountMinor, currencyCode)}
}

// NewFromDecimal creates Money from a decimal value, rounding to the
// currency's minor-unit precision.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := gomoney.GetCurrency(currencyCode)
	if currency == nil {
		currency = gomoney.GetCurrency(DefaultCurrency)
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	minor := amount.Mul(multiplier).Round(0).IntPart()
	return New(minor, currencyCode)
}

// Amount returns the value in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// Negate returns the value with its sign flipped.
func (m *Money) Negate() *Money {
	return New(-m.Amount(), m.Currency())
}

// IsPositive reports whether the value is strictly greater than zero.
func (m *Money) IsPositive() bool {
	return m.Amount() > 0
}

// ParseDecimal parses a free-text amount into a decimal. It tolerates
// surrounding whitespace, common currency symbols, thousands separators and
// parenthesized negatives. Returns ErrInvalidAmount when the remainder is not
// a plain number.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	for _, sym := range []string{"$", "€", "£", "R$", "¥", "₹"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}

	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// CanonicalString parses a free-text amount and reformats it with exactly two
// decimal digits, the canonical stored form for import rows.
func CanonicalString(raw string) (string, error) {
	d, err := ParseDecimal(raw)
	if err != nil {
		return "", err
	}
	return d.StringFixed(2), nil
}

// MinorUnits parses a free-text amount into minor units for the default
// two-decimal currencies.
func MinorUnits(raw string) (int64, error) {
	d, err := ParseDecimal(raw)
	if err != nil {
		return 0, err
	}
	return NewFromDecimal(d, DefaultCurrency).Amount(), nil
}
