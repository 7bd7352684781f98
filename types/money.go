// Package types provides common types used across paytrail.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money represents a monetary value in the smallest currency unit.
// All arithmetic is integer-only, with no floating point.
//
// Examples:
//   - New(4999, "usd") = $49.99 (4999 cents)
//   - New(100, "jpy") = ¥100 (no minor unit)
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (cents, pence, etc)
	Currency string `json:"currency"` // ISO 4217 lowercase: "usd", "eur", "gbp"
}

// Parse errors.
var (
	ErrInvalidDecimal  = errors.New("money: invalid decimal amount")
	ErrTooPrecise      = errors.New("money: more fractional digits than the currency allows")
	ErrAmountOverflow  = errors.New("money: amount out of range")
	ErrInvalidCurrency = errors.New("money: currency must be a 3-letter code")
)

// New creates a Money value from minor units.
func New(minor int64, currency string) Money {
	return Money{Amount: minor, Currency: NormalizeCurrency(currency)}
}

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return New(0, currency) }

// NormalizeCurrency lowercases and trims a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToLower(strings.TrimSpace(currency))
}

// ValidCurrency reports whether code is exactly three ASCII letters.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// Parse converts a decimal string such as "49.99" into minor units of the
// given currency. It never rounds: "49.999" in a two-decimal currency is
// rejected with ErrTooPrecise.
func Parse(amount, currency string) (Money, error) {
	currency = NormalizeCurrency(currency)
	if !ValidCurrency(currency) {
		return Money{}, ErrInvalidCurrency
	}

	s := strings.TrimSpace(amount)
	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidDecimal, amount)
	}
	if hasDot && frac == "" {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidDecimal, amount)
	}
	if !allDigits(whole) || !allDigits(frac) {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidDecimal, amount)
	}

	decimals := CurrencyDecimals(currency)
	frac = strings.TrimRight(frac, "0")
	if len(frac) > decimals {
		return Money{}, fmt.Errorf("%w: %q has %d decimals, %s allows %d",
			ErrTooPrecise, amount, len(frac), strings.ToUpper(currency), decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	digits := strings.TrimLeft(whole+frac, "0")
	if digits == "" {
		return Zero(currency), nil
	}
	minor, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrAmountOverflow, amount)
	}
	if negative {
		minor = -minor
	}

	return Money{Amount: minor, Currency: currency}, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded values.
func MustParse(amount, currency string) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// Formatting methods

// FormatMajor returns the major unit string without currency symbol.
// For currencies with 2 decimal places: "49.99" for New(4999, "usd").
// For currencies with 0 decimal places (JPY): "100" for New(100, "jpy").
func (m Money) FormatMajor() string {
	decimals := CurrencyDecimals(m.Currency)
	if decimals == 0 {
		return strconv.FormatInt(m.Amount, 10)
	}

	divisor := int64(1)
	for i := 0; i < decimals; i++ {
		divisor *= 10
	}

	isNegative := m.Amount < 0
	absAmount := m.Amount
	if isNegative {
		absAmount = -absAmount
	}

	result := fmt.Sprintf("%d.%0*d", absAmount/divisor, decimals, absAmount%divisor)
	if isNegative {
		return "-" + result
	}
	return result
}

// String returns a human-readable string with currency symbol.
// Examples: "$49.99", "€199.00", "£99.00", "¥100"
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Decimal  string `json:"decimal"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Decimal:  m.FormatMajor(),
		Display:  m.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Only amount and currency are read.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = New(raw.Amount, raw.Currency)
	return nil
}

// Helper functions

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// currencySymbol returns the symbol for a currency code.
func currencySymbol(currency string) string {
	symbols := map[string]string{
		"usd": "$",
		"eur": "€",
		"gbp": "£",
		"jpy": "¥",
		"cad": "C$",
		"aud": "A$",
		"chf": "CHF ",
		"cny": "¥",
		"sek": "kr ",
		"nzd": "NZ$",
	}
	if sym, ok := symbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

// CurrencyDecimals returns the number of decimal places for a currency.
func CurrencyDecimals(currency string) int {
	zeroDecimal := map[string]bool{
		"jpy": true, // Japanese Yen
		"krw": true, // Korean Won
		"vnd": true, // Vietnamese Dong
		"clp": true, // Chilean Peso
		"pyg": true, // Paraguayan Guarani
		"idr": true, // Indonesian Rupiah
	}
	if zeroDecimal[strings.ToLower(currency)] {
		return 0
	}
	// Most currencies have 2 decimal places
	return 2
}
