// Package money implements the fixed-precision amount used for wallet
// balances and transaction amounts.
package money

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places carried by an Amount.
const Scale = 2

// maxMinor bounds parsed amounts so that sums of balances stay well inside int64.
const maxMinor int64 = 1_000_000_000_000_000

var (
	// ErrEmpty is returned when an amount string contains no numeric characters.
	ErrEmpty = errors.New("amount is empty")
	// ErrNotNumeric is returned when an amount string cannot be parsed as a decimal.
	ErrNotNumeric = errors.New("amount is not numeric")
	// ErrOutOfRange is returned for amounts too large to be represented.
	ErrOutOfRange = errors.New("amount out of range")
)

var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// Amount is a monetary value held as an integer number of minor units
// (hundredths). The zero value is 0.00.
type Amount struct {
	minor int64
}

// Zero is 0.00.
var Zero = Amount{}

// FromMinor builds an Amount from minor units (cents).
func FromMinor(minor int64) Amount {
	return Amount{minor: minor}
}

// FromInt builds an Amount from whole units.
func FromInt(units int64) Amount {
	return Amount{minor: units * 100}
}

// FromDecimal rounds d half-up to two decimal places.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	shifted := d.Round(Scale).Shift(Scale)
	if shifted.Abs().GreaterThan(decimal.NewFromInt(maxMinor)) {
		return Zero, ErrOutOfRange
	}
	return Amount{minor: shifted.IntPart()}, nil
}

// Parse reads user supplied input. Every character other than digits, '.'
// and '-' is discarded first, so "$1,500.00" parses as 1500.00. The sign is
// preserved; callers decide whether negative or zero values are acceptable.
func Parse(raw string) (Amount, error) {
	cleaned := nonNumeric.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return Zero, ErrEmpty
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrNotNumeric, raw)
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants and tests; it panics on error.
func MustParse(raw string) Amount {
	a, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return a
}

// Minor returns the value in minor units.
func (a Amount) Minor() int64 { return a.minor }

// Decimal returns the value as a decimal with two places.
func (a Amount) Decimal() decimal.Decimal { return decimal.New(a.minor, -Scale) }

func (a Amount) Add(b Amount) Amount { return Amount{minor: a.minor + b.minor} }
func (a Amount) Sub(b Amount) Amount { return Amount{minor: a.minor - b.minor} }

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.minor < b.minor:
		return -1
	case a.minor > b.minor:
		return 1
	}
	return 0
}

func (a Amount) LessThan(b Amount) bool { return a.minor < b.minor }
func (a Amount) IsZero() bool           { return a.minor == 0 }
func (a Amount) IsPositive() bool       { return a.minor > 0 }
func (a Amount) IsNegative() bool       { return a.minor < 0 }

// String renders the amount with exactly two decimals, e.g. "198500.00".
func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

// MarshalJSON writes the amount as a bare JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Zero
		return nil
	}
	s := strings.Trim(string(data), `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotNumeric, s)
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
