// Package units converts between human decimal amounts and the factory's
// 18-decimal scaled integers.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the fixed-point precision used by the factory contract.
const Decimals = 18

// ErrInvalidAmount is returned when an amount string is not a non-negative decimal.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a user-entered decimal string. Negative values are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	return d, nil
}

// ToScaled parses s and scales it to 18 decimal places. Digits beyond the
// 18th fractional place are rounded.
func ToScaled(s string) (*big.Int, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return nil, err
	}
	return Scale(d), nil
}

// Scale multiplies d by 10^18 and rounds to an integer.
func Scale(d decimal.Decimal) *big.Int {
	return d.Shift(Decimals).Round(0).BigInt()
}

// FromScaled divides a scaled integer by 10^18. A nil value is zero.
func FromScaled(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	return decimal.NewFromBigInt(v, -Decimals).InexactFloat64()
}

// FormatScaled renders a scaled integer as an exact decimal string.
func FormatScaled(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -Decimals).String()
}

// Int64 converts an unscaled integer, saturating at the int64 range.
func Int64(v *big.Int) int64 {
	if v == nil {
		return 0
	}
	if !v.IsInt64() {
		if v.Sign() < 0 {
			return -1 << 63
		}
		return 1<<63 - 1
	}
	return v.Int64()
}
