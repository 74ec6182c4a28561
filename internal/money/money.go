// Package money implements fixed-point arithmetic for billing.
//
// Quantities are stored as thousandths of a litre (3 decimal places),
// unit prices and amounts as paise (2 decimal places). Keeping every
// value in integer minor units means totals are exact and a bill's
// amount is always re-derivable from its quantity and price snapshot.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Scale factors for the two fixed-point representations.
const (
	QuantityScale = 1000 // thousandths of a litre
	AmountScale   = 100  // paise
)

// RoundingMode selects how a fractional paise remainder is resolved.
type RoundingMode int

const (
	// RoundHalfEven is banker's rounding: a remainder of exactly one
	// half rounds toward the even quotient.
	RoundHalfEven RoundingMode = iota
	// RoundHalfUp always rounds a remainder of one half away from zero.
	RoundHalfUp
)

var ErrInvalidRoundingMode = errors.New("invalid_rounding_mode")

// ParseRoundingMode maps a policy string to a RoundingMode.
func ParseRoundingMode(raw string) (RoundingMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "half_even", "bankers":
		return RoundHalfEven, nil
	case "half_up":
		return RoundHalfUp, nil
	default:
		return RoundHalfEven, ErrInvalidRoundingMode
	}
}

// MulUnitPrice computes quantityMilli × pricePaise in paise, dividing
// out the quantity scale with the given rounding mode. Inputs are
// non-negative in this domain; negative inputs round toward zero on
// the half boundary only under RoundHalfEven.
func MulUnitPrice(quantityMilli, pricePaise int64, mode RoundingMode) int64 {
	num := quantityMilli * pricePaise
	quotient := num / QuantityScale
	remainder := num % QuantityScale
	if remainder < 0 {
		remainder = -remainder
	}

	double := remainder * 2
	switch {
	case double < QuantityScale:
		return quotient
	case double > QuantityScale:
		return bump(num, quotient)
	default:
		// Exactly half.
		if mode == RoundHalfUp {
			return bump(num, quotient)
		}
		if quotient%2 == 0 {
			return quotient
		}
		return bump(num, quotient)
	}
}

func bump(num, quotient int64) int64 {
	if num < 0 {
		return quotient - 1
	}
	return quotient + 1
}

// FormatQuantity renders thousandths of a litre as "123.456".
func FormatQuantity(quantityMilli int64) string {
	sign := ""
	if quantityMilli < 0 {
		sign = "-"
		quantityMilli = -quantityMilli
	}
	return fmt.Sprintf("%s%d.%03d", sign, quantityMilli/QuantityScale, quantityMilli%QuantityScale)
}

// FormatAmount renders paise as "16800.00".
func FormatAmount(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s%d.%02d", sign, paise/AmountScale, paise%AmountScale)
}

var ErrInvalidDecimal = errors.New("invalid_decimal")

// ParseQuantity parses a decimal string with up to 3 fractional digits
// into thousandths of a litre.
func ParseQuantity(raw string) (int64, error) {
	return parseScaled(raw, 3)
}

// ParseAmount parses a decimal string with up to 2 fractional digits
// into paise.
func ParseAmount(raw string) (int64, error) {
	return parseScaled(raw, 2)
}

func parseScaled(raw string, fractionDigits int) (int64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, ErrInvalidDecimal
	}
	negative := false
	if value[0] == '+' || value[0] == '-' {
		negative = value[0] == '-'
		value = value[1:]
	}

	whole := value
	frac := ""
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		whole = value[:idx]
		frac = value[idx+1:]
	}
	if whole == "" && frac == "" {
		return 0, ErrInvalidDecimal
	}
	if len(frac) > fractionDigits {
		return 0, ErrInvalidDecimal
	}
	for len(frac) < fractionDigits {
		frac += "0"
	}

	var out int64
	for _, part := range []string{whole, frac} {
		for _, ch := range part {
			if ch < '0' || ch > '9' {
				return 0, ErrInvalidDecimal
			}
			digit := int64(ch - '0')
			if out > (math.MaxInt64-digit)/10 {
				return 0, ErrInvalidDecimal
			}
			out = out*10 + digit
		}
	}
	if negative {
		out = -out
	}
	return out, nil
}
