// Package amount converts between human-readable token amounts and the
// fixed-point integer representation used on-chain and by the indexer.
package amount

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// DefaultDecimals is assumed when a token's precision is unknown.
const DefaultDecimals = 18

// ParseUnits converts a display amount like "12.5" into base units at the
// given decimal precision. The amount must be a positive finite number.
func ParseUnits(display string, decimals int) (*big.Int, error) {
	display = strings.TrimSpace(display)
	if display == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(display, "-") {
		return nil, fmt.Errorf("negative amount: %s", display)
	}
	if decimals < 0 {
		return nil, fmt.Errorf("invalid decimals: %d", decimals)
	}

	parts := strings.Split(display, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid amount: %s", display)
	}
	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("invalid amount: %s", display)
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", display, decimals)
	}
	for len(frac) < decimals {
		frac += "0"
	}

	combined := strings.TrimLeft(whole+frac, "0")
	if combined == "" {
		return nil, fmt.Errorf("amount must be positive: %s", display)
	}
	value, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", display)
	}
	return value, nil
}

// FormatUnits renders base units back into a display string, trimming
// trailing zeros from the fractional part.
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil || value.Sign() == 0 {
		return "0"
	}
	if decimals <= 0 {
		return value.String()
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(value, divisor, frac)

	fracStr := strings.TrimRight(fmt.Sprintf("%0*s", decimals, frac.String()), "0")
	if fracStr == "" {
		return whole.String()
	}
	return whole.String() + "." + fracStr
}

// ParseBase parses a fixed-point integer string as served by the indexer.
// Unparseable input yields zero, matching how the dashboard degrades.
func ParseBase(s string) *big.Int {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

// ToFloat converts a fixed-point integer string into a float at the given
// precision. Display-only: callers needing exactness stay in big.Int space.
func ToFloat(s string, decimals int) float64 {
	v := ParseBase(s)
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(v),
		big.NewFloat(math.Pow10(decimals)),
	).Float64()
	return f
}

// ToSignificant formats a number for display with thousands separators and
// at most maxDecimals fractional digits. Zero, NaN and infinities all render
// as "0".
func ToSignificant(value float64, maxDecimals int) string {
	if value == 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return "0"
	}

	formatted := strconv.FormatFloat(value, 'f', maxDecimals, 64)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	neg := strings.HasPrefix(formatted, "-")
	if neg {
		formatted = formatted[1:]
	}
	whole := formatted
	frac := ""
	if i := strings.IndexByte(formatted, '.'); i >= 0 {
		whole = formatted[:i]
		frac = formatted[i:]
	}

	out := groupThousands(whole) + frac
	if neg {
		out = "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
