// Package yield computes the upfront-yield preview shown before a stake is
// submitted. The numbers here are informational: the vault contract is the
// authority for what actually gets paid out.
package yield

import (
	"math"

	"github.com/jack-landon/dapper-app/internal/amount"
)

const secondsPerYear = 365 * 24 * 3600

// Preview is the upfront-yield estimate for a prospective stake.
type Preview struct {
	Principal float64 `json:"principal"`
	APY       float64 `json:"apy"`
	Seconds   int64   `json:"durationSeconds"`
	Yield     float64 `json:"yield"`
	Total     float64 `json:"total"`
}

// Instant computes the simple-interest upfront yield for a principal locked
// for the given number of seconds at the advertised annual rate. Linear in
// both principal and duration, no compounding.
func Instant(principal, apy float64, seconds int64) float64 {
	if principal <= 0 || seconds <= 0 || apy < 0 {
		return 0
	}
	if math.IsNaN(principal) || math.IsInf(principal, 0) {
		return 0
	}
	return principal * apy * float64(seconds) / (secondsPerYear * 100)
}

// Compute builds the full preview, with total-after-lock = principal + yield.
func Compute(principal, apy float64, seconds int64) Preview {
	y := Instant(principal, apy, seconds)
	return Preview{
		Principal: principal,
		APY:       apy,
		Seconds:   seconds,
		Yield:     y,
		Total:     principal + y,
	}
}

// Display renders a yield value the way the dashboard shows it.
func Display(value float64) string {
	return amount.ToSignificant(value, 3)
}

// TreasuryEstimate is the projected annual and monthly return for a
// prospective liquidity deposit into a treasury vault.
type TreasuryEstimate struct {
	Annual  float64 `json:"annual"`
	Monthly float64 `json:"monthly"`
}

// EstimateTreasury projects returns on a treasury deposit at the token's
// advertised rate.
func EstimateTreasury(principal, apy float64) TreasuryEstimate {
	if principal <= 0 || apy <= 0 || math.IsNaN(principal) || math.IsInf(principal, 0) {
		return TreasuryEstimate{}
	}
	annual := principal * apy / 100
	return TreasuryEstimate{Annual: annual, Monthly: annual / 12}
}
