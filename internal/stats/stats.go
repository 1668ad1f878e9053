// Package stats aggregates stake and treasury records into the dashboard
// summary figures.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/jack-landon/dapper-app/internal/amount"
	"github.com/jack-landon/dapper-app/internal/model"
	"github.com/jack-landon/dapper-app/internal/registry"
)

// TokenTotals holds per-token aggregates across a user's stakes.
type TokenTotals struct {
	Symbol       string  `json:"symbol"`
	TokenAddress string  `json:"tokenAddress"`
	Staked       float64 `json:"staked"`
	InterestPaid float64 `json:"interestPaid"`
	Stakes       int     `json:"stakes"`
}

// Summary is the headline view over a set of stake records.
type Summary struct {
	TotalStakes  int           `json:"totalStakes"`
	Locked       int           `json:"locked"`
	Ready        int           `json:"ready"`
	Withdrawn    int           `json:"withdrawn"`
	InterestPaid float64       `json:"interestPaid"`
	Tokens       []TokenTotals `json:"tokens"`
}

// Summarize folds stake records into per-token and overall totals. Amounts
// are converted at each token's registry precision; withdrawn stakes count
// toward interest paid but not toward the staked balance.
func Summarize(stakes []model.Stake, reg *registry.Registry, now time.Time) Summary {
	sum := Summary{TotalStakes: len(stakes)}
	perToken := make(map[string]*TokenTotals)

	for _, s := range stakes {
		switch s.Status(now) {
		case model.StatusWithdrawn:
			sum.Withdrawn++
		case model.StatusReady:
			sum.Ready++
		default:
			sum.Locked++
		}

		decimals := amount.DefaultDecimals
		symbol := s.TokenAddress
		if reg != nil {
			decimals = reg.DecimalsFor(s.TokenAddress)
			if t, ok := reg.TokenByAddress(s.TokenAddress); ok {
				symbol = t.Symbol
			}
		}

		tt, ok := perToken[s.TokenAddress]
		if !ok {
			tt = &TokenTotals{Symbol: symbol, TokenAddress: s.TokenAddress}
			perToken[s.TokenAddress] = tt
		}
		tt.Stakes++

		interest := amount.ToFloat(s.InterestPaid, decimals)
		if !math.IsNaN(interest) {
			tt.InterestPaid += interest
			sum.InterestPaid += interest
		}
		if s.IsActive() {
			staked := amount.ToFloat(s.AmountStaked, decimals)
			if !math.IsNaN(staked) {
				tt.Staked += staked
			}
		}
	}

	sum.Tokens = make([]TokenTotals, 0, len(perToken))
	for _, tt := range perToken {
		sum.Tokens = append(sum.Tokens, *tt)
	}
	sort.Slice(sum.Tokens, func(i, j int) bool {
		return sum.Tokens[i].Symbol < sum.Tokens[j].Symbol
	})
	return sum
}

// TreasuryTotals summarizes one treasury vault's contribution ledger.
type TreasuryTotals struct {
	TokenAddress        string  `json:"tokenAddress"`
	LifetimeContributed float64 `json:"lifetimeContributed"`
	Contributions       int     `json:"contributions"`
	LatestContribution  int64   `json:"latestContribution,omitempty"`
}

// SummarizeTreasury folds a vault's ledger into totals at the given
// decimal precision.
func SummarizeTreasury(vault model.TreasuryVault, decimals int) TreasuryTotals {
	tt := TreasuryTotals{
		TokenAddress:        vault.TokenAddress,
		LifetimeContributed: amount.ToFloat(vault.LifetimeValueContributed, decimals),
		Contributions:       len(vault.Contributions),
	}
	for _, c := range vault.Contributions {
		if c.ContributionTimestamp > tt.LatestContribution {
			tt.LatestContribution = c.ContributionTimestamp
		}
	}
	return tt
}
