// Package validation filters malformed stake and contribution records out
// of indexer responses before they reach presentation or aggregation.
package validation

import (
	"github.com/jack-landon/dapper-app/internal/amount"
	"github.com/jack-landon/dapper-app/internal/model"
	"github.com/sirupsen/logrus"
)

// Options holds the record validation criteria.
type Options struct {
	// RequireTxHash drops stakes without a deposit transaction hash.
	// The withdraw listing links every record to the explorer, so the
	// hash is normally mandatory.
	RequireTxHash bool

	// RequirePositiveAmount drops stakes whose staked amount parses to
	// zero or garbage.
	RequirePositiveAmount bool

	// RequireOrderedTimestamps drops stakes whose unlock precedes their
	// deposit.
	RequireOrderedTimestamps bool
}

// DefaultOptions returns the criteria used by the API surface.
func DefaultOptions() Options {
	return Options{
		RequireTxHash:            true,
		RequirePositiveAmount:    true,
		RequireOrderedTimestamps: true,
	}
}

// FilterStakes removes records that fail the default criteria.
func FilterStakes(stakes []model.Stake) []model.Stake {
	return FilterStakesWithOptions(stakes, DefaultOptions())
}

// FilterStakesWithOptions removes records that fail the given criteria.
func FilterStakesWithOptions(stakes []model.Stake, opts Options) []model.Stake {
	valid := make([]model.Stake, 0, len(stakes))
	for _, s := range stakes {
		if isValidStake(s, opts) {
			valid = append(valid, s)
		} else {
			logrus.WithFields(logrus.Fields{
				"stake_id": s.ID,
				"token":    s.TokenAddress,
				"amount":   s.AmountStaked,
			}).Debug("Filtered invalid stake record")
		}
	}
	return valid
}

func isValidStake(s model.Stake, opts Options) bool {
	if s.ID == "" || s.TokenAddress == "" {
		return false
	}
	if s.DepositTime().IsZero() {
		return false
	}
	if opts.RequireTxHash && s.DepositTxHash == "" {
		return false
	}
	if opts.RequirePositiveAmount && amount.ParseBase(s.AmountStaked).Sign() <= 0 {
		return false
	}
	if opts.RequireOrderedTimestamps {
		unlock := s.UnlockTime()
		if unlock.IsZero() || unlock.Before(s.DepositTime()) {
			return false
		}
	}
	return true
}

// FilterContributions removes ledger entries without an id or with a
// non-positive amount.
func FilterContributions(contributions []model.Contribution) []model.Contribution {
	valid := make([]model.Contribution, 0, len(contributions))
	for _, c := range contributions {
		if c.ID == "" || amount.ParseBase(c.Amount).Sign() <= 0 {
			logrus.WithField("contribution_id", c.ID).Debug("Filtered invalid contribution record")
			continue
		}
		valid = append(valid, c)
	}
	return valid
}
