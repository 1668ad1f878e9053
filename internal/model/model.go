// Package model defines the core data structures for the dapper staking service.
package model

import (
	"strconv"
	"strings"
	"time"
)

// StakeStatus describes where a stake sits in its lifecycle.
type StakeStatus string

const (
	// StatusLocked means the stake is active and still inside its lock window.
	StatusLocked StakeStatus = "locked"

	// StatusReady means the stake is active and past its unlock timestamp.
	StatusReady StakeStatus = "ready"

	// StatusWithdrawn is terminal. A stake never leaves this state.
	StatusWithdrawn StakeStatus = "withdrawn"
)

// Stake is a user's locked-deposit position as served by the indexer.
// This service never mutates a stake directly: it submits the transactions
// that cause mutation on-chain and re-queries the indexer afterwards.
//
// Amounts are fixed-point integer strings at the token's decimal scale
// (18 unless the registry says otherwise). Timestamps are seconds since epoch,
// also carried as strings because that is how the indexer serializes them.
type Stake struct {
	ID                string `json:"id"`
	StakeID           string `json:"stakeId"`
	AmountStaked      string `json:"amountStaked"`
	DepositTimestamp  string `json:"depositTimestamp"`
	DepositTxHash     string `json:"depositTxHash"`
	InterestPaid      string `json:"interestPaid"`
	LockDuration      string `json:"lockDuration"`
	UnlockTimestamp   string `json:"unlockTimestamp"`
	WithdrawTimestamp string `json:"withdrawTimestamp,omitempty"`
	WithdrawTxHash    string `json:"withdrawTxHash,omitempty"`
	TokenAddress      string `json:"tokenAddress"`
	VaultAddress      string `json:"vaultAddress"`
}

// IsWithdrawn reports whether the stake reached its terminal state.
// Presence of a withdraw timestamp is the authoritative signal.
func (s Stake) IsWithdrawn() bool {
	return strings.TrimSpace(s.WithdrawTimestamp) != ""
}

// IsActive reports whether the stake has not been withdrawn.
func (s Stake) IsActive() bool {
	return !s.IsWithdrawn()
}

// IsReady reports whether the stake is active and past its unlock time.
func (s Stake) IsReady(now time.Time) bool {
	return s.IsActive() && !s.UnlockTime().After(now)
}

// Status derives the lifecycle status at the given instant.
func (s Stake) Status(now time.Time) StakeStatus {
	switch {
	case s.IsWithdrawn():
		return StatusWithdrawn
	case s.IsReady(now):
		return StatusReady
	default:
		return StatusLocked
	}
}

// DepositTime returns the deposit timestamp as a time.Time.
func (s Stake) DepositTime() time.Time {
	return unixTime(s.DepositTimestamp)
}

// UnlockTime returns the unlock timestamp as a time.Time.
func (s Stake) UnlockTime() time.Time {
	return unixTime(s.UnlockTimestamp)
}

// LockDurationSeconds returns the lock duration in seconds, 0 if unparseable.
func (s Stake) LockDurationSeconds() int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s.LockDuration), 10, 64)
	return n
}

// ReadyCount counts active stakes whose unlock time has passed.
func ReadyCount(stakes []Stake, now time.Time) int {
	count := 0
	for _, s := range stakes {
		if s.IsReady(now) {
			count++
		}
	}
	return count
}

// Contribution is one append-only ledger entry in a treasury vault,
// referencing the stake whose upfront yield it funded.
type Contribution struct {
	ID                    string            `json:"id"`
	Amount                string            `json:"amount"`
	ContributionTxHash    string            `json:"contributionTxHash"`
	ContributionTimestamp int64             `json:"contributionTimestamp"`
	Stake                 ContributionStake `json:"stake"`
}

// ContributionStake is the subset of the originating stake the indexer
// attaches to each contribution.
type ContributionStake struct {
	AmountStaked string `json:"amountStaked"`
	InterestPaid string `json:"interestPaid"`
	LockDuration string `json:"lockDuration"`
	Owner        string `json:"user_id"`
}

// TreasuryVault is the liquidity pool funding upfront yield for one token.
// Its identifier is the vault contract address.
type TreasuryVault struct {
	ID                       string         `json:"id"`
	TokenAddress             string         `json:"tokenAddress"`
	LifetimeValueContributed string         `json:"lifetimeValueContributed"`
	Contributions            []Contribution `json:"contributions"`
}

func unixTime(s string) time.Time {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(n, 0)
}
