package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/jack-landon/dapper-app/internal/model"
	"github.com/jack-landon/dapper-app/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *registry.Registry {
	return &registry.Registry{
		Tokens: []registry.Token{
			{Symbol: "MUSD", Address: "0xaaa", VaultAddress: "0xva", APY: 12, Decimals: 18},
			{Symbol: "BTC", Address: "0xbbb", VaultAddress: "0xvb", APY: 10, Decimals: 18},
		},
	}
}

func unix(t time.Time) string { return fmt.Sprintf("%d", t.Unix()) }

func TestSummarize(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	stakes := []model.Stake{
		{
			ID:               "1",
			TokenAddress:     "0xAAA", // mixed case resolves via the registry
			AmountStaked:     "1000000000000000000000",
			InterestPaid:     "29000000000000000000",
			DepositTimestamp: unix(now.Add(-48 * time.Hour)),
			UnlockTimestamp:  unix(now.Add(24 * time.Hour)),
		},
		{
			ID:               "2",
			TokenAddress:     "0xaaa",
			AmountStaked:     "500000000000000000000",
			InterestPaid:     "10000000000000000000",
			DepositTimestamp: unix(now.Add(-96 * time.Hour)),
			UnlockTimestamp:  unix(now.Add(-time.Hour)),
		},
		{
			ID:                "3",
			TokenAddress:      "0xbbb",
			AmountStaked:      "2000000000000000000",
			InterestPaid:      "1000000000000000000",
			DepositTimestamp:  unix(now.Add(-400 * time.Hour)),
			UnlockTimestamp:   unix(now.Add(-200 * time.Hour)),
			WithdrawTimestamp: unix(now.Add(-100 * time.Hour)),
		},
	}

	sum := Summarize(stakes, testRegistry(), now)

	assert.Equal(t, 3, sum.TotalStakes)
	assert.Equal(t, 1, sum.Locked)
	assert.Equal(t, 1, sum.Ready)
	assert.Equal(t, 1, sum.Withdrawn)
	assert.InDelta(t, 40.0, sum.InterestPaid, 1e-9)

	require.Len(t, sum.Tokens, 2)
	// Sorted by symbol: BTC before MUSD.
	btc, musd := sum.Tokens[0], sum.Tokens[1]
	assert.Equal(t, "BTC", btc.Symbol)
	assert.Equal(t, 1, btc.Stakes)
	// Withdrawn stakes keep their interest but drop out of the balance.
	assert.Zero(t, btc.Staked)
	assert.InDelta(t, 1.0, btc.InterestPaid, 1e-9)

	assert.Equal(t, "MUSD", musd.Symbol)
	assert.Equal(t, 2, musd.Stakes)
	assert.InDelta(t, 1500.0, musd.Staked, 1e-9)
	assert.InDelta(t, 39.0, musd.InterestPaid, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(nil, testRegistry(), time.Now())
	assert.Zero(t, sum.TotalStakes)
	assert.Empty(t, sum.Tokens)
}

func TestSummarizeUnknownTokenFallsBackToAddress(t *testing.T) {
	now := time.Now()
	stakes := []model.Stake{{
		ID:              "1",
		TokenAddress:    "0xdeadbeef",
		AmountStaked:    "3000000000000000000",
		InterestPaid:    "0",
		UnlockTimestamp: unix(now.Add(time.Hour)),
	}}

	sum := Summarize(stakes, testRegistry(), now)
	require.Len(t, sum.Tokens, 1)
	assert.Equal(t, "0xdeadbeef", sum.Tokens[0].Symbol)
	assert.InDelta(t, 3.0, sum.Tokens[0].Staked, 1e-9)
}

func TestSummarizeTreasury(t *testing.T) {
	vault := model.TreasuryVault{
		ID:                       "0xva",
		TokenAddress:             "0xaaa",
		LifetimeValueContributed: "12500000000000000000",
		Contributions: []model.Contribution{
			{ID: "c1", Amount: "2500000000000000000", ContributionTimestamp: 100},
			{ID: "c2", Amount: "10000000000000000000", ContributionTimestamp: 250},
		},
	}

	tt := SummarizeTreasury(vault, 18)
	assert.InDelta(t, 12.5, tt.LifetimeContributed, 1e-9)
	assert.Equal(t, 2, tt.Contributions)
	assert.Equal(t, int64(250), tt.LatestContribution)
}
