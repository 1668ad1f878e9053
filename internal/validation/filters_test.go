package validation

import (
	"testing"

	"github.com/jack-landon/dapper-app/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStake() model.Stake {
	return model.Stake{
		ID:               "0xva-1",
		StakeID:          "1",
		TokenAddress:     "0xaaa",
		AmountStaked:     "1000000000000000000",
		DepositTimestamp: "1700000000",
		UnlockTimestamp:  "1707776000",
		DepositTxHash:    "0xdead",
	}
}

func TestFilterStakes(t *testing.T) {
	missingID := validStake()
	missingID.ID = ""

	zeroAmount := validStake()
	zeroAmount.AmountStaked = "0"

	garbageAmount := validStake()
	garbageAmount.AmountStaked = "not-a-number"

	noHash := validStake()
	noHash.DepositTxHash = ""

	inverted := validStake()
	inverted.UnlockTimestamp = "1600000000"

	badDeposit := validStake()
	badDeposit.DepositTimestamp = "garbage"

	in := []model.Stake{
		validStake(), missingID, zeroAmount, garbageAmount, noHash, inverted, badDeposit,
	}

	out := FilterStakes(in)
	require.Len(t, out, 1)
	assert.Equal(t, "0xva-1", out[0].ID)
}

func TestFilterStakesRelaxedOptions(t *testing.T) {
	noHash := validStake()
	noHash.DepositTxHash = ""

	out := FilterStakesWithOptions([]model.Stake{noHash}, Options{
		RequirePositiveAmount:    true,
		RequireOrderedTimestamps: true,
	})
	assert.Len(t, out, 1)
}

func TestFilterStakesEmpty(t *testing.T) {
	assert.Empty(t, FilterStakes(nil))
}

func TestFilterContributions(t *testing.T) {
	in := []model.Contribution{
		{ID: "c1", Amount: "100"},
		{ID: "", Amount: "100"},
		{ID: "c3", Amount: "0"},
		{ID: "c4", Amount: "junk"},
	}
	out := FilterContributions(in)
	require.Len(t, out, 1)
	assert.Equal(t, "c1", out[0].ID)
}
