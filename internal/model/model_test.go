package model

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStakeStatus(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name  string
		stake Stake
		want  StakeStatus
	}{
		{
			name: "locked while unlock in the future",
			stake: Stake{
				DepositTimestamp: "1699000000",
				UnlockTimestamp:  strconv.FormatInt(now.Unix()+3600, 10),
			},
			want: StatusLocked,
		},
		{
			name: "ready once unlock passed",
			stake: Stake{
				DepositTimestamp: "1699000000",
				UnlockTimestamp:  strconv.FormatInt(now.Unix()-1, 10),
			},
			want: StatusReady,
		},
		{
			name: "ready exactly at unlock",
			stake: Stake{
				DepositTimestamp: "1699000000",
				UnlockTimestamp:  strconv.FormatInt(now.Unix(), 10),
			},
			want: StatusReady,
		},
		{
			name: "withdrawn is terminal even before unlock",
			stake: Stake{
				DepositTimestamp:  "1699000000",
				UnlockTimestamp:   strconv.FormatInt(now.Unix()+3600, 10),
				WithdrawTimestamp: "1699500000",
			},
			want: StatusWithdrawn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stake.Status(now))
		})
	}
}

func TestStakeIsActive(t *testing.T) {
	assert.True(t, Stake{}.IsActive())
	assert.False(t, Stake{WithdrawTimestamp: "1699500000"}.IsActive())
	// Whitespace-only is treated as absent.
	assert.True(t, Stake{WithdrawTimestamp: "  "}.IsActive())
}

func TestReadyCount(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	past := strconv.FormatInt(now.Unix()-10, 10)
	future := strconv.FormatInt(now.Unix()+10, 10)

	stakes := []Stake{
		{UnlockTimestamp: past},
		{UnlockTimestamp: past, WithdrawTimestamp: "1"},
		{UnlockTimestamp: future},
		{UnlockTimestamp: past},
	}
	assert.Equal(t, 2, ReadyCount(stakes, now))
	assert.Equal(t, 0, ReadyCount(nil, now))
}

func TestStakeTimes(t *testing.T) {
	s := Stake{
		DepositTimestamp: "1690000000",
		UnlockTimestamp:  "1697776000",
		LockDuration:     "7776000",
	}
	assert.Equal(t, int64(1690000000), s.DepositTime().Unix())
	assert.Equal(t, int64(1697776000), s.UnlockTime().Unix())
	assert.Equal(t, int64(7776000), s.LockDurationSeconds())

	// Garbage timestamps collapse to the zero time rather than panicking.
	assert.True(t, Stake{DepositTimestamp: "not-a-number"}.DepositTime().IsZero())
}
