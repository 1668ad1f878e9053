package countdown

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/jack-landon/dapper-app/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stakeAt(deposit, unlock int64, withdrawn bool) model.Stake {
	s := model.Stake{
		DepositTimestamp: strconv.FormatInt(deposit, 10),
		UnlockTimestamp:  strconv.FormatInt(unlock, 10),
	}
	if withdrawn {
		s.WithdrawTimestamp = strconv.FormatInt(unlock, 10)
	}
	return s
}

func TestWithdrawnIsFrozenAtFull(t *testing.T) {
	base := int64(1_700_000_000)

	// Regardless of where now sits relative to unlock.
	for _, nowOffset := range []int64{-100, 0, 100} {
		snap := At(stakeAt(base, base+1000, true), time.Unix(base+1000+nowOffset, 0))
		assert.Equal(t, FrozenPlaceholder, snap.Remaining)
		assert.Equal(t, 100.0, snap.Progress)
	}
}

func TestProgressWithinWindow(t *testing.T) {
	base := int64(1_700_000_000)
	stake := stakeAt(base, base+1000, false)

	tests := []struct {
		name string
		now  int64
		want float64
	}{
		{"at deposit", base, 0},
		{"quarter", base + 250, 25},
		{"half", base + 500, 50},
		{"just before unlock", base + 999, 99.9},
		{"at unlock", base + 1000, 100},
		{"past unlock", base + 5000, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := At(stake, time.Unix(tt.now, 0))
			assert.InDelta(t, tt.want, snap.Progress, 1e-9)
		})
	}
}

func TestProgressMonotonic(t *testing.T) {
	base := int64(1_700_000_000)
	stake := stakeAt(base, base+86400, false)

	prev := -1.0
	for now := base; now <= base+86400; now += 3600 {
		snap := At(stake, time.Unix(now, 0))
		require.GreaterOrEqual(t, snap.Progress, prev)
		require.LessOrEqual(t, snap.Progress, 100.0)
		prev = snap.Progress
	}
}

func TestRemainingFormat(t *testing.T) {
	base := int64(1_700_000_000)

	tests := []struct {
		seconds int64
		want    string
	}{
		{2*86400 + 3*3600 + 4*60 + 5, "2d 3h 4m 5s"},
		{3*3600 + 4*60 + 5, "3h 4m 5s"},
		{4*60 + 5, "4m 5s"},
		{5, "5s"},
		{0, "0s"},
	}
	for _, tt := range tests {
		snap := At(stakeAt(base, base+tt.seconds, false), time.Unix(base, 0))
		assert.Equal(t, tt.want, snap.Remaining)
	}
}

func TestUnlockedFlag(t *testing.T) {
	base := int64(1_700_000_000)
	stake := stakeAt(base, base+100, false)

	assert.False(t, At(stake, time.Unix(base+50, 0)).Unlocked)
	assert.True(t, At(stake, time.Unix(base+100, 0)).Unlocked)
	assert.True(t, At(stake, time.Unix(base+200, 0)).Unlocked)
}

func TestRunStopsOnCancel(t *testing.T) {
	base := time.Now().Unix()
	stake := stakeAt(base, base+3600, false)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan Snapshot, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		Run(ctx, stake, func(s Snapshot) {
			select {
			case got <- s:
			default:
			}
		})
	}()

	// The initial snapshot is emitted synchronously before the first tick.
	select {
	case snap := <-got:
		assert.NotEmpty(t, snap.Remaining)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot emitted")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
