// Package countdown derives the time-remaining and percent-elapsed display
// for a stake, independent of any network call.
package countdown

import (
	"context"
	"fmt"
	"time"

	"github.com/jack-landon/dapper-app/internal/model"
)

// FrozenPlaceholder is shown once a stake has been withdrawn.
const FrozenPlaceholder = "—"

// Snapshot is one per-second rendering of a stake's countdown state.
type Snapshot struct {
	// Remaining is the human-readable countdown, FrozenPlaceholder once
	// the stake is withdrawn.
	Remaining string `json:"remaining"`

	// Progress is percent-elapsed of the lock window, clamped to [0,100]
	// and forced to 100 once unlocked or withdrawn.
	Progress float64 `json:"progress"`

	// Unlocked reports whether the unlock timestamp has passed.
	Unlocked bool `json:"unlocked"`
}

// At computes the countdown snapshot for a stake at the given instant.
func At(stake model.Stake, now time.Time) Snapshot {
	if stake.IsWithdrawn() {
		return Snapshot{Remaining: FrozenPlaceholder, Progress: 100, Unlocked: true}
	}

	deposit := stake.DepositTime()
	unlock := stake.UnlockTime()
	unlocked := !unlock.After(now)

	progress := 100.0
	if !unlocked {
		total := unlock.Sub(deposit)
		elapsed := now.Sub(deposit)
		if total > 0 {
			progress = clamp(float64(elapsed)/float64(total)*100, 0, 100)
		}
	}

	remaining := time.Duration(0)
	if unlock.After(now) {
		remaining = unlock.Sub(now)
	}

	return Snapshot{
		Remaining: formatRemaining(remaining),
		Progress:  progress,
		Unlocked:  unlocked,
	}
}

// Run recomputes the snapshot once per second and hands it to emit, until
// the context is cancelled. The ticker is stopped on return, so a torn-down
// caller leaks no timers.
func Run(ctx context.Context, stake model.Stake, emit func(Snapshot)) {
	emit(At(stake, time.Now()))

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit(At(stake, time.Now()))
		}
	}
}

// formatRemaining renders a countdown down to the second, dropping leading
// zero components: "2d 3h 4m 5s", "3h 4m 5s", "4m 5s", "5s".
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int64(d.Hours()) / 24
	hours := int64(d.Hours()) % 24
	minutes := int64(d.Minutes()) % 60
	seconds := int64(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
