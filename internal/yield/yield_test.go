package yield

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstantReferenceValue(t *testing.T) {
	// 1000 at 12% APY for 90 days: 1000 * 12 * 7776000 / (365*24*3600*100)
	got := Instant(1000, 12, 7776000)
	assert.InDelta(t, 29.58904109589041, got, 1e-9)
	assert.Equal(t, "29.589", Display(got))
}

func TestInstantLinearity(t *testing.T) {
	base := Instant(500, 12, 7776000)

	// Linear in principal.
	assert.InDelta(t, 2*base, Instant(1000, 12, 7776000), 1e-9)

	// Linear in duration.
	assert.InDelta(t, 2*base, Instant(500, 12, 2*7776000), 1e-9)
}

func TestInstantRejectsBadInput(t *testing.T) {
	assert.Zero(t, Instant(0, 12, 7776000))
	assert.Zero(t, Instant(-10, 12, 7776000))
	assert.Zero(t, Instant(1000, 12, 0))
	assert.Zero(t, Instant(1000, -1, 7776000))
	assert.Zero(t, Instant(math.NaN(), 12, 7776000))
	assert.Zero(t, Instant(math.Inf(1), 12, 7776000))
}

func TestCompute(t *testing.T) {
	p := Compute(1000, 12, 7776000)
	assert.Equal(t, 1000.0, p.Principal)
	assert.InDelta(t, 1029.589, p.Total, 1e-3)
	assert.Equal(t, p.Principal+p.Yield, p.Total)
}

func TestEstimateTreasury(t *testing.T) {
	est := EstimateTreasury(1200, 10)
	assert.InDelta(t, 120.0, est.Annual, 1e-9)
	assert.InDelta(t, 10.0, est.Monthly, 1e-9)

	assert.Zero(t, EstimateTreasury(0, 10).Annual)
	assert.Zero(t, EstimateTreasury(-5, 10).Annual)
}
