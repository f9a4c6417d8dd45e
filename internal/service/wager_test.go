package service

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiplierIndex(t *testing.T) {
	for i, m := range Multipliers {
		index, ok := MultiplierIndex(m)
		require.True(t, ok)
		assert.Equal(t, i, index)
	}

	_, ok := MultiplierIndex(3)
	assert.False(t, ok)
	_, ok = MultiplierIndex(0)
	assert.False(t, ok)
}

func TestWinProbability(t *testing.T) {
	tests := []struct {
		index    int
		expected float64
	}{
		{0, 0.003}, // 1.5x
		{1, 0.006}, // 2x
		{2, 0.012}, // 5x
		{3, 0.024}, // 10x
		{4, 0.048}, // 15x
		{5, 0.096}, // 20x
	}

	for _, tt := range tests {
		p := WinProbability(tt.index, false)
		assert.InDelta(t, tt.expected, p, 1e-12, "index %d", tt.index)

		doubled := WinProbability(tt.index, true)
		assert.InDelta(t, 2*tt.expected, doubled, 1e-12, "index %d doubled", tt.index)
	}
}

func TestWinPayout(t *testing.T) {
	tests := []struct {
		wager      int64
		multiplier float64
		expected   int64
	}{
		{100, 1.5, 150},
		{100, 2, 200},
		{100, 20, 2000},
		{1, 1.5, 2},  // 1.5 rounds half away from zero
		{3, 1.5, 5},  // 4.5 rounds up
		{333, 1.5, 500},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, WinPayout(tt.wager, tt.multiplier),
			"wager=%d multiplier=%g", tt.wager, tt.multiplier)
	}
}

// TestWinProbabilityConvergence samples a seeded generator against the 5x
// probability and checks the hit rate converges on 1.2%.
func TestWinProbabilityConvergence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	index, ok := MultiplierIndex(5)
	require.True(t, ok)
	p := WinProbability(index, false)

	const trials = 500_000
	hits := 0
	for i := 0; i < trials; i++ {
		if rng.Float64() < p {
			hits++
		}
	}

	rate := float64(hits) / trials
	// Three-sigma band around the expected rate.
	sigma := math.Sqrt(p * (1 - p) / trials)
	assert.InDelta(t, p, rate, 3*sigma)
}

// TestWinProbabilityDoubleOddsOrdering checks the probability ladder is
// strictly increasing in the multiplier index and that doubling never
// exceeds certainty.
func TestWinProbabilityDoubleOddsOrdering(t *testing.T) {
	for i := 1; i < len(Multipliers); i++ {
		assert.Greater(t, WinProbability(i, false), WinProbability(i-1, false))
	}
	for i := range Multipliers {
		p := WinProbability(i, true)
		assert.LessOrEqual(t, p, 1.0)
		assert.Greater(t, p, 0.0)
	}
}
