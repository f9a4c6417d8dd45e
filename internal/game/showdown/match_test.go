package showdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlayers() (Player, Player) {
	return Player{ID: "100", Name: "Aether"}, Player{ID: "200", Name: "Lumine"}
}

func TestNewMatch(t *testing.T) {
	a, b := testPlayers()

	m, err := NewMatch(a, b)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Round())
	assert.Equal(t, [2]int{0, 0}, m.Scores())
	assert.False(t, m.Finished())

	_, err = NewMatch(a, a)
	assert.ErrorIs(t, err, ErrSamePlayer)
}

// playRound submits both moves and resolves.
func playRound(t *testing.T, m *Match, moveA, moveB Element) *RoundOutcome {
	t.Helper()
	require.NoError(t, m.SubmitMove(m.Players()[0].ID, moveA))
	require.NoError(t, m.SubmitMove(m.Players()[1].ID, moveB))
	out, err := m.ResolveRound()
	require.NoError(t, err)
	return out
}

func TestMatch_SubmitMove(t *testing.T) {
	a, b := testPlayers()
	m, err := NewMatch(a, b)
	require.NoError(t, err)

	require.NoError(t, m.SubmitMove(a.ID, Pyro))
	assert.True(t, m.HasMoved(a.ID))
	assert.False(t, m.HasMoved(b.ID))
	assert.False(t, m.BothMovesReady())

	// A second move in the same round is rejected, even a different one.
	assert.ErrorIs(t, m.SubmitMove(a.ID, Hydro), ErrAlreadyMoved)

	assert.ErrorIs(t, m.SubmitMove("999", Cryo), ErrNotAParticipant)

	_, err = m.ResolveRound()
	assert.ErrorIs(t, err, ErrMovesNotReady)

	require.NoError(t, m.SubmitMove(b.ID, Cryo))
	assert.True(t, m.BothMovesReady())
}

func TestMatch_ResolveRound(t *testing.T) {
	a, b := testPlayers()
	m, err := NewMatch(a, b)
	require.NoError(t, err)

	out := playRound(t, m, Pyro, Cryo)
	require.NotNil(t, out.Winner)
	assert.Equal(t, a.ID, out.Winner.ID)
	assert.Equal(t, 1, out.ScoreA)
	assert.Equal(t, 0, out.ScoreB)
	assert.Equal(t, 1, out.Round)
	assert.Equal(t, 2, m.Round())

	// Moves are cleared for the next round.
	assert.False(t, m.HasMoved(a.ID))
	assert.False(t, m.HasMoved(b.ID))

	// A tie advances the round without scoring.
	out = playRound(t, m, Geo, Geo)
	assert.Nil(t, out.Winner)
	assert.Equal(t, 1, out.ScoreA)
	assert.Equal(t, 0, out.ScoreB)
	assert.Equal(t, 3, m.Round())
}

func TestMatch_BonusScoring(t *testing.T) {
	a, b := testPlayers()
	m, err := NewMatch(a, b)
	require.NoError(t, err)

	// Overloaded pays the base point plus one.
	out := playRound(t, m, Electro, Pyro)
	require.NotNil(t, out.Winner)
	assert.Equal(t, a.ID, out.Winner.ID)
	assert.Equal(t, 2, out.ScoreA)
}

// TestMatch_CoreLifecycle walks a Bloom across the round boundary: the
// core exists for exactly one following round and is gone afterwards,
// triggered or not.
func TestMatch_CoreLifecycle(t *testing.T) {
	a, b := testPlayers()

	t.Run("owner detonates", func(t *testing.T) {
		m, err := NewMatch(a, b)
		require.NoError(t, err)

		out := playRound(t, m, Dendro, Hydro)
		assert.Equal(t, LabelBloom, out.Label)
		require.NotNil(t, out.CoreOwner)
		assert.Equal(t, a.ID, out.CoreOwner.ID)
		owner, ok := m.CoreOwner()
		require.True(t, ok)
		assert.Equal(t, a.ID, owner.ID)

		out = playRound(t, m, Electro, Geo)
		assert.Equal(t, LabelHyperbloom, out.Label)
		require.NotNil(t, out.Winner)
		assert.Equal(t, a.ID, out.Winner.ID)
		assert.Equal(t, 3, out.ScoreA)
		assert.Nil(t, out.CoreOwner)
		_, ok = m.CoreOwner()
		assert.False(t, ok)

		// Third round resolves in normal mode again.
		out = playRound(t, m, Electro, Geo)
		assert.Equal(t, LabelCrystallize, out.Label)
	})

	t.Run("core fades untriggered", func(t *testing.T) {
		m, err := NewMatch(a, b)
		require.NoError(t, err)

		playRound(t, m, Dendro, Hydro)
		out := playRound(t, m, Geo, Hydro)
		assert.Equal(t, LabelCoreFade, out.Label)
		assert.Nil(t, out.Winner)
		_, ok := m.CoreOwner()
		assert.False(t, ok)
	})

	t.Run("back to back blooms", func(t *testing.T) {
		m, err := NewMatch(a, b)
		require.NoError(t, err)

		playRound(t, m, Dendro, Hydro)
		// With a core on the field this pairing fizzles instead of
		// creating another core; Dendro/Hydro differ so no fizzle, the
		// core fades because neither move is a trigger.
		out := playRound(t, m, Dendro, Hydro)
		assert.Equal(t, LabelCoreFade, out.Label)
		assert.Nil(t, out.CoreOwner)
	})
}

func TestMatch_Termination(t *testing.T) {
	a, b := testPlayers()
	m, err := NewMatch(a, b)
	require.NoError(t, err)

	// Five straight wins for side A.
	for i := 0; i < 4; i++ {
		out := playRound(t, m, Pyro, Cryo)
		assert.False(t, out.Finished)
	}
	out := playRound(t, m, Pyro, Cryo)
	assert.True(t, out.Finished)
	require.NotNil(t, out.Champion)
	assert.Equal(t, a.ID, out.Champion.ID)
	assert.Equal(t, 5, out.ScoreA)
	assert.True(t, m.Finished())

	// The round counter stops at the final round.
	assert.Equal(t, 5, m.Round())

	assert.ErrorIs(t, m.SubmitMove(a.ID, Pyro), ErrMatchFinished)
	_, err = m.ResolveRound()
	assert.ErrorIs(t, err, ErrMatchFinished)
}

// TestMatch_BonusCrossesThreshold checks that a bonus can push a score
// past the winning threshold, not just onto it.
func TestMatch_BonusCrossesThreshold(t *testing.T) {
	a, b := testPlayers()
	m, err := NewMatch(a, b)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		playRound(t, m, Cryo, Hydro)
	}
	// Score 4-0; an Overloaded win pays 2 and finishes at 6.
	out := playRound(t, m, Electro, Pyro)
	assert.True(t, out.Finished)
	assert.Equal(t, 6, out.ScoreA)
	require.NotNil(t, out.Champion)
	assert.Equal(t, a.ID, out.Champion.ID)
}

func TestMatch_SideBChampion(t *testing.T) {
	a, b := testPlayers()
	m, err := NewMatch(a, b)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		playRound(t, m, Cryo, Pyro)
	}
	assert.True(t, m.Finished())
	assert.Equal(t, [2]int{0, 5}, m.Scores())
}
