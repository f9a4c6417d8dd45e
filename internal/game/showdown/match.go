package showdown

import (
	"errors"
)

// WinningScore is the score at which a match ends.
const WinningScore = 5

// Match state errors.
var (
	ErrSamePlayer      = errors.New("players must be distinct")
	ErrNotAParticipant = errors.New("not a participant in this match")
	ErrAlreadyMoved    = errors.New("move already submitted this round")
	ErrMatchFinished   = errors.New("match is already finished")
	ErrMovesNotReady   = errors.New("both moves are not in yet")
)

// Player identifies a match participant.
type Player struct {
	ID   string
	Name string
}

// Match holds the state of one two-player contest. It is not safe for
// concurrent use; callers serialize access per channel.
type Match struct {
	players  [2]Player
	scores   [2]int
	pending  [2]*Element
	round    int
	core     *Core
	finished bool
}

// NewMatch creates a match between two distinct players. Player order is
// significant: a is SideA, b is SideB.
func NewMatch(a, b Player) (*Match, error) {
	if a.ID == b.ID {
		return nil, ErrSamePlayer
	}
	return &Match{
		players: [2]Player{a, b},
		round:   1,
	}, nil
}

// Players returns both participants in side order.
func (m *Match) Players() [2]Player {
	return m.players
}

// Round returns the current round number, starting at 1.
func (m *Match) Round() int {
	return m.round
}

// Scores returns both scores in side order.
func (m *Match) Scores() [2]int {
	return m.scores
}

// Finished reports whether the match has reached a terminal state.
func (m *Match) Finished() bool {
	return m.finished
}

// CoreOwner returns the owner of the active Dendro Core, if any.
func (m *Match) CoreOwner() (Player, bool) {
	if m.core == nil {
		return Player{}, false
	}
	return m.playerOn(m.core.Owner), true
}

// sideOf maps a player ID to its side, or SideNone for outsiders.
func (m *Match) sideOf(playerID string) Side {
	switch playerID {
	case m.players[0].ID:
		return SideA
	case m.players[1].ID:
		return SideB
	default:
		return SideNone
	}
}

func (m *Match) playerOn(s Side) Player {
	if s == SideB {
		return m.players[1]
	}
	return m.players[0]
}

// HasMoved reports whether a participant has submitted a move this round.
func (m *Match) HasMoved(playerID string) bool {
	side := m.sideOf(playerID)
	if side == SideNone {
		return false
	}
	return m.pending[side-SideA] != nil
}

// SubmitMove records a participant's move for the current round. Nothing
// is revealed to either player until both moves are in.
func (m *Match) SubmitMove(playerID string, e Element) error {
	if m.finished {
		return ErrMatchFinished
	}
	side := m.sideOf(playerID)
	if side == SideNone {
		return ErrNotAParticipant
	}
	if m.pending[side-SideA] != nil {
		return ErrAlreadyMoved
	}
	move := e
	m.pending[side-SideA] = &move
	return nil
}

// BothMovesReady reports whether the round can be resolved.
func (m *Match) BothMovesReady() bool {
	return m.pending[0] != nil && m.pending[1] != nil
}

// RoundOutcome is the result of a resolved round, carrying everything the
// presentation layer needs to render it.
type RoundOutcome struct {
	Round     int
	MoveA     Element
	MoveB     Element
	Label     string
	Winner    *Player
	Bonus     int
	ScoreA    int
	ScoreB    int
	CoreOwner *Player
	Finished  bool
	Champion  *Player
}

// ResolveRound resolves the current round: applies the rule table with
// the field state, updates scores, consumes or creates the core, clears
// pending moves and advances the round counter. Resolution is fully
// deterministic for a given move sequence.
func (m *Match) ResolveRound() (*RoundOutcome, error) {
	if m.finished {
		return nil, ErrMatchFinished
	}
	if !m.BothMovesReady() {
		return nil, ErrMovesNotReady
	}

	moveA, moveB := *m.pending[0], *m.pending[1]
	result := Resolve(moveA, moveB, m.core)

	out := &RoundOutcome{
		Round: m.round,
		MoveA: moveA,
		MoveB: moveB,
		Label: result.Label,
		Bonus: result.Bonus,
	}

	if result.Winner != SideNone {
		m.scores[result.Winner-SideA] += 1 + result.Bonus
		winner := m.playerOn(result.Winner)
		out.Winner = &winner
	}

	// A core survives exactly one round boundary: whatever was on the
	// field is gone after resolution, triggered or not.
	m.core = result.NewCore
	if m.core != nil {
		owner := m.playerOn(m.core.Owner)
		out.CoreOwner = &owner
	}

	m.pending[0] = nil
	m.pending[1] = nil

	out.ScoreA = m.scores[0]
	out.ScoreB = m.scores[1]

	if m.scores[0] >= WinningScore || m.scores[1] >= WinningScore {
		m.finished = true
		out.Finished = true
		// Only one side can score per round, so exactly one side crosses.
		champion := m.players[0]
		if m.scores[1] >= WinningScore {
			champion = m.players[1]
		}
		out.Champion = &champion
	} else {
		m.round++
	}

	return out, nil
}
