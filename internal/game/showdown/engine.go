package showdown

import (
	"errors"
	"sync"
)

// Engine lifecycle states.
type State int

const (
	StateCreated State = iota
	StateAwaitingMoves
	StateResolving
	StateFinished
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAwaitingMoves:
		return "awaiting_moves"
	case StateResolving:
		return "resolving"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Engine errors.
var (
	ErrNotStarted     = errors.New("match has not been started")
	ErrAlreadyStarted = errors.New("match has already been started")
)

// Engine orchestrates one match: move submission, synchronous round
// resolution when both moves are in, and lifecycle transitions.
type Engine struct {
	mu        sync.Mutex
	channelID string
	match     *Match
	state     State
}

// NewEngine creates an engine for a match between two distinct players in
// the given channel.
func NewEngine(channelID string, a, b Player) (*Engine, error) {
	match, err := NewMatch(a, b)
	if err != nil {
		return nil, err
	}
	return &Engine{
		channelID: channelID,
		match:     match,
		state:     StateCreated,
	}, nil
}

// ChannelID returns the channel hosting this match.
func (e *Engine) ChannelID() string {
	return e.channelID
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot is the presentation state exposed to the rendering layer.
type Snapshot struct {
	ChannelID string
	Round     int
	Players   [2]Player
	Scores    [2]int
	Moved     [2]bool
	CoreOwner *Player
	State     State
}

// Start transitions the engine from Created to AwaitingMoves and returns
// the initial presentation state (round 1, 0-0).
func (e *Engine) Start() (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateCreated {
		return nil, ErrAlreadyStarted
	}
	e.state = StateAwaitingMoves
	return e.snapshotLocked(), nil
}

// MoveResult reports what happened after a move submission. Outcome is
// nil while the round is still waiting on the other player.
type MoveResult struct {
	Resolved bool
	Outcome  *RoundOutcome
	Snapshot *Snapshot
}

// HandleMove submits a move for a participant. When it completes the
// round, the round is resolved synchronously and the engine transitions
// either back to AwaitingMoves or to Finished.
func (e *Engine) HandleMove(playerID string, move Element) (*MoveResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateCreated:
		return nil, ErrNotStarted
	case StateFinished:
		return nil, ErrMatchFinished
	}

	if err := e.match.SubmitMove(playerID, move); err != nil {
		return nil, err
	}

	if !e.match.BothMovesReady() {
		return &MoveResult{Snapshot: e.snapshotLocked()}, nil
	}

	e.state = StateResolving
	outcome, err := e.match.ResolveRound()
	if err != nil {
		// Resolution cannot fail after BothMovesReady; restore the state
		// so the match is not wedged.
		e.state = StateAwaitingMoves
		return nil, err
	}

	if outcome.Finished {
		e.state = StateFinished
	} else {
		e.state = StateAwaitingMoves
	}

	return &MoveResult{
		Resolved: true,
		Outcome:  outcome,
		Snapshot: e.snapshotLocked(),
	}, nil
}

// Snapshot returns the current presentation state.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() *Snapshot {
	players := e.match.Players()
	snap := &Snapshot{
		ChannelID: e.channelID,
		Round:     e.match.Round(),
		Players:   players,
		Scores:    e.match.Scores(),
		Moved: [2]bool{
			e.match.HasMoved(players[0].ID),
			e.match.HasMoved(players[1].ID),
		},
		State: e.state,
	}
	if owner, ok := e.match.CoreOwner(); ok {
		snap.CoreOwner = &owner
	}
	return snap
}
