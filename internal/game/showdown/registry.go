package showdown

import (
	"errors"
	"sync"
)

// ErrMatchInProgress is returned when a channel already hosts a match.
var ErrMatchInProgress = errors.New("a match is already in progress in this channel")

// ErrNoMatch is returned when a channel has no active match.
var ErrNoMatch = errors.New("no active match in this channel")

// Registry tracks the active match per channel. A channel hosts at most
// one match at a time; a second start request is rejected, not queued.
type Registry struct {
	mu      sync.RWMutex
	matches map[string]*Engine
}

// NewRegistry creates an empty match registry.
func NewRegistry() *Registry {
	return &Registry{
		matches: make(map[string]*Engine),
	}
}

// Create registers and returns a new engine for the channel.
func (r *Registry) Create(channelID string, a, b Player) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.matches[channelID]; exists {
		return nil, ErrMatchInProgress
	}

	engine, err := NewEngine(channelID, a, b)
	if err != nil {
		return nil, err
	}
	r.matches[channelID] = engine
	return engine, nil
}

// Get returns the channel's active engine, if any.
func (r *Registry) Get(channelID string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engine, ok := r.matches[channelID]
	return engine, ok
}

// HandleMove routes a move to the channel's match and deregisters the
// match as soon as it reaches a terminal state.
func (r *Registry) HandleMove(channelID, playerID string, move Element) (*MoveResult, error) {
	engine, ok := r.Get(channelID)
	if !ok {
		return nil, ErrNoMatch
	}

	result, err := engine.HandleMove(playerID, move)
	if err != nil {
		return nil, err
	}

	if result.Resolved && result.Outcome.Finished {
		r.Remove(channelID)
	}
	return result, nil
}

// Remove deregisters the channel's match.
func (r *Registry) Remove(channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.matches, channelID)
}

// Count returns the number of active matches.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}
