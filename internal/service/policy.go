// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"discord-game-bot/internal/model"
	"discord-game-bot/internal/repository"
)

// PolicyService owns the in-memory copy of the ledger settings row. It is
// loaded once at startup and refreshed only through explicit Reload calls;
// Update persists first and then reloads, so the cache can never diverge
// from storage.
type PolicyService struct {
	repo *repository.PolicyRepository

	mu      sync.RWMutex
	current model.Policy
}

// NewPolicyService creates a new PolicyService instance.
func NewPolicyService(repo *repository.PolicyRepository) *PolicyService {
	return &PolicyService{repo: repo}
}

// Load seeds the settings row with defaults if absent and populates the
// in-memory copy.
func (s *PolicyService) Load(ctx context.Context, defaults *model.Policy) error {
	if err := s.repo.Seed(ctx, defaults); err != nil {
		return fmt.Errorf("failed to seed policy: %w", err)
	}
	return s.Reload(ctx)
}

// Reload replaces the in-memory copy with the stored row.
func (s *PolicyService) Reload(ctx context.Context) error {
	p, err := s.repo.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload policy: %w", err)
	}

	s.mu.Lock()
	s.current = *p
	s.mu.Unlock()

	log.Info().
		Int64("cooldown_seconds", p.CooldownSeconds).
		Int64("transaction_cap", p.TransactionCap).
		Bool("allow_negative", p.AllowNegative).
		Msg("Ledger policy loaded")
	return nil
}

// Current returns a copy of the active policy.
func (s *PolicyService) Current() model.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update persists a new policy and reloads the in-memory copy from
// storage, giving read-after-write consistency via reload rather than
// in-place mutation.
func (s *PolicyService) Update(ctx context.Context, p *model.Policy) error {
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	return s.Reload(ctx)
}
