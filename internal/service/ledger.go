package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"discord-game-bot/internal/model"
	"discord-game-bot/internal/repository"
)

// Ledger operation errors.
var (
	ErrInvalidAmount       = errors.New("invalid amount: must not be zero")
	ErrNegativeNotAllowed  = errors.New("negative amounts are not allowed by policy")
	ErrAmountOverCap       = errors.New("amount exceeds the per-transaction cap")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// LedgerService handles guild-scoped credit operations: manual add/remove
// with policy-gated cooldowns, passive keyword rewards on their own fixed
// window, and the leaderboard.
type LedgerService struct {
	ledgerRepo    *repository.LedgerRepository
	txRepo        *repository.TransactionRepository
	policy        *PolicyService
	passiveWindow time.Duration
	now           func() time.Time
}

// NewLedgerService creates a new LedgerService instance. The passive
// window is fixed at construction and independent of the mutable policy.
func NewLedgerService(
	ledgerRepo *repository.LedgerRepository,
	txRepo *repository.TransactionRepository,
	policy *PolicyService,
	passiveWindow time.Duration,
) *LedgerService {
	return &LedgerService{
		ledgerRepo:    ledgerRepo,
		txRepo:        txRepo,
		policy:        policy,
		passiveWindow: passiveWindow,
		now:           time.Now,
	}
}

// Balance returns the balance for a key, defaulting for unseen keys.
func (s *LedgerService) Balance(ctx context.Context, userID, guildID string) (int64, error) {
	return s.ledgerRepo.GetBalance(ctx, userID, guildID)
}

// validateManualAmount applies the policy checks shared by the manual
// add/remove verbs. A negative amount is a disguised call of the opposite
// verb and is rejected unless the policy permits negative balances.
func validateManualAmount(amount int64, policy model.Policy) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if amount < 0 && !policy.AllowNegative {
		return ErrNegativeNotAllowed
	}
	magnitude := amount
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if policy.TransactionCap > 0 && magnitude > policy.TransactionCap {
		return fmt.Errorf("%w: cap is %d", ErrAmountOverCap, policy.TransactionCap)
	}
	return nil
}

// cooldownState reports whether an action gated by the given anchor is
// allowed at now, and the remaining wait if it is not. A zero anchor
// means the action has never been performed.
func cooldownState(lastUnix int64, window time.Duration, now time.Time) (bool, time.Duration) {
	if lastUnix == 0 {
		return true, 0
	}
	elapsed := now.Sub(time.Unix(lastUnix, 0))
	if elapsed >= window {
		return true, 0
	}
	return false, window - elapsed
}

// Credit adds amount to a key's balance. A manual credit stamps the
// credit cooldown anchor; a passive credit stamps only the passive anchor
// so automatic rewards never interfere with the manual-action cooldowns.
func (s *LedgerService) Credit(ctx context.Context, userID, guildID string, amount int64, passive bool) (*model.LedgerEntry, error) {
	anchor := repository.AnchorCredit
	txType := model.TxTypeManualAdd
	if passive {
		anchor = repository.AnchorPassiveCredit
		txType = model.TxTypePassiveCredit
	} else {
		if err := validateManualAmount(amount, s.policy.Current()); err != nil {
			return nil, err
		}
	}
	return s.apply(ctx, userID, guildID, amount, anchor, txType, nil)
}

// Debit subtracts amount from a key's balance. A manual debit stamps the
// debit cooldown anchor; a passive debit leaves every manual anchor
// untouched. When the policy forbids negative balances, a manual debit
// that would overdraw the account is rejected.
func (s *LedgerService) Debit(ctx context.Context, userID, guildID string, amount int64, passive bool) (*model.LedgerEntry, error) {
	anchor := repository.AnchorDebit
	txType := model.TxTypeManualRemove
	if passive {
		anchor = repository.AnchorNone
		txType = model.TxTypePassiveDebit
	} else {
		policy := s.policy.Current()
		if err := validateManualAmount(amount, policy); err != nil {
			return nil, err
		}
		if !policy.AllowNegative {
			balance, err := s.Balance(ctx, userID, guildID)
			if err != nil {
				return nil, err
			}
			if balance-amount < 0 {
				return nil, ErrInsufficientBalance
			}
		}
	}
	return s.apply(ctx, userID, guildID, -amount, anchor, txType, nil)
}

// apply performs the balance mutation plus the audit log write. Shared by
// the manual verbs and the wager resolver.
func (s *LedgerService) apply(ctx context.Context, userID, guildID string, delta int64, anchor, txType string, desc *string) (*model.LedgerEntry, error) {
	entry, err := s.ledgerRepo.ApplyDelta(ctx, userID, guildID, delta, anchor, s.now().Unix())
	if err != nil {
		return nil, err
	}

	if _, err := s.txRepo.Create(ctx, userID, guildID, delta, txType, desc); err != nil {
		// Non-fatal: the balance was already updated.
		return entry, nil
	}
	return entry, nil
}

// CanCredit reports whether a manual credit is allowed for the key and
// the remaining cooldown if not.
func (s *LedgerService) CanCredit(ctx context.Context, userID, guildID string) (bool, time.Duration, error) {
	entry, err := s.ledgerRepo.Get(ctx, userID, guildID)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return true, 0, nil
		}
		return false, 0, err
	}
	allowed, remaining := cooldownState(entry.LastCreditAt, s.policy.Current().Cooldown(), s.now())
	return allowed, remaining, nil
}

// CanDebit reports whether a manual debit is allowed for the key and the
// remaining cooldown if not.
func (s *LedgerService) CanDebit(ctx context.Context, userID, guildID string) (bool, time.Duration, error) {
	entry, err := s.ledgerRepo.Get(ctx, userID, guildID)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return true, 0, nil
		}
		return false, 0, err
	}
	allowed, remaining := cooldownState(entry.LastDebitAt, s.policy.Current().Cooldown(), s.now())
	return allowed, remaining, nil
}

// CanPassiveCredit reports whether a keyword reward is allowed for the
// key. The window is fixed and independent of the configurable policy.
func (s *LedgerService) CanPassiveCredit(ctx context.Context, userID, guildID string) (bool, time.Duration, error) {
	entry, err := s.ledgerRepo.Get(ctx, userID, guildID)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return true, 0, nil
		}
		return false, 0, err
	}
	allowed, remaining := cooldownState(entry.LastPassiveCreditAt, s.passiveWindow, s.now())
	return allowed, remaining, nil
}

// Leaderboard returns a guild's top balances, descending.
func (s *LedgerService) Leaderboard(ctx context.Context, guildID string, limit int) ([]*model.LeaderboardRow, error) {
	return s.ledgerRepo.Leaderboard(ctx, guildID, limit)
}
