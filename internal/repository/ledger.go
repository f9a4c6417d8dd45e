// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"discord-game-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrEntryNotFound = errors.New("ledger entry not found")
)

// DefaultBalance is the starting balance for an unseen (user, guild) key.
const DefaultBalance = 1000

const ledgerColumns = `user_id, guild_id, balance, last_debit_at, last_credit_at, last_passive_credit_at, created_at, updated_at`

// LedgerRepository handles guild-scoped credit account persistence.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func scanEntry(row pgx.Row) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := row.Scan(
		&e.UserID,
		&e.GuildID,
		&e.Balance,
		&e.LastDebitAt,
		&e.LastCreditAt,
		&e.LastPassiveCreditAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Get retrieves a ledger entry by its composite key.
// Returns ErrEntryNotFound if the key has never been written.
func (r *LedgerRepository) Get(ctx context.Context, userID, guildID string) (*model.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE user_id = $1 AND guild_id = $2`

	entry, err := scanEntry(r.pool.QueryRow(ctx, query, userID, guildID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return entry, nil
}

// GetOrCreate retrieves an entry, creating it with the default balance if
// the key has never been seen. Returns the entry and whether it was new.
func (r *LedgerRepository) GetOrCreate(ctx context.Context, userID, guildID string) (*model.LedgerEntry, bool, error) {
	entry, err := r.Get(ctx, userID, guildID)
	if err == nil {
		return entry, false, nil
	}
	if !errors.Is(err, ErrEntryNotFound) {
		return nil, false, err
	}

	query := `
		INSERT INTO ledger_entries (user_id, guild_id, balance, last_debit_at, last_credit_at, last_passive_credit_at, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, 0, NOW(), NOW())
		ON CONFLICT (user_id, guild_id) DO NOTHING
		RETURNING ` + ledgerColumns

	entry, err = scanEntry(r.pool.QueryRow(ctx, query, userID, guildID, int64(DefaultBalance)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the insert race; the row exists now.
			entry, err = r.Get(ctx, userID, guildID)
			if err != nil {
				return nil, false, err
			}
			return entry, false, nil
		}
		return nil, false, fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return entry, true, nil
}

// GetBalance returns the balance for a key, defaulting to DefaultBalance
// for keys that have never been written.
func (r *LedgerRepository) GetBalance(ctx context.Context, userID, guildID string) (int64, error) {
	entry, err := r.Get(ctx, userID, guildID)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return DefaultBalance, nil
		}
		return 0, err
	}
	return entry.Balance, nil
}

// Anchor columns a delta may stamp. Each cooldown anchor is updated only
// by the operation it gates; passive operations must not touch the
// manual-action anchors they share a row with.
const (
	AnchorNone          = ""
	AnchorDebit         = "last_debit_at"
	AnchorCredit        = "last_credit_at"
	AnchorPassiveCredit = "last_passive_credit_at"
)

// ApplyDelta adds delta to the balance and stamps the given cooldown
// anchor with nowUnix, creating the row first if needed.
func (r *LedgerRepository) ApplyDelta(ctx context.Context, userID, guildID string, delta int64, anchor string, nowUnix int64) (*model.LedgerEntry, error) {
	if _, _, err := r.GetOrCreate(ctx, userID, guildID); err != nil {
		return nil, err
	}

	var query string
	switch anchor {
	case AnchorNone:
		query = `
			UPDATE ledger_entries
			SET balance = balance + $3, updated_at = NOW()
			WHERE user_id = $1 AND guild_id = $2
			RETURNING ` + ledgerColumns
		entry, err := scanEntry(r.pool.QueryRow(ctx, query, userID, guildID, delta))
		if err != nil {
			return nil, fmt.Errorf("failed to apply ledger delta: %w", err)
		}
		return entry, nil
	case AnchorDebit, AnchorCredit, AnchorPassiveCredit:
		query = `
			UPDATE ledger_entries
			SET balance = balance + $3, ` + anchor + ` = $4, updated_at = NOW()
			WHERE user_id = $1 AND guild_id = $2
			RETURNING ` + ledgerColumns
		entry, err := scanEntry(r.pool.QueryRow(ctx, query, userID, guildID, delta, nowUnix))
		if err != nil {
			return nil, fmt.Errorf("failed to apply ledger delta: %w", err)
		}
		return entry, nil
	default:
		return nil, fmt.Errorf("unknown cooldown anchor %q", anchor)
	}
}

// Leaderboard returns a guild's entries ordered by balance descending.
// Ties break by creation order, which keeps the ordering stable.
func (r *LedgerRepository) Leaderboard(ctx context.Context, guildID string, limit int) ([]*model.LeaderboardRow, error) {
	const query = `
		SELECT user_id, balance
		FROM ledger_entries
		WHERE guild_id = $1
		ORDER BY balance DESC, created_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	var board []*model.LeaderboardRow
	for rows.Next() {
		var row model.LeaderboardRow
		if err := rows.Scan(&row.UserID, &row.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		board = append(board, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return board, nil
}

// Exists checks if a ledger entry exists for the composite key.
func (r *LedgerRepository) Exists(ctx context.Context, userID, guildID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE user_id = $1 AND guild_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, guildID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check ledger entry existence: %w", err)
	}
	return exists, nil
}
