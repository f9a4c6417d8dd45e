package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"discord-game-bot/internal/model"
)

// ErrPolicyNotFound is returned when the settings row has not been seeded.
var ErrPolicyNotFound = errors.New("policy row not found")

// PolicyRepository handles the singleton ledger settings row.
type PolicyRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyRepository creates a new PolicyRepository instance.
func NewPolicyRepository(pool *pgxpool.Pool) *PolicyRepository {
	return &PolicyRepository{pool: pool}
}

// Get retrieves the settings row.
func (r *PolicyRepository) Get(ctx context.Context) (*model.Policy, error) {
	const query = `
		SELECT cooldown_seconds, transaction_cap, allow_negative, updated_at
		FROM ledger_policy
		WHERE id = 1
	`

	var p model.Policy
	err := r.pool.QueryRow(ctx, query).Scan(
		&p.CooldownSeconds,
		&p.TransactionCap,
		&p.AllowNegative,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return &p, nil
}

// Seed inserts the settings row with the given defaults if it does not
// exist yet. An existing row is left untouched.
func (r *PolicyRepository) Seed(ctx context.Context, defaults *model.Policy) error {
	const query = `
		INSERT INTO ledger_policy (id, cooldown_seconds, transaction_cap, allow_negative, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, defaults.CooldownSeconds, defaults.TransactionCap, defaults.AllowNegative)
	if err != nil {
		return fmt.Errorf("failed to seed policy: %w", err)
	}
	return nil
}

// Update replaces the settings row.
func (r *PolicyRepository) Update(ctx context.Context, p *model.Policy) error {
	const query = `
		UPDATE ledger_policy
		SET cooldown_seconds = $1, transaction_cap = $2, allow_negative = $3, updated_at = NOW()
		WHERE id = 1
	`

	result, err := r.pool.Exec(ctx, query, p.CooldownSeconds, p.TransactionCap, p.AllowNegative)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPolicyNotFound
	}
	return nil
}
