// Service integration tests run the full credit and wager flows against
// a PostgreSQL container. They are skipped when Docker is not available.
package service

import (
	"context"
	"math/rand"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"discord-game-bot/internal/model"
	"discord-game-bot/internal/repository"
)

func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_entries (
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 1000,
			last_debit_at BIGINT NOT NULL DEFAULT 0,
			last_credit_at BIGINT NOT NULL DEFAULT 0,
			last_passive_credit_at BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, guild_id)
		);
		CREATE TABLE IF NOT EXISTS ledger_policy (
			id INT PRIMARY KEY CHECK (id = 1),
			cooldown_seconds BIGINT NOT NULL DEFAULT 300,
			transaction_cap BIGINT NOT NULL DEFAULT 0,
			allow_negative BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// newTestServices wires the real repositories into the service layer with
// the given policy defaults.
func newTestServices(t *testing.T, pool *pgxpool.Pool, defaults *model.Policy) (*LedgerService, *PolicyService) {
	t.Helper()
	ctx := context.Background()

	policyService := NewPolicyService(repository.NewPolicyRepository(pool))
	require.NoError(t, policyService.Load(ctx, defaults))

	ledgerService := NewLedgerService(
		repository.NewLedgerRepository(pool),
		repository.NewTransactionRepository(pool),
		policyService,
		60*time.Second,
	)
	return ledgerService, policyService
}

// fixedSource is a rand.Source with a constant output, pinning the wager
// draw to a guaranteed win (0) or loss (max).
type fixedSource struct{ v int64 }

func (s fixedSource) Int63() int64 { return s.v }
func (s fixedSource) Seed(int64)   {}

func alwaysWin() *rand.Rand  { return rand.New(fixedSource{v: 0}) }
func alwaysLose() *rand.Rand { return rand.New(fixedSource{v: 1<<63 - 1}) }

func TestLedgerService_ManualFlow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger, _ := newTestServices(t, pool, &model.Policy{CooldownSeconds: 300})
	ctx := context.Background()

	// The clock is injectable; start somewhere fixed.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }

	entry, err := ledger.Credit(ctx, "user1", "guild1", 200, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), entry.Balance)

	// The credit anchor is hot, the debit anchor is not.
	allowed, remaining, err := ledger.CanCredit(ctx, "user1", "guild1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 300*time.Second, remaining)

	allowed, _, err = ledger.CanDebit(ctx, "user1", "guild1")
	require.NoError(t, err)
	assert.True(t, allowed)

	// A debit works immediately and stamps its own anchor.
	entry, err = ledger.Debit(ctx, "user1", "guild1", 150, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1050), entry.Balance)

	allowed, _, err = ledger.CanDebit(ctx, "user1", "guild1")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Advancing the clock past the window frees both verbs.
	now = now.Add(301 * time.Second)
	allowed, _, err = ledger.CanCredit(ctx, "user1", "guild1")
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, _, err = ledger.CanDebit(ctx, "user1", "guild1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLedgerService_PassiveIndependence(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger, _ := newTestServices(t, pool, &model.Policy{CooldownSeconds: 300})
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }

	// A passive credit blocks further passive credits but neither manual verb.
	_, err := ledger.Credit(ctx, "user1", "guild1", 5, true)
	require.NoError(t, err)

	allowed, remaining, err := ledger.CanPassiveCredit(ctx, "user1", "guild1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 60*time.Second, remaining)

	allowed, _, err = ledger.CanCredit(ctx, "user1", "guild1")
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, _, err = ledger.CanDebit(ctx, "user1", "guild1")
	require.NoError(t, err)
	assert.True(t, allowed)

	// The passive window runs on its fixed 60s, not the policy's 300s.
	now = now.Add(61 * time.Second)
	allowed, _, err = ledger.CanPassiveCredit(ctx, "user1", "guild1")
	require.NoError(t, err)
	assert.True(t, allowed)

	// Manual verbs do not disturb the passive anchor either.
	_, err = ledger.Credit(ctx, "user1", "guild1", 100, false)
	require.NoError(t, err)
	allowed, _, err = ledger.CanPassiveCredit(ctx, "user1", "guild1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLedgerService_PolicyEnforcement(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger, policy := newTestServices(t, pool, &model.Policy{CooldownSeconds: 0, TransactionCap: 500})
	ctx := context.Background()

	_, err := ledger.Credit(ctx, "user1", "guild1", 0, false)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ledger.Credit(ctx, "user1", "guild1", 501, false)
	assert.ErrorIs(t, err, ErrAmountOverCap)

	_, err = ledger.Credit(ctx, "user1", "guild1", -10, false)
	assert.ErrorIs(t, err, ErrNegativeNotAllowed)

	// Overdrawing is rejected while negative balances are forbidden.
	_, err = ledger.Debit(ctx, "user1", "guild1", 500, false)
	require.NoError(t, err)
	_, err = ledger.Debit(ctx, "user1", "guild1", 500, false)
	require.NoError(t, err)
	_, err = ledger.Debit(ctx, "user1", "guild1", 1, false)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Flipping the policy opens both doors; the service sees the update
	// through the shared cache without a restart.
	current := policy.Current()
	current.AllowNegative = true
	require.NoError(t, policy.Update(ctx, &current))

	entry, err := ledger.Debit(ctx, "user1", "guild1", 100, false)
	require.NoError(t, err)
	assert.Equal(t, int64(-100), entry.Balance)

	entry, err = ledger.Credit(ctx, "user1", "guild1", -50, false)
	require.NoError(t, err)
	assert.Equal(t, int64(-150), entry.Balance)
}

func TestWagerService_Resolve(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("win pays wager times multiplier", func(t *testing.T) {
		ledger, _ := newTestServices(t, pool, &model.Policy{CooldownSeconds: 300})
		wager := NewWagerService(ledger, 0, alwaysWin())

		result, err := wager.Resolve(ctx, "w1", "guild1", 100, 5, false)
		require.NoError(t, err)
		assert.True(t, result.Won)
		assert.Equal(t, int64(400), result.Delta)
		assert.Equal(t, int64(1400), result.NewBalance)
		assert.InDelta(t, 0.012, result.Probability, 1e-12)

		// Wagers never touch the manual cooldown anchors.
		allowed, _, err := ledger.CanDebit(ctx, "w1", "guild1")
		require.NoError(t, err)
		assert.True(t, allowed)
		allowed, _, err = ledger.CanCredit(ctx, "w1", "guild1")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("plain loss costs the stake", func(t *testing.T) {
		ledger, _ := newTestServices(t, pool, &model.Policy{CooldownSeconds: 300})
		wager := NewWagerService(ledger, 0, alwaysLose())

		result, err := wager.Resolve(ctx, "w2", "guild1", 100, 5, false)
		require.NoError(t, err)
		assert.False(t, result.Won)
		assert.Equal(t, int64(-100), result.Delta)
		assert.Equal(t, int64(900), result.NewBalance)
	})

	t.Run("double odds loss costs wager times multiplier", func(t *testing.T) {
		ledger, _ := newTestServices(t, pool, &model.Policy{CooldownSeconds: 300})
		wager := NewWagerService(ledger, 0, alwaysLose())

		result, err := wager.Resolve(ctx, "w3", "guild1", 100, 5, true)
		require.NoError(t, err)
		assert.False(t, result.Won)
		assert.True(t, result.DoubleOdds)
		assert.Equal(t, int64(-500), result.Delta)
		assert.Equal(t, int64(500), result.NewBalance)
		assert.InDelta(t, 0.024, result.Probability, 1e-12)
	})

	t.Run("validation", func(t *testing.T) {
		ledger, _ := newTestServices(t, pool, &model.Policy{CooldownSeconds: 300})
		wager := NewWagerService(ledger, 200, alwaysWin())

		_, err := wager.Resolve(ctx, "w4", "guild1", 0, 5, false)
		assert.ErrorIs(t, err, ErrInvalidWager)

		_, err = wager.Resolve(ctx, "w4", "guild1", -10, 5, false)
		assert.ErrorIs(t, err, ErrInvalidWager)

		_, err = wager.Resolve(ctx, "w4", "guild1", 201, 5, false)
		assert.ErrorIs(t, err, ErrInvalidWager)

		_, err = wager.Resolve(ctx, "w4", "guild1", 100, 3, false)
		assert.ErrorIs(t, err, ErrInvalidMultiplier)

		// The stake cannot exceed the balance.
		_, err = ledger.Debit(ctx, "w4", "guild1", 900, false)
		require.NoError(t, err)
		_, err = wager.Resolve(ctx, "w4", "guild1", 101, 5, false)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})
}

func TestPolicyService_PersistThenReload(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := repository.NewPolicyRepository(pool)

	first := NewPolicyService(repo)
	require.NoError(t, first.Load(ctx, &model.Policy{CooldownSeconds: 300}))
	assert.Equal(t, int64(300), first.Current().CooldownSeconds)

	updated := first.Current()
	updated.CooldownSeconds = 60
	updated.TransactionCap = 250
	require.NoError(t, first.Update(ctx, &updated))
	assert.Equal(t, int64(60), first.Current().CooldownSeconds)
	assert.Equal(t, int64(250), first.Current().TransactionCap)

	// A second instance loading from the same storage sees the stored row,
	// not its defaults: the seed only applies once.
	second := NewPolicyService(repo)
	require.NoError(t, second.Load(ctx, &model.Policy{CooldownSeconds: 300}))
	assert.Equal(t, int64(60), second.Current().CooldownSeconds)
}
