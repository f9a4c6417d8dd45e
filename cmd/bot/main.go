// Package main is the entry point for the Discord game bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"discord-game-bot/internal/ai"
	"discord-game-bot/internal/bot"
	"discord-game-bot/internal/config"
	"discord-game-bot/internal/game/showdown"
	"discord-game-bot/internal/model"
	"discord-game-bot/internal/pkg/db"
	"discord-game-bot/internal/pkg/lock"
	"discord-game-bot/internal/repository"
	"discord-game-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	ledgerRepo := repository.NewLedgerRepository(dbPool.Pool)
	policyRepo := repository.NewPolicyRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)

	// Initialize services
	policyService := service.NewPolicyService(policyRepo)
	if err := policyService.Load(ctx, &model.Policy{
		CooldownSeconds: cfg.Credits.DefaultCooldownSeconds,
		TransactionCap:  cfg.Credits.DefaultTransactionCap,
		AllowNegative:   cfg.Credits.DefaultAllowNegative,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to load ledger policy")
	}

	ledgerService := service.NewLedgerService(
		ledgerRepo,
		txRepo,
		policyService,
		time.Duration(cfg.Credits.PassiveWindowSeconds)*time.Second,
	)

	wagerService := service.NewWagerService(ledgerService, cfg.Wager.MaxWager, nil)

	// Initialize the per-key lock and the game registry
	keyLock := lock.NewKeyLock()
	gameRegistry := showdown.NewRegistry()

	// Initialize the chat proxy
	chatClient := ai.NewClient(cfg.Chat.APIKey, cfg.Chat.Model, cfg.Chat.Persona)

	// Create bot dependencies
	deps := &bot.Dependencies{
		Config:        cfg,
		LedgerService: ledgerService,
		PolicyService: policyService,
		WagerService:  wagerService,
		GameRegistry:  gameRegistry,
		ChatClient:    chatClient,
		KeyLock:       keyLock,
	}

	// Initialize bot
	discordBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	if err := discordBot.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start bot")
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	discordBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create ledger_entries table
	_, err := pool.Exec(ctx, `
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
		CREATE INDEX IF NOT EXISTS idx_ledger_entries_guild_balance ON ledger_entries(guild_id, balance DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: ledger_entries table created")

	// Migration 2: Create ledger_policy singleton table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_policy (
			id INT PRIMARY KEY CHECK (id = 1),
			cooldown_seconds BIGINT NOT NULL DEFAULT 300,
			transaction_cap BIGINT NOT NULL DEFAULT 0,
			allow_negative BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: ledger_policy table created")

	// Migration 3: Create transactions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_guild_time ON transactions(user_id, guild_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_type_time ON transactions(type, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: transactions table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
