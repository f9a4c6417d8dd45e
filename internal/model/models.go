// Package model defines the data models for the Discord game bot.
package model

import "time"

// LedgerEntry represents a user's credit account within a guild.
// Credits are guild-scoped: the same user has an independent balance in
// every guild the bot serves.
type LedgerEntry struct {
	UserID              string    `db:"user_id"`
	GuildID             string    `db:"guild_id"`
	Balance             int64     `db:"balance"`
	LastDebitAt         int64     `db:"last_debit_at"`
	LastCreditAt        int64     `db:"last_credit_at"`
	LastPassiveCreditAt int64     `db:"last_passive_credit_at"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

// Policy holds the process-wide ledger settings stored in the singleton
// settings row. A TransactionCap of 0 disables the cap check.
type Policy struct {
	CooldownSeconds int64     `db:"cooldown_seconds"`
	TransactionCap  int64     `db:"transaction_cap"`
	AllowNegative   bool      `db:"allow_negative"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Cooldown returns the manual-action cooldown window as a duration.
func (p Policy) Cooldown() time.Duration {
	return time.Duration(p.CooldownSeconds) * time.Second
}

// Transaction represents a balance change record.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      string    `db:"user_id"`
	GuildID     string    `db:"guild_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeManualAdd     = "manual_add"     // /credits add
	TxTypeManualRemove  = "manual_remove"  // /credits remove
	TxTypePassiveCredit = "passive_credit" // keyword-triggered reward
	TxTypePassiveDebit  = "passive_debit"  // keyword-triggered penalty
	TxTypeWagerBet      = "wager_bet"      // gamble stake
	TxTypeWagerWin      = "wager_win"      // gamble payout
	TxTypeWagerLoss     = "wager_loss"     // extra loss under double odds
)

// LeaderboardRow is one entry of a guild leaderboard, ordered by balance.
type LeaderboardRow struct {
	UserID  string `db:"user_id"`
	Balance int64  `db:"balance"`
}
