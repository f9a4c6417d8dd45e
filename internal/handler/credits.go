package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-game-bot/internal/config"
	"discord-game-bot/internal/model"
	"discord-game-bot/internal/pkg/lock"
	"discord-game-bot/internal/service"
)

// CreditsHandler handles the /credits command family.
type CreditsHandler struct {
	cfg     *config.Config
	ledger  *service.LedgerService
	policy  *service.PolicyService
	keyLock *lock.KeyLock
}

// NewCreditsHandler creates a new CreditsHandler instance.
func NewCreditsHandler(cfg *config.Config, ledger *service.LedgerService, policy *service.PolicyService, keyLock *lock.KeyLock) *CreditsHandler {
	return &CreditsHandler{
		cfg:     cfg,
		ledger:  ledger,
		policy:  policy,
		keyLock: keyLock,
	}
}

// HandleCommand routes /credits subcommands.
func (h *CreditsHandler) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "Credits only exist inside a server.")
		return
	}
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]

	switch sub.Name {
	case "balance":
		h.handleBalance(s, i, sub)
	case "add":
		h.handleAdjust(s, i, sub, false)
	case "remove":
		h.handleAdjust(s, i, sub, true)
	case "leaderboard":
		h.handleLeaderboard(s, i)
	case "settings":
		h.handleSettings(s, i, sub)
	}
}

func (h *CreditsHandler) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	target := interactionUser(i)
	for _, opt := range sub.Options {
		if opt.Name == "user" {
			target = opt.UserValue(s)
		}
	}
	if target == nil {
		return
	}

	balance, err := h.ledger.Balance(context.Background(), target.ID, i.GuildID)
	if err != nil {
		log.Error().Err(err).Str("user_id", target.ID).Msg("Failed to read balance")
		respondEphemeral(s, i, "Could not look up the balance, please try again.")
		return
	}
	respond(s, i, &discordgo.InteractionResponseData{
		Content: fmt.Sprintf("💰 %s has %d credits.", target.Username, balance),
	})
}

// handleAdjust covers the manual add and remove verbs. The cooldown is
// anchored on the target's ledger entry: the same account cannot be
// credited (or debited) again until the policy window elapses.
func (h *CreditsHandler) handleAdjust(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption, remove bool) {
	var (
		target *discordgo.User
		amount int64
	)
	for _, opt := range sub.Options {
		switch opt.Name {
		case "user":
			target = opt.UserValue(s)
		case "amount":
			amount = opt.IntValue()
		}
	}
	if target == nil {
		return
	}
	if target.Bot {
		respondEphemeral(s, i, "Bots don't keep credit accounts.")
		return
	}

	ctx := context.Background()
	key := lock.LedgerKey(target.ID, i.GuildID)
	h.keyLock.Lock(key)
	defer h.keyLock.Unlock(key)

	var (
		entry *model.LedgerEntry
		err   error
	)
	if remove {
		allowed, remaining, checkErr := h.ledger.CanDebit(ctx, target.ID, i.GuildID)
		if checkErr == nil && !allowed {
			respondEphemeral(s, i, fmt.Sprintf("⏳ This account was debited recently. Try again in %s.", formatRemaining(remaining)))
			return
		}
		entry, err = h.ledger.Debit(ctx, target.ID, i.GuildID, amount, false)
	} else {
		allowed, remaining, checkErr := h.ledger.CanCredit(ctx, target.ID, i.GuildID)
		if checkErr == nil && !allowed {
			respondEphemeral(s, i, fmt.Sprintf("⏳ This account was credited recently. Try again in %s.", formatRemaining(remaining)))
			return
		}
		entry, err = h.ledger.Credit(ctx, target.ID, i.GuildID, amount, false)
	}

	if err != nil {
		respondEphemeral(s, i, adjustErrorMessage(err))
		return
	}

	verb := "added to"
	if remove {
		verb = "removed from"
	}
	respond(s, i, &discordgo.InteractionResponseData{
		Content: fmt.Sprintf("✅ %d credits %s %s. New balance: %d.", amount, verb, target.Username, entry.Balance),
	})
}

func adjustErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		return "The amount must not be zero."
	case errors.Is(err, service.ErrNegativeNotAllowed):
		return "Negative amounts are disabled by the current settings."
	case errors.Is(err, service.ErrAmountOverCap):
		return "That amount exceeds the per-transaction cap."
	case errors.Is(err, service.ErrInsufficientBalance):
		return "That would overdraw the account, which the current settings forbid."
	default:
		return "Could not update the balance, please try again."
	}
}

func (h *CreditsHandler) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	board, err := h.ledger.Leaderboard(context.Background(), i.GuildID, 10)
	if err != nil {
		log.Error().Err(err).Str("guild_id", i.GuildID).Msg("Failed to load leaderboard")
		respondEphemeral(s, i, "Could not load the leaderboard, please try again.")
		return
	}
	if len(board) == 0 {
		respondEphemeral(s, i, "Nobody has an account in this server yet.")
		return
	}

	var sb strings.Builder
	medals := []string{"🥇", "🥈", "🥉"}
	for idx, row := range board {
		name := "<@" + row.UserID + ">"
		// Unresolvable members are kept, not dropped: the balance is
		// real even when the user has left the guild.
		if member, memberErr := s.GuildMember(i.GuildID, row.UserID); memberErr == nil && member.User != nil {
			name = member.User.Username
		} else if memberErr != nil {
			log.Debug().Err(memberErr).Str("user_id", row.UserID).Msg("Leaderboard member not resolvable")
		}
		prefix := fmt.Sprintf("%d.", idx+1)
		if idx < len(medals) {
			prefix = medals[idx]
		}
		fmt.Fprintf(&sb, "%s %s — %d\n", prefix, name, row.Balance)
	}

	respond(s, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Credit Leaderboard",
			Description: sb.String(),
			Color:       0xf1c40f,
		}},
	})
}

// handleSettings updates the ledger policy. Persist-then-reload keeps the
// cached copy consistent with storage.
func (h *CreditsHandler) handleSettings(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	user := interactionUser(i)
	if user == nil || !h.cfg.IsAdmin(user.ID) {
		respondEphemeral(s, i, "Only bot admins can change credit settings.")
		return
	}

	policy := h.policy.Current()
	for _, opt := range sub.Options {
		switch opt.Name {
		case "cooldown_seconds":
			policy.CooldownSeconds = opt.IntValue()
		case "transaction_cap":
			policy.TransactionCap = opt.IntValue()
		case "allow_negative":
			policy.AllowNegative = opt.BoolValue()
		}
	}
	if policy.CooldownSeconds < 0 || policy.TransactionCap < 0 {
		respondEphemeral(s, i, "Cooldown and cap must not be negative.")
		return
	}

	if err := h.policy.Update(context.Background(), &policy); err != nil {
		log.Error().Err(err).Msg("Failed to update policy")
		respondEphemeral(s, i, "Could not save the settings, please try again.")
		return
	}

	capText := "none"
	if policy.TransactionCap > 0 {
		capText = fmt.Sprintf("%d", policy.TransactionCap)
	}
	respond(s, i, &discordgo.InteractionResponseData{
		Content: fmt.Sprintf("⚙️ Settings saved: cooldown %ds, cap %s, negative balances %v.",
			policy.CooldownSeconds, capText, policy.AllowNegative),
	})
}
