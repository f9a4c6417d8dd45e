package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-game-bot/internal/pkg/lock"
	"discord-game-bot/internal/service"
)

// WagerHandler handles the /gamble command.
type WagerHandler struct {
	wager   *service.WagerService
	keyLock *lock.KeyLock
}

// NewWagerHandler creates a new WagerHandler instance.
func NewWagerHandler(wager *service.WagerService, keyLock *lock.KeyLock) *WagerHandler {
	return &WagerHandler{
		wager:   wager,
		keyLock: keyLock,
	}
}

// HandleCommand handles /gamble amount multiplier [double].
func (h *WagerHandler) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "Gambling only works inside a server.")
		return
	}
	user := interactionUser(i)
	if user == nil {
		return
	}

	var (
		amount     int64
		multiplier float64
		doubleOdds bool
	)
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "amount":
			amount = opt.IntValue()
		case "multiplier":
			multiplier = opt.FloatValue()
		case "double":
			doubleOdds = opt.BoolValue()
		}
	}

	key := lock.LedgerKey(user.ID, i.GuildID)
	h.keyLock.Lock(key)
	result, err := h.wager.Resolve(context.Background(), user.ID, i.GuildID, amount, multiplier, doubleOdds)
	h.keyLock.Unlock(key)

	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidWager):
			respondEphemeral(s, i, "The wager must be a positive amount within the allowed range.")
		case errors.Is(err, service.ErrInvalidMultiplier):
			respondEphemeral(s, i, "Pick one of the offered multipliers: 1.5, 2, 5, 10, 15, 20.")
		case errors.Is(err, service.ErrInsufficientBalance):
			respondEphemeral(s, i, "You don't have enough credits for that wager.")
		default:
			log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to resolve wager")
			respondEphemeral(s, i, "Could not place the wager, please try again.")
		}
		return
	}

	odds := result.Probability * 100
	if result.Won {
		respond(s, i, &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("🎉 %s hit the %.2f%% shot at %gx and won %d credits! New balance: %d.",
				user.Username, odds, result.Multiplier, result.Delta, result.NewBalance),
		})
		return
	}

	loss := -result.Delta
	msg := fmt.Sprintf("😢 %s missed the %.2f%% shot at %gx and lost %d credits. New balance: %d.",
		user.Username, odds, result.Multiplier, loss, result.NewBalance)
	if result.DoubleOdds {
		msg = fmt.Sprintf("💀 %s took double odds at %gx, missed the %.2f%% shot and lost %d credits. New balance: %d.",
			user.Username, result.Multiplier, odds, loss, result.NewBalance)
	}
	respond(s, i, &discordgo.InteractionResponseData{Content: msg})
}
