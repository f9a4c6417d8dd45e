// Package bot provides the Discord session setup, slash-command
// registration and interaction routing.
package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-game-bot/internal/ai"
	"discord-game-bot/internal/config"
	"discord-game-bot/internal/game/showdown"
	"discord-game-bot/internal/handler"
	"discord-game-bot/internal/pkg/lock"
	"discord-game-bot/internal/service"
)

// Bot wraps the discordgo session with application dependencies.
type Bot struct {
	session *discordgo.Session
	cfg     *config.Config

	// Handlers
	showdownHandler *handler.ShowdownHandler
	creditsHandler  *handler.CreditsHandler
	wagerHandler    *handler.WagerHandler
	chatHandler     *handler.ChatHandler
	keywordListener *KeywordListener
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config        *config.Config
	LedgerService *service.LedgerService
	PolicyService *service.PolicyService
	WagerService  *service.WagerService
	GameRegistry  *showdown.Registry
	ChatClient    *ai.Client
	KeyLock       *lock.KeyLock
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	session, err := discordgo.New("Bot " + deps.Config.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	b := &Bot{
		session: session,
		cfg:     deps.Config,
	}

	// Initialize handlers
	b.showdownHandler = handler.NewShowdownHandler(deps.GameRegistry)
	b.creditsHandler = handler.NewCreditsHandler(deps.Config, deps.LedgerService, deps.PolicyService, deps.KeyLock)
	b.wagerHandler = handler.NewWagerHandler(deps.WagerService, deps.KeyLock)
	b.chatHandler = handler.NewChatHandler(deps.ChatClient)
	b.keywordListener = NewKeywordListener(deps.Config, deps.LedgerService, deps.KeyLock)

	// Register gateway handlers
	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	session.AddHandler(b.keywordListener.OnMessage)

	return b, nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().
		Str("username", r.User.Username).
		Int("guild_count", len(r.Guilds)).
		Msg("Bot is ready")
}

// onInteraction routes slash commands and message components.
func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "showdown":
			b.showdownHandler.HandleCommand(s, i)
		case "credits":
			b.creditsHandler.HandleCommand(s, i)
		case "gamble":
			b.wagerHandler.HandleCommand(s, i)
		case "chat":
			b.chatHandler.HandleCommand(s, i)
		case "chat-reset":
			b.chatHandler.HandleReset(s, i)
		}

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		if strings.HasPrefix(customID, "showdown_") || customID == "element_select" {
			b.showdownHandler.HandleComponent(s, i)
		}
	}
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start() error {
	log.Info().Msg("Starting bot...")
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}

	appID := b.cfg.Bot.AppID
	if appID == "" {
		appID = b.session.State.User.ID
	}
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, "", commands()); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	log.Info().Int("command_count", len(commands())).Msg("Slash commands registered")

	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	if err := b.session.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close session")
	}
}

// Session returns the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// commands builds the global slash-command definitions.
func commands() []*discordgo.ApplicationCommand {
	multiplierChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(service.Multipliers))
	for _, m := range service.Multipliers {
		multiplierChoices = append(multiplierChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%gx", m),
			Value: m,
		})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "showdown",
			Description: "Play Elemental Showdown",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "challenge",
					Description: "Challenge another member to a match",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "opponent",
							Description: "The member to challenge",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "open",
					Description: "Start an open match anyone can join",
				},
			},
		},
		{
			Name:        "credits",
			Description: "Manage server credits",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "balance",
					Description: "Show a member's balance",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "The member to look up (defaults to you)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add credits to a member",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "The member to credit",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "The amount to add",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove credits from a member",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "The member to debit",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "The amount to remove",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "leaderboard",
					Description: "Show the richest members of this server",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "settings",
					Description: "Change credit settings (admins only)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "cooldown_seconds",
							Description: "Cooldown between manual adds or removes on the same account",
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "transaction_cap",
							Description: "Largest single add or remove (0 disables the cap)",
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "allow_negative",
							Description: "Allow negative amounts and overdrawn balances",
						},
					},
				},
			},
		},
		{
			Name:        "gamble",
			Description: "Wager credits on a long shot",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Credits to wager",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "multiplier",
					Description: "Payout multiplier",
					Required:    true,
					Choices:     multiplierChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "double",
					Description: "Double your odds, multiply your losses",
				},
			},
		},
		{
			Name:        "chat",
			Description: "Talk to the bot",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "What to say",
					Required:    true,
				},
			},
		},
		{
			Name:        "chat-reset",
			Description: "Clear this channel's conversation history",
		},
	}
}
