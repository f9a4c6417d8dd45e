// Package handler translates Discord interactions into engine and
// service calls.
package handler

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-game-bot/internal/game/showdown"
)

// Component custom IDs for the showdown game.
const (
	customIDAccept  = "showdown_accept_"
	customIDJoin    = "showdown_join_"
	customIDElement = "element_select"
)

var elementEmoji = map[showdown.Element]string{
	showdown.Pyro:    "🔥",
	showdown.Hydro:   "💧",
	showdown.Cryo:    "❄️",
	showdown.Electro: "⚡",
	showdown.Anemo:   "💨",
	showdown.Geo:     "🪨",
	showdown.Dendro:  "🌱",
}

// ShowdownHandler handles the /showdown command, its challenge buttons
// and the per-round element select menu.
type ShowdownHandler struct {
	registry *showdown.Registry

	mu           sync.Mutex
	gameMessages map[string]string // channelID -> game message ID
}

// NewShowdownHandler creates a new ShowdownHandler instance.
func NewShowdownHandler(registry *showdown.Registry) *ShowdownHandler {
	return &ShowdownHandler{
		registry:     registry,
		gameMessages: make(map[string]string),
	}
}

// HandleCommand handles /showdown challenge|open.
func (h *ShowdownHandler) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	user := interactionUser(i)
	if user == nil {
		return
	}

	if _, busy := h.registry.Get(i.ChannelID); busy {
		respondEphemeral(s, i, "A match is already in progress in this channel.")
		return
	}

	switch data.Options[0].Name {
	case "challenge":
		opponent := data.Options[0].Options[0].UserValue(s)
		if opponent == nil {
			respondEphemeral(s, i, "Could not resolve the opponent.")
			return
		}
		if opponent.Bot {
			respondEphemeral(s, i, "You can't challenge a bot!")
			return
		}
		if opponent.ID == user.ID {
			respondEphemeral(s, i, "You can't challenge yourself!")
			return
		}

		respond(s, i, &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("<@%s>, you have been challenged to Elemental Showdown by <@%s>!", opponent.ID, user.ID),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{
						CustomID: customIDAccept + user.ID,
						Label:    "Accept",
						Style:    discordgo.SuccessButton,
					},
				}},
			},
		})

	case "open":
		respond(s, i, &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("<@%s> has started an open game of Elemental Showdown!", user.ID),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{
						CustomID: customIDJoin + user.ID,
						Label:    "Join Game",
						Style:    discordgo.PrimaryButton,
					},
				}},
			},
		})
	}
}

// HandleComponent routes showdown button and select interactions.
func (h *ShowdownHandler) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	switch {
	case strings.HasPrefix(customID, customIDAccept):
		h.handleStart(s, i, strings.TrimPrefix(customID, customIDAccept), true)
	case strings.HasPrefix(customID, customIDJoin):
		h.handleStart(s, i, strings.TrimPrefix(customID, customIDJoin), false)
	case customID == customIDElement:
		h.handleMove(s, i)
	}
}

// handleStart creates the match once a challenge is accepted or an open
// game is joined.
func (h *ShowdownHandler) handleStart(s *discordgo.Session, i *discordgo.InteractionCreate, challengerID string, isChallenge bool) {
	joiner := interactionUser(i)
	if joiner == nil {
		return
	}
	if joiner.ID == challengerID {
		respondEphemeral(s, i, "You can't join your own game!")
		return
	}
	if isChallenge && i.Message != nil && !strings.HasPrefix(i.Message.Content, "<@"+joiner.ID+">") {
		respondEphemeral(s, i, "You were not the one challenged!")
		return
	}

	challenger, err := s.User(challengerID)
	if err != nil {
		log.Error().Err(err).Str("user_id", challengerID).Msg("Failed to fetch challenger")
		respondEphemeral(s, i, "Could not start the game, please try again.")
		return
	}

	engine, err := h.registry.Create(i.ChannelID, showdown.Player{ID: challenger.ID, Name: challenger.Username}, showdown.Player{ID: joiner.ID, Name: joiner.Username})
	if err != nil {
		respondEphemeral(s, i, "A match is already in progress in this channel.")
		return
	}

	snap, err := engine.Start()
	if err != nil {
		h.registry.Remove(i.ChannelID)
		log.Error().Err(err).Str("channel_id", i.ChannelID).Msg("Failed to start match")
		return
	}

	// Replace the challenge message, then post the game board.
	content := fmt.Sprintf("Game started between %s and %s!", challenger.Username, joiner.Username)
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	})

	msg, err := s.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{gameEmbed(snap, "")},
		Components: []discordgo.MessageComponent{elementSelectRow()},
	})
	if err != nil {
		log.Error().Err(err).Str("channel_id", i.ChannelID).Msg("Failed to send game message")
		h.registry.Remove(i.ChannelID)
		return
	}

	h.mu.Lock()
	h.gameMessages[i.ChannelID] = msg.ID
	h.mu.Unlock()
}

// handleMove processes an element selection.
func (h *ShowdownHandler) handleMove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	player := interactionUser(i)
	if player == nil {
		return
	}
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return
	}
	element, err := showdown.ParseElement(values[0])
	if err != nil {
		respondEphemeral(s, i, "Unknown element.")
		return
	}

	result, err := h.registry.HandleMove(i.ChannelID, player.ID, element)
	if err != nil {
		respondEphemeral(s, i, moveErrorMessage(err))
		return
	}

	respondEphemeral(s, i, fmt.Sprintf("You have chosen %s %s. Waiting for the other player.", elementEmoji[element], element))

	if !result.Resolved {
		return
	}

	h.mu.Lock()
	messageID := h.gameMessages[i.ChannelID]
	if result.Outcome.Finished {
		delete(h.gameMessages, i.ChannelID)
	}
	h.mu.Unlock()
	if messageID == "" {
		return
	}

	if result.Outcome.Finished {
		h.editGameMessage(s, i.ChannelID, messageID, finalEmbed(result.Outcome), nil)
		return
	}
	h.editGameMessage(s, i.ChannelID, messageID, gameEmbed(result.Snapshot, roundSummary(result.Outcome)), []discordgo.MessageComponent{elementSelectRow()})
}

func (h *ShowdownHandler) editGameMessage(s *discordgo.Session, channelID, messageID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) {
	embeds := []*discordgo.MessageEmbed{embed}
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		log.Error().Err(err).Str("channel_id", channelID).Msg("Failed to edit game message")
	}
}

func moveErrorMessage(err error) string {
	switch {
	case errors.Is(err, showdown.ErrNoMatch):
		return "There is no active game in this channel."
	case errors.Is(err, showdown.ErrNotAParticipant):
		return "You are not part of this game!"
	case errors.Is(err, showdown.ErrAlreadyMoved):
		return "You have already made your move for this round!"
	case errors.Is(err, showdown.ErrMatchFinished):
		return "This game is already over."
	default:
		return "Could not submit your move, please try again."
	}
}

// roundSummary renders a resolved round for the next board.
func roundSummary(o *showdown.RoundOutcome) string {
	summary := o.Label
	if o.Winner != nil {
		if summary != "" {
			summary += " "
		}
		summary += fmt.Sprintf("%s wins the round!", o.Winner.Name)
	}
	return summary
}

// gameEmbed builds the per-round board.
func gameEmbed(snap *showdown.Snapshot, roundResult string) *discordgo.MessageEmbed {
	description := fmt.Sprintf("A battle between %s and %s.", snap.Players[0].Name, snap.Players[1].Name)
	if roundResult != "" {
		description += "\n\n" + roundResult
	}
	if snap.CoreOwner != nil {
		description += fmt.Sprintf("\n\nA Dendro Core is on the field, created by %s!", snap.CoreOwner.Name)
	}

	return &discordgo.MessageEmbed{
		Title:       "Elemental Showdown!",
		Description: description,
		Color:       0x00ffff,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Round", Value: fmt.Sprintf("%d", snap.Round), Inline: true},
			{Name: fmt.Sprintf("%s's Score", snap.Players[0].Name), Value: fmt.Sprintf("%d", snap.Scores[0]), Inline: true},
			{Name: fmt.Sprintf("%s's Score", snap.Players[1].Name), Value: fmt.Sprintf("%d", snap.Scores[1]), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Choose your element below."},
	}
}

// finalEmbed builds the game-over board.
func finalEmbed(o *showdown.RoundOutcome) *discordgo.MessageEmbed {
	description := roundSummary(o)
	if o.Champion != nil {
		description += fmt.Sprintf("\n\n**%s is the ultimate victor!**", o.Champion.Name)
	}
	return &discordgo.MessageEmbed{
		Title:       "Elemental Showdown - Game Over!",
		Description: description,
		Color:       0xffd700,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Final Score", Value: fmt.Sprintf("%d - %d", o.ScoreA, o.ScoreB), Inline: true},
			{Name: "Rounds Played", Value: fmt.Sprintf("%d", o.Round), Inline: true},
		},
	}
}

// elementSelectRow builds the element picker.
func elementSelectRow() discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(showdown.Elements()))
	for _, e := range showdown.Elements() {
		options = append(options, discordgo.SelectMenuOption{
			Label: string(e),
			Value: string(e),
			Emoji: &discordgo.ComponentEmoji{Name: elementEmoji[e]},
		})
	}
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    customIDElement,
			Placeholder: "Choose your element",
			Options:     options,
		},
	}}
}
