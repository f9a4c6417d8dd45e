package handler

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-game-bot/internal/ai"
)

// chatReplyLimit keeps the edited response within Discord's message cap.
const chatReplyLimit = 2000

// ChatHandler handles /chat and /chat-reset.
type ChatHandler struct {
	client *ai.Client
}

// NewChatHandler creates a new ChatHandler instance.
func NewChatHandler(client *ai.Client) *ChatHandler {
	return &ChatHandler{client: client}
}

// HandleCommand handles /chat message. The upstream call can take several
// seconds, so the response is deferred and filled in by an edit.
func (h *ChatHandler) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	var message string
	for _, opt := range data.Options {
		if opt.Name == "message" {
			message = opt.StringValue()
		}
	}
	if message == "" {
		respondEphemeral(s, i, "Say something first!")
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to defer chat response")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		reply, err := h.client.Send(ctx, i.ChannelID, message)
		if err != nil {
			log.Error().Err(err).Str("channel_id", i.ChannelID).Msg("Chat request failed")
			reply = "Sorry, I couldn't think of a reply. Try again in a moment."
		}
		if len(reply) > chatReplyLimit {
			reply = reply[:chatReplyLimit]
		}

		_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
			Content: &reply,
		})
		if err != nil {
			log.Error().Err(err).Str("channel_id", i.ChannelID).Msg("Failed to edit chat response")
		}
	}()
}

// HandleReset handles /chat-reset, clearing the channel's conversation.
func (h *ChatHandler) HandleReset(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.client.Reset(i.ChannelID)
	respondEphemeral(s, i, "Conversation history cleared for this channel.")
}
