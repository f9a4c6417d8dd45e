// Package ai provides a thin conversational proxy backing the /chat
// command. Conversation history is kept per channel in memory and can be
// reset on demand.
package ai

import (
	"context"
	"errors"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrEmptyReply is returned when the upstream service produces no content.
var ErrEmptyReply = errors.New("chat service returned an empty reply")

// maxHistory bounds the per-channel message history sent upstream.
const maxHistory = 20

// Client proxies chat messages to the configured model.
type Client struct {
	api     openai.Client
	model   string
	persona string

	mu       sync.Mutex
	sessions map[string][]openai.ChatCompletionMessageParamUnion // channelID -> history
}

// NewClient creates a chat proxy client.
func NewClient(apiKey, model, persona string) *Client {
	return &Client{
		api:      openai.NewClient(option.WithAPIKey(apiKey)),
		model:    model,
		persona:  persona,
		sessions: make(map[string][]openai.ChatCompletionMessageParamUnion),
	}
}

// Send forwards a message within a channel's conversation and returns the
// model's reply.
func (c *Client) Send(ctx context.Context, channelID, message string) (string, error) {
	c.mu.Lock()
	history := append([]openai.ChatCompletionMessageParamUnion(nil), c.sessions[channelID]...)
	c.mu.Unlock()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if c.persona != "" {
		messages = append(messages, openai.SystemMessage(c.persona))
	}
	messages = append(messages, history...)
	messages = append(messages, openai.UserMessage(message))

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}
	reply := resp.Choices[0].Message.Content

	c.mu.Lock()
	history = append(c.sessions[channelID], openai.UserMessage(message), openai.AssistantMessage(reply))
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	c.sessions[channelID] = history
	c.mu.Unlock()

	return reply, nil
}

// Reset clears a channel's conversation history.
func (c *Client) Reset(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, channelID)
}
