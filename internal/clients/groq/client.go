// Package groq calls the Groq OpenAI-compatible chat completion endpoint.
package groq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/sharesathi/internal/clients/fetch"
	"github.com/aristath/sharesathi/internal/clients/llm"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the Groq API root.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// ErrEmptyReply is returned when the completion has no content.
var ErrEmptyReply = errors.New("empty completion")

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message llm.Message `json:"message"`
	} `json:"choices"`
}

// Client for Groq chat completions
type Client struct {
	baseURL string
	apiKey  string
	model   string
	fetch   *fetch.Client
	log     zerolog.Logger
}

// NewClient creates a new Groq client
func NewClient(apiKey, model string, f *fetch.Client, log zerolog.Logger) *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		model:   model,
		fetch:   f,
		log:     log.With().Str("client", "groq").Logger(),
	}
}

// WithBaseURL points the client at another host, used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// Name identifies the provider in responses.
func (c *Client) Name() string {
	return "groq"
}

// Complete sends the system prompt, prior turns and the new message, and
// returns the assistant's reply.
func (c *Client) Complete(ctx context.Context, system string, history []llm.Message, message string) (string, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	req := completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.4,
		MaxTokens:   700,
	}

	var resp completionResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := c.fetch.PostJSON(ctx, c.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", fmt.Errorf("groq completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}

	c.log.Debug().Str("model", c.model).Int("chars", len(reply)).Msg("Completion received")
	return reply, nil
}
