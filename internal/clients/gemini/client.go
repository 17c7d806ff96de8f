// Package gemini calls Google's Gemini models through the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aristath/sharesathi/internal/clients/llm"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// ErrEmptyReply is returned when the model produced no text.
var ErrEmptyReply = errors.New("empty gemini reply")

// Client wraps a genai client for single-turn completions
type Client struct {
	apiKey string
	model  string
	log    zerolog.Logger

	mu    sync.Mutex
	genai *genai.Client
}

// NewClient creates a Gemini client. The SDK client is created lazily on
// first use so construction never blocks or fails.
func NewClient(apiKey, model string, log zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		model:  model,
		log:    log.With().Str("client", "gemini").Logger(),
	}
}

// Name identifies the provider in responses.
func (c *Client) Name() string {
	return "gemini"
}

func (c *Client) client(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genai != nil {
		return c.genai, nil
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.genai = gc
	return gc, nil
}

// Complete sends the prior turns and the new message with the system prompt
// as the system instruction.
func (c *Client) Complete(ctx context.Context, system string, history []llm.Message, message string) (string, error) {
	gc, err := c.client(ctx)
	if err != nil {
		return "", err
	}

	contents := BuildContents(history, message)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		MaxOutputTokens:   700,
	}

	resp, err := gc.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", ErrEmptyReply
	}

	c.log.Debug().Str("model", c.model).Int("chars", len(reply)).Msg("Completion received")
	return reply, nil
}

// BuildContents converts chat turns into genai contents. Gemini names the
// assistant role "model".
func BuildContents(history []llm.Message, message string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return append(contents, genai.NewContentFromText(message, genai.RoleUser))
}
