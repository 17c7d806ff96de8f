// Package llm holds the types shared by the chat completion providers.
package llm

import "context"

// Roles used in Message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider produces a single reply for a conversation.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system string, history []Message, message string) (string, error)
}
