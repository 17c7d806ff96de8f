// Package chat implements the investing assistant. Replies come from the
// first configured LLM provider that answers, with a rule-based responder
// as the last resort.
package chat

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aristath/sharesathi/internal/clients/llm"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// MaxMessageLength caps user messages, in characters.
const MaxMessageLength = 2000

// maxHistory is how many prior messages are forwarded to a provider.
const maxHistory = 10

// ErrEmptyMessage is returned for blank messages.
var ErrEmptyMessage = errors.New("message is empty")

// SystemPrompt frames every provider conversation.
const SystemPrompt = `You are ShareSathi, a friendly assistant for Indian retail investors.
Explain investing concepts (CAGR, SIPs, P/E, indices like NIFTY 50 and SENSEX, dividends, risk)
in simple language with examples in Indian rupees. Keep answers under 200 words and use markdown.
Never recommend buying or selling a specific stock and remind users that this is not financial advice
when they ask what to invest in.`

// Provider preferences, matching the chat_provider setting.
const (
	PreferAuto   = "auto"
	PreferGroq   = "groq"
	PreferGemini = "gemini"
	PreferLocal  = "local"
)

// Request is one user turn.
type Request struct {
	ConversationID string        `json:"conversationId"`
	Message        string        `json:"message"`
	History        []llm.Message `json:"history"`
}

// Reply is the assistant's answer.
type Reply struct {
	ConversationID string    `json:"conversationId"`
	Reply          string    `json:"reply"`
	HTML           string    `json:"html"`
	Source         string    `json:"source"`
	Truncated      bool      `json:"truncated,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Service routes messages through the provider chain.
type Service struct {
	providers []llm.Provider
	local     llm.Provider
	prefer    func() string
	md        goldmark.Markdown
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates a chat service. providers are tried in order; prefer
// returns the chat_provider preference and may be nil.
func NewService(providers []llm.Provider, prefer func() string, log zerolog.Logger) *Service {
	return &Service{
		providers: providers,
		local:     LocalResponder{},
		prefer:    prefer,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		log: log.With().Str("service", "chat").Logger(),
		now: time.Now,
	}
}

// Reply answers a message. Provider failures fall through to the next
// provider; only a blank message is an error.
func (s *Service) Reply(ctx context.Context, req Request) (*Reply, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, ErrEmptyMessage
	}

	truncated := false
	if utf8.RuneCountInString(msg) > MaxMessageLength {
		msg = string([]rune(msg)[:MaxMessageLength])
		truncated = true
	}

	history := sanitizeHistory(req.History)

	var text, source string
	for _, p := range s.chain() {
		out, err := p.Complete(ctx, SystemPrompt, history, msg)
		if err != nil {
			s.log.Warn().Err(err).Str("provider", p.Name()).Msg("Chat provider failed")
			continue
		}
		if strings.TrimSpace(out) == "" {
			continue
		}
		text, source = strings.TrimSpace(out), p.Name()
		break
	}
	if text == "" {
		text, source = Answer(msg), LocalName
	}

	id := req.ConversationID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	return &Reply{
		ConversationID: id,
		Reply:          text,
		HTML:           s.render(text),
		Source:         source,
		Truncated:      truncated,
		CreatedAt:      s.now(),
	}, nil
}

// Providers lists the provider names in the order they would be tried.
func (s *Service) Providers() []string {
	chain := s.chain()
	names := make([]string, len(chain))
	for i, p := range chain {
		names[i] = p.Name()
	}
	return names
}

// chain orders the providers by preference and ends with the local responder.
func (s *Service) chain() []llm.Provider {
	pref := PreferAuto
	if s.prefer != nil {
		pref = s.prefer()
	}
	if pref == PreferLocal {
		return []llm.Provider{s.local}
	}

	out := make([]llm.Provider, 0, len(s.providers)+1)
	for _, p := range s.providers {
		if p.Name() == pref {
			out = append(out, p)
		}
	}
	for _, p := range s.providers {
		if p.Name() != pref {
			out = append(out, p)
		}
	}
	return append(out, s.local)
}

func (s *Service) render(markdown string) string {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		s.log.Warn().Err(err).Msg("Failed to render reply markdown")
		return ""
	}
	return buf.String()
}

// sanitizeHistory keeps the most recent user and assistant turns.
func sanitizeHistory(history []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if utf8.RuneCountInString(content) > MaxMessageLength {
			content = string([]rune(content)[:MaxMessageLength])
		}
		out = append(out, llm.Message{Role: m.Role, Content: content})
	}
	if len(out) > maxHistory {
		out = out[len(out)-maxHistory:]
	}
	return out
}
