// Package zenquotes fetches the quote of the day from zenquotes.io.
package zenquotes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/sharesathi/internal/clients/fetch"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the ZenQuotes API root.
const DefaultBaseURL = "https://zenquotes.io/api"

// ErrNoQuote is returned when the response holds no usable quote.
var ErrNoQuote = errors.New("no quote returned")

// Quote is a quotation and its author.
type Quote struct {
	Text   string `json:"text" msgpack:"text"`
	Author string `json:"author" msgpack:"author"`
}

// Client for ZenQuotes
type Client struct {
	baseURL string
	fetch   *fetch.Client
	log     zerolog.Logger
}

// NewClient creates a new ZenQuotes client
func NewClient(f *fetch.Client, log zerolog.Logger) *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		fetch:   f,
		log:     log.With().Str("client", "zenquotes").Logger(),
	}
}

// WithBaseURL points the client at another host, used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// Today returns the quote of the day.
func (c *Client) Today(ctx context.Context) (*Quote, error) {
	var resp []struct {
		Q string `json:"q"`
		A string `json:"a"`
	}
	if err := c.fetch.GetJSON(ctx, c.baseURL+"/today", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch quote of the day: %w", err)
	}

	// Rate-limited responses come back as a 200 with a notice in place of a quote
	if len(resp) == 0 || strings.TrimSpace(resp[0].Q) == "" || strings.Contains(resp[0].Q, "Too many requests") {
		return nil, ErrNoQuote
	}

	return &Quote{
		Text:   strings.TrimSpace(resp[0].Q),
		Author: strings.TrimSpace(resp[0].A),
	}, nil
}
