// Package grokipedia fetches short encyclopedia summaries for companies.
package grokipedia

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aristath/sharesathi/internal/clients/fetch"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// DefaultBaseURL is the site root.
const DefaultBaseURL = "https://grokipedia.com"

// maxSummaryRunes caps the returned summary length.
const maxSummaryRunes = 800

// ErrNotFound is returned when no page exists for the title.
var ErrNotFound = errors.New("page not found")

// Summary is the lead text of a page.
type Summary struct {
	Title   string `json:"title" msgpack:"title"`
	Extract string `json:"extract" msgpack:"extract"`
	URL     string `json:"url" msgpack:"url"`
}

// Client for page summaries
type Client struct {
	baseURL string
	fetch   *fetch.Client
	log     zerolog.Logger
}

// NewClient creates a new summary client
func NewClient(f *fetch.Client, log zerolog.Logger) *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		fetch:   f,
		log:     log.With().Str("client", "grokipedia").Logger(),
	}
}

// WithBaseURL points the client at another host, used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// PageURL returns the page address for a title ("Tata Motors" -> /page/Tata_Motors).
func (c *Client) PageURL(title string) string {
	slug := strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	return c.baseURL + "/page/" + url.PathEscape(slug)
}

// Summary fetches the page for title and extracts its lead text.
func (c *Client) Summary(ctx context.Context, title string) (*Summary, error) {
	pageURL := c.PageURL(title)
	body, err := c.fetch.Get(ctx, pageURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		if fetch.IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%s: %w", title, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch summary for %s: %w", title, err)
	}

	extract, err := ExtractLead(body)
	if err != nil {
		return nil, err
	}
	if extract == "" {
		return nil, fmt.Errorf("%s: %w", title, ErrNotFound)
	}

	return &Summary{Title: strings.TrimSpace(title), Extract: extract, URL: pageURL}, nil
}

// ExtractLead returns the first substantial paragraph of an HTML page, or the
// page's meta description when no paragraph qualifies.
func ExtractLead(page []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	var description, paragraph string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if paragraph != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "header", "footer":
				return
			case "meta":
				if description == "" && (attr(n, "name") == "description" || attr(n, "property") == "og:description") {
					description = strings.TrimSpace(attr(n, "content"))
				}
			case "p":
				if text := collapse(textOf(n)); len([]rune(text)) >= 60 {
					paragraph = text
					return
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	lead := paragraph
	if lead == "" {
		lead = description
	}
	return truncate(lead, maxSummaryRunes), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.Data == "sup" {
			continue
		}
		b.WriteString(textOf(child))
		b.WriteByte(' ')
	}
	return b.String()
}

func collapse(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for _, p := range []string{" ,", " .", " ;", " :"} {
		s = strings.ReplaceAll(s, p, p[1:])
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndex(cut, ". "); i > n/2 {
		return cut[:i+1]
	}
	return strings.TrimSpace(cut) + "…"
}
