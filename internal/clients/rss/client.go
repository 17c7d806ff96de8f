// Package rss fetches and permissively parses RSS 2.0 and Atom feeds.
package rss

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aristath/sharesathi/internal/clients/fetch"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Item is one normalized feed entry.
type Item struct {
	Title       string    `json:"title" msgpack:"title"`
	Link        string    `json:"link" msgpack:"link"`
	Description string    `json:"description" msgpack:"description"`
	Source      string    `json:"source" msgpack:"source"`
	Published   time.Time `json:"published" msgpack:"published"`
	ImageURL    string    `json:"imageUrl,omitempty" msgpack:"image_url"`
}

// Client fetches feeds
type Client struct {
	fetch *fetch.Client
	log   zerolog.Logger
}

// NewClient creates a new feed client
func NewClient(f *fetch.Client, log zerolog.Logger) *Client {
	return &Client{
		fetch: f,
		log:   log.With().Str("client", "rss").Logger(),
	}
}

// Fetch downloads and parses one feed.
func (c *Client) Fetch(ctx context.Context, feedURL string) ([]Item, error) {
	body, err := c.fetch.Get(ctx, feedURL, map[string]string{
		"Accept": "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	items, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	c.log.Debug().Str("feed", feedURL).Int("items", len(items)).Msg("Fetched feed")
	return items, nil
}

type rssDoc struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	// Atom
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"date"`
	Enclosure   struct {
		URL  string `xml:"url,attr"`
		Type string `xml:"type,attr"`
	} `xml:"enclosure"`
	Thumbnail struct {
		URL string `xml:"url,attr"`
	} `xml:"thumbnail"`
}

type atomEntry struct {
	Title string `xml:"title"`
	Links []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
	Summary   string `xml:"summary"`
	Content   string `xml:"content"`
	Updated   string `xml:"updated"`
	Published string `xml:"published"`
}

// Parse decodes an RSS or Atom document. The decoder runs in non-strict mode
// with HTML entities so the loosely formed feeds common on news sites load.
func Parse(data []byte) ([]Item, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		return charset.NewReaderLabel(label, input)
	}

	var doc rssDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	var items []Item
	source := strings.TrimSpace(doc.Channel.Title)
	for _, it := range doc.Channel.Items {
		item := Item{
			Title:       StripHTML(it.Title),
			Link:        strings.TrimSpace(it.Link),
			Description: StripHTML(it.Description),
			Source:      source,
			Published:   ParseTime(firstNonEmpty(it.PubDate, it.Date)),
		}
		if strings.HasPrefix(it.Enclosure.Type, "image/") {
			item.ImageURL = it.Enclosure.URL
		} else if it.Thumbnail.URL != "" {
			item.ImageURL = it.Thumbnail.URL
		}
		if item.Title != "" && item.Link != "" {
			items = append(items, item)
		}
	}

	source = strings.TrimSpace(doc.Title)
	for _, e := range doc.Entries {
		item := Item{
			Title:       StripHTML(e.Title),
			Description: StripHTML(firstNonEmpty(e.Summary, e.Content)),
			Source:      source,
			Published:   ParseTime(firstNonEmpty(e.Published, e.Updated)),
		}
		for _, l := range e.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				item.Link = strings.TrimSpace(l.Href)
				break
			}
		}
		if item.Title != "" && item.Link != "" {
			items = append(items, item)
		}
	}

	return items, nil
}

// StripHTML returns the visible text of an HTML fragment with whitespace collapsed.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == "script" || string(name) == "style" {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if (string(name) == "script" || string(name) == "style") && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

var timeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTime tries the date layouts seen in feeds. Unparseable input yields
// the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
