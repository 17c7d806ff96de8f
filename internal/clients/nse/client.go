// Package nse reads index constituent tables from the NSE website API.
package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/aristath/sharesathi/internal/clients/fetch"
	"github.com/aristath/sharesathi/internal/utils"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the NSE site root. The API only answers requests that
// carry the cookies set by a prior page visit.
const DefaultBaseURL = "https://www.nseindia.com"

// Supported index names.
var Indices = []string{"NIFTY 50", "NIFTY NEXT 50", "NIFTY BANK", "NIFTY IT", "NIFTY MIDCAP 100"}

// Constituent is one row of an index table.
type Constituent struct {
	Symbol           string  `json:"symbol" msgpack:"symbol"`
	Name             string  `json:"name" msgpack:"name"`
	Industry         string  `json:"industry,omitempty" msgpack:"industry"`
	Price            float64 `json:"price" msgpack:"price"`
	Change           float64 `json:"change" msgpack:"change"`
	ChangePercent    float64 `json:"changePercent" msgpack:"change_percent"`
	Open             float64 `json:"open" msgpack:"open"`
	DayHigh          float64 `json:"dayHigh" msgpack:"day_high"`
	DayLow           float64 `json:"dayLow" msgpack:"day_low"`
	PreviousClose    float64 `json:"previousClose" msgpack:"previous_close"`
	FiftyTwoWeekHigh float64 `json:"fiftyTwoWeekHigh" msgpack:"fifty_two_week_high"`
	FiftyTwoWeekLow  float64 `json:"fiftyTwoWeekLow" msgpack:"fifty_two_week_low"`
	Volume           int64   `json:"volume" msgpack:"volume"`
}

// Client for the NSE equity-stockIndices endpoint
type Client struct {
	baseURL string
	fetch   *fetch.Client
	log     zerolog.Logger

	primeMu sync.Mutex
	primed  time.Time
}

// NewClient creates a client with its own cookie jar.
func NewClient(log zerolog.Logger) *Client {
	jar, _ := cookiejar.New(nil)
	clientLog := log.With().Str("client", "nse").Logger()
	hc := &http.Client{Timeout: 15 * time.Second, Jar: jar}

	return &Client{
		baseURL: DefaultBaseURL,
		fetch:   fetch.New(clientLog, fetch.WithHTTPClient(hc)),
		log:     clientLog,
	}
}

// WithBaseURL points the client at another host, used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// WithFetcher replaces the HTTP layer, used by tests.
func (c *Client) WithFetcher(f *fetch.Client) *Client {
	c.fetch = f
	return c
}

// prime visits the home page so the session cookies are set. Repeated at
// most every ten minutes.
func (c *Client) prime(ctx context.Context) {
	c.primeMu.Lock()
	defer c.primeMu.Unlock()

	if time.Since(c.primed) < 10*time.Minute {
		return
	}
	if _, err := c.fetch.Get(ctx, c.baseURL+"/", map[string]string{"Accept": "text/html"}); err != nil {
		c.log.Debug().Err(err).Msg("Failed to prime NSE session")
		return
	}
	c.primed = time.Now()
}

// IndexConstituents returns the constituent rows of index. The summary row
// NSE includes for the index itself is dropped.
func (c *Client) IndexConstituents(ctx context.Context, index string) ([]Constituent, error) {
	c.prime(ctx)

	reqURL := c.baseURL + "/api/equity-stockIndices?index=" + url.QueryEscape(index)
	headers := map[string]string{"Referer": c.baseURL + "/market-data/live-equity-market"}

	body, err := c.fetch.Get(ctx, reqURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s constituents: %w", index, err)
	}

	rows, err := ParseConstituents(body, index)
	if err != nil {
		return nil, err
	}

	c.log.Debug().Str("index", index).Int("count", len(rows)).Msg("Fetched index constituents")
	return rows, nil
}

// ParseConstituents extracts rows from an equity-stockIndices payload.
func ParseConstituents(body []byte, index string) ([]Constituent, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse constituents: %w", err)
	}

	raw, err := jsonpath.Get("$.data[*]", doc)
	if err != nil {
		return nil, fmt.Errorf("constituents payload has no data: %w", err)
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("constituents payload has unexpected shape")
	}

	indexName := strings.ToUpper(strings.TrimSpace(index))
	out := make([]Constituent, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		symbol := utils.NormalizeSymbol(str(m, "symbol"))
		if symbol == "" || symbol == indexName {
			continue
		}

		row := Constituent{
			Symbol:           symbol,
			Price:            num(m, "lastPrice"),
			Change:           num(m, "change"),
			ChangePercent:    num(m, "pChange"),
			Open:             num(m, "open"),
			DayHigh:          num(m, "dayHigh"),
			DayLow:           num(m, "dayLow"),
			PreviousClose:    num(m, "previousClose"),
			FiftyTwoWeekHigh: num(m, "yearHigh"),
			FiftyTwoWeekLow:  num(m, "yearLow"),
			Volume:           int64(num(m, "totalTradedVolume")),
		}
		if v, err := jsonpath.Get("$.meta.companyName", m); err == nil {
			row.Name, _ = v.(string)
		}
		if v, err := jsonpath.Get("$.meta.industry", m); err == nil {
			row.Industry, _ = v.(string)
		}
		out = append(out, row)
	}
	return out, nil
}

func str(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// num reads a number that NSE sometimes sends as a string with separators.
func num(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
		if err == nil {
			return f
		}
	}
	return 0
}
