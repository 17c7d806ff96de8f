// Package yahoo fetches quotes and price history from the Yahoo Finance v8
// chart API.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aristath/sharesathi/internal/clients/fetch"
	"github.com/aristath/sharesathi/internal/utils"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the chart API root.
const DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// ErrNoData is returned when the payload carries no usable observations.
var ErrNoData = errors.New("no data returned")

// ValidRanges are the ranges accepted by History.
var ValidRanges = map[string]bool{
	"1mo": true, "3mo": true, "6mo": true, "1y": true,
	"2y": true, "5y": true, "10y": true, "max": true,
}

// IntervalFor picks the bar size for a range: daily up to two years,
// weekly for five, monthly beyond.
func IntervalFor(rng string) string {
	switch rng {
	case "5y":
		return "1wk"
	case "10y", "max":
		return "1mo"
	default:
		return "1d"
	}
}

// Client is a Yahoo Finance API client
type Client struct {
	baseURL string
	fetch   *fetch.Client
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(f *fetch.Client, log zerolog.Logger) *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		fetch:   f,
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// WithBaseURL points the client at another host, used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// Quote returns the latest quote for symbol. NSE symbols without a suffix get ".NS".
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	meta, _, err := c.chart(ctx, symbol, "5d", "1d")
	if err != nil {
		return nil, err
	}
	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}

	prev := meta.PreviousClose
	if prev <= 0 {
		prev = meta.ChartPreviousClose
	}

	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	exchange := meta.FullExchangeName
	if exchange == "" {
		exchange = meta.ExchangeName
	}

	q := &Quote{
		Symbol:           utils.DisplaySymbol(meta.Symbol),
		Name:             name,
		Exchange:         exchange,
		Currency:         meta.Currency,
		Price:            meta.RegularMarketPrice,
		PreviousClose:    prev,
		DayHigh:          meta.RegularMarketDayHigh,
		DayLow:           meta.RegularMarketDayLow,
		FiftyTwoWeekHigh: meta.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  meta.FiftyTwoWeekLow,
		Volume:           meta.RegularMarketVolume,
	}
	if q.Symbol == "" {
		q.Symbol = utils.NormalizeSymbol(symbol)
	}
	if meta.RegularMarketTime > 0 {
		q.MarketTime = time.Unix(meta.RegularMarketTime, 0).UTC()
	}
	if prev > 0 {
		q.Change = q.Price - prev
		q.ChangePercent = utils.PercentChange(prev, q.Price)
	}

	c.log.Debug().Str("symbol", q.Symbol).Float64("price", q.Price).Msg("Fetched quote")
	return q, nil
}

// History returns the bars for rng with the interval chosen by IntervalFor.
// Observations with a null close are skipped.
func (c *Client) History(ctx context.Context, symbol, rng string) ([]Bar, error) {
	if !ValidRanges[rng] {
		return nil, fmt.Errorf("unsupported range %q", rng)
	}

	_, bars, err := c.chart(ctx, symbol, rng, IntervalFor(rng))
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s %s: %w", symbol, rng, ErrNoData)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("range", rng).
		Int("count", len(bars)).
		Msg("Fetched historical prices")
	return bars, nil
}

func (c *Client) chart(ctx context.Context, symbol, rng, interval string) (chartMeta, []Bar, error) {
	params := url.Values{}
	params.Set("range", rng)
	params.Set("interval", interval)
	params.Set("includePrePost", "false")
	reqURL := c.baseURL + url.PathEscape(utils.YahooSymbol(symbol)) + "?" + params.Encode()

	var resp chartResponse
	if err := c.fetch.GetJSON(ctx, reqURL, nil, &resp); err != nil {
		return chartMeta{}, nil, fmt.Errorf("failed to fetch chart for %s: %w", symbol, err)
	}

	if resp.Chart.Error != nil {
		return chartMeta{}, nil, fmt.Errorf("yahoo chart error for %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return chartMeta{}, nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return result.Meta, nil, nil
	}
	q := result.Indicators.Quote[0]

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		cl := at(q.Close, i)
		if cl == nil {
			continue
		}
		bar := Bar{Time: time.Unix(ts, 0).UTC(), Close: *cl}
		if v := at(q.Open, i); v != nil {
			bar.Open = *v
		}
		if v := at(q.High, i); v != nil {
			bar.High = *v
		}
		if v := at(q.Low, i); v != nil {
			bar.Low = *v
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	return result.Meta, bars, nil
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}
