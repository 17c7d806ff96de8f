// Package market provides quotes, price history, index tables and derived
// analytics for Indian listings.
package market

import (
	"errors"
	"time"

	"github.com/aristath/sharesathi/internal/clients/bse"
	"github.com/aristath/sharesathi/internal/clients/nse"
	"github.com/aristath/sharesathi/internal/clients/yahoo"
)

var (
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrInvalidRange  = errors.New("invalid history range")
	ErrUnknownIndex  = errors.New("unknown index")
	ErrUnavailable   = errors.New("market data unavailable")
)

// Headline index tickers shown on the dashboard.
var HeadlineIndices = []string{"^NSEI", "^BSESN", "^NSEBANK"}

// Quote is a market quote as served to clients. Stale is set when the value
// came from an expired cache entry because the upstream failed.
type Quote struct {
	yahoo.Quote
	FiftyTwoWeekPosition *float64 `json:"fiftyTwoWeekPosition,omitempty"`
	Stale                bool     `json:"stale"`
}

// PricePoint is one close of a price history.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// BatchQuotes is the result of a multi-symbol lookup. Quotes keep the order
// of the request; symbols that could not be resolved are listed in Failed.
type BatchQuotes struct {
	Quotes []Quote   `json:"quotes"`
	Failed []string  `json:"failed"`
	AsOf   time.Time `json:"asOf"`
}

// IndexTable is a constituents table for one index.
type IndexTable struct {
	Index     string            `json:"index" msgpack:"index"`
	Rows      []nse.Constituent `json:"rows" msgpack:"rows"`
	Source    string            `json:"source" msgpack:"source"`
	Stale     bool              `json:"stale" msgpack:"-"`
	UpdatedAt time.Time         `json:"updatedAt" msgpack:"updated_at"`
}

// Table sources.
const (
	SourceNSE  = "nse"
	SourceSeed = "seed"
)

// Movers holds the best and worst performers of an index table.
type Movers struct {
	Index   string            `json:"index"`
	Gainers []nse.Constituent `json:"gainers"`
	Losers  []nse.Constituent `json:"losers"`
}

// Instrument is a searchable listing.
type Instrument struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Technicals are indicators derived from one year of daily closes.
// Pointer fields are nil when there is not enough history.
type Technicals struct {
	Symbol               string    `json:"symbol"`
	LastClose            float64   `json:"lastClose"`
	SMA20                *float64  `json:"sma20"`
	SMA50                *float64  `json:"sma50"`
	RSI14                *float64  `json:"rsi14"`
	RSIZone              string    `json:"rsiZone,omitempty"`
	Volatility           float64   `json:"annualizedVolatility"`
	MaxDrawdown          float64   `json:"maxDrawdown"`
	FiftyTwoWeekHigh     float64   `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      float64   `json:"fiftyTwoWeekLow"`
	FiftyTwoWeekPosition *float64  `json:"fiftyTwoWeekPosition"`
	Observations         int       `json:"observations"`
	AsOf                 time.Time `json:"asOf"`
}

// Bhavcopy is one day's BSE equity bhavcopy.
type Bhavcopy struct {
	Date time.Time `json:"date" msgpack:"date"`
	Rows []bse.Row `json:"rows" msgpack:"rows"`
}
