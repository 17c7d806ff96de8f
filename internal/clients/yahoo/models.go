package yahoo

import "time"

// Quote is a snapshot of a symbol's trading state taken from chart metadata.
type Quote struct {
	Symbol           string    `json:"symbol" msgpack:"symbol"`
	Name             string    `json:"name" msgpack:"name"`
	Exchange         string    `json:"exchange" msgpack:"exchange"`
	Currency         string    `json:"currency" msgpack:"currency"`
	Price            float64   `json:"price" msgpack:"price"`
	PreviousClose    float64   `json:"previousClose" msgpack:"previous_close"`
	Change           float64   `json:"change" msgpack:"change"`
	ChangePercent    float64   `json:"changePercent" msgpack:"change_percent"`
	DayHigh          float64   `json:"dayHigh" msgpack:"day_high"`
	DayLow           float64   `json:"dayLow" msgpack:"day_low"`
	FiftyTwoWeekHigh float64   `json:"fiftyTwoWeekHigh" msgpack:"fifty_two_week_high"`
	FiftyTwoWeekLow  float64   `json:"fiftyTwoWeekLow" msgpack:"fifty_two_week_low"`
	Volume           int64     `json:"volume" msgpack:"volume"`
	MarketTime       time.Time `json:"marketTime" msgpack:"market_time"`
}

// Bar is one chart observation. Missing closes are dropped before a Bar is built.
type Bar struct {
	Time   time.Time `json:"time" msgpack:"time"`
	Open   float64   `json:"open" msgpack:"open"`
	High   float64   `json:"high" msgpack:"high"`
	Low    float64   `json:"low" msgpack:"low"`
	Close  float64   `json:"close" msgpack:"close"`
	Volume int64     `json:"volume" msgpack:"volume"`
}

// chartResponse mirrors the v8 chart payload. Pointer slices keep JSON nulls
// distinguishable from zero.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta       chartMeta `json:"meta"`
			Timestamp  []int64   `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartMeta struct {
	Symbol               string  `json:"symbol"`
	Currency             string  `json:"currency"`
	ExchangeName         string  `json:"exchangeName"`
	FullExchangeName     string  `json:"fullExchangeName"`
	LongName             string  `json:"longName"`
	ShortName            string  `json:"shortName"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
	RegularMarketTime    int64   `json:"regularMarketTime"`
	ChartPreviousClose   float64 `json:"chartPreviousClose"`
	PreviousClose        float64 `json:"previousClose"`
	RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
	RegularMarketVolume  int64   `json:"regularMarketVolume"`
	FiftyTwoWeekHigh     float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      float64 `json:"fiftyTwoWeekLow"`
}
