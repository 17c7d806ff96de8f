// Package bse downloads and parses the BSE equity bhavcopy (end-of-day
// price file).
package bse

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/sharesathi/internal/clients/fetch"
	"github.com/rs/zerolog"
)

// DefaultBaseURL hosts the UDiFF bhavcopy files.
const DefaultBaseURL = "https://www.bseindia.com/download/BhavCopy/Equity/"

// ErrNotPublished is returned when no file exists for the date (holidays,
// weekends, or before the evening upload).
var ErrNotPublished = errors.New("bhavcopy not published for date")

// Row is one equity line of the bhavcopy.
type Row struct {
	Symbol        string  `json:"symbol" msgpack:"symbol"`
	Name          string  `json:"name" msgpack:"name"`
	ISIN          string  `json:"isin" msgpack:"isin"`
	Series        string  `json:"series" msgpack:"series"`
	Open          float64 `json:"open" msgpack:"open"`
	High          float64 `json:"high" msgpack:"high"`
	Low           float64 `json:"low" msgpack:"low"`
	Close         float64 `json:"close" msgpack:"close"`
	Last          float64 `json:"last" msgpack:"last"`
	PreviousClose float64 `json:"previousClose" msgpack:"previous_close"`
	ChangePercent float64 `json:"changePercent" msgpack:"change_percent"`
	Volume        int64   `json:"volume" msgpack:"volume"`
	Turnover      float64 `json:"turnover" msgpack:"turnover"`
	Trades        int64   `json:"trades" msgpack:"trades"`
}

// Client for BSE bhavcopy downloads
type Client struct {
	baseURL string
	fetch   *fetch.Client
	log     zerolog.Logger
}

// NewClient creates a new bhavcopy client
func NewClient(f *fetch.Client, log zerolog.Logger) *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		fetch:   f,
		log:     log.With().Str("client", "bse").Logger(),
	}
}

// WithBaseURL points the client at another host, used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// FileName returns the bhavcopy file name for date.
func FileName(date time.Time) string {
	return fmt.Sprintf("BhavCopy_BSE_CM_0_0_0_%s_F_0000.CSV", date.Format("20060102"))
}

// Bhavcopy downloads and parses the equity bhavcopy for date.
func (c *Client) Bhavcopy(ctx context.Context, date time.Time) ([]Row, error) {
	body, err := c.fetch.Get(ctx, c.baseURL+FileName(date), map[string]string{
		"Accept":  "text/csv,*/*",
		"Referer": "https://www.bseindia.com/",
	})
	if err != nil {
		if fetch.IsStatus(err, 404) {
			return nil, fmt.Errorf("%s: %w", date.Format("2006-01-02"), ErrNotPublished)
		}
		return nil, fmt.Errorf("failed to download bhavcopy: %w", err)
	}

	rows, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.log.Debug().Str("date", date.Format("2006-01-02")).Int("rows", len(rows)).Msg("Fetched bhavcopy")
	return rows, nil
}

// Parse reads a UDiFF bhavcopy CSV, keeping cash-market equity rows. Columns
// are located by header name so reordering upstream does not break parsing.
func Parse(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read bhavcopy header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{"TckrSymb", "ClsPric"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("bhavcopy missing column %s", required)
		}
	}

	get := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	float := func(rec []string, name string) float64 {
		f, _ := strconv.ParseFloat(get(rec, name), 64)
		return f
	}
	integer := func(rec []string, name string) int64 {
		n, err := strconv.ParseInt(get(rec, name), 10, 64)
		if err != nil {
			return int64(float(rec, name))
		}
		return n
	}

	var rows []Row
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read bhavcopy row: %w", err)
		}

		if seg := get(rec, "Sgmt"); seg != "" && seg != "CM" {
			continue
		}
		if tp := get(rec, "FinInstrmTp"); tp != "" && tp != "STK" {
			continue
		}
		symbol := strings.ToUpper(get(rec, "TckrSymb"))
		if symbol == "" {
			continue
		}

		row := Row{
			Symbol:        symbol,
			Name:          get(rec, "FinInstrmNm"),
			ISIN:          get(rec, "ISIN"),
			Series:        get(rec, "SctySrs"),
			Open:          float(rec, "OpnPric"),
			High:          float(rec, "HghPric"),
			Low:           float(rec, "LwPric"),
			Close:         float(rec, "ClsPric"),
			Last:          float(rec, "LastPric"),
			PreviousClose: float(rec, "PrvsClsgPric"),
			Volume:        integer(rec, "TtlTradgVol"),
			Turnover:      float(rec, "TtlTrfVal"),
			Trades:        integer(rec, "TtlNbOfTxsExctd"),
		}
		if row.PreviousClose > 0 {
			row.ChangePercent = (row.Close - row.PreviousClose) / row.PreviousClose * 100
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LatestTradingDay returns the most recent weekday on or before t, in IST.
// Exchange holidays are not known here; callers step back on ErrNotPublished.
func LatestTradingDay(t time.Time) time.Time {
	ist := t.In(IST)
	d := time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IST)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// IST is India Standard Time.
var IST = time.FixedZone("IST", 5*3600+1800)
