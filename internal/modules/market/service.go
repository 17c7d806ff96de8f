package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aristath/sharesathi/internal/clientdata"
	"github.com/aristath/sharesathi/internal/clients/bse"
	"github.com/aristath/sharesathi/internal/clients/nse"
	"github.com/aristath/sharesathi/internal/clients/yahoo"
	"github.com/aristath/sharesathi/internal/events"
	"github.com/aristath/sharesathi/internal/utils"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// maxConcurrentLookups bounds upstream fan-out for batch requests.
const maxConcurrentLookups = 8

// maxBhavcopyLookback is how many trading days Bhavcopy steps back over
// holidays before giving up.
const maxBhavcopyLookback = 5

// QuoteSource provides quotes and price history (Yahoo Finance in production).
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*yahoo.Quote, error)
	History(ctx context.Context, symbol, rng string) ([]yahoo.Bar, error)
}

// ConstituentSource provides index constituent tables (NSE in production).
type ConstituentSource interface {
	IndexConstituents(ctx context.Context, index string) ([]nse.Constituent, error)
}

// BhavcopySource provides daily exchange bhavcopies (BSE in production).
type BhavcopySource interface {
	Bhavcopy(ctx context.Context, date time.Time) ([]bse.Row, error)
}

type memEntry struct {
	quote   yahoo.Quote
	expires time.Time
}

// Service serves market data with a two-level cache: an in-memory TTL map in
// front of the persistent clientdata cache, which also supplies stale values
// when an upstream fails.
type Service struct {
	quotes  QuoteSource
	index   ConstituentSource
	bhav    BhavcopySource
	cache   clientdata.Cache
	events  *events.Manager
	ttl     time.Duration
	log     zerolog.Logger
	now     func() time.Time
	seed    []Instrument
	seedIdx string

	mu  sync.Mutex
	mem map[string]memEntry

	knownMu sync.RWMutex
	known   map[string]Instrument
}

// Config holds the Service dependencies. Cache and Events may be nil.
type Config struct {
	Quotes       QuoteSource
	Constituents ConstituentSource
	Bhavcopy     BhavcopySource
	Cache        clientdata.Cache
	Events       *events.Manager
	QuoteTTL     time.Duration
	// SeedIndex names the index whose table falls back to Seed when NSE is down.
	SeedIndex string
	Seed      []Instrument
}

// NewService creates a market data service.
func NewService(cfg Config, log zerolog.Logger) *Service {
	ttl := cfg.QuoteTTL
	if ttl <= 0 {
		ttl = clientdata.TTLQuote
	}

	s := &Service{
		quotes:  cfg.Quotes,
		index:   cfg.Constituents,
		bhav:    cfg.Bhavcopy,
		cache:   cfg.Cache,
		events:  cfg.Events,
		ttl:     ttl,
		log:     log.With().Str("service", "market").Logger(),
		now:     time.Now,
		seed:    cfg.Seed,
		seedIdx: cfg.SeedIndex,
		mem:     make(map[string]memEntry),
		known:   make(map[string]Instrument),
	}
	for _, in := range cfg.Seed {
		s.remember(in)
	}
	return s
}

// Quote returns the quote for symbol. Fresh values come from memory, then the
// persistent cache, then upstream. An expired cache entry is served with
// Stale set when upstream fails.
func (s *Service) Quote(ctx context.Context, symbol string) (*Quote, error) {
	key := utils.YahooSymbol(symbol)
	if key == "" {
		return nil, ErrInvalidSymbol
	}

	if q, ok := s.memGet(key); ok {
		return s.present(q, false), nil
	}

	var cached yahoo.Quote
	if s.cache != nil {
		if ok, err := s.cache.GetIfFresh(clientdata.TableQuotes, key, &cached); err == nil && ok {
			s.memPut(key, cached)
			return s.present(cached, false), nil
		}
	}

	q, err := s.fetchQuote(ctx, key)
	if err == nil {
		return s.present(*q, false), nil
	}

	if s.cache != nil {
		if ok, cerr := s.cache.Get(clientdata.TableQuotes, key, &cached); cerr == nil && ok {
			s.log.Warn().Err(err).Str("symbol", key).Msg("Quote fetch failed, using stale cached quote")
			return s.present(cached, true), nil
		}
	}
	return nil, fmt.Errorf("%w: quote %s: %v", ErrUnavailable, key, err)
}

func (s *Service) fetchQuote(ctx context.Context, key string) (*yahoo.Quote, error) {
	q, err := s.quotes.Quote(ctx, key)
	if err != nil {
		return nil, err
	}

	s.memPut(key, *q)
	if s.cache != nil {
		if err := s.cache.Store(clientdata.TableQuotes, key, q, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("symbol", key).Msg("Failed to cache quote")
		}
	}
	return q, nil
}

func (s *Service) present(q yahoo.Quote, stale bool) *Quote {
	out := &Quote{Quote: q, Stale: stale}
	if pos, ok := utils.FiftyTwoWeekPosition(q.Price, q.FiftyTwoWeekLow, q.FiftyTwoWeekHigh); ok {
		out.FiftyTwoWeekPosition = &pos
	}
	return out
}

func (s *Service) memGet(key string) (yahoo.Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.mem[key]
	if !ok {
		return yahoo.Quote{}, false
	}
	if !s.now().Before(e.expires) {
		delete(s.mem, key)
		return yahoo.Quote{}, false
	}
	return e.quote, true
}

// sweepMem drops expired entries for symbols nobody asks about any more.
func (s *Service) sweepMem() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.mem {
		if !now.Before(e.expires) {
			delete(s.mem, key)
			removed++
		}
	}
	return removed
}

func (s *Service) memPut(key string, q yahoo.Quote) {
	s.mu.Lock()
	s.mem[key] = memEntry{quote: q, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
}

// Quotes resolves many symbols concurrently. Each lookup fails independently.
func (s *Service) Quotes(ctx context.Context, symbols []string) BatchQuotes {
	symbols = uniqueSymbols(symbols)
	results := make([]*Quote, len(symbols))

	p := pool.New().WithMaxGoroutines(maxConcurrentLookups)
	for i, sym := range symbols {
		p.Go(func() {
			q, err := s.Quote(ctx, sym)
			if err != nil {
				s.log.Debug().Err(err).Str("symbol", sym).Msg("Quote lookup failed")
				return
			}
			results[i] = q
		})
	}
	p.Wait()

	out := BatchQuotes{Quotes: []Quote{}, Failed: []string{}, AsOf: s.now()}
	for i, q := range results {
		if q == nil {
			out.Failed = append(out.Failed, symbols[i])
			continue
		}
		out.Quotes = append(out.Quotes, *q)
	}
	return out
}

// RefreshQuotes fetches every symbol from upstream, bypassing fresh cache
// entries, and reports how many succeeded.
func (s *Service) RefreshQuotes(ctx context.Context, symbols []string) (refreshed int, err error) {
	if n := s.sweepMem(); n > 0 {
		s.log.Debug().Int("evicted", n).Msg("Evicted expired in-memory quotes")
	}

	symbols = uniqueSymbols(symbols)
	if len(symbols) == 0 {
		return 0, nil
	}

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(maxConcurrentLookups)
	for _, sym := range symbols {
		p.Go(func() {
			if _, err := s.fetchQuote(ctx, utils.YahooSymbol(sym)); err != nil {
				s.log.Debug().Err(err).Str("symbol", sym).Msg("Quote refresh failed")
				return
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
		})
	}
	p.Wait()

	failed := len(symbols) - refreshed
	s.log.Info().Int("requested", len(symbols)).Int("refreshed", refreshed).Int("failed", failed).Msg("Quotes refreshed")
	if s.events != nil {
		s.events.Emit("market", &events.QuotesRefreshedData{
			Requested: len(symbols),
			Refreshed: refreshed,
			Failed:    failed,
		})
	}

	if refreshed == 0 {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: no quotes refreshed", ErrUnavailable)
	}
	return refreshed, nil
}

// History returns closes for symbol over rng, oldest first.
func (s *Service) History(ctx context.Context, symbol, rng string) ([]PricePoint, error) {
	key := utils.YahooSymbol(symbol)
	if key == "" {
		return nil, ErrInvalidSymbol
	}
	if !yahoo.ValidRanges[rng] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, rng)
	}

	cacheKey := key + "|" + rng
	var bars []yahoo.Bar
	if s.cache != nil {
		if ok, err := s.cache.GetIfFresh(clientdata.TablePriceHistory, cacheKey, &bars); err == nil && ok {
			return toPoints(bars), nil
		}
	}

	bars, err := s.quotes.History(ctx, key, rng)
	if err != nil {
		if s.cache != nil {
			var stale []yahoo.Bar
			if ok, cerr := s.cache.Get(clientdata.TablePriceHistory, cacheKey, &stale); cerr == nil && ok {
				s.log.Warn().Err(err).Str("symbol", key).Str("range", rng).Msg("History fetch failed, using stale cache")
				return toPoints(stale), nil
			}
		}
		return nil, fmt.Errorf("%w: history %s: %v", ErrUnavailable, key, err)
	}

	if s.cache != nil {
		if err := s.cache.Store(clientdata.TablePriceHistory, cacheKey, bars, clientdata.TTLPriceHistory); err != nil {
			s.log.Warn().Err(err).Str("symbol", key).Msg("Failed to cache history")
		}
	}
	return toPoints(bars), nil
}

func toPoints(bars []yahoo.Bar) []PricePoint {
	points := make([]PricePoint, 0, len(bars))
	for _, b := range bars {
		points = append(points, PricePoint{Date: b.Time, Close: b.Close})
	}
	return points
}

// IndexTable returns the constituents of index with prices. NSE rows missing
// a price are filled from Yahoo quotes. When NSE is unreachable the last
// cached table is served, and for the seed index the seed list is priced
// from Yahoo as a last resort.
func (s *Service) IndexTable(ctx context.Context, index string) (*IndexTable, error) {
	index, ok := canonicalIndex(index)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndex, index)
	}

	var table IndexTable
	if s.cache != nil {
		if ok, err := s.cache.GetIfFresh(clientdata.TableIndexConstituents, index, &table); err == nil && ok {
			s.rememberRows(table.Rows)
			return &table, nil
		}
	}

	rows, err := s.index.IndexConstituents(ctx, index)
	if err == nil && len(rows) > 0 {
		rows = MergeRows(rows, s.quoteRows(ctx, missingPrices(rows)))
		table = IndexTable{Index: index, Rows: rows, Source: SourceNSE, UpdatedAt: s.now()}
		if s.cache != nil {
			if err := s.cache.Store(clientdata.TableIndexConstituents, index, table, clientdata.TTLIndexConstituents); err != nil {
				s.log.Warn().Err(err).Str("index", index).Msg("Failed to cache index table")
			}
		}
		s.rememberRows(rows)
		return &table, nil
	}
	if err == nil {
		err = errors.New("empty constituents table")
	}

	if s.cache != nil {
		if ok, cerr := s.cache.Get(clientdata.TableIndexConstituents, index, &table); cerr == nil && ok {
			s.log.Warn().Err(err).Str("index", index).Msg("Index fetch failed, using stale table")
			table.Stale = true
			s.rememberRows(table.Rows)
			return &table, nil
		}
	}

	if index == s.seedIdx && len(s.seed) > 0 {
		s.log.Warn().Err(err).Str("index", index).Msg("Index fetch failed, pricing seed list")
		seedRows := make([]nse.Constituent, len(s.seed))
		for i, in := range s.seed {
			seedRows[i] = nse.Constituent{Symbol: in.Symbol, Name: in.Name}
		}
		return &IndexTable{
			Index:     index,
			Rows:      MergeRows(seedRows, s.quoteRows(ctx, s.seedSymbols())),
			Source:    SourceSeed,
			Stale:     true,
			UpdatedAt: s.now(),
		}, nil
	}

	return nil, fmt.Errorf("%w: index %s: %v", ErrUnavailable, index, err)
}

// quoteRows prices symbols from the quote source as table rows.
func (s *Service) quoteRows(ctx context.Context, symbols []string) []nse.Constituent {
	if len(symbols) == 0 {
		return nil
	}

	batch := s.Quotes(ctx, symbols)
	rows := make([]nse.Constituent, 0, len(batch.Quotes))
	for _, q := range batch.Quotes {
		rows = append(rows, nse.Constituent{
			Symbol:           utils.DisplaySymbol(q.Symbol),
			Name:             q.Name,
			Price:            q.Price,
			Change:           q.Change,
			ChangePercent:    q.ChangePercent,
			DayHigh:          q.DayHigh,
			DayLow:           q.DayLow,
			PreviousClose:    q.PreviousClose,
			FiftyTwoWeekHigh: q.FiftyTwoWeekHigh,
			FiftyTwoWeekLow:  q.FiftyTwoWeekLow,
			Volume:           q.Volume,
		})
	}
	return rows
}

func (s *Service) seedSymbols() []string {
	out := make([]string, len(s.seed))
	for i, in := range s.seed {
		out[i] = in.Symbol
	}
	return out
}

func missingPrices(rows []nse.Constituent) []string {
	var out []string
	for _, r := range rows {
		if r.Price <= 0 {
			out = append(out, r.Symbol)
		}
	}
	return out
}

// Movers returns the top n gainers and losers of index.
func (s *Service) Movers(ctx context.Context, index string, n int) (*Movers, error) {
	table, err := s.IndexTable(ctx, index)
	if err != nil {
		return nil, err
	}
	gainers, losers := TopMovers(table.Rows, n)
	return &Movers{Index: table.Index, Gainers: gainers, Losers: losers}, nil
}

// Headlines returns quotes for the headline indices.
func (s *Service) Headlines(ctx context.Context) BatchQuotes {
	return s.Quotes(ctx, HeadlineIndices)
}

// Bhavcopy returns the BSE equity bhavcopy for date, or for the latest
// trading day when date is zero. Days without a published file are skipped
// going backwards.
func (s *Service) Bhavcopy(ctx context.Context, date time.Time) (*Bhavcopy, error) {
	if date.IsZero() {
		date = s.now()
	}
	day := bse.LatestTradingDay(date)

	var lastErr error
	for i := 0; i < maxBhavcopyLookback; i++ {
		key := day.Format("2006-01-02")

		var cached Bhavcopy
		if s.cache != nil {
			if ok, err := s.cache.GetIfFresh(clientdata.TableBhavcopy, key, &cached); err == nil && ok {
				return &cached, nil
			}
		}

		rows, err := s.bhav.Bhavcopy(ctx, day)
		if err == nil {
			out := &Bhavcopy{Date: day, Rows: rows}
			if s.cache != nil {
				if err := s.cache.Store(clientdata.TableBhavcopy, key, out, clientdata.TTLBhavcopy); err != nil {
					s.log.Warn().Err(err).Str("date", key).Msg("Failed to cache bhavcopy")
				}
			}
			return out, nil
		}
		if !errors.Is(err, bse.ErrNotPublished) {
			return nil, fmt.Errorf("%w: bhavcopy %s: %v", ErrUnavailable, key, err)
		}

		lastErr = err
		day = bse.LatestTradingDay(day.AddDate(0, 0, -1))
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func canonicalIndex(index string) (string, bool) {
	want := strings.ToUpper(strings.Join(strings.Fields(index), " "))
	for _, name := range nse.Indices {
		if name == want {
			return name, true
		}
	}
	return want, false
}

func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = utils.NormalizeSymbol(sym)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}
