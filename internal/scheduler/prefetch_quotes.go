package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PrefetchWatchlistQuotesJob keeps quotes for watchlist symbols warm in the
// cache while the market is open
type PrefetchWatchlistQuotesJob struct {
	symbols   SymbolSource
	refresher QuoteRefresher
	hours     *MarketHours
	extra     []string
	timeout   time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewPrefetchWatchlistQuotesJob creates the prefetch job. extra symbols
// (headline indices) are refreshed alongside the watchlists.
func NewPrefetchWatchlistQuotesJob(symbols SymbolSource, refresher QuoteRefresher, hours *MarketHours, extra []string, log zerolog.Logger) *PrefetchWatchlistQuotesJob {
	return &PrefetchWatchlistQuotesJob{
		symbols:   symbols,
		refresher: refresher,
		hours:     hours,
		extra:     extra,
		timeout:   90 * time.Second,
		now:       time.Now,
		log:       log.With().Str("job", "prefetch_watchlist_quotes").Logger(),
	}
}

// Name returns the job name
func (j *PrefetchWatchlistQuotesJob) Name() string {
	return "prefetch_watchlist_quotes"
}

// Run refreshes quotes. It does nothing outside trading hours or when no
// watchlist holds a symbol.
func (j *PrefetchWatchlistQuotesJob) Run() error {
	if j.hours != nil && !j.hours.IsOpen(j.now()) {
		j.log.Debug().Msg("Market closed, skipping prefetch")
		return nil
	}

	symbols := j.symbols.Symbols()
	if len(symbols) == 0 {
		return nil
	}
	symbols = append(symbols, j.extra...)

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.refresher.RefreshQuotes(ctx, symbols)
	return err
}
