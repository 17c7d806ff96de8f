package scheduler

import (
	"context"
	"errors"
)

// ErrUnknownJob is returned by RunNow for a name that was never registered
var ErrUnknownJob = errors.New("unknown job")

// SymbolSource lists the symbols worth keeping warm, satisfied by watchlist.Store
type SymbolSource interface {
	Symbols() []string
}

// QuoteRefresher refetches quotes into the cache, satisfied by market.Service
type QuoteRefresher interface {
	RefreshQuotes(ctx context.Context, symbols []string) (int, error)
}

// WALChecker reports WAL checkpoint progress, satisfied by *database.DB
type WALChecker interface {
	WALStatus() (busy, frames, checkpointed int, err error)
}
