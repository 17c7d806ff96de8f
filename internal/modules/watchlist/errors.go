package watchlist

import "errors"

// Constraint violations. State is unchanged when any of these is returned.
var (
	ErrCapacityExceeded = errors.New("watchlist capacity exceeded")
	ErrReadOnly         = errors.New("default watchlist is read-only")
	ErrNotFound         = errors.New("watchlist not found")
	ErrInvalidName      = errors.New("watchlist name must not be empty")
	ErrInvalidSymbol    = errors.New("symbol must not be empty")
	ErrLastWatchlist    = errors.New("cannot delete the last watchlist")
)

// ErrPersist wraps snapshot write failures. The in-memory mutation is kept.
var ErrPersist = errors.New("failed to persist watchlists")
