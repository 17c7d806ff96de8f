// Package watchlist owns the user's named stock collections: capacity-limited
// CRUD, the active-watchlist pointer, and snapshot persistence.
package watchlist

import "time"

// Capacity limits.
const (
	MaxWatchlists = 10
	MaxSymbols    = 50
	MaxNameLength = 30 // Unicode code points after NFC normalization
)

// Well-known identifiers.
const (
	DefaultWatchlistID  = "default"
	FallbackWatchlistID = "my-watchlist"
	SnapshotKey         = "sharesathi-watchlists"
)

// Watchlist is a named, ordered collection of ticker symbols.
type Watchlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Symbols   []string  `json:"symbols"`
	IsDefault bool      `json:"isDefault"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (w Watchlist) clone() Watchlist {
	c := w
	c.Symbols = append([]string(nil), w.Symbols...)
	if c.Symbols == nil {
		c.Symbols = []string{}
	}
	return c
}

func (w Watchlist) contains(symbol string) bool {
	for _, s := range w.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
