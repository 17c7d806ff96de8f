package watchlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SnapshotVersion is the current persisted schema version.
const SnapshotVersion = 1

var errInvalidSnapshot = errors.New("invalid watchlist snapshot")

// Snapshot is the persisted form of the whole store.
type Snapshot struct {
	Version           int         `json:"version"`
	Watchlists        []Watchlist `json:"watchlists"`
	ActiveWatchlistID string      `json:"activeWatchlistId"`
}

// EncodeSnapshot serializes the snapshot as JSON with the current version.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	s.Version = SnapshotVersion
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode watchlist snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses and validates a persisted snapshot. Blobs without a
// version field are treated as version 1.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", errInvalidSnapshot, err)
	}

	if s.Version == 0 {
		s.Version = 1
	}
	if s.Version != SnapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: unsupported version %d", errInvalidSnapshot, s.Version)
	}

	if err := s.validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// validate checks the store invariants. The active pointer is not checked
// here; a dangling pointer is repaired on load rather than rejected.
func (s Snapshot) validate() error {
	if len(s.Watchlists) > MaxWatchlists {
		return fmt.Errorf("%w: %d watchlists exceeds limit", errInvalidSnapshot, len(s.Watchlists))
	}

	ids := make(map[string]bool, len(s.Watchlists))
	userCount := 0
	for _, w := range s.Watchlists {
		if w.ID == "" || ids[w.ID] {
			return fmt.Errorf("%w: missing or duplicate id %q", errInvalidSnapshot, w.ID)
		}
		ids[w.ID] = true

		if strings.TrimSpace(w.Name) == "" {
			return fmt.Errorf("%w: watchlist %s has no name", errInvalidSnapshot, w.ID)
		}
		if !w.IsDefault {
			userCount++
			if len(w.Symbols) > MaxSymbols {
				return fmt.Errorf("%w: watchlist %s has %d symbols", errInvalidSnapshot, w.ID, len(w.Symbols))
			}
		}

		seen := make(map[string]bool, len(w.Symbols))
		for _, sym := range w.Symbols {
			if sym == "" || seen[sym] {
				return fmt.Errorf("%w: watchlist %s has empty or duplicate symbol", errInvalidSnapshot, w.ID)
			}
			seen[sym] = true
		}
	}

	if userCount == 0 {
		return fmt.Errorf("%w: no user watchlist", errInvalidSnapshot)
	}
	return nil
}
