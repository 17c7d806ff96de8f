package watchlist

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/aristath/sharesathi/internal/events"
	"github.com/aristath/sharesathi/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
)

// state is an immutable view of the collection. Mutations build a new state
// and swap it in, so readers never see a half-applied change.
type state struct {
	watchlists []Watchlist // sorted by Order
	activeID   string
}

func (s *state) clone() *state {
	c := &state{
		watchlists: make([]Watchlist, len(s.watchlists)),
		activeID:   s.activeID,
	}
	for i, w := range s.watchlists {
		c.watchlists[i] = w.clone()
	}
	return c
}

func (s *state) index(id string) int {
	for i, w := range s.watchlists {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func (s *state) userCount() int {
	n := 0
	for _, w := range s.watchlists {
		if !w.IsDefault {
			n++
		}
	}
	return n
}

// firstUserID returns the first non-default watchlist by order.
func (s *state) firstUserID() string {
	for _, w := range s.watchlists {
		if !w.IsDefault {
			return w.ID
		}
	}
	return FallbackWatchlistID
}

func (s *state) renumber() {
	sort.SliceStable(s.watchlists, func(i, j int) bool {
		return s.watchlists[i].Order < s.watchlists[j].Order
	})
	for i := range s.watchlists {
		s.watchlists[i].Order = i
	}
}

// Store is the single owner of the watchlist collection and active pointer.
type Store struct {
	mu        sync.RWMutex
	state     *state
	seed      Seed
	snapshots SnapshotStore
	events    *events.Manager
	log       zerolog.Logger
	now       func() time.Time
}

// NewStore creates a store holding the default collection. Call Load to
// replace it with the persisted snapshot. eventManager may be nil.
func NewStore(seed Seed, snapshots SnapshotStore, eventManager *events.Manager, log zerolog.Logger) *Store {
	s := &Store{
		seed:      seed,
		snapshots: snapshots,
		events:    eventManager,
		log:       log.With().Str("component", "watchlist_store").Logger(),
		now:       time.Now,
	}
	s.state = s.defaultState()
	return s
}

func (s *Store) defaultState() *state {
	now := s.now()
	return &state{
		watchlists: []Watchlist{
			{
				ID:        DefaultWatchlistID,
				Name:      s.seed.Name,
				Symbols:   s.seed.Tickers(),
				IsDefault: true,
				Order:     0,
				CreatedAt: now,
				UpdatedAt: now,
			},
			{
				ID:        FallbackWatchlistID,
				Name:      "My Watchlist",
				Symbols:   []string{},
				Order:     1,
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
		activeID: FallbackWatchlistID,
	}
}

// Load reads the persisted snapshot. A missing snapshot keeps the defaults;
// an unreadable, unknown-version or invalid snapshot resets to defaults and
// logs a warning. Only storage read errors are returned.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load watchlist snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if data == nil {
		s.state = s.defaultState()
		s.log.Info().Msg("No persisted watchlists, using defaults")
		return nil
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("Discarding persisted watchlists, resetting to defaults")
		s.state = s.defaultState()
		return nil
	}

	s.state = s.fromSnapshot(snap)
	s.log.Info().
		Int("watchlists", len(s.state.watchlists)).
		Str("active", s.state.activeID).
		Msg("Loaded watchlists")
	return nil
}

// fromSnapshot rebuilds state from a validated snapshot. The default
// watchlist always carries the current seed; a dangling active pointer is
// moved to the first user watchlist.
func (s *Store) fromSnapshot(snap Snapshot) *state {
	st := &state{activeID: snap.ActiveWatchlistID}

	hasDefault := false
	for _, w := range snap.Watchlists {
		w = w.clone()
		if w.IsDefault {
			if hasDefault {
				continue
			}
			hasDefault = true
			w.ID = DefaultWatchlistID
			w.Symbols = s.seed.Tickers()
		}
		st.watchlists = append(st.watchlists, w)
	}

	if !hasDefault {
		if len(st.watchlists) >= MaxWatchlists {
			// No room to restore the default list, so start over
			return s.defaultState()
		}
		now := s.now()
		st.watchlists = append(st.watchlists, Watchlist{
			ID:        DefaultWatchlistID,
			Name:      s.seed.Name,
			Symbols:   s.seed.Tickers(),
			IsDefault: true,
			Order:     -1,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	st.renumber()
	if st.index(st.activeID) < 0 {
		st.activeID = st.firstUserID()
	}
	return st
}

// Snapshot returns the current collection in persisted form.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	st := s.state.clone()
	return Snapshot{
		Version:           SnapshotVersion,
		Watchlists:        st.watchlists,
		ActiveWatchlistID: st.activeID,
	}
}

// mutate applies fn to a copy of the state. When fn succeeds with changed
// set, the copy replaces the current state, the snapshot is persisted and a
// change event is emitted.
func (s *Store) mutate(ctx context.Context, fn func(st *state) (event *events.WatchlistChangedData, changed bool, err error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	event, changed, err := fn(next)
	if err != nil || !changed {
		return err
	}
	s.state = next

	persistErr := s.persistLocked(ctx)

	if s.events != nil && event != nil {
		event.ActiveWatchlistID = next.activeID
		event.Count = len(next.watchlists)
		s.events.Emit("watchlist", event)
	}
	return persistErr
}

// persistTimeout bounds a snapshot write. Writes ignore cancellation of the
// caller's context; a mutation that reached memory is always saved.
const persistTimeout = 10 * time.Second

func (s *Store) persistLocked(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	data, err := EncodeSnapshot(s.snapshotLocked())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode watchlists")
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := s.snapshots.Save(ctx, data); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist watchlists")
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// normalizeName applies NFC, trims, and truncates to MaxNameLength code points.
func normalizeName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}
	return name
}

// newID returns wl_<unix-millis>, bumped until it does not collide.
func (s *Store) newID(st *state) string {
	ms := s.now().UnixMilli()
	for {
		id := fmt.Sprintf("wl_%d", ms)
		if st.index(id) < 0 {
			return id
		}
		ms++
	}
}

// Create appends a new watchlist and returns its id. An empty name becomes
// "My Watchlist N". The new watchlist does not become active.
func (s *Store) Create(ctx context.Context, name string) (string, error) {
	var id string
	err := s.mutate(ctx, func(st *state) (*events.WatchlistChangedData, bool, error) {
		if len(st.watchlists) >= MaxWatchlists {
			return nil, false, ErrCapacityExceeded
		}

		name = normalizeName(name)
		if name == "" {
			name = fmt.Sprintf("My Watchlist %d", st.userCount()+1)
		}

		now := s.now()
		id = s.newID(st)
		st.watchlists = append(st.watchlists, Watchlist{
			ID:        id,
			Name:      name,
			Symbols:   []string{},
			Order:     len(st.watchlists),
			CreatedAt: now,
			UpdatedAt: now,
		})
		return &events.WatchlistChangedData{Action: events.ActionCreated, WatchlistID: id}, true, nil
	})
	if err != nil && id == "" {
		return "", err
	}
	return id, err
}

// Rename changes a user watchlist's name. Renaming to the current name is a no-op.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	return s.mutate(ctx, func(st *state) (*events.WatchlistChangedData, bool, error) {
		i := st.index(id)
		if i < 0 {
			return nil, false, ErrNotFound
		}
		if st.watchlists[i].IsDefault {
			return nil, false, ErrReadOnly
		}

		name = normalizeName(name)
		if name == "" {
			return nil, false, ErrInvalidName
		}
		if st.watchlists[i].Name == name {
			return nil, false, nil
		}

		st.watchlists[i].Name = name
		st.watchlists[i].UpdatedAt = s.now()
		return &events.WatchlistChangedData{Action: events.ActionRenamed, WatchlistID: id}, true, nil
	})
}

// Delete removes a user watchlist. The last remaining user watchlist cannot
// be deleted. If the deleted watchlist was active, the first remaining user
// watchlist becomes active.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func(st *state) (*events.WatchlistChangedData, bool, error) {
		i := st.index(id)
		if i < 0 {
			return nil, false, ErrNotFound
		}
		if st.watchlists[i].IsDefault {
			return nil, false, ErrReadOnly
		}
		if st.userCount() <= 1 {
			return nil, false, ErrLastWatchlist
		}

		st.watchlists = append(st.watchlists[:i], st.watchlists[i+1:]...)
		st.renumber()
		if st.activeID == id {
			st.activeID = st.firstUserID()
		}
		return &events.WatchlistChangedData{Action: events.ActionDeleted, WatchlistID: id}, true, nil
	})
}

// SetActive moves the active pointer. Unknown ids are rejected.
func (s *Store) SetActive(ctx context.Context, id string) error {
	return s.mutate(ctx, func(st *state) (*events.WatchlistChangedData, bool, error) {
		if st.index(id) < 0 {
			return nil, false, ErrNotFound
		}
		if st.activeID == id {
			return nil, false, nil
		}
		st.activeID = id
		return &events.WatchlistChangedData{Action: events.ActionActivated, WatchlistID: id}, true, nil
	})
}

// resolve maps "" to the active watchlist id.
func (st *state) resolve(id string) string {
	if id == "" {
		return st.activeID
	}
	return id
}

// AddStock appends symbol to the watchlist (the active one when id is "").
// Adding a symbol that is already present succeeds without a write.
func (s *Store) AddStock(ctx context.Context, symbol, id string) error {
	symbol = utils.NormalizeSymbol(symbol)
	if symbol == "" {
		return ErrInvalidSymbol
	}

	return s.mutate(ctx, func(st *state) (*events.WatchlistChangedData, bool, error) {
		target := st.resolve(id)
		i := st.index(target)
		if i < 0 {
			return nil, false, ErrNotFound
		}
		w := &st.watchlists[i]
		if w.IsDefault {
			return nil, false, ErrReadOnly
		}
		if w.contains(symbol) {
			return nil, false, nil
		}
		if len(w.Symbols) >= MaxSymbols {
			return nil, false, ErrCapacityExceeded
		}

		w.Symbols = append(w.Symbols, symbol)
		w.UpdatedAt = s.now()
		return &events.WatchlistChangedData{Action: events.ActionStockAdded, WatchlistID: target, Symbol: symbol}, true, nil
	})
}

// RemoveStock removes symbol from the watchlist (the active one when id is "").
// Removing an absent symbol succeeds without a write.
func (s *Store) RemoveStock(ctx context.Context, symbol, id string) error {
	symbol = utils.NormalizeSymbol(symbol)

	return s.mutate(ctx, func(st *state) (*events.WatchlistChangedData, bool, error) {
		target := st.resolve(id)
		i := st.index(target)
		if i < 0 {
			return nil, false, ErrNotFound
		}
		w := &st.watchlists[i]
		if w.IsDefault {
			return nil, false, ErrReadOnly
		}

		for j, sym := range w.Symbols {
			if sym == symbol {
				w.Symbols = append(w.Symbols[:j], w.Symbols[j+1:]...)
				w.UpdatedAt = s.now()
				return &events.WatchlistChangedData{Action: events.ActionStockRemoved, WatchlistID: target, Symbol: symbol}, true, nil
			}
		}
		return nil, false, nil
	})
}

// List returns copies of all watchlists sorted by order.
func (s *Store) List() []Watchlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone().watchlists
}

// Get returns a copy of one watchlist.
func (s *Store) Get(id string) (Watchlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.state.index(id)
	if i < 0 {
		return Watchlist{}, false
	}
	return s.state.watchlists[i].clone(), true
}

// ActiveID returns the active watchlist id.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.activeID
}

// Active returns a copy of the active watchlist.
func (s *Store) Active() (Watchlist, bool) {
	return s.Get(s.ActiveID())
}

// IsInWatchlist reports whether symbol is in the watchlist (the active one when id is "").
func (s *Store) IsInWatchlist(symbol, id string) bool {
	symbol = utils.NormalizeSymbol(symbol)
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.state.index(s.state.resolve(id))
	return i >= 0 && s.state.watchlists[i].contains(symbol)
}

// IsInAnyWatchlist reports whether any watchlist holds symbol.
func (s *Store) IsInAnyWatchlist(symbol string) bool {
	return len(s.WatchlistsContaining(symbol)) > 0
}

// WatchlistsContaining returns copies of the watchlists holding symbol, by order.
func (s *Store) WatchlistsContaining(symbol string) []Watchlist {
	symbol = utils.NormalizeSymbol(symbol)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Watchlist
	for _, w := range s.state.watchlists {
		if w.contains(symbol) {
			out = append(out, w.clone())
		}
	}
	return out
}

// CanCreate reports whether another watchlist fits.
func (s *Store) CanCreate() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.watchlists) < MaxWatchlists
}

// CanAddTo reports whether the watchlist accepts another symbol.
func (s *Store) CanAddTo(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.state.index(s.state.resolve(id))
	if i < 0 {
		return false
	}
	w := s.state.watchlists[i]
	return !w.IsDefault && len(w.Symbols) < MaxSymbols
}

// Symbols returns the union of all user watchlist symbols in first-seen order.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, w := range s.state.watchlists {
		if w.IsDefault {
			continue
		}
		for _, sym := range w.Symbols {
			if !seen[sym] {
				seen[sym] = true
				out = append(out, sym)
			}
		}
	}
	return out
}
