package watchlist

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aristath/sharesathi/internal/events"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSnapshotStore is a mock implementation of SnapshotStore
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) Load(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockSnapshotStore) Save(ctx context.Context, data []byte) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func testSeed(t *testing.T) Seed {
	t.Helper()
	seed, err := DefaultSeed()
	require.NoError(t, err)
	return seed
}

func newTestStore(t *testing.T, snapshots SnapshotStore) (*Store, *events.Subscription) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus()
	sub := bus.Subscribe(256, events.WatchlistChanged)

	store := NewStore(testSeed(t), snapshots, events.NewManager(bus, log), log)
	clock := &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	store.now = clock.Now
	store.state = store.defaultState()
	return store, sub
}

func newMemStore(t *testing.T) (*Store, *FileSnapshotStore) {
	files := NewFileSnapshotStore(afero.NewMemMapFs(), "/data/watchlists.json")
	store, _ := newTestStore(t, files)
	return store, files
}

func symbolsOf(t *testing.T, s *Store, id string) []string {
	t.Helper()
	w, ok := s.Get(id)
	require.True(t, ok)
	return w.Symbols
}

func TestNewStore_Defaults(t *testing.T) {
	store, _ := newMemStore(t)

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, DefaultWatchlistID, list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.Equal(t, "NIFTY 50", list[0].Name)
	assert.Len(t, list[0].Symbols, 50)
	assert.Equal(t, FallbackWatchlistID, list[1].ID)
	assert.Equal(t, FallbackWatchlistID, store.ActiveID())
}

func TestCreate_CapacityLimit(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()

	created := 0
	for store.CanCreate() {
		_, err := store.Create(ctx, fmt.Sprintf("List %d", created))
		require.NoError(t, err)
		created++
	}
	assert.Equal(t, MaxWatchlists-2, created)
	assert.Len(t, store.List(), MaxWatchlists)

	before := store.List()
	id, err := store.Create(ctx, "One too many")
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Empty(t, id)
	assert.Equal(t, before, store.List())
}

func TestCreate_NamesAndIDs(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()

	id1, err := store.Create(ctx, "   ")
	require.NoError(t, err)
	w1, _ := store.Get(id1)
	assert.Equal(t, "My Watchlist 2", w1.Name)
	assert.Equal(t, 2, w1.Order)
	assert.Regexp(t, `^wl_\d+$`, id1)

	id2, err := store.Create(ctx, "  Long term picks for the next decade and beyond  ")
	require.NoError(t, err)
	w2, _ := store.Get(id2)
	assert.Equal(t, "Long term picks for the next d", w2.Name)
	assert.NotEqual(t, id1, id2)

	// Decomposed é is normalized to the composed form
	id3, err := store.Create(ctx, "Café")
	require.NoError(t, err)
	w3, _ := store.Get(id3)
	assert.Equal(t, "Café", w3.Name)

	// New watchlists do not steal the active pointer
	assert.Equal(t, FallbackWatchlistID, store.ActiveID())
}

func TestNewID_BumpsOnCollision(t *testing.T) {
	store, _ := newMemStore(t)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	id1, err := store.Create(context.Background(), "a")
	require.NoError(t, err)
	id2, err := store.Create(context.Background(), "b")
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("wl_%d", fixed.UnixMilli()), id1)
	assert.Equal(t, fmt.Sprintf("wl_%d", fixed.UnixMilli()+1), id2)
}

func TestRename(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()

	require.NoError(t, store.Rename(ctx, FallbackWatchlistID, "  Banks "))
	w, _ := store.Get(FallbackWatchlistID)
	assert.Equal(t, "Banks", w.Name)

	assert.ErrorIs(t, store.Rename(ctx, FallbackWatchlistID, "   "), ErrInvalidName)
	w, _ = store.Get(FallbackWatchlistID)
	assert.Equal(t, "Banks", w.Name)

	assert.ErrorIs(t, store.Rename(ctx, DefaultWatchlistID, "Mine now"), ErrReadOnly)
	assert.ErrorIs(t, store.Rename(ctx, "wl_missing", "x"), ErrNotFound)
}

func TestAddStock_Idempotent(t *testing.T) {
	store, sub := newTestStore(t, NewFileSnapshotStore(afero.NewMemMapFs(), "/w.json"))
	ctx := context.Background()

	require.NoError(t, store.AddStock(ctx, "reliance", ""))
	require.NoError(t, store.AddStock(ctx, " RELIANCE ", ""))

	assert.Equal(t, []string{"RELIANCE"}, symbolsOf(t, store, FallbackWatchlistID))
	assert.Len(t, sub.C, 1, "second add must not emit")
}

func TestAddStock_CapacityLimit(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()

	for i := 0; i < MaxSymbols; i++ {
		require.NoError(t, store.AddStock(ctx, fmt.Sprintf("SYM%02d", i), FallbackWatchlistID))
	}
	assert.False(t, store.CanAddTo(FallbackWatchlistID))

	err := store.AddStock(ctx, "SYM50", FallbackWatchlistID)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Len(t, symbolsOf(t, store, FallbackWatchlistID), MaxSymbols)
	assert.NotContains(t, symbolsOf(t, store, FallbackWatchlistID), "SYM50")

	// Re-adding an existing symbol on a full list is still a successful no-op
	assert.NoError(t, store.AddStock(ctx, "SYM00", FallbackWatchlistID))
}

func TestAddStock_Errors(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.AddStock(ctx, "TCS", DefaultWatchlistID), ErrReadOnly)
	assert.ErrorIs(t, store.AddStock(ctx, "TCS", "wl_missing"), ErrNotFound)
	assert.ErrorIs(t, store.AddStock(ctx, "  ", ""), ErrInvalidSymbol)
	assert.False(t, store.CanAddTo(DefaultWatchlistID))
	assert.False(t, store.CanAddTo("wl_missing"))
	assert.True(t, store.CanAddTo(""))
}

func TestRemoveStock(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddStock(ctx, "TCS", ""))
	require.NoError(t, store.AddStock(ctx, "INFY", ""))
	require.NoError(t, store.RemoveStock(ctx, "tcs", ""))
	assert.Equal(t, []string{"INFY"}, symbolsOf(t, store, FallbackWatchlistID))

	// Absent symbol is fine
	require.NoError(t, store.RemoveStock(ctx, "TCS", ""))
	assert.ErrorIs(t, store.RemoveStock(ctx, "TCS", "wl_missing"), ErrNotFound)
}

func TestRemoveStock_DefaultNeverChanges(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()
	before := symbolsOf(t, store, DefaultWatchlistID)

	for _, sym := range before[:5] {
		assert.ErrorIs(t, store.RemoveStock(ctx, sym, DefaultWatchlistID), ErrReadOnly)
	}

	require.NoError(t, store.SetActive(ctx, DefaultWatchlistID))
	assert.ErrorIs(t, store.RemoveStock(ctx, before[0], ""), ErrReadOnly)

	assert.Equal(t, before, symbolsOf(t, store, DefaultWatchlistID))
}

func TestDelete_LastUserWatchlist(t *testing.T) {
	store, _ := newMemStore(t)

	err := store.Delete(context.Background(), FallbackWatchlistID)
	assert.ErrorIs(t, err, ErrLastWatchlist)
	assert.Len(t, store.List(), 2)
	assert.Equal(t, FallbackWatchlistID, store.ActiveID())
}

func TestDelete_ActiveMovesPointer(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()

	second, err := store.Create(ctx, "Second")
	require.NoError(t, err)
	third, err := store.Create(ctx, "Third")
	require.NoError(t, err)
	require.NoError(t, store.SetActive(ctx, FallbackWatchlistID))

	require.NoError(t, store.Delete(ctx, FallbackWatchlistID))

	assert.Equal(t, second, store.ActiveID())
	active, ok := store.Active()
	require.True(t, ok)
	assert.False(t, active.IsDefault)

	list := store.List()
	require.Len(t, list, 3)
	for i, w := range list {
		assert.Equal(t, i, w.Order, "order stays dense")
	}
	assert.Equal(t, third, list[2].ID)
}

func TestDelete_InactiveKeepsPointer(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "Temp")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, id))
	assert.Equal(t, FallbackWatchlistID, store.ActiveID())

	assert.ErrorIs(t, store.Delete(ctx, DefaultWatchlistID), ErrReadOnly)
	assert.ErrorIs(t, store.Delete(ctx, id), ErrNotFound)
}

func TestSetActive(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.SetActive(ctx, "wl_missing"), ErrNotFound)
	assert.Equal(t, FallbackWatchlistID, store.ActiveID())

	require.NoError(t, store.SetActive(ctx, DefaultWatchlistID))
	assert.Equal(t, DefaultWatchlistID, store.ActiveID())
}

func TestQueries(t *testing.T) {
	store, _ := newMemStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "Banks")
	require.NoError(t, err)
	require.NoError(t, store.AddStock(ctx, "HDFCBANK", id))
	require.NoError(t, store.AddStock(ctx, "ZOMATO", ""))

	assert.True(t, store.IsInWatchlist("hdfcbank", id))
	assert.False(t, store.IsInWatchlist("HDFCBANK", ""))
	assert.True(t, store.IsInAnyWatchlist("ZOMATO"))
	assert.False(t, store.IsInAnyWatchlist("NOPE"))

	containing := store.WatchlistsContaining("HDFCBANK")
	require.Len(t, containing, 2)
	assert.Equal(t, DefaultWatchlistID, containing[0].ID)
	assert.Equal(t, id, containing[1].ID)

	assert.ElementsMatch(t, []string{"HDFCBANK", "ZOMATO"}, store.Symbols())
}

func TestList_ReturnsCopies(t *testing.T) {
	store, _ := newMemStore(t)

	list := store.List()
	list[1].Symbols = append(list[1].Symbols, "HACKED")
	list[0].Name = "changed"

	fresh := store.List()
	assert.Empty(t, fresh[1].Symbols)
	assert.Equal(t, "NIFTY 50", fresh[0].Name)
}

func TestPersistReloadRoundTrip(t *testing.T) {
	files := NewFileSnapshotStore(afero.NewMemMapFs(), "/data/watchlists.json")
	store, _ := newTestStore(t, files)
	ctx := context.Background()

	a, err := store.Create(ctx, "Alpha")
	require.NoError(t, err)
	b, err := store.Create(ctx, "Beta")
	require.NoError(t, err)
	require.NoError(t, store.AddStock(ctx, "TCS", a))
	require.NoError(t, store.AddStock(ctx, "INFY", a))
	require.NoError(t, store.AddStock(ctx, "SBIN", b))
	require.NoError(t, store.SetActive(ctx, b))

	reloaded, _ := newTestStore(t, files)
	require.NoError(t, reloaded.Load(ctx))

	want := store.List()
	got := reloaded.List()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Symbols, got[i].Symbols)
		assert.Equal(t, want[i].Order, got[i].Order)
		assert.Equal(t, want[i].IsDefault, got[i].IsDefault)
		assert.True(t, want[i].UpdatedAt.Equal(got[i].UpdatedAt))
	}
	assert.Equal(t, b, reloaded.ActiveID())
}

func TestMutate_PersistsWhenRequestCancelled(t *testing.T) {
	files := NewFileSnapshotStore(afero.NewMemMapFs(), "/data/watchlists.json")
	store, _ := newTestStore(t, files)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, store.AddStock(ctx, "TCS", ""))
	assert.True(t, store.IsInWatchlist("TCS", ""))

	reloaded, _ := newTestStore(t, files)
	require.NoError(t, reloaded.Load(context.Background()))
	assert.True(t, reloaded.IsInWatchlist("TCS", ""))
}

func TestLoad_ResetsOnBadSnapshot(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", `not json`},
		{"future version", `{"version":2,"watchlists":[],"activeWatchlistId":""}`},
		{"no user watchlist", `{"version":1,"watchlists":[{"id":"default","name":"NIFTY 50","symbols":[],"isDefault":true}],"activeWatchlistId":"default"}`},
		{"duplicate symbols", `{"watchlists":[{"id":"a","name":"A","symbols":["TCS","TCS"]}],"activeWatchlistId":"a"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/w.json", []byte(tt.data), 0644))
			store, _ := newTestStore(t, NewFileSnapshotStore(fs, "/w.json"))

			require.NoError(t, store.Load(context.Background()))

			list := store.List()
			require.Len(t, list, 2)
			assert.Equal(t, FallbackWatchlistID, store.ActiveID())
		})
	}
}

func TestLoad_VersionlessSnapshotRepairsPointerAndDefault(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := `{"watchlists":[{"id":"wl_1","name":"Mine","symbols":["TCS"],"order":3}],"activeWatchlistId":"gone"}`
	require.NoError(t, afero.WriteFile(fs, "/w.json", []byte(data), 0644))
	store, _ := newTestStore(t, NewFileSnapshotStore(fs, "/w.json"))

	require.NoError(t, store.Load(context.Background()))

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, DefaultWatchlistID, list[0].ID)
	assert.Equal(t, 0, list[0].Order)
	assert.Equal(t, "wl_1", list[1].ID)
	assert.Equal(t, 1, list[1].Order)
	assert.Equal(t, "wl_1", store.ActiveID())
}

func TestLoad_StorageError(t *testing.T) {
	snapshots := new(MockSnapshotStore)
	snapshots.On("Load", mock.Anything).Return(nil, errors.New("disk gone"))
	store, _ := newTestStore(t, snapshots)

	err := store.Load(context.Background())
	assert.Error(t, err)
	snapshots.AssertExpectations(t)
}

func TestMutation_PersistFailureKeepsState(t *testing.T) {
	snapshots := new(MockSnapshotStore)
	snapshots.On("Save", mock.Anything, mock.Anything).Return(errors.New("read-only fs"))
	store, sub := newTestStore(t, snapshots)

	err := store.AddStock(context.Background(), "TCS", "")
	assert.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, []string{"TCS"}, symbolsOf(t, store, FallbackWatchlistID))
	assert.Len(t, sub.C, 1)
	snapshots.AssertNumberOfCalls(t, "Save", 1)
}

func TestMutation_PersistsEverySuccessfulChange(t *testing.T) {
	snapshots := new(MockSnapshotStore)
	snapshots.On("Save", mock.Anything, mock.Anything).Return(nil)
	store, sub := newTestStore(t, snapshots)
	ctx := context.Background()

	id, err := store.Create(ctx, "New")
	require.NoError(t, err)
	require.NoError(t, store.AddStock(ctx, "TCS", id))
	// Neither a repeated add nor a rejected add writes
	require.NoError(t, store.AddStock(ctx, "TCS", id))
	_ = store.AddStock(ctx, "TCS", DefaultWatchlistID)
	require.NoError(t, store.Rename(ctx, id, "Renamed"))
	require.NoError(t, store.SetActive(ctx, id))
	require.NoError(t, store.RemoveStock(ctx, "TCS", id))
	require.NoError(t, store.Delete(ctx, id))

	snapshots.AssertNumberOfCalls(t, "Save", 6)
	require.Len(t, sub.C, 6)

	var actions []string
	for len(sub.C) > 0 {
		ev := <-sub.C
		actions = append(actions, ev.Data.(*events.WatchlistChangedData).Action)
	}
	assert.Equal(t, []string{
		events.ActionCreated,
		events.ActionStockAdded,
		events.ActionRenamed,
		events.ActionActivated,
		events.ActionStockRemoved,
		events.ActionDeleted,
	}, actions)
}
