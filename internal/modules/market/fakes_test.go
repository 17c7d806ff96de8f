package market

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/sharesathi/internal/clients/bse"
	"github.com/aristath/sharesathi/internal/clients/nse"
	"github.com/aristath/sharesathi/internal/clients/yahoo"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

var errUpstream = errors.New("upstream down")

type fakeQuotes struct {
	mu      sync.Mutex
	quotes  map[string]yahoo.Quote
	history map[string][]yahoo.Bar
	fail    bool
	calls   atomic.Int64
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{quotes: map[string]yahoo.Quote{}, history: map[string][]yahoo.Bar{}}
}

func (f *fakeQuotes) set(symbol string, price, changePct float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[symbol] = yahoo.Quote{Symbol: symbol, Name: symbol + " Ltd", Price: price, ChangePercent: changePct}
}

func (f *fakeQuotes) Quote(ctx context.Context, symbol string) (*yahoo.Quote, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errUpstream
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, yahoo.ErrNoData
	}
	return &q, nil
}

func (f *fakeQuotes) History(ctx context.Context, symbol, rng string) ([]yahoo.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errUpstream
	}
	bars, ok := f.history[symbol]
	if !ok {
		return nil, yahoo.ErrNoData
	}
	return bars, nil
}

type fakeIndex struct {
	rows []nse.Constituent
	err  error
}

func (f *fakeIndex) IndexConstituents(ctx context.Context, index string) ([]nse.Constituent, error) {
	return f.rows, f.err
}

type fakeBhav struct {
	published map[string][]bse.Row
	requested []string
}

func (f *fakeBhav) Bhavcopy(ctx context.Context, date time.Time) ([]bse.Row, error) {
	key := date.Format("2006-01-02")
	f.requested = append(f.requested, key)
	rows, ok := f.published[key]
	if !ok {
		return nil, bse.ErrNotPublished
	}
	return rows, nil
}

// memCache mimics clientdata.Repository: values are msgpack round-tripped and
// entries can be expired by hand.
type memCache struct {
	mu    sync.Mutex
	data  map[string][]byte
	stale map[string]bool
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, stale: map[string]bool{}}
}

func (c *memCache) Store(table, key string, v interface{}, ttl time.Duration) error {
	blob, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[table+"/"+key] = blob
	delete(c.stale, table+"/"+key)
	return nil
}

func (c *memCache) GetIfFresh(table, key string, out interface{}) (bool, error) {
	c.mu.Lock()
	stale := c.stale[table+"/"+key]
	c.mu.Unlock()
	if stale {
		return false, nil
	}
	return c.Get(table, key, out)
}

func (c *memCache) Get(table, key string, out interface{}) (bool, error) {
	c.mu.Lock()
	blob, ok := c.data[table+"/"+key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, msgpack.Unmarshal(blob, out)
}

func (c *memCache) expireAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		c.stale[k] = true
	}
}

type testDeps struct {
	quotes *fakeQuotes
	index  *fakeIndex
	bhav   *fakeBhav
	cache  *memCache
}

func newTestService() (*Service, *testDeps) {
	d := &testDeps{
		quotes: newFakeQuotes(),
		index:  &fakeIndex{},
		bhav:   &fakeBhav{published: map[string][]bse.Row{}},
		cache:  newMemCache(),
	}
	svc := NewService(Config{
		Quotes:       d.quotes,
		Constituents: d.index,
		Bhavcopy:     d.bhav,
		Cache:        d.cache,
		SeedIndex:    "NIFTY 50",
		Seed: []Instrument{
			{Symbol: "RELIANCE", Name: "Reliance Industries"},
			{Symbol: "TCS", Name: "Tata Consultancy Services"},
		},
	}, zerolog.New(nil).Level(zerolog.Disabled))
	return svc, d
}
