// Package news aggregates market news from RSS and Atom feeds.
package news

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aristath/sharesathi/internal/clientdata"
	"github.com/aristath/sharesathi/internal/clients/rss"
	"github.com/aristath/sharesathi/internal/utils"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

const (
	cacheKey         = "latest"
	maxItems         = 100
	maxFeedsInFlight = 4
)

// FeedSource fetches and parses one feed.
type FeedSource interface {
	Fetch(ctx context.Context, feedURL string) ([]rss.Item, error)
}

// Feed is the aggregated news served to clients.
type Feed struct {
	Items     []rss.Item `json:"items" msgpack:"items"`
	Available bool       `json:"available" msgpack:"available"`
	Stale     bool       `json:"stale" msgpack:"-"`
	FetchedAt time.Time  `json:"fetchedAt" msgpack:"fetched_at"`
	Failed    []string   `json:"failedFeeds,omitempty" msgpack:"failed"`
}

// Service aggregates the configured feeds.
type Service struct {
	feeds  []string
	source FeedSource
	cache  clientdata.Cache
	log    zerolog.Logger
	now    func() time.Time
}

// NewService creates a news service. cache may be nil.
func NewService(feeds []string, source FeedSource, cache clientdata.Cache, log zerolog.Logger) *Service {
	return &Service{
		feeds:  feeds,
		source: source,
		cache:  cache,
		log:    log.With().Str("service", "news").Logger(),
		now:    time.Now,
	}
}

// Latest returns the merged feed. A fresh cached copy is served when present;
// when every feed fails the last cached copy is served with Stale set, and
// without one an empty feed with Available false.
func (s *Service) Latest(ctx context.Context) *Feed {
	var feed Feed
	if s.cache != nil {
		if ok, err := s.cache.GetIfFresh(clientdata.TableNews, cacheKey, &feed); err == nil && ok {
			return &feed
		}
	}

	items, failed := s.fetchAll(ctx)
	if len(items) == 0 && len(failed) > 0 {
		if s.cache != nil {
			if ok, err := s.cache.Get(clientdata.TableNews, cacheKey, &feed); err == nil && ok {
				s.log.Warn().Strs("failed", failed).Msg("All feeds failed, using stale news")
				feed.Stale = true
				return &feed
			}
		}
		s.log.Warn().Strs("failed", failed).Msg("All feeds failed, no cached news")
		return &Feed{Items: []rss.Item{}, Available: false, FetchedAt: s.now(), Failed: failed}
	}

	feed = Feed{Items: Merge(items), Available: true, FetchedAt: s.now(), Failed: failed}
	if s.cache != nil {
		if err := s.cache.Store(clientdata.TableNews, cacheKey, feed, clientdata.TTLNews); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache news")
		}
	}
	return &feed
}

// ForSymbol returns items mentioning the symbol or any of the extra terms.
func (s *Service) ForSymbol(ctx context.Context, symbol string, terms ...string) *Feed {
	feed := s.Latest(ctx)
	out := *feed
	out.Items = Filter(feed.Items, append([]string{utils.DisplaySymbol(symbol)}, terms...)...)
	return &out
}

func (s *Service) fetchAll(ctx context.Context) ([]rss.Item, []string) {
	results := make([][]rss.Item, len(s.feeds))
	errs := make([]error, len(s.feeds))

	p := pool.New().WithMaxGoroutines(maxFeedsInFlight)
	for i, url := range s.feeds {
		p.Go(func() {
			results[i], errs[i] = s.source.Fetch(ctx, url)
		})
	}
	p.Wait()

	// Feed order decides which copy of a duplicate survives the merge.
	var items []rss.Item
	var failed []string
	for i, url := range s.feeds {
		if errs[i] != nil {
			s.log.Debug().Err(errs[i]).Str("feed", url).Msg("Feed fetch failed")
			failed = append(failed, url)
			continue
		}
		items = append(items, results[i]...)
	}
	return items, failed
}

// Merge drops duplicate items by link (by title when there is no link),
// sorts newest first with undated items last, and caps the list.
func Merge(items []rss.Item) []rss.Item {
	seen := make(map[string]bool, len(items))
	out := make([]rss.Item, 0, len(items))
	for _, it := range items {
		key := strings.TrimSpace(it.Link)
		if key == "" {
			key = "title:" + strings.ToLower(strings.TrimSpace(it.Title))
		}
		if key == "title:" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Published, out[j].Published
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.After(b)
	})

	if len(out) > maxItems {
		out = out[:maxItems]
	}
	return out
}

// Filter keeps items whose title or description contains any of the terms,
// ignoring case. Blank terms are ignored; with no usable term nothing matches.
func Filter(items []rss.Item, terms ...string) []rss.Item {
	var needles []string
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			needles = append(needles, t)
		}
	}

	out := []rss.Item{}
	if len(needles) == 0 {
		return out
	}
	for _, it := range items {
		text := strings.ToLower(it.Title + " " + it.Description)
		for _, n := range needles {
			if strings.Contains(text, n) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}
