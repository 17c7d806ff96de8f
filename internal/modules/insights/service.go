// Package insights serves the quote of the day and short company profiles.
package insights

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aristath/sharesathi/internal/clientdata"
	"github.com/aristath/sharesathi/internal/clients/bse"
	"github.com/aristath/sharesathi/internal/clients/grokipedia"
	"github.com/aristath/sharesathi/internal/clients/zenquotes"
	"github.com/aristath/sharesathi/internal/modules/market"
	"github.com/aristath/sharesathi/internal/utils"
	"github.com/rs/zerolog"
)

// ErrEmptyQuery is returned when no company is named.
var ErrEmptyQuery = errors.New("company name or symbol is required")

// Quote sources.
const (
	SourceZenQuotes = "zenquotes"
	SourceFallback  = "fallback"
)

// QuoteSource provides the quote of the day.
type QuoteSource interface {
	Today(ctx context.Context) (*zenquotes.Quote, error)
}

// SummarySource provides encyclopedia summaries.
type SummarySource interface {
	Summary(ctx context.Context, title string) (*grokipedia.Summary, error)
}

// Resolver maps a ticker to a company name.
type Resolver interface {
	Search(query string, limit int) []market.Instrument
}

// DailyQuote is the quote shown on the dashboard.
type DailyQuote struct {
	Text   string `json:"text" msgpack:"text"`
	Author string `json:"author" msgpack:"author"`
	Source string `json:"source" msgpack:"source"`
	Date   string `json:"date" msgpack:"date"`
}

// CompanyProfile is a short description of a company.
type CompanyProfile struct {
	Query     string `json:"query" msgpack:"query"`
	Title     string `json:"title,omitempty" msgpack:"title"`
	Extract   string `json:"extract,omitempty" msgpack:"extract"`
	URL       string `json:"url,omitempty" msgpack:"url"`
	Available bool   `json:"available" msgpack:"available"`
	Stale     bool   `json:"stale,omitempty" msgpack:"-"`
}

var fallbackQuotes = []zenquotes.Quote{
	{Text: "The stock market is a device for transferring money from the impatient to the patient.", Author: "Warren Buffett"},
	{Text: "The individual investor should act consistently as an investor and not as a speculator.", Author: "Benjamin Graham"},
	{Text: "Know what you own, and know why you own it.", Author: "Peter Lynch"},
	{Text: "The four most dangerous words in investing are: this time it's different.", Author: "Sir John Templeton"},
	{Text: "Compound interest is the eighth wonder of the world.", Author: "Albert Einstein"},
	{Text: "In investing, what is comfortable is rarely profitable.", Author: "Robert Arnott"},
	{Text: "Risk comes from not knowing what you're doing.", Author: "Warren Buffett"},
}

// Service provides insights with cached upstream data and static fallbacks.
type Service struct {
	quotes    QuoteSource
	summaries SummarySource
	resolver  Resolver
	cache     clientdata.Cache
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates an insights service. resolver and cache may be nil.
func NewService(quotes QuoteSource, summaries SummarySource, resolver Resolver, cache clientdata.Cache, log zerolog.Logger) *Service {
	return &Service{
		quotes:    quotes,
		summaries: summaries,
		resolver:  resolver,
		cache:     cache,
		log:       log.With().Str("service", "insights").Logger(),
		now:       time.Now,
	}
}

// QuoteOfTheDay returns today's quote (IST calendar day). When ZenQuotes is
// unavailable a quote is picked from a fixed list by day of year.
func (s *Service) QuoteOfTheDay(ctx context.Context) DailyQuote {
	today := s.now().In(bse.IST)
	key := "qotd:" + today.Format("2006-01-02")

	var cached DailyQuote
	if s.cache != nil {
		if ok, err := s.cache.GetIfFresh(clientdata.TableInsights, key, &cached); err == nil && ok {
			return cached
		}
	}

	q, err := s.quotes.Today(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("Quote of the day unavailable, using fallback")
		fb := fallbackQuotes[today.YearDay()%len(fallbackQuotes)]
		return DailyQuote{Text: fb.Text, Author: fb.Author, Source: SourceFallback, Date: today.Format("2006-01-02")}
	}

	out := DailyQuote{Text: q.Text, Author: q.Author, Source: SourceZenQuotes, Date: today.Format("2006-01-02")}
	if s.cache != nil {
		if err := s.cache.Store(clientdata.TableInsights, key, out, clientdata.TTLQuoteOfTheDay); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache quote of the day")
		}
	}
	return out
}

// CompanyProfile returns the summary for a company name or ticker. Tickers
// known to the resolver are looked up by company name.
func (s *Service) CompanyProfile(ctx context.Context, query string) (*CompanyProfile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	title := s.resolveTitle(query)
	key := "summary:" + strings.ToLower(title)

	var cached CompanyProfile
	if s.cache != nil {
		if ok, err := s.cache.GetIfFresh(clientdata.TableInsights, key, &cached); err == nil && ok {
			cached.Query = query
			return &cached, nil
		}
	}

	sum, err := s.summaries.Summary(ctx, title)
	if err != nil {
		if s.cache != nil && !errors.Is(err, grokipedia.ErrNotFound) {
			if ok, cerr := s.cache.Get(clientdata.TableInsights, key, &cached); cerr == nil && ok {
				s.log.Warn().Err(err).Str("title", title).Msg("Summary fetch failed, using stale profile")
				cached.Query = query
				cached.Stale = true
				return &cached, nil
			}
		}
		s.log.Debug().Err(err).Str("title", title).Msg("No company profile")
		return &CompanyProfile{Query: query, Title: title, Available: false}, nil
	}

	out := &CompanyProfile{Query: query, Title: sum.Title, Extract: sum.Extract, URL: sum.URL, Available: true}
	if s.cache != nil {
		if err := s.cache.Store(clientdata.TableInsights, key, out, clientdata.TTLCompanySummary); err != nil {
			s.log.Warn().Err(err).Str("title", title).Msg("Failed to cache company profile")
		}
	}
	return out, nil
}

// resolveTitle turns a known ticker into its company name, stripping legal
// suffixes that page titles omit.
func (s *Service) resolveTitle(query string) string {
	if s.resolver == nil {
		return query
	}

	sym := utils.DisplaySymbol(query)
	for _, in := range s.resolver.Search(sym, 5) {
		if in.Symbol == sym && in.Name != "" {
			return trimLegalSuffix(in.Name)
		}
	}
	return query
}

var legalSuffixes = []string{" Limited", " Ltd.", " Ltd"}

func trimLegalSuffix(name string) string {
	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(name, suffix))
		}
	}
	return name
}
