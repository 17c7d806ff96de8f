// Package di provides dependency injection for service implementations.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/sharesathi/internal/clients/bse"
	"github.com/aristath/sharesathi/internal/clients/fetch"
	"github.com/aristath/sharesathi/internal/clients/gemini"
	"github.com/aristath/sharesathi/internal/clients/grokipedia"
	"github.com/aristath/sharesathi/internal/clients/groq"
	"github.com/aristath/sharesathi/internal/clients/llm"
	"github.com/aristath/sharesathi/internal/clients/nse"
	"github.com/aristath/sharesathi/internal/clients/rss"
	"github.com/aristath/sharesathi/internal/clients/yahoo"
	"github.com/aristath/sharesathi/internal/clients/zenquotes"
	"github.com/aristath/sharesathi/internal/config"
	"github.com/aristath/sharesathi/internal/events"
	"github.com/aristath/sharesathi/internal/modules/calculator"
	"github.com/aristath/sharesathi/internal/modules/chat"
	"github.com/aristath/sharesathi/internal/modules/insights"
	"github.com/aristath/sharesathi/internal/modules/market"
	"github.com/aristath/sharesathi/internal/modules/news"
	"github.com/aristath/sharesathi/internal/modules/settings"
	"github.com/aristath/sharesathi/internal/modules/watchlist"
	"github.com/aristath/sharesathi/internal/reliability"
	"github.com/aristath/sharesathi/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// InitializeServices creates clients and services and loads the watchlist store
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Events
	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	// Settings
	container.SettingsService = settings.NewService(container.SettingsRepo, container.EventManager, log)

	// Watchlists: the snapshot lives in config.db unless a file path is configured
	seed, err := watchlist.DefaultSeed()
	if err != nil {
		return fmt.Errorf("failed to load default watchlist: %w", err)
	}
	var snapshots watchlist.SnapshotStore = watchlist.NewKVSnapshotStore(container.SettingsRepo)
	if cfg.SnapshotFile != "" {
		snapshots = watchlist.NewFileSnapshotStore(afero.NewOsFs(), cfg.SnapshotFile)
	}
	container.WatchlistStore = watchlist.NewStore(seed, snapshots, container.EventManager, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := container.WatchlistStore.Load(ctx); err != nil {
		return fmt.Errorf("failed to load watchlists: %w", err)
	}

	// Upstream clients share one retrying fetcher; NSE keeps its own cookie jar
	fetcher := fetch.New(log)
	yahooClient := yahoo.NewClient(fetcher, log)
	nseClient := nse.NewClient(log)
	bseClient := bse.NewClient(fetcher, log)

	seedInstruments := make([]market.Instrument, len(seed.Symbols))
	for i, sym := range seed.Symbols {
		seedInstruments[i] = market.Instrument{Symbol: sym.Ticker, Name: sym.Name}
	}
	container.MarketService = market.NewService(market.Config{
		Quotes:       yahooClient,
		Constituents: nseClient,
		Bhavcopy:     bseClient,
		Cache:        container.ClientDataRepo,
		Events:       container.EventManager,
		QuoteTTL:     cfg.QuoteCacheTTL,
		SeedIndex:    seed.Index,
		Seed:         seedInstruments,
	}, log)

	container.CalculatorService = calculator.NewService(container.MarketService, container.SettingsService, log)

	container.NewsService = news.NewService(cfg.NewsFeeds, rss.NewClient(fetcher, log), container.ClientDataRepo, log)

	// Chat providers are tried in this order; missing keys leave the local responder
	var providers []llm.Provider
	if cfg.Chat.GroqAPIKey != "" {
		providers = append(providers, groq.NewClient(cfg.Chat.GroqAPIKey, cfg.Chat.GroqModel, fetcher, log))
	}
	if cfg.Chat.GeminiAPIKey != "" {
		providers = append(providers, gemini.NewClient(cfg.Chat.GeminiAPIKey, cfg.Chat.GeminiModel, log))
	}
	container.ChatService = chat.NewService(providers, container.SettingsService.ChatProvider, log)

	container.InsightsService = insights.NewService(
		zenquotes.NewClient(fetcher, log),
		grokipedia.NewClient(fetcher, log),
		container.MarketService,
		container.ClientDataRepo,
		log,
	)

	// Off-site backups
	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Store(ctx, cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to initialize backup storage: %w", err)
		}
		container.BackupService = reliability.NewSnapshotBackupService(container.WatchlistStore, store, container.EventManager, log)
	}

	container.MarketHours = scheduler.NewMarketHours()

	log.Info().
		Int("chat_providers", len(providers)).
		Bool("backups", container.BackupService != nil).
		Msg("All services initialized")
	return nil
}
