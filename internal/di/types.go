/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"time"

	"github.com/aristath/sharesathi/internal/clientdata"
	"github.com/aristath/sharesathi/internal/database"
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
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: config.db (settings, watchlist snapshot) and client_data.db (upstream cache)
 * - Repositories: settings and client data
 * - Services: watchlists, market data, calculator, news, chat, insights, backups
 * - Scheduler: cron jobs for cache cleanup, quote prefetch, maintenance and backups
 */
type Container struct {
	// Databases
	ConfigDB     *database.DB
	ClientDataDB *database.DB

	// Repositories
	SettingsRepo   *settings.Repository
	ClientDataRepo *clientdata.Repository

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Services
	SettingsService   *settings.Service
	WatchlistStore    *watchlist.Store
	MarketService     *market.Service
	CalculatorService *calculator.Service
	NewsService       *news.Service
	ChatService       *chat.Service
	InsightsService   *insights.Service
	BackupService     *reliability.SnapshotBackupService // nil when backups are not configured

	// Scheduling
	Scheduler   *scheduler.Scheduler
	MarketHours *scheduler.MarketHours

	StartedAt time.Time
}

// Close releases the databases. Safe on a partially built container.
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.ConfigDB != nil {
		c.ConfigDB.Close()
	}
	if c.ClientDataDB != nil {
		c.ClientDataDB.Close()
	}
}

// JobInstances holds the scheduled jobs for manual triggering and tests
type JobInstances struct {
	CleanupClientData *clientdata.CleanupJob
	PrefetchQuotes    *scheduler.PrefetchWatchlistQuotesJob
	CheckWAL          *scheduler.CheckWALCheckpointsJob
	DailyMaintenance  *reliability.DailyMaintenanceJob
	BackupWatchlists  *reliability.BackupJob // nil when backups are not configured
}
