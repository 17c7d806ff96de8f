// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/sharesathi/internal/clientdata"
	"github.com/aristath/sharesathi/internal/config"
	"github.com/aristath/sharesathi/internal/modules/market"
	"github.com/aristath/sharesathi/internal/reliability"
	"github.com/aristath/sharesathi/internal/scheduler"
	"github.com/rs/zerolog"
)

// Job schedules (six fields, with seconds, evaluated in IST)
const (
	ScheduleCleanupClientData = "0 0 * * * *"
	SchedulePrefetchQuotes    = "0 */5 9-15 * * MON-FRI"
	ScheduleCheckWAL          = "0 30 * * * *"
	ScheduleDailyMaintenance  = "0 30 3 * * *"
	ScheduleBackupWatchlists  = "0 0 2 * * *"

	// BackupRetentionDays is how long off-site snapshots are kept
	BackupRetentionDays = 30
)

// RegisterJobs creates the scheduler and registers every job with it.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(container.EventManager, log)
	instances := &JobInstances{}

	instances.CleanupClientData = clientdata.NewCleanupJob(container.ClientDataRepo, log)
	if err := container.Scheduler.AddJob(ScheduleCleanupClientData, instances.CleanupClientData); err != nil {
		return nil, err
	}

	instances.PrefetchQuotes = scheduler.NewPrefetchWatchlistQuotesJob(
		container.WatchlistStore,
		container.MarketService,
		container.MarketHours,
		market.HeadlineIndices,
		log,
	)
	if err := container.Scheduler.AddJob(SchedulePrefetchQuotes, instances.PrefetchQuotes); err != nil {
		return nil, err
	}

	instances.CheckWAL = scheduler.NewCheckWALCheckpointsJob(map[string]scheduler.WALChecker{
		"config":      container.ConfigDB,
		"client_data": container.ClientDataDB,
	}, log)
	if err := container.Scheduler.AddJob(ScheduleCheckWAL, instances.CheckWAL); err != nil {
		return nil, err
	}

	instances.DailyMaintenance = reliability.NewDailyMaintenanceJob(map[string]reliability.MaintainedDB{
		"config":      container.ConfigDB,
		"client_data": container.ClientDataDB,
	}, cfg.DataDir, log)
	if err := container.Scheduler.AddJob(ScheduleDailyMaintenance, instances.DailyMaintenance); err != nil {
		return nil, err
	}

	if container.BackupService != nil {
		instances.BackupWatchlists = reliability.NewBackupJob(container.BackupService, BackupRetentionDays, log)
		if err := container.Scheduler.AddJob(ScheduleBackupWatchlists, instances.BackupWatchlists); err != nil {
			return nil, err
		}
	}

	log.Info().Int("jobs", len(container.Scheduler.Jobs())).Msg("Jobs registered")
	return instances, nil
}
