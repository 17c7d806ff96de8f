package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/sharesathi/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// Disk space thresholds in bytes
const (
	criticalFreeBytes = 200 << 20
	lowFreeBytes      = 1 << 30
)

// MaintainedDB is the database surface maintenance needs, satisfied by *database.DB.
type MaintainedDB interface {
	HealthCheck(ctx context.Context) error
	WALCheckpoint(mode string) error
	GetStats() (*database.Stats, error)
}

// DiskUsageFunc reports free bytes for the filesystem holding path.
type DiskUsageFunc func(path string) (uint64, error)

func gopsutilFree(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// DailyMaintenanceJob checks integrity, truncates WAL files and watches disk space
type DailyMaintenanceJob struct {
	databases map[string]MaintainedDB
	dataDir   string
	diskFree  DiskUsageFunc
	timeout   time.Duration
	log       zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(databases map[string]MaintainedDB, dataDir string, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		diskFree:  gopsutilFree,
		timeout:   time.Minute,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes the daily maintenance job. A failed integrity check or
// critically low disk space fails the job; checkpoint failures only warn.
func (j *DailyMaintenanceJob) Run() error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	for name, db := range j.databases {
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", name).Msg("Integrity check failed")
			return fmt.Errorf("maintenance halted on %s: %w", name, err)
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}

		if stats, err := db.GetStats(); err == nil {
			j.log.Debug().
				Str("database", name).
				Int64("size_bytes", stats.SizeBytes).
				Int64("freelist_pages", stats.FreelistCount).
				Msg("Database stats")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().Dur("duration", time.Since(start)).Msg("Daily maintenance completed")
	return nil
}

func (j *DailyMaintenanceJob) checkDiskSpace() error {
	if j.dataDir == "" || j.diskFree == nil {
		return nil
	}

	free, err := j.diskFree(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read disk usage")
		return nil
	}

	switch {
	case free < criticalFreeBytes:
		j.log.Error().Uint64("free_bytes", free).Msg("Disk space critically low")
		return fmt.Errorf("only %d MB free in %s", free>>20, j.dataDir)
	case free < lowFreeBytes:
		j.log.Warn().Uint64("free_bytes", free).Msg("Disk space running low")
	}
	return nil
}

// BackupJob uploads a watchlist backup and rotates old ones
type BackupJob struct {
	service       *SnapshotBackupService
	retentionDays int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewBackupJob creates the nightly backup job
func NewBackupJob(service *SnapshotBackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		timeout:       2 * time.Minute,
		log:           log.With().Str("job", "backup_watchlists").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "backup_watchlists"
}

// Run uploads the snapshot, then rotates. Rotation errors are logged only.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.Backup(ctx); err != nil {
		return err
	}

	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
