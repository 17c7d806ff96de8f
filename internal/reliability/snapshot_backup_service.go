package reliability

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/sharesathi/internal/events"
	"github.com/aristath/sharesathi/internal/modules/watchlist"
	"github.com/rs/zerolog"
)

const (
	backupPrefix    = "watchlists/"
	backupSuffix    = ".json"
	backupTimestamp = "2006-01-02-150405"

	// minBackupsToKeep survive rotation regardless of age
	minBackupsToKeep = 3
)

// SnapshotSource provides the current watchlist state, satisfied by watchlist.Store.
type SnapshotSource interface {
	Snapshot() watchlist.Snapshot
}

// BackupInfo describes one stored backup
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// SnapshotBackupService copies the watchlist snapshot to object storage
type SnapshotBackupService struct {
	source       SnapshotSource
	store        ObjectStore
	eventManager *events.Manager
	log          zerolog.Logger
	now          func() time.Time
}

// NewSnapshotBackupService creates a new backup service
func NewSnapshotBackupService(source SnapshotSource, store ObjectStore, eventManager *events.Manager, log zerolog.Logger) *SnapshotBackupService {
	return &SnapshotBackupService{
		source:       source,
		store:        store,
		eventManager: eventManager,
		log:          log.With().Str("service", "snapshot_backup").Logger(),
		now:          time.Now,
	}
}

// BackupKey is the object key for a backup taken at t
func BackupKey(t time.Time) string {
	return backupPrefix + t.UTC().Format(backupTimestamp) + backupSuffix
}

// parseBackupKey extracts the timestamp from a key written by BackupKey
func parseBackupKey(key string) (time.Time, bool) {
	if !strings.HasPrefix(key, backupPrefix) || !strings.HasSuffix(key, backupSuffix) {
		return time.Time{}, false
	}
	ts := strings.TrimSuffix(strings.TrimPrefix(key, backupPrefix), backupSuffix)
	t, err := time.Parse(backupTimestamp, ts)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Backup uploads the current snapshot and returns its key
func (s *SnapshotBackupService) Backup(ctx context.Context) (string, error) {
	data, err := watchlist.EncodeSnapshot(s.source.Snapshot())
	if err != nil {
		return "", err
	}

	key := BackupKey(s.now())
	if err := s.store.Put(ctx, key, data, "application/json"); err != nil {
		return "", fmt.Errorf("failed to upload watchlist backup: %w", err)
	}

	s.log.Info().Str("key", key).Int("bytes", len(data)).Msg("Watchlist backup uploaded")

	if s.eventManager != nil {
		s.eventManager.Emit("reliability", &events.BackupCompletedData{Key: key, Bytes: len(data)})
	}
	return key, nil
}

// ListBackups returns stored backups, newest first. Objects under the prefix
// that were not written by Backup are ignored.
func (s *SnapshotBackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, backupPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist backups: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		ts, ok := parseBackupKey(obj.Key)
		if !ok {
			s.log.Warn().Str("key", obj.Key).Msg("Skipping object with unexpected key")
			continue
		}
		backups = append(backups, BackupInfo{
			Key:       obj.Key,
			Timestamp: ts,
			SizeBytes: obj.Size,
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than retentionDays, always keeping
// the newest minBackupsToKeep. A retention of 0 keeps everything.
func (s *SnapshotBackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, backup := range backups[minBackupsToKeep:] {
		if !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Key); err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")
	return deleted, nil
}
