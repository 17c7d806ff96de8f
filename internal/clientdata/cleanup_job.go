package clientdata

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob deletes expired cache rows from client_data.db.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates the hourly client data cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "cleanup_client_data").Logger(),
	}
}

// Name implements scheduler.Job
func (j *CleanupJob) Name() string {
	return "cleanup_client_data"
}

// Run implements scheduler.Job
func (j *CleanupJob) Run() error {
	start := time.Now()

	results, err := j.repo.DeleteAllExpired()
	if err != nil {
		return fmt.Errorf("cleanup client data: %w", err)
	}

	perTable := zerolog.Dict()
	var total int64
	for _, table := range AllTables {
		if n := results[table]; n > 0 {
			perTable.Int64(table, n)
			total += n
		}
	}

	if total == 0 {
		j.log.Debug().Dur("duration", time.Since(start)).Msg("No expired cache entries")
		return nil
	}

	j.log.Info().
		Int64("total_deleted", total).
		Dict("tables", perTable).
		Dur("duration", time.Since(start)).
		Msg("Client data cleanup completed")
	return nil
}
