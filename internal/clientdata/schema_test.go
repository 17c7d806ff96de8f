package clientdata

import (
	"testing"
	"time"

	"github.com/aristath/sharesathi/internal/database"
	testutil "github.com/aristath/sharesathi/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMigratedSchema runs the repository against the embedded migrations
// instead of the hand-written test schema.
func TestMigratedSchema(t *testing.T) {
	db := testutil.NewTestDB(t, database.NameClientData)
	repo := NewRepository(db.Conn())

	for _, table := range AllTables {
		require.NoError(t, repo.Store(table, "fresh", cachedQuote{Symbol: "TCS.NS"}, time.Hour), table)
		require.NoError(t, repo.Store(table, "stale", cachedQuote{Symbol: "INFY.NS"}, -time.Minute), table)
	}

	job := NewCleanupJob(repo, zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, job.Run())

	for _, table := range AllTables {
		keys, err := repo.Keys(table)
		require.NoError(t, err)
		assert.Equal(t, []string{"fresh"}, keys, table)
	}
}
