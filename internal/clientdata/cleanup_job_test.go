package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.Equal(t, "cleanup_client_data", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())

	now := time.Now()
	for _, table := range []string{TableQuotes, TableNews, TableInsights} {
		insertRaw(t, db, table, "expired", "x", now.Add(-time.Hour).Unix())
		insertRaw(t, db, table, "fresh", "x", now.Add(time.Hour).Unix())
	}

	require.NoError(t, job.Run())

	for _, table := range []string{TableQuotes, TableNews, TableInsights} {
		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Equal(t, 1, count, table)

		var key string
		require.NoError(t, db.QueryRow("SELECT key FROM "+table).Scan(&key))
		assert.Equal(t, "fresh", key)
	}
}

func TestCleanupJobRun_EmptyTables(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.NoError(t, job.Run())
}

func TestCleanupJobRun_DatabaseClosed(t *testing.T) {
	db := setupTestDB(t)
	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	require.NoError(t, db.Close())

	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleanup client data")
}
