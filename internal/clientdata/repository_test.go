package clientdata

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// testSchema creates all tables needed for testing
const testSchema = `
CREATE TABLE quotes (key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE price_history (key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE index_constituents (key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE bhavcopy (key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE news (key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE insights (key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
`

type cachedQuote struct {
	Symbol string
	Price  float64
}

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func insertRaw(t *testing.T, db *sql.DB, table, key string, v interface{}, expiresAt int64) {
	blob, err := msgpack.Marshal(v)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO "+table+" (key, data, expires_at) VALUES (?, ?, ?)", key, blob, expiresAt)
	require.NoError(t, err)
}

func TestStore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	err := repo.Store(TableQuotes, "TCS.NS", cachedQuote{Symbol: "TCS.NS", Price: 3500.5}, 5*time.Minute)
	require.NoError(t, err)

	var blob []byte
	var expiresAt int64
	err = db.QueryRow("SELECT data, expires_at FROM quotes WHERE key = ?", "TCS.NS").Scan(&blob, &expiresAt)
	require.NoError(t, err)

	var decoded cachedQuote
	require.NoError(t, msgpack.Unmarshal(blob, &decoded))
	assert.Equal(t, 3500.5, decoded.Price)

	assert.InDelta(t, time.Now().Add(5*time.Minute).Unix(), expiresAt, 5)
}

func TestStoreUpsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	require.NoError(t, repo.Store(TableQuotes, "INFY.NS", cachedQuote{Price: 1}, time.Hour))
	require.NoError(t, repo.Store(TableQuotes, "INFY.NS", cachedQuote{Price: 2}, time.Hour))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM quotes WHERE key = ?", "INFY.NS").Scan(&count))
	assert.Equal(t, 1, count)

	var got cachedQuote
	found, err := repo.GetIfFresh(TableQuotes, "INFY.NS", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2.0, got.Price)
}

func TestGetIfFresh_Expired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	insertRaw(t, db, TableNews, "feed", []string{"old"}, time.Now().Add(-time.Hour).Unix())

	var items []string
	found, err := repo.GetIfFresh(TableNews, "feed", &items)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, items)
}

func TestGet_ReturnsStaleData(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	insertRaw(t, db, TableNews, "feed", []string{"stale_but_useful"}, time.Now().Add(-time.Hour).Unix())

	var items []string
	found, err := repo.Get(TableNews, "feed", &items)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"stale_but_useful"}, items)
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	var q cachedQuote
	found, err := repo.Get(TableQuotes, "MISSING", &q)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGet_CorruptBlob(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	_, err := db.Exec("INSERT INTO quotes (key, data, expires_at) VALUES ('BAD', x'c1', ?)", time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)

	var q cachedQuote
	found, err := repo.Get(TableQuotes, "BAD", &q)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestDeleteAndKeys(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableIndexConstituents, "NIFTY 50", []string{"TCS"}, time.Hour))
	require.NoError(t, repo.Store(TableIndexConstituents, "NIFTY BANK", []string{"HDFCBANK"}, time.Hour))

	keys, err := repo.Keys(TableIndexConstituents)
	require.NoError(t, err)
	assert.Equal(t, []string{"NIFTY 50", "NIFTY BANK"}, keys)

	require.NoError(t, repo.Delete(TableIndexConstituents, "NIFTY 50"))
	keys, err = repo.Keys(TableIndexConstituents)
	require.NoError(t, err)
	assert.Equal(t, []string{"NIFTY BANK"}, keys)
}

func TestDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Now()
	insertRaw(t, db, TableQuotes, "OLD", cachedQuote{}, now.Add(-time.Minute).Unix())
	insertRaw(t, db, TableQuotes, "NEW", cachedQuote{}, now.Add(time.Minute).Unix())

	deleted, err := repo.DeleteExpired(TableQuotes)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM quotes").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestInvalidTable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	var out interface{}

	assert.Error(t, repo.Store("quotes; DROP TABLE quotes", "k", 1, time.Hour))
	_, err := repo.Get("nope", "k", &out)
	assert.Error(t, err)
	_, err = repo.GetIfFresh("nope", "k", &out)
	assert.Error(t, err)
	assert.Error(t, repo.Delete("nope", "k"))
	_, err = repo.DeleteExpired("nope")
	assert.Error(t, err)
	_, err = repo.Keys("nope")
	assert.Error(t, err)
}
