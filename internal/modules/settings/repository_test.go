package settings

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	description TEXT,
	updated_at INTEGER NOT NULL
);
CREATE TABLE kv_store (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func newTestRepo(t *testing.T) *Repository {
	return NewRepository(setupTestDB(t), zerolog.New(nil).Level(zerolog.Disabled))
}

func TestRepository_GetSet(t *testing.T) {
	repo := newTestRepo(t)

	value, err := repo.Get("theme")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, repo.Set("theme", "dark", nil))
	value, err = repo.Get("theme")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "dark", *value)

	desc := "UI theme"
	require.NoError(t, repo.Set("theme", "light", &desc))
	value, err = repo.Get("theme")
	require.NoError(t, err)
	assert.Equal(t, "light", *value)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"theme": "light"}, all)
}

func TestRepository_TypedGetters(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("amount", "2500.5", nil))
	require.NoError(t, repo.Set("years", "10.0", nil))
	require.NoError(t, repo.Set("flag", "Yes", nil))
	require.NoError(t, repo.Set("garbage", "abc", nil))

	f, err := repo.GetFloat("amount", 1)
	require.NoError(t, err)
	assert.Equal(t, 2500.5, f)

	i, err := repo.GetInt("years", 1)
	require.NoError(t, err)
	assert.Equal(t, 10, i)

	b, err := repo.GetBool("flag", false)
	require.NoError(t, err)
	assert.True(t, b)

	f, err = repo.GetFloat("garbage", 7)
	require.NoError(t, err)
	assert.Equal(t, 7.0, f)

	i, err = repo.GetInt("missing", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, i)
}

func TestRepository_Delete(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("theme", "dark", nil))
	require.NoError(t, repo.Delete("theme"))
	require.NoError(t, repo.Delete("theme"))

	value, err := repo.Get("theme")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestRepository_Blob(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	blob, err := repo.GetBlob(ctx, "sharesathi-watchlists")
	require.NoError(t, err)
	assert.Nil(t, blob)

	require.NoError(t, repo.SetBlob(ctx, "sharesathi-watchlists", []byte(`{"version":1}`)))
	require.NoError(t, repo.SetBlob(ctx, "sharesathi-watchlists", []byte(`{"version":2}`)))

	blob, err = repo.GetBlob(ctx, "sharesathi-watchlists")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":2}`, string(blob))
}
