package di

import (
	"path/filepath"
	"testing"

	"github.com/aristath/sharesathi/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDatabases(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &config.Config{DataDir: tmpDir}

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)
	t.Cleanup(container.Close)

	assert.NotNil(t, container.ConfigDB)
	assert.NotNil(t, container.ClientDataDB)
	assert.FileExists(t, filepath.Join(tmpDir, "config.db"))
	assert.FileExists(t, filepath.Join(tmpDir, "client_data.db"))

	version, err := container.ConfigDB.Version()
	require.NoError(t, err)
	assert.Greater(t, version, int64(0))
}

func TestContainerClose_Partial(t *testing.T) {
	var nilContainer *Container
	assert.NotPanics(t, nilContainer.Close)
	assert.NotPanics(t, (&Container{}).Close)
}
