package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productmatcher/config"
	"productmatcher/database"
)

// workspace chdirs into a temp dir holding a config that points at a sqlite catalog
func workspace(t *testing.T) (cfgFile, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	dbPath = filepath.Join(dir, "catalog.db")
	cfgFile = filepath.Join(dir, "pm.toml")
	body := fmt.Sprintf("[catalog]\nbackend = %q\ndatabase = %q\n", config.BackendSQLite, dbPath)
	require.NoError(t, os.WriteFile(cfgFile, []byte(body), 0o600))
	return cfgFile, dbPath
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	indexOpts.folder, indexOpts.category, indexOpts.force, indexOpts.workers = "", "", false, 0
	rootCmd.SetArgs(args)
	return Execute(context.Background())
}

func TestStats(t *testing.T) {
	cfgFile, dbPath := workspace(t)

	err := run(t, "--config", cfgFile, "stats")
	assert.ErrorContains(t, err, "does not exist")

	db, err := database.InitDatabase(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.NoError(t, run(t, "--config", cfgFile, "stats"))
	assert.Equal(t, dbPath, cfg.Catalog.DatabasePath)
}

func TestIndex_RejectsBadFolder(t *testing.T) {
	cfgFile, _ := workspace(t)

	err := run(t, "--config", cfgFile, "index", "--folder", filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "does not exist")

	file := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	err = run(t, "--config", cfgFile, "index", "--folder", file)
	assert.ErrorContains(t, err, "not a directory")
}

func TestIndex_RefusesConcurrentRun(t *testing.T) {
	cfgFile, dbPath := workspace(t)

	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer lock.Unlock()

	err = run(t, "--config", cfgFile, "index", "--folder", t.TempDir())
	assert.ErrorContains(t, err, "another indexer is running")
}

func TestBadConfig(t *testing.T) {
	_, _ = workspace(t)
	err := run(t, "--config", filepath.Join(t.TempDir(), "nope.toml"), "stats")
	assert.ErrorContains(t, err, "cannot load config")
}

func TestDebugFlagOverridesConfig(t *testing.T) {
	cfgFile, dbPath := workspace(t)
	db, err := database.InitDatabase(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	require.NoError(t, run(t, "--config", cfgFile, "--debug", "stats"))
	assert.True(t, cfg.Logging.Debug)
}
