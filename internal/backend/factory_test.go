package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/config"
	"tracker/internal/ledger"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", DataDir: "seed"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "seed", cfg.DataDirectory)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestCreateMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ledger.SeedFile), []byte("Salary\nRent\n"), 0o644))

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	cats, err := res.Store.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 2)
	assert.NoError(t, res.Ping(context.Background()))
}

func TestCreateSQLiteBackendSeedsOnce(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "tracker.db"), DataDirectory: dir}

	for i := 0; i < 2; i++ {
		res, err := NewFactory(nil).CreateBackend(context.Background(), cfg)
		require.NoError(t, err)

		cats, err := res.Store.ListCategories(context.Background())
		require.NoError(t, err)
		assert.Len(t, cats, len(ledger.DefaultCategories))
		assert.NoError(t, res.Ping(context.Background()))
		require.NoError(t, res.Cleanup())
	}
}

func TestCreateBackendInvalid(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	assert.Error(t, err)
}
