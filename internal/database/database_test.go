package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satish1373/ag-devops/internal/config"
)

func TestNew_SQLiteFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "todos.db")

	svc, err := New(config.DatabaseConfig{Driver: config.DriverSQLite, Path: path}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.Migrate())
	assert.Equal(t, config.DriverSQLite, svc.Driver())

	_, err = os.Stat(path)
	assert.NoError(t, err)

	for _, table := range []string{"todos", "users", "automation_runs"} {
		assert.True(t, svc.GetDB().Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestHealth(t *testing.T) {
	svc, err := New(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	stats := svc.Health(context.Background())
	assert.Equal(t, "up", stats["status"])
	assert.Equal(t, "sqlite", stats["driver"])
	assert.Contains(t, stats, "open_connections")

	require.NoError(t, svc.Close())

	stats = svc.Health(context.Background())
	assert.Equal(t, "down", stats["status"])
	assert.Contains(t, stats["error"], "db down")
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(config.DatabaseConfig{Driver: "oracle"}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "unsupported database driver")
}
