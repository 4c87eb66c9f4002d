// Package databasetest opens throwaway databases for tests.
package databasetest

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satish1373/ag-devops/internal/config"
	"github.com/satish1373/ag-devops/internal/database"
)

// NewSQLite returns a migrated in-memory SQLite database closed at test end.
func NewSQLite(t testing.TB) database.Service {
	t.Helper()

	svc, err := database.New(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   ":memory:",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	if err := svc.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return svc
}
