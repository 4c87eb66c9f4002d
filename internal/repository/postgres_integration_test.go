package repository

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/satish1373/ag-devops/internal/config"
	"github.com/satish1373/ag-devops/internal/database"
)

// newPostgres starts a disposable Postgres and returns a migrated handle.
// Skipped under -short or when no container runtime is reachable.
func newPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("todos"),
		tcpostgres.WithUsername("todo"),
		tcpostgres.WithPassword("todo"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	svc, err := database.New(config.DatabaseConfig{
		Driver:        config.DriverPostgres,
		URL:           dsn,
		SlowThreshold: time.Second,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	if err := svc.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return svc.GetDB()
}

func TestRepositories_Postgres(t *testing.T) {
	db := newPostgres(t)

	t.Run("todos", func(t *testing.T) { exerciseTodoRepository(t, db) })
	t.Run("users", func(t *testing.T) { exerciseUserRepository(t, db) })
	t.Run("runs", func(t *testing.T) { exerciseRunRepository(t, db) })
}
