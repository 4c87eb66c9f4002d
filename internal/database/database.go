package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/satish1373/ag-devops/internal/config"
	"github.com/satish1373/ag-devops/internal/domain"
)

// Service wraps the GORM handle shared by the repositories.
type Service interface {
	Health(ctx context.Context) map[string]string
	Close() error
	GetDB() *gorm.DB
	Migrate() error
	Driver() string
}

type service struct {
	db     *gorm.DB
	driver string
	name   string
	log    *zap.Logger
}

// New opens the database described by cfg. SQLite is the default and keeps a
// single connection so ":memory:" databases survive for the life of the pool.
func New(cfg config.DatabaseConfig, log *zap.Logger) (Service, error) {
	var (
		dialector gorm.Dialector
		name      string
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		dsn, err := sqliteDSN(cfg.Path)
		if err != nil {
			return nil, err
		}
		dialector = sqlite.Open(dsn)
		name = cfg.Path
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.PostgresDSN())
		name = cfg.Name
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormLogLevel := logger.Warn
	if log.Core().Enabled(zapcore.DebugLevel) {
		gormLogLevel = logger.Info
	}
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             cfg.SlowThreshold,
			LogLevel:                  gormLogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == config.DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("database connected", zap.String("driver", cfg.Driver), zap.String("database", name))
	return &service{db: db, driver: cfg.Driver, name: name, log: log}, nil
}

func sqliteDSN(path string) (string, error) {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return path + "?_busy_timeout=5000&_journal_mode=WAL", nil
}

func (s *service) GetDB() *gorm.DB {
	return s.db
}

func (s *service) Driver() string {
	return s.driver
}

// Migrate creates or updates the tables for every domain model.
func (s *service) Migrate() error {
	if err := s.db.AutoMigrate(&domain.Todo{}, &domain.User{}, &domain.AutomationRun{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// Health pings the database and reports pool statistics.
func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	stats := make(map[string]string)
	stats["driver"] = s.driver

	sqlDB, err := s.db.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("failed to get underlying DB for health check: %v", err)
		s.log.Error("health check failed", zap.Error(err))
		return stats
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		s.log.Warn("db down", zap.Error(err))
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := sqlDB.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	if dbStats.OpenConnections > 80 {
		stats["message"] = "The database is experiencing heavy load."
	}
	if dbStats.WaitCount > 1000 && s.driver == config.DriverPostgres {
		// sqlite waits on its single connection by construction
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}
	if dbStats.MaxLifetimeClosed > int64(dbStats.OpenConnections)/2 && dbStats.OpenConnections > 0 {
		stats["message"] = "Many connections are being closed due to max lifetime, consider increasing ConnMaxLifetime."
	}

	return stats
}

func (s *service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB for closing: %w", err)
	}
	s.log.Info("closing connection pool", zap.String("database", s.name))
	return sqlDB.Close()
}
