package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak
// into the assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DB_DRIVER", "DB_PATH", "DATABASE_URL",
		"BLUEPRINT_DB_HOST", "BLUEPRINT_DB_PORT", "BLUEPRINT_DB_USERNAME",
		"BLUEPRINT_DB_PASSWORD", "BLUEPRINT_DB_DATABASE",
		"LOG_LEVEL", "LOG_FORMAT", "JWT_SECRET", "AUTH_REQUIRED",
		"JIRA_WEBHOOK_SECRET", "WEBHOOK_WORKERS", "WEBHOOK_QUEUE_SIZE",
		"CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
	// godotenv must not pick up a developer's .env.
	t.Chdir(t.TempDir())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 2, cfg.Webhook.Workers)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9000
database:
  driver: sqlite
  path: /tmp/from-yaml.db
logging:
  level: debug
webhook:
  secret: yaml-secret
  workers: 4
`), 0o644))

	t.Setenv("DB_PATH", "/tmp/from-env.db")
	t.Setenv("WEBHOOK_QUEUE_SIZE", "10")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://app.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	want := DefaultConfig()
	want.Port = 9000
	want.Database.Path = "/tmp/from-env.db"
	want.Logging.Level = "debug"
	want.Webhook = WebhookConfig{Secret: "yaml-secret", Workers: 4, QueueSize: 10}
	want.CORS.AllowedOrigins = []string{"http://localhost:3000", "https://app.example.com"}

	if diff := cmp.Diff(want, cfg, cmp.AllowUnexported(Config{})); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_InvalidPortFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	require.Len(t, cfg.Warnings(), 1)
	assert.Contains(t, cfg.Warnings()[0], "not-a-port")
}

func TestLoad_AuthRequired(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Auth.Required)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "unsupported database driver"},
		{"postgres without host", func(c *Config) { c.Database.Driver = DriverPostgres }, "postgres requires"},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, "database path is required"},
		{"zero workers", func(c *Config) { c.Webhook.Workers = 0 }, "workers must be at least 1"},
		{"auth without secret", func(c *Config) { c.Auth.Required = true; c.Auth.JWTSecret = "" }, "no JWT secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", Username: "u", Password: "p", Name: "todos"}
	assert.Equal(t, "host=db user=u password=p dbname=todos port=5432 sslmode=disable", d.PostgresDSN())

	d.URL = "postgres://u:p@db:5432/todos"
	assert.Equal(t, d.URL, d.PostgresDSN())
}
