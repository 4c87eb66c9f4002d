package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all ag-devops server configuration.
type Config struct {
	Port     int            `yaml:"port"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Auth     AuthConfig     `yaml:"auth"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	CORS     CORSConfig     `yaml:"cors"`

	warnings []string
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres
	Path   string `yaml:"path"`   // sqlite file, ":memory:" for tests

	// Postgres connection. URL wins over the individual fields.
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`

	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// AuthConfig configures JWT issuing and whether todo routes require it.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Required  bool          `yaml:"required"`
}

// WebhookConfig configures the Jira webhook intake.
type WebhookConfig struct {
	Secret    string `yaml:"secret"`
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
}

// CORSConfig lists the origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultPort = 8080
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		Port: defaultPort,
		Database: DatabaseConfig{
			Driver:        DriverSQLite,
			Path:          "./data/todos.db",
			Port:          "5432",
			SlowThreshold: time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Auth: AuthConfig{
			JWTSecret: "change-me-in-production",
			TokenTTL:  24 * time.Hour,
		},
		Webhook: WebhookConfig{
			Workers:   2,
			QueueSize: 64,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"https://*", "http://*"},
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment (including a .env file in the working directory), in that order.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Warnings returns problems found while applying env overrides. They are not
// fatal; the caller logs them once a logger exists.
func (c *Config) Warnings() []string {
	return c.warnings
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			c.warnings = append(c.warnings, fmt.Sprintf("invalid PORT environment variable %q, using %d", v, defaultPort))
			port = defaultPort
		}
		c.Port = port
	}

	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Host, "BLUEPRINT_DB_HOST")
	setString(&c.Database.Port, "BLUEPRINT_DB_PORT")
	setString(&c.Database.Username, "BLUEPRINT_DB_USERNAME")
	setString(&c.Database.Password, "BLUEPRINT_DB_PASSWORD")
	setString(&c.Database.Name, "BLUEPRINT_DB_DATABASE")

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")

	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	if v := os.Getenv("AUTH_REQUIRED"); v != "" {
		c.Auth.Required = parseBool(v)
	}

	setString(&c.Webhook.Secret, "JIRA_WEBHOOK_SECRET")
	c.setInt(&c.Webhook.Workers, "WEBHOOK_WORKERS")
	c.setInt(&c.Webhook.QueueSize, "WEBHOOK_QUEUE_SIZE")

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORS.AllowedOrigins = origins
	}
}

// Validate reports configuration that cannot be served.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database path is required for sqlite"))
		}
	case DriverPostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			errs = append(errs, errors.New("postgres requires DATABASE_URL or BLUEPRINT_DB_HOST"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Webhook.Workers < 1 {
		errs = append(errs, errors.New("webhook workers must be at least 1"))
	}
	if c.Webhook.QueueSize < 1 {
		errs = append(errs, errors.New("webhook queue size must be at least 1"))
	}
	if c.Auth.Required && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth is required but no JWT secret is set"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// PostgresDSN builds the key/value DSN described by the BLUEPRINT_DB_* vars,
// unless a URL was given.
func (d DatabaseConfig) PostgresDSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		d.Host, d.Username, d.Password, d.Name, d.Port)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		} else {
			c.warnings = append(c.warnings, fmt.Sprintf("ignoring invalid %s=%q", key, v))
		}
	}
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
