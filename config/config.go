package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. RESERVATION_SERVER_PORT.
const EnvPrefix = "RESERVATION"

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	CORS       CORSConfig       `yaml:"cors" envconfig:"CORS"`
	Database   DatabaseConfig   `yaml:"database" envconfig:"DATABASE"`
	Sweeper    SweeperConfig    `yaml:"sweeper" envconfig:"SWEEPER"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool" envconfig:"WORKER_POOL"`
	Log        LogConfig        `yaml:"log" envconfig:"LOG"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" envconfig:"PORT"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" envconfig:"RATE_LIMIT_PER_SEC"`
	RateLimitBurst  int     `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds" envconfig:"CACHE_TTL_SECONDS"`
	// PrincipalHeader carries the caller identity set by the authenticating proxy.
	PrincipalHeader string `yaml:"principal_header" envconfig:"PRINCIPAL_HEADER"`
}

// CORSConfig holds the cross-origin settings for the HTTP API.
type CORSConfig struct {
	AllowOrigins  []string `yaml:"allow_origins" envconfig:"ALLOW_ORIGINS"`
	AllowMethods  []string `yaml:"allow_methods" envconfig:"ALLOW_METHODS"`
	AllowHeaders  []string `yaml:"allow_headers" envconfig:"ALLOW_HEADERS"`
	MaxAgeSeconds int      `yaml:"max_age_seconds" envconfig:"MAX_AGE_SECONDS"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" envconfig:"DRIVER"`
	DSN                    string `yaml:"dsn" envconfig:"DSN"`
	MaxOpenConns           int    `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns           int    `yaml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" envconfig:"CONN_MAX_LIFETIME_MINUTES"`
	EnableGistIndex        bool   `yaml:"enable_gist_index" envconfig:"ENABLE_GIST_INDEX"`
}

// SweeperConfig holds the expiry sweeper configuration.
type SweeperConfig struct {
	Enabled         bool          `yaml:"enabled" envconfig:"ENABLED"`
	IntervalSeconds int           `yaml:"interval_seconds" envconfig:"INTERVAL_SECONDS"`
	Interval        time.Duration `yaml:"-" ignored:"true"`
}

// WorkerPoolConfig holds the configuration for the audit worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size" envconfig:"SIZE"`
	QueueSize int `yaml:"queue_size" envconfig:"QUEUE_SIZE"`
}

// LogConfig selects the level and encoding of the process logger.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Load reads the configuration from the given path, applies RESERVATION_*
// environment overrides and fills in defaults for anything left unset.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open config %s", path)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "apply environment overrides")
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 5
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 2 * int(c.Server.RateLimitPerSec+0.5)
		if c.Server.RateLimitBurst < 1 {
			c.Server.RateLimitBurst = 1
		}
	}
	if c.Server.CacheTTLSeconds < 0 {
		c.Server.CacheTTLSeconds = 0
	}
	if c.Server.PrincipalHeader == "" {
		c.Server.PrincipalHeader = "X-Principal"
	}

	if len(c.CORS.AllowOrigins) == 0 {
		c.CORS.AllowOrigins = []string{"*"}
	}
	if len(c.CORS.AllowMethods) == 0 {
		c.CORS.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowHeaders) == 0 {
		c.CORS.AllowHeaders = []string{"Origin", "Content-Type", "Accept", c.Server.PrincipalHeader}
	}
	if c.CORS.MaxAgeSeconds <= 0 {
		c.CORS.MaxAgeSeconds = 12 * 60 * 60
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetimeMinutes <= 0 {
		c.Database.ConnMaxLifetimeMinutes = 30
	}

	if c.Sweeper.IntervalSeconds <= 0 {
		c.Sweeper.IntervalSeconds = 60
	}
	c.Sweeper.Interval = time.Duration(c.Sweeper.IntervalSeconds) * time.Second

	if c.WorkerPool.Size <= 0 {
		c.WorkerPool.Size = 1
	}
	if c.WorkerPool.QueueSize <= 0 {
		c.WorkerPool.QueueSize = 64
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return errors.Newf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Newf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// SlogLevel maps the configured level name onto a slog level. Unknown names
// fall back to info.
func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds the process logger writing to w.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
