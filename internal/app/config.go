package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/briefs-backend/internal/clients/redis"
	"github.com/yungbote/briefs-backend/internal/data/db"
	"github.com/yungbote/briefs-backend/internal/data/familylock"
	"github.com/yungbote/briefs-backend/internal/observability"
	"github.com/yungbote/briefs-backend/internal/pkg/envutil"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
	"github.com/yungbote/briefs-backend/internal/services"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"

	LockAuto     = "auto"
	LockPostgres = "postgres"
	LockRedis    = "redis"
	LockLocal    = "local"
)

type Config struct {
	LogMode     string   `yaml:"log_mode"`
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`

	DB        DBConfig                 `yaml:"db"`
	Lock      LockConfig               `yaml:"lock"`
	Redis     redis.Config             `yaml:"redis"`
	Reconcile ReconcileConfig          `yaml:"reconcile"`
	Admin     AdminConfig              `yaml:"admin"`
	Metrics   MetricsConfig            `yaml:"metrics"`
	Otel      observability.OtelConfig `yaml:"otel"`
}

type DBConfig struct {
	Driver     string            `yaml:"driver"`
	SQLitePath string            `yaml:"sqlite_path"`
	Postgres   db.PostgresConfig `yaml:"postgres"`
}

type LockConfig struct {
	Backend        string        `yaml:"backend"`
	MaxWait        time.Duration `yaml:"max_wait"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	// TTL bounds how long a Redis lease survives a crashed holder.
	TTL time.Duration `yaml:"ttl"`
}

func (l LockConfig) Policy() familylock.Policy {
	return familylock.Policy{MaxWait: l.MaxWait, InitialInterval: l.InitialBackoff, MaxInterval: l.MaxBackoff}
}

type ReconcileConfig struct {
	// Interval <= 0 disables the background worker.
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	OnStart     bool          `yaml:"on_start"`
}

// AdminConfig throttles the admin endpoints. RateLimit is requests per second; <= 0 disables it.
type AdminConfig struct {
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

func DefaultConfig() Config {
	p := familylock.DefaultPolicy()
	return Config{
		LogMode: "development",
		Port:    "8080",
		DB: DBConfig{
			Driver:     DriverPostgres,
			SQLitePath: "briefs.db",
			Postgres: db.PostgresConfig{
				Host:    "localhost",
				Port:    "5432",
				User:    "postgres",
				Name:    "briefs",
				SSLMode: "disable",
			},
		},
		Lock: LockConfig{
			Backend:        LockAuto,
			MaxWait:        p.MaxWait,
			InitialBackoff: p.InitialInterval,
			MaxBackoff:     p.MaxInterval,
			TTL:            30 * time.Second,
		},
		Reconcile: ReconcileConfig{
			Interval:    5 * time.Minute,
			Concurrency: services.DefaultReconcileConcurrency,
			OnStart:     true,
		},
		Admin: AdminConfig{
			RateLimit: 1,
			Burst:     5,
		},
		Otel: observability.OtelConfig{
			ServiceName: "briefs-backend",
			SampleRatio: 0.1,
		},
	}
}

// LoadConfig layers defaults, the optional CONFIG_FILE and then environment variables.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := DefaultConfig()
	if path := envutil.String("CONFIG_FILE", "", log); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	applyEnv(&cfg, log)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decodeYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, log *logger.Logger) {
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode, log)
	cfg.Port = envutil.String("PORT", cfg.Port, log)
	cfg.CORSOrigins = envutil.List("CORS_ORIGINS", cfg.CORSOrigins, log)

	cfg.DB.Driver = strings.ToLower(envutil.String("DB_DRIVER", cfg.DB.Driver, log))
	cfg.DB.SQLitePath = envutil.String("SQLITE_PATH", cfg.DB.SQLitePath, log)
	cfg.DB.Postgres.Host = envutil.String("POSTGRES_HOST", cfg.DB.Postgres.Host, log)
	cfg.DB.Postgres.Port = envutil.String("POSTGRES_PORT", cfg.DB.Postgres.Port, log)
	cfg.DB.Postgres.User = envutil.String("POSTGRES_USER", cfg.DB.Postgres.User, log)
	cfg.DB.Postgres.Password = envutil.Secret("POSTGRES_PASSWORD", cfg.DB.Postgres.Password, log)
	cfg.DB.Postgres.Name = envutil.String("POSTGRES_NAME", cfg.DB.Postgres.Name, log)
	cfg.DB.Postgres.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.DB.Postgres.SSLMode, log)

	cfg.Lock.Backend = strings.ToLower(envutil.String("LOCK_BACKEND", cfg.Lock.Backend, log))
	cfg.Lock.MaxWait = envutil.Duration("LOCK_MAX_WAIT", cfg.Lock.MaxWait, log)
	cfg.Lock.InitialBackoff = envutil.Duration("LOCK_INITIAL_BACKOFF", cfg.Lock.InitialBackoff, log)
	cfg.Lock.MaxBackoff = envutil.Duration("LOCK_MAX_BACKOFF", cfg.Lock.MaxBackoff, log)
	cfg.Lock.TTL = envutil.Duration("LOCK_TTL", cfg.Lock.TTL, log)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr, log)
	cfg.Redis.Password = envutil.Secret("REDIS_PASSWORD", cfg.Redis.Password, log)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB, log)

	cfg.Reconcile.Interval = envutil.Duration("RECONCILE_INTERVAL", cfg.Reconcile.Interval, log)
	cfg.Reconcile.Concurrency = envutil.Int("RECONCILE_CONCURRENCY", cfg.Reconcile.Concurrency, log)
	cfg.Reconcile.OnStart = envutil.Bool("RECONCILE_ON_START", cfg.Reconcile.OnStart, log)

	cfg.Admin.RateLimit = envutil.Float("ADMIN_RATE_LIMIT", cfg.Admin.RateLimit, log)
	cfg.Admin.Burst = envutil.Int("ADMIN_RATE_BURST", cfg.Admin.Burst, log)

	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled, log)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled, log)
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName, log)
	cfg.Otel.Environment = envutil.String("OTEL_ENVIRONMENT", cfg.Otel.Environment, log)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint, log)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure, log)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", cfg.Otel.SampleRatio, log)
	if h := observability.ParseHeaders(envutil.Secret("OTEL_EXPORTER_OTLP_HEADERS", "", log)); h != nil {
		cfg.Otel.Headers = h
	}
}

func (c Config) Validate() error {
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Lock.Backend {
	case LockAuto, LockLocal:
	case LockPostgres:
		if c.DB.Driver != DriverPostgres {
			return fmt.Errorf("LOCK_BACKEND=postgres requires DB_DRIVER=postgres, got %q", c.DB.Driver)
		}
	case LockRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("LOCK_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.Lock.Backend)
	}
	if c.Lock.MaxWait < 0 {
		return fmt.Errorf("LOCK_MAX_WAIT must not be negative")
	}
	if c.Lock.Backend == LockRedis && c.Lock.TTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive for the redis backend")
	}
	if c.Admin.RateLimit > 0 && c.Admin.Burst < 1 {
		return fmt.Errorf("ADMIN_RATE_BURST must be at least 1 when ADMIN_RATE_LIMIT is set")
	}
	if c.Reconcile.Concurrency < 1 {
		return fmt.Errorf("RECONCILE_CONCURRENCY must be at least 1")
	}
	return nil
}

// LockBackend resolves "auto": advisory locks on Postgres, otherwise Redis when configured,
// otherwise the in-process lock.
func (c Config) LockBackend() string {
	if c.Lock.Backend != LockAuto {
		return c.Lock.Backend
	}
	switch {
	case c.DB.Driver == DriverPostgres:
		return LockPostgres
	case strings.TrimSpace(c.Redis.Addr) != "":
		return LockRedis
	default:
		return LockLocal
	}
}
