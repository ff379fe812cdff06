package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "briefs.yaml")
	yml := `
port: "9090"
db:
  driver: sqlite
  sqlite_path: /tmp/briefs.db
lock:
  max_wait: 750ms
reconcile:
  interval: 1m
  concurrency: 8
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RECONCILE_CONCURRENCY", "3")
	t.Setenv("POSTGRES_PASSWORD", "hunter2")

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "9090" || cfg.DB.Driver != DriverSQLite || cfg.DB.SQLitePath != "/tmp/briefs.db" {
		t.Fatalf("file values: %+v", cfg)
	}
	if cfg.Lock.MaxWait != 750*time.Millisecond || cfg.Reconcile.Interval != time.Minute {
		t.Fatalf("durations: max_wait=%s interval=%s", cfg.Lock.MaxWait, cfg.Reconcile.Interval)
	}
	if cfg.Reconcile.Concurrency != 3 {
		t.Fatalf("env override: want=3 got=%d", cfg.Reconcile.Concurrency)
	}
	if cfg.DB.Postgres.Password != "hunter2" {
		t.Fatalf("secret not read")
	}
	if cfg.Lock.InitialBackoff == 0 || cfg.Lock.TTL == 0 {
		t.Fatalf("defaults lost: %+v", cfg.Lock)
	}
	if got := cfg.LockBackend(); got != LockLocal {
		t.Fatalf("auto lock on sqlite: want=%s got=%s", LockLocal, got)
	}
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("prot: 1\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	if _, err := LoadConfig(nil); err == nil {
		t.Fatalf("want error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
		ok   bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad driver", func(c *Config) { c.DB.Driver = "mysql" }, false},
		{"postgres lock on sqlite", func(c *Config) { c.DB.Driver = DriverSQLite; c.Lock.Backend = LockPostgres }, false},
		{"redis lock without addr", func(c *Config) { c.Lock.Backend = LockRedis }, false},
		{"redis lock", func(c *Config) { c.Lock.Backend = LockRedis; c.Redis.Addr = "localhost:6379" }, true},
		{"zero concurrency", func(c *Config) { c.Reconcile.Concurrency = 0 }, false},
		{"negative wait", func(c *Config) { c.Lock.MaxWait = -time.Second }, false},
		{"admin limit without burst", func(c *Config) { c.Admin.Burst = 0 }, false},
		{"admin limit disabled", func(c *Config) { c.Admin.RateLimit = 0; c.Admin.Burst = 0 }, true},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mod(&cfg)
		if err := cfg.Validate(); (err == nil) != tc.ok {
			t.Fatalf("%s: ok=%v err=%v", tc.name, tc.ok, err)
		}
	}
}

func TestLockBackendAuto(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.LockBackend(); got != LockPostgres {
		t.Fatalf("postgres: got=%s", got)
	}
	cfg.DB.Driver = DriverMemory
	cfg.Redis.Addr = "localhost:6379"
	if got := cfg.LockBackend(); got != LockRedis {
		t.Fatalf("redis: got=%s", got)
	}
}
