package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Cache struct {
	Dir                  string `yaml:"dir"`
	MaxSizeMB            int64  `yaml:"max_size_mb"`
	TTLDays              int    `yaml:"ttl_days"`
	CleanupIntervalHours int    `yaml:"cleanup_interval_hours"`
}

type Sync struct {
	Concurrency   int    `yaml:"concurrency"`
	Retries       int    `yaml:"retries"`
	RetryDelaySec int    `yaml:"retry_delay_sec"`
	JitterMs      int    `yaml:"jitter_ms"`
	StatusFile    string `yaml:"status_file"`
}

type Eastmoney struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	// MinIntervalMs spaces out consecutive requests; 0 disables pacing.
	MinIntervalMs int `yaml:"min_interval_ms"`
}

type Tushare struct {
	Enabled              bool   `yaml:"enabled"`
	Token                string `yaml:"token"`
	URL                  string `yaml:"url"`
	MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
	Burst                int    `yaml:"burst"`
}

type Providers struct {
	// Order is the failover order; names must match provider names.
	Order      []string  `yaml:"order"`
	TimeoutSec int       `yaml:"timeout_sec"`
	Eastmoney  Eastmoney `yaml:"eastmoney"`
	Tushare    Tushare   `yaml:"tushare"`
}

type Schedule struct {
	SyncCron  string   `yaml:"sync_cron"`
	Symbols   []string `yaml:"symbols"`
	RangeDays int      `yaml:"range_days"`
}

type Config struct {
	LogLevel   string    `yaml:"log_level"`
	Cache      Cache     `yaml:"cache"`
	Sync       Sync      `yaml:"sync"`
	Providers  Providers `yaml:"providers"`
	Schedule   Schedule  `yaml:"schedule"`
	SQLitePath string    `yaml:"sqlite_path"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Cache: Cache{
			Dir:                  "cache",
			MaxSizeMB:            500,
			TTLDays:              7,
			CleanupIntervalHours: 24,
		},
		Sync: Sync{
			Concurrency:   5,
			Retries:       3,
			RetryDelaySec: 5,
			StatusFile:    "data/sync_status.json",
		},
		Providers: Providers{
			Order:      []string{"eastmoney", "tushare"},
			TimeoutSec: 10,
			Eastmoney:  Eastmoney{Enabled: true},
			Tushare: Tushare{
				Enabled:              false,
				MaxRequestsPerMinute: 60,
				Burst:                5,
			},
		},
		Schedule: Schedule{
			SyncCron:  "0 0 18 * * 1-5",
			RangeDays: 365,
		},
	}
}

// Load reads YAML config from path. An empty path falls back to
// config.yaml when present. Environment variables override select
// fields, mainly secrets.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("TUSHARE_TOKEN"); v != "" {
		cfg.Providers.Tushare.Token = v
		cfg.Providers.Tushare.Enabled = true
	}
	if v := os.Getenv("SYNC_CONCURRENCY"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Sync.Concurrency = x
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
}

func (c Config) Validate() error {
	if c.Sync.Concurrency < 1 {
		return errors.New("sync.concurrency must be >= 1")
	}
	if c.Sync.Retries < 1 {
		return errors.New("sync.retries must be >= 1")
	}
	if len(c.Providers.Order) == 0 {
		return errors.New("providers.order is empty")
	}
	for _, name := range c.Providers.Order {
		switch strings.ToLower(name) {
		case "eastmoney", "tushare":
		default:
			return fmt.Errorf("unknown provider %q in providers.order", name)
		}
	}
	if c.Providers.Tushare.Enabled && c.Providers.Tushare.Token == "" {
		return errors.New("providers.tushare.token required when tushare is enabled")
	}
	return nil
}
