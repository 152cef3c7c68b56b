package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"marketsync/internal/cache"
	"marketsync/internal/config"
	"marketsync/internal/datasync"
	"marketsync/internal/httpx"
	"marketsync/internal/logger"
	"marketsync/internal/provider"
	"marketsync/internal/provider/chain"
	"marketsync/internal/provider/eastmoney"
	"marketsync/internal/provider/ratelimit"
	"marketsync/internal/provider/tushare"
	"marketsync/internal/recorder"
)

// App wires the provider chain, cache, status tracker and recorder into
// a ready-to-use sync service. Every component is an explicit instance
// handed to whoever needs it; there is no process-wide state.
type App struct {
	Service  *datasync.Service
	Chain    *chain.Chain
	Cache    *cache.Store
	Status   *datasync.StatusTracker
	Recorder recorder.Recorder
}

func Build(cfg config.Config) (*App, error) {
	logger.SetLevel(cfg.LogLevel)

	httpClient := httpx.New(time.Duration(cfg.Providers.TimeoutSec) * time.Second)

	providers := make([]provider.Provider, 0, len(cfg.Providers.Order))
	for _, name := range cfg.Providers.Order {
		switch strings.ToLower(name) {
		case "eastmoney":
			if !cfg.Providers.Eastmoney.Enabled {
				continue
			}
			var p provider.Provider = eastmoney.New(eastmoney.Config{URL: cfg.Providers.Eastmoney.URL}, httpClient)
			if ms := cfg.Providers.Eastmoney.MinIntervalMs; ms > 0 {
				p = &ratelimit.MinInterval{P: p, Interval: time.Duration(ms) * time.Millisecond}
			}
			providers = append(providers, p)
		case "tushare":
			if !cfg.Providers.Tushare.Enabled {
				continue
			}
			opts := []tushare.ClientOption{tushare.WithHTTPClient(httpClient)}
			if cfg.Providers.Tushare.URL != "" {
				opts = append(opts, tushare.WithBaseURL(cfg.Providers.Tushare.URL))
			}
			client, err := tushare.NewClient(cfg.Providers.Tushare.Token, opts...)
			if err != nil {
				return nil, fmt.Errorf("tushare client: %w", err)
			}
			var p provider.Provider = tushare.NewProvider(client)
			if rpm := cfg.Providers.Tushare.MaxRequestsPerMinute; rpm > 0 {
				burst := cfg.Providers.Tushare.Burst
				if burst <= 0 {
					burst = 1
				}
				p = &ratelimit.TokenBucketProvider{P: p, TB: ratelimit.NewTokenBucket(float64(rpm)/60.0, burst)}
			}
			providers = append(providers, p)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers enabled")
	}
	ch := chain.New(time.Duration(cfg.Providers.TimeoutSec)*time.Second, providers...)

	store, err := cache.Open(cache.Options{
		Dir:             cfg.Cache.Dir,
		MaxBytes:        cfg.Cache.MaxSizeMB * 1024 * 1024,
		DefaultTTL:      time.Duration(cfg.Cache.TTLDays) * 24 * time.Hour,
		CleanupInterval: time.Duration(cfg.Cache.CleanupIntervalHours) * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	if dir := filepath.Dir(cfg.Sync.StatusFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create status dir: %w", err)
		}
	}
	status := datasync.NewStatusTracker(cfg.Sync.StatusFile)

	var rec recorder.Recorder
	if cfg.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.SQLitePath)
		if err != nil {
			logger.Warnf("sqlite recorder unavailable, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	svc := datasync.New(ch, datasync.Options{
		Concurrency: cfg.Sync.Concurrency,
		Retry: datasync.Backoff{
			MaxAttempts: cfg.Sync.Retries,
			Delay:       time.Duration(cfg.Sync.RetryDelaySec) * time.Second,
			Jitter:      time.Duration(cfg.Sync.JitterMs) * time.Millisecond,
		},
		TTL: time.Duration(cfg.Cache.TTLDays) * 24 * time.Hour,
	})
	svc.Cache = store
	svc.Status = status
	svc.Recorder = rec

	return &App{Service: svc, Chain: ch, Cache: store, Status: status, Recorder: rec}, nil
}

func (a *App) Close() error {
	return a.Recorder.Close()
}
