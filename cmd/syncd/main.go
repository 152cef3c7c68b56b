package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"marketsync/internal/app"
	"marketsync/internal/config"
	"marketsync/internal/logger"
)

// syncd keeps a symbol pool fresh: a cron-scheduled batch sync after
// each trading day plus a nightly cache cleanup.
func main() {
	cfgPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}
	if len(cfg.Schedule.Symbols) == 0 {
		log.Fatal("schedule.symbols is empty")
	}

	a, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runSync := func() {
		end := time.Now()
		start := end.AddDate(0, 0, -cfg.Schedule.RangeDays)
		ok, errs := a.Service.SyncSymbols(ctx, cfg.Schedule.Symbols, start, end)
		logger.Infof("scheduled sync: %d ok, %d failed", len(ok), len(errs))
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cfg.Schedule.SyncCron, runSync); err != nil {
		log.Fatalf("register sync task: %v", err)
	}
	// Nightly cleanup independent of the Set-triggered interval check.
	if _, err := c.AddFunc("0 0 3 * * *", func() {
		removed := a.Cache.Cleanup()
		logger.Infof("nightly cache cleanup removed %d entries", removed)
	}); err != nil {
		log.Fatalf("register cleanup task: %v", err)
	}
	c.Start()

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Infof("RUN_ON_START enabled, syncing now")
		go runSync()
	}

	logger.Infof("syncd running, %d symbols, cron %q", len(cfg.Schedule.Symbols), cfg.Schedule.SyncCron)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("shutdown signal received, stopping")
	cancel()
	<-c.Stop().Done()
}
