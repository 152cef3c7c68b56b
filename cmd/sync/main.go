package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"marketsync/internal/app"
	"marketsync/internal/config"
)

func main() {
	var symbolsCSV string
	var startStr, endStr string
	var days int
	var concurrency, retries int
	var force bool
	var configPath string

	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", ""), "comma-separated instrument codes, e.g. 600519,000001")
	flag.StringVar(&startStr, "start", "", "range start, YYYY-MM-DD (default: -days from end)")
	flag.StringVar(&endStr, "end", "", "range end, YYYY-MM-DD (default: today)")
	flag.IntVar(&days, "days", 365, "range length when -start is omitted")
	flag.IntVar(&concurrency, "concurrency", 0, "override sync.concurrency")
	flag.IntVar(&retries, "retries", 0, "override sync.retries")
	flag.BoolVar(&force, "force", false, "bypass cache reads and re-fetch everything")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if concurrency > 0 {
		cfg.Sync.Concurrency = concurrency
	}
	if retries > 0 {
		cfg.Sync.Retries = retries
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		symbols = cfg.Schedule.Symbols
	}
	if len(symbols) == 0 {
		log.Fatal("no symbols provided; use -symbols or schedule.symbols in config")
	}

	end := time.Now()
	if endStr != "" {
		if end, err = time.Parse("2006-01-02", endStr); err != nil {
			log.Fatalf("parse -end: %v", err)
		}
	}
	start := end.AddDate(0, 0, -days)
	if startStr != "" {
		if start, err = time.Parse("2006-01-02", startStr); err != nil {
			log.Fatalf("parse -start: %v", err)
		}
	}

	a, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run := a.Service.SyncSymbols
	if force {
		run = a.Service.Resync
	}
	ok, errs := run(ctx, symbols, start, end)

	type symbolSummary struct {
		Provider string `json:"provider"`
		Bars     int    `json:"bars"`
	}
	summary := struct {
		Succeeded map[string]symbolSummary `json:"succeeded"`
		Errors    map[string]string        `json:"errors,omitempty"`
	}{Succeeded: make(map[string]symbolSummary, len(ok)), Errors: errs}
	for sym, ser := range ok {
		summary.Succeeded[sym] = symbolSummary{Provider: ser.Provider, Bars: len(ser.Bars)}
	}
	b, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(b))

	if len(ok) == 0 && len(errs) > 0 {
		os.Exit(1)
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
