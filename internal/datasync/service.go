package datasync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"marketsync/internal/cache"
	"marketsync/internal/logger"
	"marketsync/internal/provider"
	"marketsync/internal/recorder"
	"marketsync/internal/series"
)

// Fetcher runs the full provider chain for one symbol.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) (*series.Series, error)
}

// Options configures a batch sync service.
type Options struct {
	// Concurrency is the hard cap on simultaneously in-flight symbol
	// tasks. Values below 1 behave as 1.
	Concurrency int
	// Retry is the per-symbol attempt policy; each retry re-runs the
	// whole provider chain.
	Retry Backoff
	// TTL applies to series written to the cache.
	TTL time.Duration
}

// Service fans symbol fetches out over a bounded worker pool, consults
// the cache before the network, and records batch outcomes. Optional
// collaborators may be left nil.
type Service struct {
	Cache    *cache.Store
	Status   *StatusTracker
	Recorder recorder.Recorder

	fetcher     Fetcher
	concurrency int
	retry       Backoff
	ttl         time.Duration
	sf          singleflight.Group
}

func New(fetcher Fetcher, opts Options) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Service{
		fetcher:     fetcher,
		concurrency: opts.Concurrency,
		retry:       opts.Retry,
		ttl:         opts.TTL,
	}
}

// CacheKey names the cache entry for one symbol over one date range.
func CacheKey(symbol string, start, end time.Time) string {
	return fmt.Sprintf("%s_%s_%s", symbol, start.Format("20060102"), end.Format("20060102"))
}

// SyncSymbols fetches every symbol over the range, serving from cache
// where possible. It always returns (results, errors) and never aborts
// the batch for a single symbol's failure.
func (s *Service) SyncSymbols(ctx context.Context, symbols []string, start, end time.Time) (map[string]*series.Series, map[string]string) {
	return s.run(ctx, symbols, start, end, false)
}

// Resync behaves like SyncSymbols but bypasses cache reads, so every
// symbol is re-fetched. Fresh results still populate the cache.
func (s *Service) Resync(ctx context.Context, symbols []string, start, end time.Time) (map[string]*series.Series, map[string]string) {
	return s.run(ctx, symbols, start, end, true)
}

func (s *Service) run(ctx context.Context, symbols []string, start, end time.Time, force bool) (map[string]*series.Series, map[string]string) {
	startedAt := time.Now()
	results := make(map[string]*series.Series)
	errs := make(map[string]string)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(int64(s.concurrency))
	)
	for _, sym := range unique(symbols) {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				errs[sym] = err.Error()
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			ser, err := s.syncOne(ctx, sym, start, end, force)
			mu.Lock()
			if err != nil {
				errs[sym] = err.Error()
			} else {
				results[sym] = ser
			}
			mu.Unlock()
		}(sym)
	}
	wg.Wait()

	succeeded := make([]string, 0, len(results))
	for sym := range results {
		succeeded = append(succeeded, sym)
	}
	if s.Status != nil {
		s.Status.RecordBatch(succeeded, errs)
	}
	if s.Recorder != nil {
		run := &recorder.RunRecord{
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Requested: len(symbols),
			Succeeded: len(results),
			Failed:    len(errs),
			Errors:    errs,
		}
		if err := s.Recorder.RecordRun(run); err != nil {
			logger.Errorf("sync: record run: %v", err)
		}
	}
	logger.Infof("sync: batch done, %d ok, %d failed, took %s", len(results), len(errs), time.Since(startedAt).Round(time.Millisecond))
	return results, errs
}

func (s *Service) syncOne(ctx context.Context, sym string, start, end time.Time, force bool) (*series.Series, error) {
	key := CacheKey(sym, start, end)
	if !force && s.Cache != nil {
		if ser, ok := s.Cache.GetSeries(key); ok {
			logger.Debugf("sync: cache hit for %s", key)
			return ser, nil
		}
	}
	// Duplicate in-flight requests for the same key share one fetch.
	v, err, _ := s.sf.Do(key, func() (any, error) {
		return s.fetchWithRetry(ctx, sym, start, end, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*series.Series), nil
}

// fetchWithRetry re-runs the whole chain up to the attempt budget.
// Permanent failures stop immediately without consuming the budget.
func (s *Service) fetchWithRetry(ctx context.Context, sym string, start, end time.Time, key string) (*series.Series, error) {
	attempts := s.retry.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ser, err := s.fetcher.Fetch(ctx, sym, start, end)
		if err == nil {
			if s.Cache != nil {
				s.Cache.SetSeries(key, ser, s.ttl)
			}
			return ser, nil
		}
		lastErr = err
		if !provider.IsTransient(err) {
			logger.Warnf("sync: %s failed permanently: %v", sym, err)
			return nil, err
		}
		logger.Warnf("sync: %s attempt %d/%d failed: %v", sym, attempt, attempts, err)
		if attempt < attempts {
			if werr := s.retry.Wait(ctx); werr != nil {
				return nil, fmt.Errorf("retry aborted: %w", werr)
			}
		}
	}
	return nil, fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr)
}

// unique drops duplicate symbols preserving first-seen order.
func unique(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
