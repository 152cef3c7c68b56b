package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"marketsync/internal/logger"
)

// Kind tags how a cached payload is serialized. The caller states the
// kind explicitly at Set time; the store never inspects value types.
type Kind string

const (
	// KindTabular is a bar series, stored as CSV.
	KindTabular Kind = "tabular"
	// KindStructured is any JSON-encodable value.
	KindStructured Kind = "structured"
	// KindOpaque is a raw byte blob.
	KindOpaque Kind = "opaque"
)

var kindExt = map[Kind]string{
	KindTabular:    ".csv",
	KindStructured: ".json",
	KindOpaque:     ".bin",
}

const indexFile = "cache_index.json"

// entry is one index record. Timestamps serialize as RFC 3339.
type entry struct {
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	SizeBytes int64     `json:"size_bytes"`
}

type Options struct {
	Dir string
	// MaxBytes caps the total cached payload size; 0 disables eviction.
	MaxBytes int64
	// DefaultTTL applies when Set is called with ttl <= 0.
	DefaultTTL time.Duration
	// CleanupInterval gates how often a Set triggers a cleanup cycle.
	CleanupInterval time.Duration
}

// Store is a typed, TTL- and size-bounded on-disk cache with a
// persisted index. A single mutex serializes every read-modify-write of
// the index; concurrent Set calls from completing fetches cannot lose
// updates. Failures on Set/Delete are logged and reported as false,
// never propagated; Get degrades any failure to a miss.
type Store struct {
	dir             string
	maxBytes        int64
	defaultTTL      time.Duration
	cleanupInterval time.Duration

	now func() time.Time

	mu          sync.Mutex
	index       map[string]entry
	lastCleanup time.Time
}

// Open prepares the cache directory tree, loads the persisted index and
// reconciles it with the files on disk: orphan files (a crash between
// the payload write and the index write) are removed, and index entries
// whose backing file is gone are dropped.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("cache: empty dir")
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 7 * 24 * time.Hour
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 24 * time.Hour
	}
	for _, kind := range []Kind{KindTabular, KindStructured, KindOpaque} {
		if err := os.MkdirAll(filepath.Join(opts.Dir, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("cache: create dir: %w", err)
		}
	}
	s := &Store{
		dir:             opts.Dir,
		maxBytes:        opts.MaxBytes,
		defaultTTL:      opts.DefaultTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
		index:           make(map[string]entry),
	}
	s.loadIndex()
	s.sweepOrphans()
	s.lastCleanup = s.now()
	return s, nil
}

func (s *Store) loadIndex() {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Errorf("cache: read index: %v", err)
		}
		return
	}
	if err := json.Unmarshal(data, &s.index); err != nil {
		logger.Errorf("cache: parse index, starting empty: %v", err)
		s.index = make(map[string]entry)
	}
}

// saveIndex persists the index. Callers hold s.mu.
func (s *Store) saveIndex() bool {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		logger.Errorf("cache: marshal index: %v", err)
		return false
	}
	if err := os.WriteFile(filepath.Join(s.dir, indexFile), data, 0o644); err != nil {
		logger.Errorf("cache: write index: %v", err)
		return false
	}
	return true
}

// sweepOrphans reconciles disk and index at startup.
func (s *Store) sweepOrphans() {
	known := make(map[string]struct{}, len(s.index))
	for key, e := range s.index {
		path := s.path(key, e.Kind)
		if _, err := os.Stat(path); err != nil {
			logger.Warnf("cache: dropping index entry without file: %s", key)
			delete(s.index, key)
			continue
		}
		known[path] = struct{}{}
	}
	for kind := range kindExt {
		dir := filepath.Join(s.dir, string(kind))
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			path := filepath.Join(dir, f.Name())
			if _, ok := known[path]; !ok {
				logger.Warnf("cache: removing orphan file: %s", path)
				if err := os.Remove(path); err != nil {
					logger.Errorf("cache: remove orphan %s: %v", path, err)
				}
			}
		}
	}
	s.saveIndex()
}

func (s *Store) path(key string, kind Kind) string {
	return filepath.Join(s.dir, string(kind), sanitize(key)+kindExt[kind])
}

// sanitize keeps keys usable as file names.
func sanitize(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

// SetBytes stores an already-serialized payload under key. The file is
// written before the index entry, so a crash in between leaves an
// orphan file for the startup sweep, never a dangling index entry.
func (s *Store) SetBytes(key string, kind Kind, payload []byte, ttl time.Duration) bool {
	if _, ok := kindExt[kind]; !ok {
		logger.Errorf("cache: set %s: unknown kind %q", key, kind)
		return false
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A re-set may change the kind; drop the old file first.
	if old, ok := s.index[key]; ok && old.Kind != kind {
		s.removeLocked(key, old)
	}

	path := s.path(key, kind)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		logger.Errorf("cache: write %s: %v", key, err)
		return false
	}
	now := s.now()
	s.index[key] = entry{
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		SizeBytes: int64(len(payload)),
	}
	ok := s.saveIndex()
	s.maybeCleanupLocked()
	logger.Debugf("cache: set %s (%s, %d bytes)", key, kind, len(payload))
	return ok
}

// GetBytes returns the payload and stored kind for key, or ok=false if
// the key is unknown, expired (lazily deleted) or unreadable.
func (s *Store) GetBytes(key string) ([]byte, Kind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.index[key]
	if !ok {
		return nil, "", false
	}
	if e.ExpiresAt.Before(s.now()) {
		s.removeLocked(key, e)
		s.saveIndex()
		logger.Debugf("cache: expired %s", key)
		return nil, "", false
	}
	data, err := os.ReadFile(s.path(key, e.Kind))
	if err != nil {
		logger.Errorf("cache: read %s: %v", key, err)
		return nil, "", false
	}
	return data, e.Kind, true
}

// Delete removes the backing file and the index entry. A missing file
// is tolerated; the index entry is removed regardless.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.index[key]
	if !ok {
		return false
	}
	s.removeLocked(key, e)
	return s.saveIndex()
}

// removeLocked deletes the backing file and index entry. Callers hold s.mu.
func (s *Store) removeLocked(key string, e entry) {
	path := s.path(key, e.Kind)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Errorf("cache: remove %s: %v", path, err)
	}
	delete(s.index, key)
}

// Clear wipes every cached payload and resets the index.
func (s *Store) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for kind := range kindExt {
		if err := os.RemoveAll(filepath.Join(s.dir, string(kind))); err != nil {
			logger.Errorf("cache: clear %s: %v", kind, err)
			return false
		}
		if err := os.MkdirAll(filepath.Join(s.dir, string(kind)), 0o755); err != nil {
			logger.Errorf("cache: recreate %s dir: %v", kind, err)
			return false
		}
	}
	s.index = make(map[string]entry)
	return s.saveIndex()
}

// maybeCleanupLocked runs a cleanup cycle when the configured interval
// has elapsed since the last one. Callers hold s.mu.
func (s *Store) maybeCleanupLocked() {
	if s.now().Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.cleanupLocked()
	s.lastCleanup = s.now()
}

// Cleanup sweeps expired entries, then evicts oldest-created entries
// until the total payload size is under the cap. It returns the number
// of entries removed. Eviction considers creation time only, never
// access recency.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupLocked()
}

func (s *Store) cleanupLocked() int {
	removed := 0
	now := s.now()
	for key, e := range s.index {
		if e.ExpiresAt.Before(now) {
			s.removeLocked(key, e)
			removed++
		}
	}
	if s.maxBytes > 0 {
		for s.totalSizeLocked() > s.maxBytes && len(s.index) > 0 {
			oldestKey := ""
			var oldest time.Time
			for key, e := range s.index {
				if oldestKey == "" || e.CreatedAt.Before(oldest) {
					oldestKey = key
					oldest = e.CreatedAt
				}
			}
			s.removeLocked(oldestKey, s.index[oldestKey])
			removed++
		}
	}
	if removed > 0 {
		s.saveIndex()
		logger.Infof("cache: cleanup removed %d entries", removed)
	}
	return removed
}

func (s *Store) totalSizeLocked() int64 {
	var total int64
	for _, e := range s.index {
		total += e.SizeBytes
	}
	return total
}

// Stats summarizes the cache for monitoring.
type Stats struct {
	Items      int          `json:"items"`
	TotalBytes int64        `json:"total_bytes"`
	MaxBytes   int64        `json:"max_bytes"`
	ByKind     map[Kind]int `json:"by_kind"`
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Items:      len(s.index),
		TotalBytes: s.totalSizeLocked(),
		MaxBytes:   s.maxBytes,
		ByKind:     make(map[Kind]int, len(kindExt)),
	}
	for _, e := range s.index {
		st.ByKind[e.Kind]++
	}
	return st
}
