package datasync

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"marketsync/internal/logger"
)

// Status is the persisted sync bookkeeping document.
type Status struct {
	LastSync  time.Time         `json:"last_sync,omitzero"`
	SyncCount int               `json:"sync_count"`
	Errors    map[string]string `json:"errors"`
}

// StatusTracker owns the sync status file. It records one entry per
// batch: last-sync time, a cumulative batch counter, and the per-symbol
// error map. Symbols in the latest batch replace their entries wholesale
// (a success clears the symbol's error); symbols absent from the batch
// keep whatever state they had.
type StatusTracker struct {
	path string
	now  func() time.Time

	mu     sync.Mutex
	status Status
}

// NewStatusTracker loads the status file if present; a missing or
// unreadable file starts from a zero status.
func NewStatusTracker(path string) *StatusTracker {
	t := &StatusTracker{path: path, now: time.Now}
	t.status.Errors = make(map[string]string)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Errorf("status: read %s: %v", path, err)
		}
		return t
	}
	if err := json.Unmarshal(data, &t.status); err != nil {
		logger.Errorf("status: parse %s, starting fresh: %v", path, err)
		t.status = Status{Errors: make(map[string]string)}
	}
	if t.status.Errors == nil {
		t.status.Errors = make(map[string]string)
	}
	return t
}

// RecordBatch applies one completed batch and persists the file.
func (t *StatusTracker) RecordBatch(succeeded []string, failed map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, sym := range succeeded {
		delete(t.status.Errors, sym)
	}
	for sym, msg := range failed {
		t.status.Errors[sym] = msg
	}
	t.status.LastSync = t.now()
	t.status.SyncCount++
	t.saveLocked()
}

func (t *StatusTracker) saveLocked() {
	data, err := json.MarshalIndent(t.status, "", "  ")
	if err != nil {
		logger.Errorf("status: marshal: %v", err)
		return
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		logger.Errorf("status: write %s: %v", t.path, err)
	}
}

// Status returns a snapshot safe to share.
func (t *StatusTracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.status
	out.Errors = make(map[string]string, len(t.status.Errors))
	for k, v := range t.status.Errors {
		out.Errors[k] = v
	}
	return out
}
