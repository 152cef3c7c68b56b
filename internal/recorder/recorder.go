package recorder

import "time"

// RunRecord summarizes one completed sync batch.
type RunRecord struct {
	StartedAt time.Time
	Duration  time.Duration
	Requested int
	Succeeded int
	Failed    int
	Errors    map[string]string
}

// Recorder persists batch history for later inspection.
type Recorder interface {
	RecordRun(run *RunRecord) error
	Close() error
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (*NoopRecorder) RecordRun(*RunRecord) error { return nil }
func (*NoopRecorder) Close() error               { return nil }
