// Package replicator drives one job descriptor to completion: it connects
// to source and destination, plans the work, and replicates each
// measurement's fields, grounded on the original tool's BackupProcessor
// (see SPEC_FULL.md §4.2).
package replicator

import (
	"sync/atomic"
	"time"
)

// Stats accumulates monotonic counters over the course of one job run.
// Every field is safe for concurrent increment from the field worker pool.
type Stats struct {
	DatabasesProcessed   atomic.Int64
	MeasurementsProcessed atomic.Int64
	FieldsProcessed      atomic.Int64
	FieldsSkipped        atomic.Int64
	RecordsTransferred   atomic.Int64
	Errors               atomic.Int64
}

// Snapshot is an immutable point-in-time copy of Stats, suitable for
// logging or returning in a JobOutcome.
type Snapshot struct {
	DatabasesProcessed    int64
	MeasurementsProcessed int64
	FieldsProcessed       int64
	FieldsSkipped         int64
	RecordsTransferred    int64
	Errors                int64
}

// Snapshot reads every counter without synchronizing across fields; a run
// in progress may observe a torn snapshot, which is acceptable for
// periodic progress logging.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		DatabasesProcessed:    s.DatabasesProcessed.Load(),
		MeasurementsProcessed: s.MeasurementsProcessed.Load(),
		FieldsProcessed:       s.FieldsProcessed.Load(),
		FieldsSkipped:         s.FieldsSkipped.Load(),
		RecordsTransferred:    s.RecordsTransferred.Load(),
		Errors:                s.Errors.Load(),
	}
}

// Outcome is the terminal record of one job run.
type Outcome struct {
	JobName   string
	RunID     string
	Success   bool
	StartedAt time.Time
	EndedAt   time.Time
	Stats     Snapshot
	Err       error
}

// Duration returns how long the run took.
func (o Outcome) Duration() time.Duration {
	return o.EndedAt.Sub(o.StartedAt)
}
