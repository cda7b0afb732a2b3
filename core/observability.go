package core

import (
	"time"

	"github.com/google/uuid"
)

// JobOutcome classifies how a job's Run ended.
type JobOutcome int

const (
	// JobSucceeded means the body returned without error.
	JobSucceeded JobOutcome = iota
	// JobFailed means the body returned an error or panicked.
	JobFailed
	// JobSkipped means the owning source could not be resolved.
	JobSkipped
)

func (o JobOutcome) String() string {
	switch o {
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	case JobSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// JobExecutionRecord captures a completed job execution event.
type JobExecutionRecord struct {
	JobID      uuid.UUID
	Type       JobType
	SourceID   uint64
	System     bool
	Outcome    JobOutcome
	Message    string
	QueuedFor  time.Duration
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

// DispatcherStats represents runtime observability state for a dispatcher.
type DispatcherStats struct {
	Name        string
	Workers     int
	Available   int
	Backlog     int
	InFlight    int
	Rejected    int64
	Closed      bool
	LastJobType JobType
	LastJobAt   time.Time
}

// PoolStats represents runtime observability state for a worker pool.
type PoolStats struct {
	ID      string
	Workers int
	Busy    int
	Running bool
}
