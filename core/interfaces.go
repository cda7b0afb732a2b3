package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling worker panics
// =============================================================================

// PanicHandler is called when a panic escapes a job and reaches the worker
// goroutine. Job bodies are already guarded by Job.Run, so this only fires for
// faults in the engine itself or in hooks that re-panic.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a worker recovers a panic.
	//
	// Parameters:
	// - ctx: The context the job was running with
	// - poolName: The name of the worker pool
	// - workerID: The ID of the worker goroutine (-1 for the reply runner)
	// - panicInfo: The recovered value
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, poolName string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, poolName string, workerID int, panicInfo any, stackTrace []byte) {
	if workerID >= 0 {
		fmt.Printf("[Worker %d @ %s] Panic: %v\nStack trace:\n%s",
			workerID, poolName, panicInfo, stackTrace)
	} else {
		fmt.Printf("[Runner %s] Panic: %v\nStack trace:\n%s",
			poolName, panicInfo, stackTrace)
	}
}

// LoggingPanicHandler reports panics through a Logger.
type LoggingPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic at error level.
func (h *LoggingPanicHandler) HandlePanic(ctx context.Context, poolName string, workerID int, panicInfo any, stackTrace []byte) {
	h.Logger.Error("worker panic",
		F("pool", poolName),
		F("worker", workerID),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting job execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast; they are called from worker
// goroutines and, for backlog depth, with the dispatcher lock held.
type Metrics interface {
	// RecordJobDuration records how long a job took, from the moment a worker
	// picked it up until it was marked done.
	RecordJobDuration(jobType JobType, duration time.Duration)

	// RecordJobFailure records that a job's body returned an error or panicked.
	RecordJobFailure(jobType JobType)

	// RecordBacklogDepth records the number of jobs waiting for a worker.
	RecordBacklogDepth(depth int)

	// RecordJobRejected records that a job was refused, e.g. after JoinAll.
	RecordJobRejected(jobType JobType, reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordJobDuration(jobType JobType, duration time.Duration) {}

func (m *NilMetrics) RecordJobFailure(jobType JobType) {}

func (m *NilMetrics) RecordBacklogDepth(depth int) {}

func (m *NilMetrics) RecordJobRejected(jobType JobType, reason string) {}
