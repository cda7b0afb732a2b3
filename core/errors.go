package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound is returned by a SourceResolver when the id does not
	// resolve. Jobs treat it as "the source vanished" and finish silently.
	ErrSourceNotFound = errors.New("agent: source not found")

	// ErrNoIdleSlot is returned by WorkerPool.Start when every slot is busy.
	ErrNoIdleSlot = errors.New("agent: no idle worker slot")

	// ErrPoolClosed is returned by WorkerPool.Start after JoinAll.
	ErrPoolClosed = errors.New("agent: worker pool closed")

	// ErrDispatcherClosed is returned by Dispatcher.Enqueue after JoinAll.
	ErrDispatcherClosed = errors.New("agent: dispatcher closed")

	// ErrNilJob is returned when a nil job is enqueued.
	ErrNilJob = errors.New("agent: nil job")

	// ErrJobAlreadyQueued is returned when the same job is enqueued twice.
	ErrJobAlreadyQueued = errors.New("agent: job already queued")
)

// SourceError is the library error family raised by source implementations
// (network failures, malformed remote responses, constraint violations).
// Jobs report it using DisplayText rather than Error.
type SourceError struct {
	// Op names the source operation that failed, e.g. "refresh feed".
	Op string
	// Msg is the human readable reason.
	Msg string
	// Err is the underlying cause, if any.
	Err error
}

// NewSourceError creates a SourceError without an underlying cause.
func NewSourceError(op, msg string) *SourceError {
	return &SourceError{Op: op, Msg: msg}
}

// WrapSourceError creates a SourceError wrapping err.
func WrapSourceError(op string, err error) *SourceError {
	return &SourceError{Op: op, Msg: err.Error(), Err: err}
}

func (e *SourceError) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// DisplayText returns the message shown next to the source in the UI.
func (e *SourceError) DisplayText() string {
	if e.Op == "" {
		return e.Msg
	}
	return fmt.Sprintf("Failed to %s: %s", e.Op, e.Msg)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
