package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// JobBody is the operation a job performs against its resolved source.
// A returned error is reported the same way as a panic.
type JobBody func(ctx context.Context, src Source) error

// ErrorHook runs after the generic failure handling of a job.
// src is the resolved source; err is the body's error (a *PanicError for panics).
type ErrorHook func(ctx context.Context, src Source, err error)

// SystemBody is the body of a job that is not bound to a source, such as a
// completion monitor.
type SystemBody func(ctx context.Context, j *Job)

// jobEnvironment is what a running job needs from the dispatcher that owns it.
type jobEnvironment interface {
	GetSource(ctx context.Context, id uint64) (Source, error)
	BroadcastError(sourceID uint64, message string)
	recordExecution(rec JobExecutionRecord)
	log() Logger
}

// Job is one unit of asynchronous work bound to a source id.
//
// A Job is created by the caller, handed to Dispatcher.Enqueue and from then
// on owned by the dispatcher. Run is invoked exactly once, on a worker
// goroutine. IsDone, ShouldAbort and SetShouldAbort are safe from any
// goroutine.
type Job struct {
	id       uuid.UUID
	sourceID uint64
	jobType  JobType
	body     JobBody
	system   SystemBody
	onError  ErrorHook

	env        jobEnvironment
	enqueuedAt time.Time

	started     atomic.Bool
	done        atomic.Bool
	shouldAbort atomic.Bool
	abortOnce   sync.Once
	abortCh     chan struct{}
}

// JobOption configures a Job.
type JobOption func(*Job)

// WithErrorHook sets a hook that runs after the generic failure handling.
func WithErrorHook(hook ErrorHook) JobOption {
	return func(j *Job) {
		j.onError = hook
	}
}

// NewJob creates a job that runs body against source sourceID.
func NewJob(sourceID uint64, jobType JobType, body JobBody, opts ...JobOption) *Job {
	j := newJob(jobType)
	j.sourceID = sourceID
	j.body = body
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// NewSystemJob creates a job that is not bound to any source. Its body runs
// without resolution, and failures are logged rather than broadcast.
func NewSystemJob(jobType JobType, body SystemBody) *Job {
	j := newJob(jobType)
	j.system = body
	return j
}

func newJob(jobType JobType) *Job {
	return &Job{
		id:      newJobID(),
		jobType: jobType,
		abortCh: make(chan struct{}),
	}
}

func newJobID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// ID returns the job's time-ordered identifier.
func (j *Job) ID() uuid.UUID { return j.id }

// SourceID returns the id of the source the job operates on. System jobs return 0.
func (j *Job) SourceID() uint64 { return j.sourceID }

// Type returns the job's operation tag.
func (j *Job) Type() JobType { return j.jobType }

// IsSystem reports whether the job is not bound to a source.
func (j *Job) IsSystem() bool { return j.system != nil }

// IsDone reports whether Run has finished.
func (j *Job) IsDone() bool { return j.done.Load() }

// ShouldAbort reports whether cooperative cancellation was requested.
func (j *Job) ShouldAbort() bool { return j.shouldAbort.Load() }

// SetShouldAbort sets the cooperative cancellation hint. The first request
// also closes the channel returned by AbortRequested.
func (j *Job) SetShouldAbort(abort bool) {
	j.shouldAbort.Store(abort)
	if abort {
		j.abortOnce.Do(func() { close(j.abortCh) })
	}
}

// AbortRequested returns a channel that is closed when abort is first requested.
func (j *Job) AbortRequested() <-chan struct{} { return j.abortCh }

func (j *Job) String() string {
	if j.IsSystem() {
		return fmt.Sprintf("%s[%s]", j.jobType.TypeName(), j.id)
	}
	return fmt.Sprintf("%s[%s source=%d]", j.jobType.TypeName(), j.id, j.sourceID)
}

// Run executes the job. It must be called by the dispatcher's worker pool;
// calls after the first are ignored.
func (j *Job) Run(ctx context.Context) {
	if !j.started.CompareAndSwap(false, true) {
		return
	}
	defer j.done.Store(true)

	env := j.env
	rec := JobExecutionRecord{
		JobID:     j.id,
		Type:      j.jobType,
		SourceID:  j.sourceID,
		System:    j.IsSystem(),
		StartedAt: time.Now(),
	}
	if !j.enqueuedAt.IsZero() {
		rec.QueuedFor = rec.StartedAt.Sub(j.enqueuedAt)
	}
	defer func() {
		rec.FinishedAt = time.Now()
		rec.Duration = rec.FinishedAt.Sub(rec.StartedAt)
		if env != nil {
			env.recordExecution(rec)
		}
	}()

	if j.IsSystem() {
		if err := j.runSystem(ctx); err != nil {
			rec.Outcome = JobFailed
			rec.Message = err.Error()
			if env != nil {
				env.log().Error("system job failed", F("job", j.String()), F("error", err))
			}
		}
		return
	}

	if env == nil {
		rec.Outcome = JobSkipped
		return
	}

	src, err := env.GetSource(ctx, j.sourceID)
	if err != nil || src == nil {
		rec.Outcome = JobSkipped
		if err != nil && !errors.Is(err, ErrSourceNotFound) {
			env.log().Warn("source lookup failed",
				F("job", j.String()),
				F("error", err),
			)
		}
		return
	}

	src.SetLastError("")

	if err := j.invoke(ctx, src); err != nil {
		msg := FailureMessage(j.jobType, err)
		rec.Outcome = JobFailed
		rec.Message = msg

		var perr *PanicError
		if errors.As(err, &perr) {
			env.log().Error("job panicked",
				F("job", j.String()),
				F("panic", perr.Value),
				F("stack", string(perr.Stack)),
			)
		} else {
			env.log().Warn("job failed", F("job", j.String()), F("error", msg))
		}

		src.SetLastError(msg)
		env.BroadcastError(j.sourceID, msg)
		j.runErrorHook(ctx, env, src, err)
	}
}

func (j *Job) invoke(ctx context.Context, src Source) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	if j.body == nil {
		return nil
	}
	return j.body(ctx, src)
}

func (j *Job) runSystem(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	j.system(ctx, j)
	return nil
}

func (j *Job) runErrorHook(ctx context.Context, env jobEnvironment, src Source, err error) {
	if j.onError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			env.log().Error("job error hook panicked",
				F("job", j.String()),
				F("panic", r),
			)
		}
	}()
	j.onError(ctx, src, err)
}

// PanicError is the error a job reports when its body panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	switch v := e.Value.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return "Unknown error occurred"
	}
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// FailureMessage formats a job failure the way it is stored as the source's
// last error and broadcast: "<message> (<TypeName>)". A *SourceError anywhere
// in the chain contributes its display text.
func FailureMessage(jobType JobType, err error) string {
	msg := err.Error()
	var se *SourceError
	if errors.As(err, &se) {
		msg = se.DisplayText()
	}
	return fmt.Sprintf("%s (%s)", msg, jobType.TypeName())
}
