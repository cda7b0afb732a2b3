package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultTickInterval is how often the dispatcher admits backlog jobs and
// sweeps finished ones.
const DefaultTickInterval = 50 * time.Millisecond

// AdmissionPolicy decides how many backlog jobs a single tick may start.
type AdmissionPolicy int

const (
	// AdmitAllIdle fills every idle slot on each tick.
	AdmitAllIdle AdmissionPolicy = iota
	// AdmitOnePerTick starts at most one backlog job per tick.
	AdmitOnePerTick
)

func (p AdmissionPolicy) String() string {
	switch p {
	case AdmitAllIdle:
		return "all-idle"
	case AdmitOnePerTick:
		return "one-per-tick"
	default:
		return "unknown"
	}
}

// ParseAdmissionPolicy parses the String form of a policy. An empty name
// selects AdmitAllIdle.
func ParseAdmissionPolicy(name string) (AdmissionPolicy, error) {
	switch name {
	case "", "all-idle":
		return AdmitAllIdle, nil
	case "one-per-tick":
		return AdmitOnePerTick, nil
	default:
		return AdmitAllIdle, fmt.Errorf("unknown admission policy %q", name)
	}
}

// ErrorCallback receives every job failure: the owning source id and the
// formatted message.
type ErrorCallback func(sourceID uint64, message string)

// DispatcherConfig holds configuration options for a Dispatcher.
// Zero values are replaced by defaults.
type DispatcherConfig struct {
	// Name identifies the dispatcher in logs and stats.
	Name string

	// Workers is the number of worker slots. Defaults to 5.
	Workers int

	// TickInterval is the admission/sweep period. Defaults to DefaultTickInterval.
	TickInterval time.Duration

	// Admission selects the per-tick admission policy.
	Admission AdmissionPolicy

	// HistoryCapacity bounds RecentJobs. Defaults to 100.
	HistoryCapacity int

	// Logger defaults to NoOpLogger.
	Logger Logger

	// Metrics defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler is used by the worker pool. Defaults to LoggingPanicHandler.
	PanicHandler PanicHandler
}

// DefaultDispatcherConfig returns a config with the default values.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Name:            "agent",
		Workers:         5,
		TickInterval:    DefaultTickInterval,
		Admission:       AdmitAllIdle,
		HistoryCapacity: defaultJobHistoryCapacity,
	}
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	def := DefaultDispatcherConfig()
	if c.Name == "" {
		c.Name = def.Name
	}
	if c.Workers < 1 {
		c.Workers = def.Workers
	}
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.HistoryCapacity < 1 {
		c.HistoryCapacity = def.HistoryCapacity
	}
	if c.Logger == nil {
		c.Logger = NewNoOpLogger()
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	if c.PanicHandler == nil {
		c.PanicHandler = &LoggingPanicHandler{Logger: c.Logger}
	}
	return c
}

// Dispatcher accepts jobs from any goroutine, starts them on the worker pool
// when a slot is idle, and otherwise holds them in a FIFO backlog that a
// periodic tick drains.
//
// The backlog and in-flight set are guarded by one mutex that is only held
// for bookkeeping; job bodies never run under it.
type Dispatcher struct {
	cfg      DispatcherConfig
	resolver SourceResolver
	pool     *WorkerPool
	history  *executionHistory

	mu       sync.Mutex
	backlog  *backlog
	inFlight map[uuid.UUID]*Job
	closed   bool

	rejected      atomic.Int64
	errorCallback atomic.Pointer[ErrorCallback]

	tickStop chan struct{}
	tickDone chan struct{}
}

// NewDispatcher creates a dispatcher, starts its worker pool and its tick loop.
// It panics if resolver is nil.
func NewDispatcher(resolver SourceResolver, cfg DispatcherConfig) *Dispatcher {
	if resolver == nil {
		panic("core: dispatcher needs a source resolver")
	}
	cfg = cfg.withDefaults()

	d := &Dispatcher{
		cfg:      cfg,
		resolver: resolver,
		pool:     NewWorkerPool(cfg.Name+"-workers", cfg.Workers, cfg.PanicHandler),
		history:  newExecutionHistory(cfg.HistoryCapacity),
		backlog:  newBacklog(),
		inFlight: make(map[uuid.UUID]*Job),
		tickStop: make(chan struct{}),
		tickDone: make(chan struct{}),
	}
	d.pool.Start(context.Background())
	go d.tickLoop()

	cfg.Logger.Debug("dispatcher started",
		F("name", cfg.Name),
		F("workers", cfg.Workers),
		F("tick", cfg.TickInterval),
		F("admission", cfg.Admission.String()),
	)
	return d
}

// Name returns the dispatcher name
func (d *Dispatcher) Name() string {
	return d.cfg.Name
}

// Enqueue accepts j for asynchronous execution. If a worker slot is idle the
// job starts immediately; otherwise it is appended to the backlog. Enqueue
// never waits for the job to run.
func (d *Dispatcher) Enqueue(j *Job) error {
	if j == nil {
		return ErrNilJob
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.rejected.Add(1)
		d.cfg.Metrics.RecordJobRejected(j.jobType, "closed")
		d.cfg.Logger.Warn("job rejected", F("job", j.String()), F("reason", "closed"))
		return ErrDispatcherClosed
	}
	if j.env != nil {
		return ErrJobAlreadyQueued
	}

	j.env = d
	j.enqueuedAt = time.Now()

	if d.pool.Available() > 0 {
		if err := d.pool.StartJob(j); err == nil {
			d.inFlight[j.id] = j
			return nil
		}
	}

	d.backlog.Push(j)
	d.cfg.Metrics.RecordBacklogDepth(d.backlog.Len())
	return nil
}

// Tick admits backlog jobs into idle slots according to the admission policy
// and then forgets in-flight jobs that are done. The tick loop calls it
// periodically; calling it directly is harmless.
func (d *Dispatcher) Tick() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	limit := d.pool.Available()
	if d.cfg.Admission == AdmitOnePerTick {
		limit = min(limit, 1)
	}

	admitted := 0
	for admitted < limit {
		j, ok := d.backlog.Pop()
		if !ok {
			break
		}
		if err := d.pool.StartJob(j); err != nil {
			d.backlog.PushFront(j)
			break
		}
		d.inFlight[j.id] = j
		admitted++
	}
	if admitted > 0 {
		d.cfg.Metrics.RecordBacklogDepth(d.backlog.Len())
	}

	d.sweepLocked()
}

func (d *Dispatcher) sweepLocked() {
	for id, j := range d.inFlight {
		if j.IsDone() {
			delete(d.inFlight, id)
		}
	}
}

func (d *Dispatcher) tickLoop() {
	defer close(d.tickDone)

	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.Tick()
		case <-d.tickStop:
			return
		}
	}
}

// TotalCountOfType returns the number of not-done jobs tagged t, counting
// both the backlog and the in-flight set.
func (d *Dispatcher) TotalCountOfType(t JobType) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.backlog.CountOfType(t)
	for _, j := range d.inFlight {
		if j.jobType == t && !j.IsDone() {
			n++
		}
	}
	return n
}

// RegisterErrorCallback installs the callback that receives every job
// failure. A later call replaces the previous callback; nil removes it.
func (d *Dispatcher) RegisterErrorCallback(cb ErrorCallback) {
	if cb == nil {
		d.errorCallback.Store(nil)
		return
	}
	d.errorCallback.Store(&cb)
}

// BroadcastError forwards a failure to the registered error callback.
// It is a no-op when none is registered and never panics.
func (d *Dispatcher) BroadcastError(sourceID uint64, message string) {
	cb := d.errorCallback.Load()
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.cfg.Logger.Error("error callback panicked",
				F("source", sourceID),
				F("panic", r),
			)
		}
	}()
	(*cb)(sourceID, message)
}

// GetSource resolves a source id through the dispatcher's resolver.
func (d *Dispatcher) GetSource(ctx context.Context, id uint64) (Source, error) {
	return d.resolver.GetSource(ctx, id)
}

// JoinAll stops the tick loop, requests every in-flight job to abort and
// waits for them to return. Backlog jobs are dropped without running.
// Enqueue fails with ErrDispatcherClosed from the moment JoinAll begins.
// JoinAll is idempotent.
func (d *Dispatcher) JoinAll() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.pool.JoinAll()
		return
	}
	d.closed = true
	for _, j := range d.inFlight {
		j.SetShouldAbort(true)
	}
	inFlight := len(d.inFlight)
	dropped := d.backlog.Clear()
	d.mu.Unlock()

	close(d.tickStop)
	<-d.tickDone

	d.cfg.Logger.Info("dispatcher shutting down",
		F("name", d.cfg.Name),
		F("in_flight", inFlight),
		F("dropped", dropped),
	)

	d.pool.JoinAll()

	d.mu.Lock()
	d.sweepLocked()
	d.mu.Unlock()

	d.cfg.Metrics.RecordBacklogDepth(0)
}

// IsClosed reports whether JoinAll has been called.
func (d *Dispatcher) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Stats returns a snapshot of the dispatcher state.
func (d *Dispatcher) Stats() DispatcherStats {
	d.mu.Lock()
	stats := DispatcherStats{
		Name:     d.cfg.Name,
		Workers:  d.pool.WorkerCount(),
		Backlog:  d.backlog.Len(),
		InFlight: len(d.inFlight),
		Closed:   d.closed,
	}
	d.mu.Unlock()

	stats.Available = d.pool.Available()
	stats.Rejected = d.rejected.Load()
	if last, ok := d.history.Last(); ok {
		stats.LastJobType = last.Type
		stats.LastJobAt = last.FinishedAt
	}
	return stats
}

// PoolStats returns a snapshot of the worker pool.
func (d *Dispatcher) PoolStats() PoolStats {
	return d.pool.Stats()
}

// RecentJobs returns up to limit finished job records, newest first.
func (d *Dispatcher) RecentJobs(limit int) []JobExecutionRecord {
	return d.history.Recent(limit)
}

func (d *Dispatcher) recordExecution(rec JobExecutionRecord) {
	d.history.Add(rec)
	d.cfg.Metrics.RecordJobDuration(rec.Type, rec.Duration)
	if rec.Outcome == JobFailed {
		d.cfg.Metrics.RecordJobFailure(rec.Type)
	}
}

func (d *Dispatcher) log() Logger {
	return d.cfg.Logger
}
