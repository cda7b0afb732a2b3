package feedagent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Swind/go-feed-agent/broadcast"
	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

// ErrUnsupportedSource is the failure of a job whose source does not
// implement source.Source.
var ErrUnsupportedSource = errors.New("source does not support feed operations")

// SourceDirectory resolves sources by id and lists them. *source.Registry
// implements it.
type SourceDirectory interface {
	core.SourceResolver
	SourceIDs() []uint64
}

// Agent is the entry point for queueing feed operations. It is safe for
// concurrent use.
type Agent struct {
	cfg        Config
	dir        SourceDirectory
	dispatcher *core.Dispatcher
	logger     core.Logger
	replies    *core.ReplyRunner
	sink       *broadcast.Async

	errorCallback atomic.Pointer[ErrorCallback]
	shutdownOnce  sync.Once
}

type options struct {
	logger       core.Logger
	metrics      core.Metrics
	panicHandler core.PanicHandler
	replies      *core.ReplyRunner
	sink         broadcast.Sink
}

// Option configures an Agent.
type Option func(*options)

// WithLogger sets the logger shared by the agent and its dispatcher.
func WithLogger(l core.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics sink of the dispatcher.
func WithMetrics(m core.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithPanicHandler sets the handler for panics that escape a job.
func WithPanicHandler(h core.PanicHandler) Option {
	return func(o *options) { o.panicHandler = h }
}

// WithReplyRunner makes every operation and error callback run on r instead
// of the worker goroutine. The caller owns r and stops it after Shutdown.
// Workers block while r has a full queue.
func WithReplyRunner(r *core.ReplyRunner) Option {
	return func(o *options) { o.replies = r }
}

// WithErrorSink forwards every job failure to sink, in addition to the
// registered error callback. Delivery is asynchronous so that a slow sink
// never holds a worker.
func WithErrorSink(sink broadcast.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// New creates an agent over dir and starts its dispatcher.
func New(dir SourceDirectory, cfg Config, opts ...Option) *Agent {
	if dir == nil {
		panic("feedagent: New needs a source directory")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = core.NewNoOpLogger()
	}

	dcfg := cfg.dispatcherConfig()
	dcfg.Logger = o.logger
	dcfg.Metrics = o.metrics
	dcfg.PanicHandler = o.panicHandler

	a := &Agent{
		cfg:        cfg,
		dir:        dir,
		dispatcher: core.NewDispatcher(dir, dcfg),
		logger:     o.logger,
		replies:    o.replies,
	}
	if o.sink != nil {
		a.sink = broadcast.NewAsync(o.sink, 256, o.logger)
	}
	a.dispatcher.RegisterErrorCallback(a.broadcastError)
	return a
}

// Dispatcher returns the underlying dispatcher.
func (a *Agent) Dispatcher() *core.Dispatcher {
	return a.dispatcher
}

// Stats returns a snapshot of the dispatcher.
func (a *Agent) Stats() DispatcherStats {
	return a.dispatcher.Stats()
}

// RecentJobs returns up to limit finished jobs, newest first.
func (a *Agent) RecentJobs(limit int) []JobExecutionRecord {
	return a.dispatcher.RecentJobs(limit)
}

// RegisterErrorCallback installs the callback that receives every job
// failure. A later call replaces the previous one; nil removes it.
func (a *Agent) RegisterErrorCallback(cb ErrorCallback) {
	if cb == nil {
		a.errorCallback.Store(nil)
		return
	}
	a.errorCallback.Store(&cb)
}

func (a *Agent) broadcastError(sourceID uint64, message string) {
	if a.sink != nil {
		a.sink.Send(context.Background(), broadcast.ErrorEvent{
			SourceID: sourceID,
			Message:  message,
			At:       time.Now(),
		})
	}
	if cb := a.errorCallback.Load(); cb != nil {
		fn := *cb
		a.deliver(func() { fn(sourceID, message) })
	}
}

// Shutdown stops accepting operations, asks running jobs to abort and waits
// for them. Queued jobs that have not started are dropped. Pending error
// events are flushed to the error sink. Shutdown is idempotent.
//
// With a reply runner, Shutdown must not be called from a callback running
// on that runner: workers may be blocked posting to it, and JoinAll waits for
// them.
func (a *Agent) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.dispatcher.JoinAll()
		if a.sink != nil {
			a.sink.Close(5 * time.Second)
		}
		a.logger.Info("agent stopped", core.F("name", a.dispatcher.Name()))
	})
}

// deliver runs fn on the reply runner when there is one, otherwise on the
// calling goroutine.
func (a *Agent) deliver(fn func()) {
	if a.replies == nil {
		fn()
		return
	}
	if !a.replies.Post(fn) {
		a.logger.Debug("reply runner closed, callback dropped")
	}
}

// run enqueues body as a job of type t against sourceID.
func (a *Agent) run(sourceID uint64, t core.JobType, body func(ctx context.Context, src source.Source) error, opts ...core.JobOption) error {
	return a.dispatcher.Enqueue(core.NewJob(sourceID, t, func(ctx context.Context, s core.Source) error {
		src, ok := s.(source.Source)
		if !ok {
			return fmt.Errorf("%w: %T", ErrUnsupportedSource, s)
		}
		return body(ctx, src)
	}, opts...))
}

// exec runs do and reports completion through cb.
func (a *Agent) exec(sourceID uint64, t core.JobType, do func(ctx context.Context, src source.Source) error, cb DoneCallback) error {
	return a.run(sourceID, t, func(ctx context.Context, src source.Source) error {
		if err := do(ctx, src); err != nil {
			return err
		}
		if cb != nil {
			a.deliver(cb)
		}
		return nil
	})
}

// fetch runs get and hands its result to cb.
func fetch[T any](a *Agent, sourceID uint64, t core.JobType, get func(ctx context.Context, src source.Source) (T, error), cb func(T)) error {
	return a.run(sourceID, t, func(ctx context.Context, src source.Source) error {
		v, err := get(ctx, src)
		if err != nil {
			return err
		}
		if cb != nil {
			a.deliver(func() { cb(v) })
		}
		return nil
	})
}

// fanOut enqueues one job per item. It stops quietly once the dispatcher is
// shutting down.
func fanOut[T any](a *Agent, items []T, enqueue func(T) error) error {
	for _, item := range items {
		if err := enqueue(item); err != nil {
			if errors.Is(err, core.ErrDispatcherClosed) {
				a.logger.Debug("fan-out stopped, dispatcher closed")
				return nil
			}
			return err
		}
	}
	return nil
}
