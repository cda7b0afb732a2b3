package core

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Task is a unit of work posted to a ReplyRunner.
type Task func(ctx context.Context)

type replyRunnerKeyType struct{}

var replyRunnerKey = replyRunnerKeyType{}

// CurrentReplyRunner returns the runner executing ctx's task, or nil when ctx
// does not belong to a ReplyRunner task.
func CurrentReplyRunner(ctx context.Context) *ReplyRunner {
	r, _ := ctx.Value(replyRunnerKey).(*ReplyRunner)
	return r
}

// ErrReplyRunnerClosed is returned by WaitIdle once the runner is closed.
var ErrReplyRunnerClosed = errors.New("agent: reply runner closed")

// ReplyRunner binds a dedicated goroutine that executes posted tasks
// sequentially, in posting order. It stands in for the UI thread: operation
// callbacks are posted here instead of running on worker goroutines.
type ReplyRunner struct {
	workQueue chan Task

	ctx    context.Context
	cancel context.CancelFunc

	stopped      chan struct{}
	once         sync.Once
	closed       atomic.Bool
	shutdownChan chan struct{}
	shutdownOnce sync.Once

	name   string
	logger Logger
}

// replyQueueSize is how many posted tasks may wait before PostTask blocks.
const replyQueueSize = 100

// NewReplyRunner creates and starts a ReplyRunner.
func NewReplyRunner(name string, logger Logger) *ReplyRunner {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &ReplyRunner{
		workQueue:    make(chan Task, replyQueueSize),
		ctx:          ctx,
		cancel:       cancel,
		stopped:      make(chan struct{}),
		shutdownChan: make(chan struct{}),
		name:         name,
		logger:       logger,
	}

	go r.runLoop()

	return r
}

// Name returns the name of the runner
func (r *ReplyRunner) Name() string {
	return r.name
}

// PostTask submits a task for execution. It reports false if the runner is
// closed and the task was dropped. Once replyQueueSize tasks are pending the
// caller blocks until the runner catches up, so a task running on the runner
// must never wait for a goroutine that posts to it.
func (r *ReplyRunner) PostTask(task Task) bool {
	if r.closed.Load() {
		return false
	}

	select {
	case <-r.ctx.Done():
		return false
	case r.workQueue <- task:
		return true
	}
}

// Post submits a plain function for execution.
func (r *ReplyRunner) Post(fn func()) bool {
	return r.PostTask(func(context.Context) { fn() })
}

// Shutdown marks the runner as closed and signals shutdown waiters.
// Unlike Stop, it can be called from a task running on the runner.
func (r *ReplyRunner) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.closed.Store(true)
		r.cancel()
		close(r.shutdownChan)
	})
}

// IsClosed returns true if the runner has been stopped
func (r *ReplyRunner) IsClosed() bool {
	return r.closed.Load()
}

// Stop stops the runner and waits for the running task to return.
// Must not be called from a task running on the runner.
func (r *ReplyRunner) Stop() {
	r.once.Do(func() {
		r.Shutdown()
		<-r.stopped
	})
}

func (r *ReplyRunner) runLoop() {
	defer close(r.stopped)

	runCtx := context.WithValue(r.ctx, replyRunnerKey, r)

	for {
		select {
		case task := <-r.workQueue:
			r.execute(runCtx, task)
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *ReplyRunner) execute(ctx context.Context, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("reply task panicked",
				F("runner", r.name),
				F("panic", rec),
				F("stack", string(debug.Stack())),
			)
		}
	}()
	task(ctx)
}

// WaitIdle blocks until all tasks posted before the call have completed.
// It posts a barrier task and waits for it to execute.
func (r *ReplyRunner) WaitIdle(ctx context.Context) error {
	if r.IsClosed() {
		return ErrReplyRunnerClosed
	}

	done := make(chan struct{})
	if !r.PostTask(func(context.Context) { close(done) }) {
		return ErrReplyRunnerClosed
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitShutdown blocks until Shutdown is called on this runner.
func (r *ReplyRunner) WaitShutdown(ctx context.Context) error {
	select {
	case <-r.shutdownChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
