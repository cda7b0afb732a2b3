// Package broadcast delivers job failure events to listeners outside the
// dispatcher: a Redis Pub/Sub channel, websocket clients, or both.
package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Swind/go-feed-agent/core"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("broadcast: sink closed")

// ErrorEvent is one job failure.
type ErrorEvent struct {
	SourceID uint64    `json:"sourceId"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Sink receives error events.
type Sink interface {
	Send(ctx context.Context, ev ErrorEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev ErrorEvent) error

// Send calls f(ctx, ev).
func (f SinkFunc) Send(ctx context.Context, ev ErrorEvent) error {
	return f(ctx, ev)
}

// Fanout sends every event to all of its sinks.
type Fanout []Sink

// Send delivers ev to every sink and joins their errors.
func (f Fanout) Send(ctx context.Context, ev ErrorEvent) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async decouples a slow sink from the goroutine calling Send. Events are
// queued in a bounded buffer and delivered in order by one goroutine; when
// the buffer is full new events are dropped.
type Async struct {
	sink   Sink
	logger core.Logger
	queue  chan ErrorEvent

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped int64
}

// NewAsync starts delivering to sink with a buffer of size events.
func NewAsync(sink Sink, size int, logger core.Logger) *Async {
	if size < 1 {
		size = 64
	}
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Async{
		sink:   sink,
		logger: logger,
		queue:  make(chan ErrorEvent, size),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

// Send queues ev. It never blocks.
func (a *Async) Send(ctx context.Context, ev ErrorEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- ev:
	default:
		a.dropped++
		a.logger.Warn("error event dropped", core.F("source", ev.SourceID))
	}
	return nil
}

// Dropped returns how many events were discarded because the buffer was full.
func (a *Async) Dropped() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dropped
}

// Close stops accepting events, delivers what is queued and waits up to
// timeout for delivery to finish.
func (a *Async) Close(timeout time.Duration) {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(timeout):
		a.cancel()
		<-a.done
	}
}

func (a *Async) run() {
	defer close(a.done)
	defer a.cancel()

	for ev := range a.queue {
		if err := a.sink.Send(a.ctx, ev); err != nil {
			a.logger.Error("error event delivery failed",
				core.F("source", ev.SourceID),
				core.F("error", err),
			)
		}
	}
}

// Callback adapts sink to the dispatcher's error callback. Delivery errors
// are logged; the callback itself never fails.
func Callback(ctx context.Context, sink Sink, logger core.Logger) core.ErrorCallback {
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	return func(sourceID uint64, message string) {
		ev := ErrorEvent{SourceID: sourceID, Message: message, At: time.Now()}
		if err := sink.Send(ctx, ev); err != nil {
			logger.Warn("error broadcast failed", core.F("source", sourceID), core.F("error", err))
		}
	}
}
