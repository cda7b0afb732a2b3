package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func blockingJob(release <-chan struct{}, started *atomic.Int32) *Job {
	return NewSystemJob(JobTypeFeedRefresh, func(ctx context.Context, j *Job) {
		if started != nil {
			started.Add(1)
		}
		<-release
	})
}

// TestWorkerPool_Available tests slot accounting
// Given: a started pool with 2 slots
// When: two blocking jobs are started
// Then: Available drops to 0, a third start fails, and slots come back after release
func TestWorkerPool_Available(t *testing.T) {
	// Arrange
	p := NewWorkerPool("test", 2, nil)
	p.Start(context.Background())
	defer p.JoinAll()

	release := make(chan struct{})

	// Act
	if p.Available() != 2 {
		t.Fatalf("Available() = %d, want 2", p.Available())
	}
	if err := p.StartJob(blockingJob(release, nil)); err != nil {
		t.Fatal(err)
	}
	if err := p.StartJob(blockingJob(release, nil)); err != nil {
		t.Fatal(err)
	}

	// Assert
	if p.Available() != 0 {
		t.Errorf("Available() = %d, want 0", p.Available())
	}
	if err := p.StartJob(blockingJob(release, nil)); !errors.Is(err, ErrNoIdleSlot) {
		t.Errorf("StartJob on full pool = %v, want ErrNoIdleSlot", err)
	}

	close(release)
	waitFor(t, time.Second, func() bool { return p.Available() == 2 }, "slots released")
}

func TestWorkerPool_NotStarted(t *testing.T) {
	p := NewWorkerPool("test", 1, nil)

	if p.Available() != 0 {
		t.Errorf("Available() before Start = %d, want 0", p.Available())
	}
	if err := p.StartJob(blockingJob(make(chan struct{}), nil)); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("StartJob before Start = %v, want ErrPoolClosed", err)
	}
}

func TestWorkerPool_InvalidWorkerCount(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero workers")
		}
	}()
	NewWorkerPool("bad", 0, nil)
}

// TestWorkerPool_JoinAllWaitsForRunningJobs tests JoinAll blocks until jobs return
func TestWorkerPool_JoinAllWaitsForRunningJobs(t *testing.T) {
	p := NewWorkerPool("test", 2, nil)
	p.Start(context.Background())

	var finished atomic.Int32
	for i := 0; i < 2; i++ {
		err := p.StartJob(NewSystemJob(JobTypeFeedRefresh, func(ctx context.Context, j *Job) {
			time.Sleep(50 * time.Millisecond)
			finished.Add(1)
		}))
		if err != nil {
			t.Fatal(err)
		}
	}

	p.JoinAll()

	if n := finished.Load(); n != 2 {
		t.Errorf("JoinAll returned with %d/2 jobs finished", n)
	}
	if p.IsRunning() {
		t.Error("pool should not be running after JoinAll")
	}
	if err := p.StartJob(blockingJob(make(chan struct{}), nil)); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("StartJob after JoinAll = %v, want ErrPoolClosed", err)
	}

	// Idempotent
	p.JoinAll()
}

type panickingMetrics struct{ NilMetrics }

func (m *panickingMetrics) RecordJobDuration(jobType JobType, duration time.Duration) {
	panic("metrics exploded")
}

// TestWorkerPool_PanicHandler tests that a panic escaping Job.Run reaches the handler
// and the worker keeps serving
func TestWorkerPool_PanicHandler(t *testing.T) {
	handler := newTestPanicHandler()
	p := NewWorkerPool("panicky", 1, handler)
	p.Start(context.Background())
	defer p.JoinAll()

	d := &Dispatcher{
		cfg:     DispatcherConfig{Logger: NewNoOpLogger(), Metrics: &panickingMetrics{}},
		history: newExecutionHistory(1),
	}
	j := NewSystemJob(JobTypeFeedRefresh, func(ctx context.Context, j *Job) {})
	j.env = d

	if err := p.StartJob(j); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return handler.CallCount() == 1 }, "panic reported")

	call := handler.Calls()[0]
	if call.PoolName != "panicky" || call.WorkerID != 0 {
		t.Errorf("unexpected panic call %+v", call)
	}
	if !j.IsDone() {
		t.Error("job should be done even though the engine panicked")
	}

	var ran atomic.Bool
	waitFor(t, time.Second, func() bool { return p.Available() == 1 }, "slot released")
	if err := p.StartJob(NewSystemJob(JobTypeFeedGet, func(ctx context.Context, j *Job) { ran.Store(true) })); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, ran.Load, "worker still serving")
}

func TestWorkerPool_Stats(t *testing.T) {
	p := NewWorkerPool("stats", 3, nil)
	p.Start(context.Background())
	release := make(chan struct{})
	defer func() {
		close(release)
		p.JoinAll()
	}()

	if err := p.StartJob(blockingJob(release, nil)); err != nil {
		t.Fatal(err)
	}

	stats := p.Stats()
	if stats.ID != "stats" || stats.Workers != 3 || stats.Busy != 1 || !stats.Running {
		t.Errorf("unexpected stats %+v", stats)
	}
}
