package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	id uint64

	mu        sync.Mutex
	lastError string
	setCalls  []string
}

func newFakeSource(id uint64) *fakeSource {
	return &fakeSource{id: id}
}

func (s *fakeSource) ID() uint64 { return s.id }

func (s *fakeSource) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *fakeSource) SetLastError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
	s.setCalls = append(s.setCalls, msg)
}

func (s *fakeSource) SetCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.setCalls...)
}

type fakeResolver struct {
	mu      sync.Mutex
	sources map[uint64]Source
}

func newFakeResolver(sources ...Source) *fakeResolver {
	r := &fakeResolver{sources: make(map[uint64]Source)}
	for _, s := range sources {
		r.sources[s.ID()] = s
	}
	return r
}

func (r *fakeResolver) GetSource(ctx context.Context, id uint64) (Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[id]
	if !ok {
		return nil, ErrSourceNotFound
	}
	return s, nil
}

type broadcastRecorder struct {
	mu     sync.Mutex
	events []broadcastEvent
}

type broadcastEvent struct {
	SourceID uint64
	Message  string
}

func (r *broadcastRecorder) callback(sourceID uint64, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, broadcastEvent{SourceID: sourceID, Message: message})
}

func (r *broadcastRecorder) Events() []broadcastEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcastEvent(nil), r.events...)
}

type recordingMetrics struct {
	mu        sync.Mutex
	durations map[JobType]int
	failures  map[JobType]int
	rejected  map[string]int
	depths    []int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		durations: make(map[JobType]int),
		failures:  make(map[JobType]int),
		rejected:  make(map[string]int),
	}
}

func (m *recordingMetrics) RecordJobDuration(jobType JobType, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[jobType]++
}

func (m *recordingMetrics) RecordJobFailure(jobType JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[jobType]++
}

func (m *recordingMetrics) RecordBacklogDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depths = append(m.depths, depth)
}

func (m *recordingMetrics) RecordJobRejected(jobType JobType, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *recordingMetrics) Failures(t JobType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[t]
}

func (m *recordingMetrics) Durations(t JobType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.durations[t]
}

func (m *recordingMetrics) Rejected(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejected[reason]
}

// testEnv is a minimal jobEnvironment for running jobs without a dispatcher.
type testEnv struct {
	resolver  SourceResolver
	broadcast broadcastRecorder

	mu      sync.Mutex
	records []JobExecutionRecord
}

func (e *testEnv) GetSource(ctx context.Context, id uint64) (Source, error) {
	return e.resolver.GetSource(ctx, id)
}

func (e *testEnv) BroadcastError(sourceID uint64, message string) {
	e.broadcast.callback(sourceID, message)
}

func (e *testEnv) recordExecution(rec JobExecutionRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = append(e.records, rec)
}

func (e *testEnv) log() Logger { return NewNoOpLogger() }

func (e *testEnv) Records() []JobExecutionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]JobExecutionRecord(nil), e.records...)
}

func newTestDispatcher(t *testing.T, resolver SourceResolver, workers int) *Dispatcher {
	t.Helper()
	cfg := DefaultDispatcherConfig()
	cfg.Workers = workers
	cfg.TickInterval = 5 * time.Millisecond
	d := NewDispatcher(resolver, cfg)
	t.Cleanup(d.JoinAll)
	return d
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out after %v: %s", timeout, msg)
}
