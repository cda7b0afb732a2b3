package feedagent_test

import (
	"context"
	"sync"
	"testing"
	"time"

	feedagent "github.com/Swind/go-feed-agent"
	"github.com/Swind/go-feed-agent/source"
	"github.com/Swind/go-feed-agent/source/dummy"
)

const waitTimeout = 2 * time.Second

func testConfig() feedagent.Config {
	cfg := feedagent.DefaultConfig()
	cfg.Workers = 4
	cfg.TickInterval = 5 * time.Millisecond
	cfg.FeedRefreshPollInterval = 10 * time.Millisecond
	cfg.SourceReloadPollInterval = 10 * time.Millisecond
	return cfg
}

func newTestAgent(t *testing.T, srcs ...*dummy.Source) (*feedagent.Agent, *source.Registry) {
	t.Helper()
	reg := source.NewRegistry()
	for _, s := range srcs {
		reg.Register(s)
	}
	a := feedagent.New(reg, testConfig())
	t.Cleanup(a.Shutdown)
	return a, reg
}

// await receives one value from ch or fails the test.
func await[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		var zero T
		t.Fatal("timed out waiting for callback")
		return zero
	}
}

func mustQueue(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("queue failed: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type errorRecorder struct {
	mu     sync.Mutex
	events []errorEvent
}

type errorEvent struct {
	SourceID uint64
	Message  string
}

func (r *errorRecorder) callback(sourceID uint64, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, errorEvent{sourceID, message})
}

func (r *errorRecorder) Events() []errorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]errorEvent(nil), r.events...)
}

func feedIDs(t *testing.T, s *dummy.Source) []uint64 {
	t.Helper()
	feeds, err := s.GetFeeds(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]uint64, len(feeds))
	for i, f := range feeds {
		ids[i] = f.ID
	}
	return ids
}
