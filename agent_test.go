package feedagent_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	feedagent "github.com/Swind/go-feed-agent"
	"github.com/Swind/go-feed-agent/broadcast"
	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
	"github.com/Swind/go-feed-agent/source/dummy"
)

type refreshResult struct {
	feed *source.Feed
	err  error
}

// TestAgent_RefreshFeed_Success tests the refresh happy path
// Given: a source with one feed
// When: the feed is refreshed
// Then: the callback receives the updated feed and the source has no last error
func TestAgent_RefreshFeed_Success(t *testing.T) {
	// Arrange
	src := dummy.New(1)
	src.Populate(0, 1, 0)
	src.SetLastError("stale")
	agent, _ := newTestAgent(t, src)
	feedID := feedIDs(t, src)[0]
	results := make(chan refreshResult, 1)

	// Act
	mustQueue(t, agent.QueueRefreshFeed(1, feedID, func(f *source.Feed, err error) {
		results <- refreshResult{f, err}
	}))

	// Assert
	r := await(t, results)
	if r.err != nil || r.feed == nil || r.feed.ID != feedID {
		t.Fatalf("callback got %+v", r)
	}
	if src.RefreshCount(feedID) != 1 {
		t.Errorf("RefreshCount = %d, want 1", src.RefreshCount(feedID))
	}
	if src.LastError() != "" {
		t.Errorf("LastError = %q, want cleared", src.LastError())
	}
}

// TestAgent_RefreshFeed_FailureStillCallsBack tests refresh failure handling
// Main test items:
// 1. The source's last error holds the formatted message
// 2. The error callback receives the same message
// 3. The refresh callback still runs, with a nil feed and the error
func TestAgent_RefreshFeed_FailureStillCallsBack(t *testing.T) {
	// Arrange
	src := dummy.New(1)
	src.Populate(0, 1, 0)
	feedID := feedIDs(t, src)[0]
	src.FailRefresh(feedID, "timeout")
	agent, _ := newTestAgent(t, src)

	rec := &errorRecorder{}
	agent.RegisterErrorCallback(rec.callback)
	results := make(chan refreshResult, 1)

	// Act
	mustQueue(t, agent.QueueRefreshFeed(1, feedID, func(f *source.Feed, err error) {
		results <- refreshResult{f, err}
	}))

	// Assert
	r := await(t, results)
	if r.feed != nil || r.err == nil {
		t.Fatalf("callback got %+v, want nil feed and an error", r)
	}
	const want = "Failed to refresh feed: timeout (FeedRefreshJob)"
	if got := src.LastError(); got != want {
		t.Errorf("LastError = %q, want %q", got, want)
	}
	events := rec.Events()
	if len(events) != 1 || events[0].SourceID != 1 || events[0].Message != want {
		t.Errorf("error events = %+v", events)
	}
}

// TestAgent_RefreshSource_FansOut tests source refresh fan-out and the
// completion monitor
// Given: a source with two folders of two feeds each
// When: the source is refreshed and a completion monitor is queued
// Then: every feed is refreshed once and the monitor completes afterwards
func TestAgent_RefreshSource_FansOut(t *testing.T) {
	// Arrange
	src := dummy.New(1, dummy.WithRefreshLatency(20*time.Millisecond))
	src.Populate(2, 2, 0)
	agent, _ := newTestAgent(t, src)

	var refreshed atomic.Int32
	done := make(chan feedagent.MonitorOutcome, 1)

	// Act
	mustQueue(t, agent.QueueRefreshSource(1, func(f *source.Feed, err error) {
		if err == nil {
			refreshed.Add(1)
		}
	}))
	mustQueue(t, agent.QueueMonitorFeedRefreshCompletion(func(o feedagent.MonitorOutcome) {
		done <- o
	}))

	// Assert
	if o := await(t, done); o != feedagent.MonitorCompleted {
		t.Fatalf("monitor outcome = %v, want completed", o)
	}
	if got := refreshed.Load(); got != 4 {
		t.Errorf("refreshed %d feeds when the monitor fired, want 4", got)
	}
	for _, id := range feedIDs(t, src) {
		if n := src.RefreshCount(id); n != 1 {
			t.Errorf("feed %d refreshed %d times", id, n)
		}
	}
}

// TestAgent_RefreshFolder_OnlySubtree tests folder refresh scope
func TestAgent_RefreshFolder_OnlySubtree(t *testing.T) {
	// Arrange
	ctx := context.Background()
	src := dummy.New(1)
	folderA, _ := src.AddFolder(ctx, "A", 0)
	folderB, _ := src.AddFolder(ctx, "B", 0)
	nested, _ := src.AddFolder(ctx, "A1", folderA)
	inA, _ := src.AddFeed(ctx, "https://a.example/feed", folderA)
	inNested, _ := src.AddFeed(ctx, "https://a1.example/feed", nested)
	inB, _ := src.AddFeed(ctx, "https://b.example/feed", folderB)
	agent, _ := newTestAgent(t, src)

	var mu sync.Mutex
	got := map[uint64]bool{}
	results := make(chan struct{}, 8)

	// Act
	mustQueue(t, agent.QueueRefreshFolder(1, folderA, func(f *source.Feed, err error) {
		mu.Lock()
		got[f.ID] = true
		mu.Unlock()
		results <- struct{}{}
	}))

	// Assert
	await(t, results)
	await(t, results)
	mu.Lock()
	defer mu.Unlock()
	if !got[inA] || !got[inNested] || got[inB] {
		t.Errorf("refreshed %v, want %d and %d only", got, inA, inNested)
	}
	if src.RefreshCount(inB) != 0 {
		t.Error("feed outside the folder was refreshed")
	}
}

// TestAgent_RefreshAllSources tests fan-out across the registry
func TestAgent_RefreshAllSources(t *testing.T) {
	// Arrange
	s1 := dummy.New(1)
	s1.Populate(0, 2, 0)
	s2 := dummy.New(2)
	s2.Populate(1, 1, 0)
	agent, _ := newTestAgent(t, s1, s2)

	var count atomic.Int32
	done := make(chan feedagent.MonitorOutcome, 1)

	// Act
	mustQueue(t, agent.QueueRefreshAllSources(func(*source.Feed, error) { count.Add(1) }))
	mustQueue(t, agent.QueueMonitorFeedRefreshCompletion(func(o feedagent.MonitorOutcome) { done <- o }))

	// Assert
	await(t, done)
	if count.Load() != 3 {
		t.Errorf("refresh callbacks = %d, want 3", count.Load())
	}
}

// TestAgent_UnknownSourceIsSilent tests that a vanished source is skipped
// Given: an agent without source 99
// When: an operation for source 99 runs
// Then: neither the operation nor the error callback fires and the job is
// recorded as skipped
func TestAgent_UnknownSourceIsSilent(t *testing.T) {
	// Arrange
	agent, _ := newTestAgent(t, dummy.New(1))
	rec := &errorRecorder{}
	agent.RegisterErrorCallback(rec.callback)
	called := make(chan struct{}, 1)

	// Act
	mustQueue(t, agent.QueueGetFeed(99, 1, func(*source.Feed) { called <- struct{}{} }))

	// Assert
	waitFor(t, func() bool { return len(agent.RecentJobs(1)) == 1 })
	if rj := agent.RecentJobs(1)[0]; rj.Outcome != core.JobSkipped || rj.Type != core.JobTypeFeedGet {
		t.Errorf("record = %+v, want a skipped FeedGet", rj)
	}
	select {
	case <-called:
		t.Error("callback ran for an unknown source")
	default:
	}
	if len(rec.Events()) != 0 {
		t.Errorf("unexpected error events %+v", rec.Events())
	}
}

// TestAgent_NotFoundEntityIsReported tests a failing lookup inside a source
func TestAgent_NotFoundEntityIsReported(t *testing.T) {
	src := dummy.New(1)
	agent, _ := newTestAgent(t, src)
	rec := &errorRecorder{}
	agent.RegisterErrorCallback(rec.callback)

	mustQueue(t, agent.QueueGetFeed(1, 42, nil))

	waitFor(t, func() bool { return len(rec.Events()) == 1 })
	const want = "feed 42: source: not found (FeedGetJob)"
	if got := rec.Events()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

// TestAgent_ReplyRunnerDelivery tests callback affinity
// Given: an agent whose reply runner is busy
// When: an operation finishes
// Then: its callback waits for the reply runner instead of running on the worker
func TestAgent_ReplyRunnerDelivery(t *testing.T) {
	// Arrange
	src := dummy.New(1)
	src.Populate(0, 1, 0)
	replies := core.NewReplyRunner("ui", nil)
	defer replies.Stop()

	reg := source.NewRegistry()
	reg.Register(src)
	agent := feedagent.New(reg, testConfig(), feedagent.WithReplyRunner(replies))
	defer agent.Shutdown()

	release := make(chan struct{})
	replies.Post(func() { <-release })

	var onRunner atomic.Bool
	got := make(chan uint64, 1)

	// Act
	mustQueue(t, agent.QueueGetFeedUnreadCount(1, feedIDs(t, src)[0], func(n uint64) {
		onRunner.Store(true)
		got <- n
	}))

	// Assert
	waitFor(t, func() bool { return len(agent.RecentJobs(1)) == 1 })
	if onRunner.Load() {
		t.Fatal("callback ran while the reply runner was blocked")
	}
	close(release)
	if n := await(t, got); n != 0 {
		t.Errorf("unread count = %d, want 0", n)
	}
}

// TestAgent_ErrorSink tests that failures reach the configured sink
func TestAgent_ErrorSink(t *testing.T) {
	// Arrange
	src := dummy.New(1)
	reg := source.NewRegistry()
	reg.Register(src)

	sink := &sinkRecorder{got: make(chan string, 1)}
	agent := feedagent.New(reg, testConfig(), feedagent.WithErrorSink(sink))
	defer agent.Shutdown()

	// Act
	mustQueue(t, agent.QueueRemoveFeed(1, 7, nil))

	// Assert
	if msg := await(t, sink.got); msg != "feed 7: source: not found (FeedRemoveJob)" {
		t.Errorf("sink got %q", msg)
	}
}

// TestAgent_Shutdown tests shutdown semantics
// Main test items:
// 1. A waiting monitor is aborted
// 2. Queueing after shutdown fails with ErrDispatcherClosed
// 3. Shutdown is idempotent
func TestAgent_Shutdown(t *testing.T) {
	// Arrange
	src := dummy.New(1, dummy.WithRefreshLatency(200*time.Millisecond))
	src.Populate(0, 1, 0)
	agent, _ := newTestAgent(t, src)

	outcome := make(chan feedagent.MonitorOutcome, 1)
	mustQueue(t, agent.QueueRefreshSource(1, nil))
	mustQueue(t, agent.QueueMonitorFeedRefreshCompletion(func(o feedagent.MonitorOutcome) { outcome <- o }))
	waitFor(t, func() bool {
		return agent.Dispatcher().TotalCountOfType(core.JobTypeFeedRefresh) == 1
	})

	// Act
	agent.Shutdown()
	agent.Shutdown()

	// Assert
	if o := await(t, outcome); o != feedagent.MonitorAborted {
		t.Errorf("monitor outcome = %v, want aborted", o)
	}
	if err := agent.QueueGetFeed(1, 1, nil); !errors.Is(err, feedagent.ErrDispatcherClosed) {
		t.Errorf("queue after shutdown = %v, want ErrDispatcherClosed", err)
	}
	if !agent.Stats().Closed {
		t.Error("Stats().Closed = false after shutdown")
	}
}

// TestAgent_UnsupportedSource tests a resolver that returns a bare core.Source
func TestAgent_UnsupportedSource(t *testing.T) {
	bare := &bareSource{}
	agent := feedagent.New(bareDirectory{bare}, testConfig())
	defer agent.Shutdown()

	mustQueue(t, agent.QueueGetFeed(5, 1, nil))

	waitFor(t, func() bool { return bare.LastError() != "" })
	if !strings.HasPrefix(bare.LastError(), feedagent.ErrUnsupportedSource.Error()) {
		t.Errorf("LastError = %q", bare.LastError())
	}
}

type sinkRecorder struct {
	got chan string
}

func (s *sinkRecorder) Send(ctx context.Context, ev broadcast.ErrorEvent) error {
	s.got <- ev.Message
	return nil
}

type bareSource struct {
	source.ErrorSlot
}

func (s *bareSource) ID() uint64 { return 5 }

type bareDirectory struct{ src *bareSource }

func (d bareDirectory) GetSource(ctx context.Context, id uint64) (core.Source, error) {
	if id != 5 {
		return nil, core.ErrSourceNotFound
	}
	return d.src, nil
}

func (d bareDirectory) SourceIDs() []uint64 { return []uint64{5} }
