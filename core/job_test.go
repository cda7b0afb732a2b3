package core

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

func runWithEnv(j *Job, env *testEnv) {
	j.env = env
	j.Run(context.Background())
}

// TestJob_Run_SourceNotFound verifies that a vanished source finishes the job silently
// Given: a job bound to an id the resolver does not know
// When: the job runs
// Then: the body never runs, nothing is broadcast and the job is done
func TestJob_Run_SourceNotFound(t *testing.T) {
	env := &testEnv{resolver: newFakeResolver()}
	var called atomic.Bool
	j := NewJob(42, JobTypeFeedRefresh, func(ctx context.Context, src Source) error {
		called.Store(true)
		return nil
	})

	runWithEnv(j, env)

	if called.Load() {
		t.Error("body ran for a missing source")
	}
	if got := env.broadcast.Events(); len(got) != 0 {
		t.Errorf("expected no broadcast, got %v", got)
	}
	if !j.IsDone() {
		t.Error("job should be done")
	}
	recs := env.Records()
	if len(recs) != 1 || recs[0].Outcome != JobSkipped {
		t.Errorf("expected one skipped record, got %+v", recs)
	}
}

// TestJob_Run_ClearsLastErrorOnStart verifies the stale error is cleared before the body runs
func TestJob_Run_ClearsLastErrorOnStart(t *testing.T) {
	src := newFakeSource(1)
	src.SetLastError("old failure")
	env := &testEnv{resolver: newFakeResolver(src)}

	var seen string
	j := NewJob(1, JobTypeFeedGet, func(ctx context.Context, s Source) error {
		seen = s.LastError()
		return nil
	})

	runWithEnv(j, env)

	if seen != "" {
		t.Errorf("body saw last error %q, want empty", seen)
	}
	if src.LastError() != "" {
		t.Errorf("last error = %q after success, want empty", src.LastError())
	}
}

// TestJob_Run_SourceError verifies domain failures use their display text
// Given: a body returning a *SourceError
// When: the job runs
// Then: last error and the single broadcast carry "Failed to <op>: <msg> (FeedRefreshJob)"
func TestJob_Run_SourceError(t *testing.T) {
	src := newFakeSource(7)
	env := &testEnv{resolver: newFakeResolver(src)}
	j := NewJob(7, JobTypeFeedRefresh, func(ctx context.Context, s Source) error {
		return NewSourceError("refresh feed", "host unreachable")
	})

	runWithEnv(j, env)

	want := "Failed to refresh feed: host unreachable (FeedRefreshJob)"
	if src.LastError() != want {
		t.Errorf("last error = %q, want %q", src.LastError(), want)
	}
	events := env.broadcast.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(events))
	}
	if events[0].SourceID != 7 || events[0].Message != want {
		t.Errorf("broadcast = %+v", events[0])
	}
	if !j.IsDone() {
		t.Error("job should be done after failure")
	}
}

// TestJob_Run_GenericError verifies generic errors use Error()
func TestJob_Run_GenericError(t *testing.T) {
	src := newFakeSource(1)
	env := &testEnv{resolver: newFakeResolver(src)}
	j := NewJob(1, JobTypeFolderMove, func(ctx context.Context, s Source) error {
		return errors.New("constraint violated")
	})

	runWithEnv(j, env)

	if got := src.LastError(); got != "constraint violated (FolderMoveJob)" {
		t.Errorf("last error = %q", got)
	}
	if n := len(env.broadcast.Events()); n != 1 {
		t.Errorf("expected 1 broadcast, got %d", n)
	}
	recs := env.Records()
	if len(recs) != 1 || recs[0].Outcome != JobFailed {
		t.Errorf("expected one failed record, got %+v", recs)
	}
}

// TestJob_Run_Panics verifies panics are caught and reported like errors
func TestJob_Run_Panics(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"error value", errors.New("boom"), "boom (PostGetJob)"},
		{"string value", "kaboom", "kaboom (PostGetJob)"},
		{"other value", 12, "Unknown error occurred (PostGetJob)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource(3)
			env := &testEnv{resolver: newFakeResolver(src)}
			j := NewJob(3, JobTypePostGet, func(ctx context.Context, s Source) error {
				panic(tt.value)
			})

			runWithEnv(j, env)

			if got := src.LastError(); got != tt.want {
				t.Errorf("last error = %q, want %q", got, tt.want)
			}
			if n := len(env.broadcast.Events()); n != 1 {
				t.Errorf("expected 1 broadcast, got %d", n)
			}
			if !j.IsDone() {
				t.Error("job should be done after panic")
			}
		})
	}
}

// TestJob_Run_ErrorHook verifies the hook runs after the generic handling
func TestJob_Run_ErrorHook(t *testing.T) {
	src := newFakeSource(5)
	env := &testEnv{resolver: newFakeResolver(src)}
	cause := errors.New("timeout")

	var hookErr error
	var lastErrAtHook string
	j := NewJob(5, JobTypeFeedRefresh,
		func(ctx context.Context, s Source) error { return cause },
		WithErrorHook(func(ctx context.Context, s Source, err error) {
			hookErr = err
			lastErrAtHook = s.LastError()
		}),
	)

	runWithEnv(j, env)

	if !errors.Is(hookErr, cause) {
		t.Errorf("hook got %v, want %v", hookErr, cause)
	}
	if !strings.HasSuffix(lastErrAtHook, "(FeedRefreshJob)") {
		t.Errorf("hook ran before last error was set: %q", lastErrAtHook)
	}
}

// TestJob_Run_PanickingHookIsContained verifies a panicking hook still leaves the job done
func TestJob_Run_PanickingHookIsContained(t *testing.T) {
	src := newFakeSource(5)
	env := &testEnv{resolver: newFakeResolver(src)}
	j := NewJob(5, JobTypeFeedRefresh,
		func(ctx context.Context, s Source) error { return errors.New("x") },
		WithErrorHook(func(ctx context.Context, s Source, err error) { panic("hook") }),
	)

	runWithEnv(j, env)

	if !j.IsDone() {
		t.Error("job should be done")
	}
}

// TestJob_Run_OnlyOnce verifies repeated Run calls execute the body once
func TestJob_Run_OnlyOnce(t *testing.T) {
	src := newFakeSource(1)
	env := &testEnv{resolver: newFakeResolver(src)}
	var calls atomic.Int32
	j := NewJob(1, JobTypeFeedGet, func(ctx context.Context, s Source) error {
		calls.Add(1)
		return nil
	})

	runWithEnv(j, env)
	j.Run(context.Background())

	if n := calls.Load(); n != 1 {
		t.Errorf("body ran %d times, want 1", n)
	}
}

// TestJob_Abort verifies the abort flag and channel
func TestJob_Abort(t *testing.T) {
	j := NewSystemJob(JobTypeMonitorFeedRefreshCompletion, func(ctx context.Context, j *Job) {})

	if j.ShouldAbort() {
		t.Fatal("new job should not be aborted")
	}
	select {
	case <-j.AbortRequested():
		t.Fatal("abort channel closed too early")
	default:
	}

	j.SetShouldAbort(true)
	j.SetShouldAbort(true)

	if !j.ShouldAbort() {
		t.Error("ShouldAbort should be true")
	}
	select {
	case <-j.AbortRequested():
	default:
		t.Error("abort channel should be closed")
	}
}

// TestJob_SystemJobPanicIsRecorded verifies system jobs never need a source
func TestJob_SystemJobPanicIsRecorded(t *testing.T) {
	env := &testEnv{resolver: newFakeResolver()}
	j := NewSystemJob(JobTypeMonitorSourceReloadCompletion, func(ctx context.Context, j *Job) {
		panic("monitor broke")
	})

	runWithEnv(j, env)

	if !j.IsDone() {
		t.Error("system job should be done")
	}
	recs := env.Records()
	if len(recs) != 1 || recs[0].Outcome != JobFailed || !recs[0].System {
		t.Errorf("unexpected records %+v", recs)
	}
	if n := len(env.broadcast.Events()); n != 0 {
		t.Errorf("system job failures must not broadcast, got %d", n)
	}
}

func TestFailureMessage_WrappedSourceError(t *testing.T) {
	err := errors.Join(errors.New("ctx"), WrapSourceError("fetch", errors.New("503")))
	got := FailureMessage(JobTypeSourceRefresh, err)
	if got != "Failed to fetch: 503 (SourceRefreshJob)" {
		t.Errorf("got %q", got)
	}
}

func TestJobType_String(t *testing.T) {
	if JobTypeFeedRefresh.String() != "FeedRefresh" {
		t.Errorf("got %q", JobTypeFeedRefresh.String())
	}
	if JobTypeSourceGetTree.TypeName() != "SourceGetTreeJob" {
		t.Errorf("got %q", JobTypeSourceGetTree.TypeName())
	}
	if JobType(999).String() != "Unknown" {
		t.Errorf("out of range type should be Unknown")
	}
	for _, jt := range JobTypes() {
		if jt.String() == "" {
			t.Errorf("job type %d has no name", int(jt))
		}
	}
}
