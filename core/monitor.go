package core

import (
	"context"
	"time"
)

const (
	// DefaultFeedRefreshPollInterval is how often the feed refresh monitor
	// re-counts outstanding refresh jobs.
	DefaultFeedRefreshPollInterval = time.Second

	// DefaultSourceReloadPollInterval is how often the source reload monitor
	// re-counts outstanding tree loads.
	DefaultSourceReloadPollInterval = 500 * time.Millisecond
)

// MonitorOutcome tells a monitor callback why it fired.
type MonitorOutcome int

const (
	// MonitorCompleted means the watched count reached zero.
	MonitorCompleted MonitorOutcome = iota
	// MonitorAborted means the monitor was asked to stop first.
	MonitorAborted
)

func (o MonitorOutcome) String() string {
	if o == MonitorAborted {
		return "aborted"
	}
	return "completed"
}

// MonitorCallback is invoked exactly once when a monitor finishes.
type MonitorCallback func(outcome MonitorOutcome)

// TypeCounter reports outstanding jobs per tag. *Dispatcher implements it.
type TypeCounter interface {
	TotalCountOfType(t JobType) int
}

// NewCompletionMonitor returns a system job that polls counter every interval
// until no job of any watched type remains, or until it is asked to abort.
// Either way cb runs once on the worker goroutine.
func NewCompletionMonitor(counter TypeCounter, monitorType JobType, watched []JobType, interval time.Duration, cb MonitorCallback) *Job {
	if interval <= 0 {
		interval = DefaultFeedRefreshPollInterval
	}
	watched = append([]JobType(nil), watched...)

	return NewSystemJob(monitorType, func(ctx context.Context, j *Job) {
		outcome := pollUntilIdle(ctx, j, counter, watched, interval)
		if cb != nil {
			cb(outcome)
		}
	})
}

func pollUntilIdle(ctx context.Context, j *Job, counter TypeCounter, watched []JobType, interval time.Duration) MonitorOutcome {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if j.ShouldAbort() {
			return MonitorAborted
		}
		if outstanding(counter, watched) == 0 {
			return MonitorCompleted
		}

		select {
		case <-ticker.C:
		case <-j.AbortRequested():
		case <-ctx.Done():
			return MonitorAborted
		}
	}
}

func outstanding(counter TypeCounter, watched []JobType) int {
	n := 0
	for _, t := range watched {
		n += counter.TotalCountOfType(t)
	}
	return n
}

// NewFeedRefreshCompletionMonitor fires once every feed refresh has finished.
// Folder and source refresh jobs are watched too, since they enqueue the feed
// refreshes they fan out to before they finish.
func NewFeedRefreshCompletionMonitor(counter TypeCounter, interval time.Duration, cb MonitorCallback) *Job {
	if interval <= 0 {
		interval = DefaultFeedRefreshPollInterval
	}
	return NewCompletionMonitor(counter, JobTypeMonitorFeedRefreshCompletion,
		[]JobType{JobTypeFeedRefresh, JobTypeFolderRefresh, JobTypeSourceRefresh},
		interval, cb)
}

// NewSourceReloadCompletionMonitor fires once every source tree load has finished.
func NewSourceReloadCompletionMonitor(counter TypeCounter, interval time.Duration, cb MonitorCallback) *Job {
	if interval <= 0 {
		interval = DefaultSourceReloadPollInterval
	}
	return NewCompletionMonitor(counter, JobTypeMonitorSourceReloadCompletion,
		[]JobType{JobTypeSourceGetTree},
		interval, cb)
}
