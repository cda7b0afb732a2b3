package feedagent

import (
	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

// Re-export commonly used types so that most callers only import feedagent
// and source.

// JobType tags a job with the operation it performs
type JobType = core.JobType

// ErrorCallback receives every job failure
type ErrorCallback = core.ErrorCallback

// MonitorOutcome tells a monitor callback why it fired
type MonitorOutcome = core.MonitorOutcome

// MonitorCallback is invoked once when a monitor finishes
type MonitorCallback = core.MonitorCallback

// DispatcherStats is a snapshot of the dispatcher
type DispatcherStats = core.DispatcherStats

// JobExecutionRecord describes a finished job
type JobExecutionRecord = core.JobExecutionRecord

// Logger is the logging interface used throughout the module
type Logger = core.Logger

// Monitor outcomes
const (
	MonitorCompleted = core.MonitorCompleted
	MonitorAborted   = core.MonitorAborted
)

// Admission policies
const (
	AdmitAllIdle    = core.AdmitAllIdle
	AdmitOnePerTick = core.AdmitOnePerTick
)

// Sentinel errors returned by the Queue methods
var (
	ErrDispatcherClosed = core.ErrDispatcherClosed
	ErrSourceNotFound   = core.ErrSourceNotFound
)

// Callback shapes shared by several operations.
type (
	// FeedCallback receives a feed.
	FeedCallback func(feed *source.Feed)
	// RefreshCallback receives a refreshed feed, or a nil feed and the error
	// when the refresh failed.
	RefreshCallback func(feed *source.Feed, err error)
	// PostsCallback receives one page of posts.
	PostsCallback func(page source.Page[source.Post])
	// LogsCallback receives one page of log entries.
	LogsCallback func(page source.Page[source.Log])
	// DoneCallback signals that an operation finished.
	DoneCallback func()
	// IDCallback receives the id of a created entity.
	IDCallback func(id uint64)
	// IDsCallback receives the ids affected by an operation.
	IDsCallback func(ids []uint64)
)
