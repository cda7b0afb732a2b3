package feedagent

import (
	"github.com/Swind/go-feed-agent/core"
)

// QueueMonitorFeedRefreshCompletion queues a job that waits until no feed,
// folder or source refresh is outstanding and then calls cb with
// MonitorCompleted. On shutdown cb receives MonitorAborted instead.
//
// Folder and source refreshes are counted along with feed refreshes because
// they enqueue their feed refreshes while running. A monitor queued right
// after QueueRefreshSource therefore cannot fire before the fanned-out feed
// refreshes exist.
//
// The monitor occupies a worker slot while it waits.
func (a *Agent) QueueMonitorFeedRefreshCompletion(cb MonitorCallback) error {
	return a.dispatcher.Enqueue(core.NewFeedRefreshCompletionMonitor(
		a.dispatcher, a.cfg.FeedRefreshPollInterval, a.monitorReply(cb)))
}

// QueueMonitorSourceReloadCompletion queues a job that waits until no source
// tree load is outstanding. See QueueMonitorFeedRefreshCompletion.
func (a *Agent) QueueMonitorSourceReloadCompletion(cb MonitorCallback) error {
	return a.dispatcher.Enqueue(core.NewSourceReloadCompletionMonitor(
		a.dispatcher, a.cfg.SourceReloadPollInterval, a.monitorReply(cb)))
}

func (a *Agent) monitorReply(cb MonitorCallback) MonitorCallback {
	if cb == nil {
		return nil
	}
	return func(outcome MonitorOutcome) {
		a.deliver(func() { cb(outcome) })
	}
}
