// Package feedagent runs feed reader operations in the background.
//
// Callers (typically a UI) queue operations against a source by id: refresh a
// feed, list the posts of a folder, mark posts read, import an OPML file and
// so on. Each operation becomes a job that the dispatcher runs on a bounded
// worker pool. Results are delivered through callbacks, either on the worker
// goroutine or, when the Agent has a reply runner, on that runner's dedicated
// goroutine.
//
// Failures never surface as return values of the Queue methods. A failing job
// stores a message on its source (see core.Source.SetLastError) and broadcasts
// it to the registered error callback.
//
// # Quick Start
//
//	reg := source.NewRegistry()
//	reg.Register(dummy.New(1))
//
//	agent := feedagent.New(reg, feedagent.DefaultConfig())
//	defer agent.Shutdown()
//
//	agent.RegisterErrorCallback(func(sourceID uint64, msg string) {
//		log.Printf("source %d: %s", sourceID, msg)
//	})
//
//	agent.QueueRefreshSource(1, func(f *source.Feed, err error) {
//		// one call per feed
//	})
//	agent.QueueMonitorFeedRefreshCompletion(func(o feedagent.MonitorOutcome) {
//		// every refresh has finished
//	})
//
// # Packages
//
// core holds the engine: Job, WorkerPool, Dispatcher, monitor jobs and the
// ReplyRunner. source defines the business contract of a source and a
// registry; source/dummy and source/postgres provide implementations.
// broadcast delivers error events to Redis and websocket clients, and
// observability/prometheus exports dispatcher metrics.
package feedagent
