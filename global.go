package feedagent

import "sync"

var (
	globalAgent *Agent
	globalMu    sync.Mutex
)

// InitGlobalAgent creates the process-wide agent. Later calls are no-ops
// until ShutdownGlobalAgent.
func InitGlobalAgent(dir SourceDirectory, cfg Config, opts ...Option) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalAgent != nil {
		return
	}
	globalAgent = New(dir, cfg, opts...)
}

// GlobalAgent returns the process-wide agent.
// It panics if InitGlobalAgent has not been called.
func GlobalAgent() *Agent {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalAgent == nil {
		panic("feedagent: global agent not initialized, call InitGlobalAgent first")
	}
	return globalAgent
}

// ShutdownGlobalAgent shuts the process-wide agent down and forgets it.
func ShutdownGlobalAgent() {
	globalMu.Lock()
	a := globalAgent
	globalAgent = nil
	globalMu.Unlock()

	if a != nil {
		a.Shutdown()
	}
}
