package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-feed-agent/core"
)

// DispatcherSnapshotProvider provides current dispatcher stats snapshots.
// *core.Dispatcher implements it.
type DispatcherSnapshotProvider interface {
	Stats() core.DispatcherStats
}

// PoolSnapshotProvider provides current pool stats snapshots.
// *core.WorkerPool implements it.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// PoolStatsFunc adapts a function, such as (*core.Dispatcher).PoolStats, to
// PoolSnapshotProvider.
type PoolStatsFunc func() core.PoolStats

// Stats calls f.
func (f PoolStatsFunc) Stats() core.PoolStats { return f() }

// SnapshotPoller periodically exports dispatcher/pool Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	dispatchersMu sync.RWMutex
	dispatchers   map[string]DispatcherSnapshotProvider

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	dispatcherBacklog   *prom.GaugeVec
	dispatcherInFlight  *prom.GaugeVec
	dispatcherAvailable *prom.GaugeVec
	dispatcherRejected  *prom.GaugeVec
	dispatcherClosed    *prom.GaugeVec

	poolBusy    *prom.GaugeVec
	poolWorkers *prom.GaugeVec
	poolRunning *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	dispatcherBacklog := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "feedagent",
		Name:      "dispatcher_backlog",
		Help:      "Jobs waiting for a worker per dispatcher.",
	}, []string{"dispatcher"})
	dispatcherInFlight := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "feedagent",
		Name:      "dispatcher_in_flight",
		Help:      "Jobs handed to the pool and not yet swept per dispatcher.",
	}, []string{"dispatcher"})
	dispatcherAvailable := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "feedagent",
		Name:      "dispatcher_available_workers",
		Help:      "Idle worker slots per dispatcher.",
	}, []string{"dispatcher"})
	dispatcherRejected := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "feedagent",
		Name:      "dispatcher_rejected_total",
		Help:      "Dispatcher rejected job count snapshot.",
	}, []string{"dispatcher"})
	dispatcherClosed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "feedagent",
		Name:      "dispatcher_closed",
		Help:      "Dispatcher closed state (1=closed, 0=open).",
	}, []string{"dispatcher"})

	poolBusy := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "feedagent",
		Name:      "pool_busy",
		Help:      "Busy worker slots per pool.",
	}, []string{"pool"})
	poolWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "feedagent",
		Name:      "pool_workers",
		Help:      "Worker count per pool.",
	}, []string{"pool"})
	poolRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "feedagent",
		Name:      "pool_running",
		Help:      "Pool running state (1=running, 0=stopped).",
	}, []string{"pool"})

	var err error
	if dispatcherBacklog, err = registerCollector(reg, dispatcherBacklog); err != nil {
		return nil, err
	}
	if dispatcherInFlight, err = registerCollector(reg, dispatcherInFlight); err != nil {
		return nil, err
	}
	if dispatcherAvailable, err = registerCollector(reg, dispatcherAvailable); err != nil {
		return nil, err
	}
	if dispatcherRejected, err = registerCollector(reg, dispatcherRejected); err != nil {
		return nil, err
	}
	if dispatcherClosed, err = registerCollector(reg, dispatcherClosed); err != nil {
		return nil, err
	}
	if poolBusy, err = registerCollector(reg, poolBusy); err != nil {
		return nil, err
	}
	if poolWorkers, err = registerCollector(reg, poolWorkers); err != nil {
		return nil, err
	}
	if poolRunning, err = registerCollector(reg, poolRunning); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:            interval,
		dispatchers:         make(map[string]DispatcherSnapshotProvider),
		pools:               make(map[string]PoolSnapshotProvider),
		dispatcherBacklog:   dispatcherBacklog,
		dispatcherInFlight:  dispatcherInFlight,
		dispatcherAvailable: dispatcherAvailable,
		dispatcherRejected:  dispatcherRejected,
		dispatcherClosed:    dispatcherClosed,
		poolBusy:            poolBusy,
		poolWorkers:         poolWorkers,
		poolRunning:         poolRunning,
	}, nil
}

// AddDispatcher adds or replaces a dispatcher snapshot provider by name.
func (p *SnapshotPoller) AddDispatcher(name string, provider DispatcherSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "dispatcher")
	p.dispatchersMu.Lock()
	p.dispatchers[name] = provider
	p.dispatchersMu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.dispatchersMu.RLock()
	for name, provider := range p.dispatchers {
		stats := provider.Stats()
		p.dispatcherBacklog.WithLabelValues(name).Set(float64(stats.Backlog))
		p.dispatcherInFlight.WithLabelValues(name).Set(float64(stats.InFlight))
		p.dispatcherAvailable.WithLabelValues(name).Set(float64(stats.Available))
		p.dispatcherRejected.WithLabelValues(name).Set(float64(stats.Rejected))
		p.dispatcherClosed.WithLabelValues(name).Set(boolGauge(stats.Closed))
	}
	p.dispatchersMu.RUnlock()

	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolBusy.WithLabelValues(name).Set(float64(stats.Busy))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
	}
	p.poolsMu.RUnlock()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
