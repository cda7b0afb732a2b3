package core

import (
	"context"
	"runtime/debug"
	"sync"
)

// WorkerPool is a fixed set of worker goroutines with an admission signal.
// StartJob never queues: a job is accepted only while Available() > 0, so the
// pool itself never holds more jobs than it has slots.
type WorkerPool struct {
	id           string
	workers      int
	panicHandler PanicHandler

	work chan *Job
	stop chan struct{}

	mu      sync.Mutex
	busy    int
	running bool
	closed  bool

	jobs    sync.WaitGroup // accepted jobs that have not returned from Run
	wg      sync.WaitGroup // worker goroutines
	ctx     context.Context
	cancel  context.CancelFunc
	stopped sync.Once
}

// NewWorkerPool creates a pool with a fixed number of slots.
// It panics if workers < 1.
func NewWorkerPool(id string, workers int, panicHandler PanicHandler) *WorkerPool {
	if workers < 1 {
		panic("core: worker pool needs at least one worker")
	}
	if panicHandler == nil {
		panicHandler = &DefaultPanicHandler{}
	}
	return &WorkerPool{
		id:           id,
		workers:      workers,
		panicHandler: panicHandler,
		work:         make(chan *Job, workers),
		stop:         make(chan struct{}),
	}
}

// Start starts all worker goroutines. Jobs receive a context derived from ctx.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.closed {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
}

// ID returns the ID of the pool
func (p *WorkerPool) ID() string {
	return p.id
}

// WorkerCount returns the number of slots
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// Available returns the number of idle slots.
func (p *WorkerPool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.running {
		return 0
	}
	return p.workers - p.busy
}

// StartJob hands j to an idle slot. It returns ErrNoIdleSlot when every slot
// is busy and ErrPoolClosed before Start or once JoinAll has been called.
func (p *WorkerPool) StartJob(j *Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.running {
		return ErrPoolClosed
	}
	if p.busy >= p.workers {
		return ErrNoIdleSlot
	}

	p.busy++
	p.jobs.Add(1)
	// busy < workers == cap(work), so this send never blocks
	p.work <- j
	return nil
}

// JoinAll refuses further jobs, waits for every accepted job to return from
// Run and then stops the worker goroutines. It is safe to call more than once.
func (p *WorkerPool) JoinAll() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.jobs.Wait()

	p.stopped.Do(func() {
		close(p.stop)
	})
	p.wg.Wait()

	p.mu.Lock()
	p.running = false
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
}

// IsRunning returns whether the worker goroutines are running
func (p *WorkerPool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns a snapshot of the pool state.
func (p *WorkerPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		ID:      p.id,
		Workers: p.workers,
		Busy:    p.busy,
		Running: p.running,
	}
}

func (p *WorkerPool) workerLoop(id int) {
	defer p.wg.Done()

	for {
		select {
		case j := <-p.work:
			p.execute(id, j)
		case <-p.stop:
			return
		}
	}
}

func (p *WorkerPool) execute(id int, j *Job) {
	defer func() {
		if r := recover(); r != nil {
			p.panicHandler.HandlePanic(p.ctx, p.id, id, r, debug.Stack())
		}
		p.mu.Lock()
		p.busy--
		p.mu.Unlock()
		p.jobs.Done()
	}()
	j.Run(p.ctx)
}
