package pool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Pool is a fixed set of worker goroutines draining one shared, unbounded
// FIFO queue of (action, state) pairs.
//
// A Pool is an explicit handle: create one with New, pass it to whatever
// needs to run work, and Close it when done. Several independent pools may
// exist at once.
type Pool struct {
	// reconf serializes Configure and Close so only one generation is
	// ever being torn down and rebuilt at a time.
	reconf sync.Mutex

	mu    sync.Mutex
	work  *sync.Cond // one Signal per pending item, Broadcast on stop
	idle  *sync.Cond // Broadcast whenever an action completes or work is discarded
	queue deque.Deque[workItem]

	gen        *generation
	maxThreads int
	closed     bool

	joinTimeout time.Duration
	pinWorkers  bool
	logger      *zap.Logger
	backlog     rate.Sometimes

	submitted atomic.Uint64
	completed atomic.Uint64
	discarded atomic.Uint64
	resets    atomic.Uint64
	nextGenID atomic.Uint64
}

// New creates a pool and starts its workers.
//
// Example:
//
//	p, err := pool.New(pool.WithMaxThreads(4))
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//	_ = p.Submit(func(state any) { fmt.Println(state) }, "hello")
//	p.Drain()
func New(opts ...Option) (*Pool, error) {
	cfg := createConfig(opts...)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		maxThreads:  cfg.maxThreads,
		joinTimeout: cfg.joinTimeout,
		pinWorkers:  cfg.pinWorkers,
		logger:      cfg.logger,
		backlog:     rate.Sometimes{Interval: backlogLogInterval},
	}
	p.work = sync.NewCond(&p.mu)
	p.idle = sync.NewCond(&p.mu)

	p.mu.Lock()
	p.startLocked(cfg.maxThreads)
	p.mu.Unlock()

	p.logger.Debug("pool started", zap.Int("max_threads", cfg.maxThreads))
	return p, nil
}

// Configure sets the worker count. If maxThreads differs from the current
// value, every current worker is told to stop, all queued work is discarded
// (closing any io.Closer state), and maxThreads new workers are started.
//
// Configure waits up to the join timeout for the old workers to exit.
// Workers that are still executing an action after that are abandoned; the
// action runs to completion but is no longer counted by Drain or Stats.
func (p *Pool) Configure(maxThreads int) error {
	if maxThreads < 1 {
		return invalidThreadCount(maxThreads)
	}

	p.reconf.Lock()
	defer p.reconf.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if maxThreads == p.maxThreads {
		p.mu.Unlock()
		return nil
	}

	old := p.gen
	dropped := p.stopLocked()
	p.maxThreads = maxThreads
	p.mu.Unlock()

	p.disposeAll(dropped)
	abandoned := p.join(old)

	p.mu.Lock()
	p.startLocked(maxThreads)
	p.mu.Unlock()

	p.resets.Add(1)
	p.logger.Info("pool reconfigured",
		zap.Int("from", old.size),
		zap.Int("to", maxThreads),
		zap.Int("discarded", len(dropped)),
		zap.Bool("abandoned_workers", abandoned),
	)
	return nil
}

// Submit appends a work item to the shared queue and wakes one worker.
// It never blocks on queue capacity. Submitting to a closed pool returns
// ErrClosed.
func (p *Pool) Submit(action Action, state any) error {
	if action == nil {
		panic("pool: nil action")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.queue.PushBack(workItem{action: action, state: state})
	queued := p.queue.Len()
	p.submitted.Add(1)
	p.work.Signal()
	p.mu.Unlock()

	p.backlog.Do(func() {
		p.logger.Debug("pool backlog", zap.Int("queued", queued), zap.Int("max_threads", p.MaxThreads()))
	})
	return nil
}

// Drain blocks until the queue is empty and no worker of the current
// generation is executing an action.
//
// The condition is re-checked after every wake-up, so work submitted
// concurrently with a completion is waited for as well.
func (p *Pool) Drain() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.queue.Len() > 0 || p.gen.busy > 0 {
		p.idle.Wait()
	}
}

// Close stops all workers, discards queued work and refuses further
// submissions. It returns ErrShutdownTimeout if some workers were still
// executing after the join timeout. Calling Close more than once is safe.
func (p *Pool) Close() error {
	p.reconf.Lock()
	defer p.reconf.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	old := p.gen
	dropped := p.stopLocked()
	p.mu.Unlock()

	p.disposeAll(dropped)
	if p.join(old) {
		return ErrShutdownTimeout
	}
	p.logger.Debug("pool closed", zap.Int("discarded", len(dropped)))
	return nil
}

// MaxThreads returns the configured worker count.
func (p *Pool) MaxThreads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxThreads
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	s := Stats{
		MaxThreads: p.maxThreads,
		InUse:      p.gen.busy,
		Queued:     p.queue.Len(),
	}
	p.mu.Unlock()

	s.Submitted = p.submitted.Load()
	s.Completed = p.completed.Load()
	s.Discarded = p.discarded.Load()
	s.Resets = p.resets.Load()
	return s
}

// startLocked launches a new generation of n workers. p.mu must be held.
func (p *Pool) startLocked(n int) {
	g := &generation{id: p.nextGenID.Add(1), size: n}
	g.wg.Add(n)
	p.gen = g
	for i := range n {
		go p.worker(g, i)
	}
	// Drain callers may be waiting on a generation that no longer exists.
	p.idle.Broadcast()
}

// stopLocked flags the current generation to stop, empties the queue and
// returns the discarded items. p.mu must be held.
func (p *Pool) stopLocked() []workItem {
	p.gen.stopped = true

	dropped := make([]workItem, 0, p.queue.Len())
	for p.queue.Len() > 0 {
		dropped = append(dropped, p.queue.PopFront())
	}
	p.discarded.Add(uint64(len(dropped)))

	p.work.Broadcast()
	p.idle.Broadcast()
	return dropped
}

// join waits for the workers of g to exit and reports whether some of them
// had to be abandoned.
func (p *Pool) join(g *generation) bool {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	if err := waitUntil(done, p.joinTimeout); err != nil {
		p.logger.Warn("abandoning workers still executing",
			zap.Uint64("generation", g.id),
			zap.Duration("join_timeout", p.joinTimeout),
		)
		return true
	}
	return false
}

func (p *Pool) disposeAll(items []workItem) {
	for _, it := range items {
		if err := dispose(it.state); err != nil {
			p.logger.Warn("disposing discarded work item", zap.Error(err))
		}
	}
}
