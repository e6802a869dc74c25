// Package pool provides a bounded worker pool: a fixed set of worker
// goroutines draining one shared FIFO queue of (action, state) pairs.
//
// The pool is the foundation the keyed executor and the scatter/gather
// pipeline run on. It is an explicit handle owned by the caller; nothing in
// this module keeps a process-wide pool.
//
// # Basic Usage
//
//	p, err := pool.New(pool.WithMaxThreads(4))
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	for i := range 10 {
//	    _ = p.Submit(func(state any) {
//	        fmt.Println(state.(int) * 2)
//	    }, i)
//	}
//	p.Drain()
//
// # Reconfiguration
//
// Configure changes the worker count. It is the only cancellation mechanism
// the pool offers and it is coarse: the current workers are asked to stop at
// the top of their dequeue loop, queued work is discarded (any state that
// implements io.Closer is closed), and a fresh set of workers is started.
// Workers still executing an action after the join timeout are abandoned
// rather than interrupted.
//
// # Failures
//
// The pool does not recover panics raised by actions. Submit only fails
// with ErrClosed once Close has been called; callers treat that as fatal.
//
// # Configuration Options
//
//   - WithMaxThreads(n): number of workers (default: logical processors)
//   - WithJoinTimeout(d): bounded wait when stopping workers (default: 5s)
//   - WithPinnedWorkers(b): lock workers to OS threads pinned to cores
//   - WithLogger(l): zap logger for lifecycle messages
package pool
