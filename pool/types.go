package pool

import "sync"

// Action is the unit of work a Pool executes. It receives the state that was
// passed to Submit alongside it.
//
// The pool does not recover panics raised by an Action; isolating failures
// is the submitter's job.
type Action func(state any)

// workItem is one queued (action, state) pair. It is removed from the queue
// when a worker dequeues it and is executed exactly once.
type workItem struct {
	action Action
	state  any
}

// generation is the set of workers started by one call to Configure (or New).
// All fields except wg are guarded by Pool.mu.
type generation struct {
	id      uint64
	size    int
	stopped bool
	busy    int
	wg      sync.WaitGroup
}

// Stats is a point-in-time snapshot of a Pool.
//
// Fields:
//   - MaxThreads: configured worker count
//   - InUse: workers of the current generation executing an action
//   - Queued: work items waiting to be dequeued
//   - Submitted: work items accepted since the pool was created
//   - Completed: work items whose action returned
//   - Discarded: queued work items dropped by Configure or Close
//   - Resets: number of times the workers were torn down and rebuilt
type Stats struct {
	MaxThreads int
	InUse      int
	Queued     int
	Submitted  uint64
	Completed  uint64
	Discarded  uint64
	Resets     uint64
}
