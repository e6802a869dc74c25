package keyed

import (
	"context"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/utkarsh5026/jobpool/pool"
)

// Executor maps a key/value collection through a function, choosing between
// running on the caller's goroutine and fanning batches out over a pool.
//
// An Executor holds no per-call state and may be shared between goroutines.
type Executor struct {
	pool *pool.Pool
	cfg  executorConfig
}

// NewExecutor creates an Executor dispatching parallel work to p.
// p may be nil when the executor is only ever used sequentially.
//
// Example:
//
//	p, _ := pool.New()
//	ex := keyed.NewExecutor(p, keyed.WithModel(keyed.Auto))
//	results, err := keyed.Execute(ctx, ex, map[string]int{"a": 1, "b": 2},
//	    func(ctx context.Context, k string, v int) (int, error) {
//	        return v * 2, nil
//	    })
func NewExecutor(p *pool.Pool, opts ...Option) *Executor {
	return &Executor{pool: p, cfg: createConfig(opts...)}
}

// Model returns the configured scheduling model.
func (e *Executor) Model() Model { return e.cfg.model }

// ProcessorCount returns the processor count the executor plans with.
func (e *Executor) ProcessorCount() int { return e.cfg.processorCount }

// resolve turns the configured model into Sequential or Parallel for n items.
func (e *Executor) resolve(n int) Model {
	switch e.cfg.model {
	case Sequential, Parallel:
		return e.cfg.model
	}
	if n == 1 {
		return Sequential
	}
	if e.cfg.singleProcessorSequential && e.cfg.processorCount == 1 {
		return Sequential
	}
	return Parallel
}

// batchCount returns how many batches n keys are spread over.
func (e *Executor) batchCount(n int) int {
	return min(n, e.cfg.processorCount*e.cfg.fanout)
}

// Execute processes every entry of items with fn and returns one JobResult
// per key. A failure (error or panic) for one key is stored in that key's
// result and never stops the others.
//
// The returned error is non-nil only when the pool refused a submission or
// parallel execution was selected without a pool; the call then produces no
// results at all.
func Execute[K comparable, V, R any](
	ctx context.Context,
	e *Executor,
	items map[K]V,
	fn Func[K, V, R],
) (map[K]JobResult[V, R], error) {
	keys := make([]K, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	return execute(ctx, e, keys, items, fn)
}

// ExecuteOrdered processes a slice and returns the results in input order,
// whatever order they completed in. The function receives each item's index
// as its key.
func ExecuteOrdered[V, R any](
	ctx context.Context,
	e *Executor,
	items []V,
	fn Func[int, V, R],
) ([]JobResult[V, R], error) {
	indexed := make(map[int]V, len(items))
	keys := make([]int, len(items))
	for i, v := range items {
		indexed[i] = v
		keys[i] = i
	}

	byIndex, err := execute(ctx, e, keys, indexed, fn)
	if err != nil {
		return nil, err
	}

	ordered := make([]JobResult[V, R], 0, len(byIndex))
	for _, i := range slices.Sorted(maps.Keys(byIndex)) {
		ordered = append(ordered, byIndex[i])
	}
	return ordered, nil
}

func execute[K comparable, V, R any](
	ctx context.Context,
	e *Executor,
	keys []K,
	items map[K]V,
	fn Func[K, V, R],
) (map[K]JobResult[V, R], error) {
	if fn == nil {
		panic("keyed: nil function")
	}

	results := make(map[K]JobResult[V, R], len(keys))
	if len(keys) == 0 {
		return results, nil
	}

	model := e.resolve(len(keys))
	e.cfg.logger.Debug("keyed execute",
		zap.Stringer("model", model),
		zap.Int("items", len(keys)),
	)

	if model == Sequential {
		for _, k := range keys {
			results[k] = invoke(ctx, fn, k, items[k])
		}
		return results, nil
	}
	return executeParallel(ctx, e, keys, items, fn, results)
}

// batch is the state handed to the pool for one group of keys. If the pool
// discards it unexecuted, Close marks every key as failed so the submitter
// is still released.
type batch[K comparable] struct {
	keys    []K
	discard func(keys []K)
}

func (b *batch[K]) Close() error {
	b.discard(b.keys)
	return nil
}

func executeParallel[K comparable, V, R any](
	ctx context.Context,
	e *Executor,
	keys []K,
	items map[K]V,
	fn Func[K, V, R],
	results map[K]JobResult[V, R],
) (map[K]JobResult[V, R], error) {
	if e.pool == nil {
		return nil, ErrNoPool
	}

	batches := partition(keys, e.batchCount(len(keys)))

	var mu sync.Mutex
	var remaining atomic.Int64
	remaining.Store(int64(len(batches)))
	done := make(chan struct{})

	store := func(k K, r JobResult[V, R]) {
		mu.Lock()
		results[k] = r
		mu.Unlock()
	}
	finish := func() {
		if remaining.Add(-1) == 0 {
			close(done)
		}
	}
	run := func(state any) {
		for _, k := range state.(*batch[K]).keys {
			store(k, invoke(ctx, fn, k, items[k]))
		}
		finish()
	}
	discard := func(keys []K) {
		for _, k := range keys {
			store(k, failed[V, R](items[k], ErrDiscarded))
		}
		finish()
	}

	e.cfg.logger.Debug("keyed dispatch",
		zap.Int("batches", len(batches)),
		zap.Int("processors", e.cfg.processorCount),
	)

	for i, keys := range batches {
		if err := e.pool.Submit(run, &batch[K]{keys: keys, discard: discard}); err != nil {
			return nil, fmt.Errorf("keyed: submitting batch %d of %d: %w", i+1, len(batches), err)
		}
	}

	<-done
	return results, nil
}

// partition deals keys round-robin into n batches, keeping each batch in
// input order.
func partition[K any](keys []K, n int) [][]K {
	batches := make([][]K, n)
	per := (len(keys) + n - 1) / n
	for i := range batches {
		batches[i] = make([]K, 0, per)
	}
	for i, k := range keys {
		batches[i%n] = append(batches[i%n], k)
	}
	return batches
}

// invoke runs fn for one key, converting a panic into a failure so the
// rest of the batch keeps going.
func invoke[K comparable, V, R any](ctx context.Context, fn Func[K, V, R], key K, value V) (res JobResult[V, R]) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			res = failed[V, R](value, &PanicError{Value: r, Stack: buf[:n]})
		}
	}()

	out, err := fn(ctx, key, value)
	if err != nil {
		return failed[V, R](value, err)
	}
	return succeeded(value, out)
}
