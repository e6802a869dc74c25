package keyed

import "context"

// Func processes one key/value pair. The context is the one passed to
// Execute; the executor never cancels it, so a long-running function that
// wants an early exit polls ctx itself.
//
// Type parameters:
//   - K: The key type of the input mapping
//   - V: The value (parameter) type
//   - R: The result type
type Func[K comparable, V, R any] func(ctx context.Context, key K, value V) (R, error)

// JobResult is the outcome of processing a single key. It holds the original
// parameter and exactly one of a produced value or a captured failure.
//
// Fields:
//   - Param: The value that was passed to the function for this key
//   - Value: The produced result (only meaningful if Err is nil)
//   - Err: The failure returned or raised by the function, nil on success
type JobResult[V, R any] struct {
	Param V
	Value R
	Err   error
}

// Ok reports whether the function produced a value for this key.
func (r JobResult[V, R]) Ok() bool { return r.Err == nil }

// Get returns the value and the failure as a pair, in the usual Go order.
func (r JobResult[V, R]) Get() (R, error) { return r.Value, r.Err }

func succeeded[V, R any](param V, value R) JobResult[V, R] {
	return JobResult[V, R]{Param: param, Value: value}
}

func failed[V, R any](param V, err error) JobResult[V, R] {
	return JobResult[V, R]{Param: param, Err: err}
}
