package keyed

import "fmt"

type constError string

func (e constError) Error() string {
	return string(e)
}

// ErrNoPool is returned when parallel execution is selected but the
// Executor was created without a pool.
const ErrNoPool = constError("keyed: parallel execution requires a pool")

// ErrDiscarded is stored on every key of a batch that the pool discarded
// before running it, for example because the pool was reconfigured.
const ErrDiscarded = constError("keyed: batch discarded by pool")

// PanicError is stored on a key whose function panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("keyed: function panicked: %v\nstack trace:\n%s", e.Value, e.Stack)
}
