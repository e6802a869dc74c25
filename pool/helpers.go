package pool

import (
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrClosed is returned by Submit once the pool has been closed. Callers
	// treat it as resource exhaustion: the work was not accepted.
	ErrClosed = errors.New("pool: closed")

	// ErrInvalidThreadCount is returned for a worker count below one.
	ErrInvalidThreadCount = errors.New("pool: thread count must be at least 1")

	// ErrShutdownTimeout is returned by Close when some workers were still
	// executing an action after the join timeout elapsed.
	ErrShutdownTimeout = errors.New("pool: shutdown timeout reached")
)

func invalidThreadCount(n int) error {
	return fmt.Errorf("%w: got %d", ErrInvalidThreadCount, n)
}

// waitUntil blocks until either the done channel is closed or the timeout is reached.
// It is used while stopping a generation of workers.
func waitUntil(d <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-d
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-d:
		return nil
	case <-timer.C:
		return ErrShutdownTimeout
	}
}

// dispose closes the state of a discarded work item when it holds a resource.
func dispose(state any) error {
	if c, ok := state.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
