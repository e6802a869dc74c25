package pool

import (
	"sync/atomic"
	"testing"
	"time"
)

// closerState records whether a discarded work item's state was closed.
type closerState struct {
	closed atomic.Bool
}

func (c *closerState) Close() error {
	c.closed.Store(true)
	return nil
}

// newTestPool creates a pool and registers its shutdown with t.Cleanup.
func newTestPool(t *testing.T, opts ...Option) *Pool {
	t.Helper()
	p, err := New(opts...)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", timeout)
		}
		time.Sleep(time.Millisecond)
	}
}

// drainWithin fails the test if Drain does not return within timeout.
func drainWithin(t *testing.T, p *Pool, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		p.Drain()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatalf("Drain did not return within %v", timeout)
	}
}
