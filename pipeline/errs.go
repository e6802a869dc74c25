package pipeline

import (
	"fmt"
	"strings"
)

type constError string

func (e constError) Error() string {
	return string(e)
}

// Configuration failures. They are returned before any work is dispatched
// and indicate a programming error rather than a data error.
const (
	ErrNoJobs           = constError("pipeline: job list is empty")
	ErrNilJob           = constError("pipeline: job list contains a nil job")
	ErrInvalidThreadCap = constError("pipeline: thread cap must not be negative")
	ErrMissingReduce    = constError("pipeline: reduce arguments given without a reduce step")
	ErrInvalidState     = constError("pipeline: phase called out of order")
)

// ErrDiscarded is recorded on a job that the pool discarded before it ran.
const ErrDiscarded = constError("pipeline: job discarded by pool")

// AggregateError is returned by Scatter when one or more jobs failed. It
// lists every failure, in job order, not only the first one.
type AggregateError struct {
	// Causes holds the failure of every failed job.
	Causes []error
	// Jobs holds the description of the job behind each entry of Causes.
	Jobs []string
	// Total is the number of jobs that were scattered.
	Total int
}

func (e *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pipeline: %d of %d jobs failed", len(e.Causes), e.Total)
	for i, err := range e.Causes {
		fmt.Fprintf(&b, "\n  %s: %v", e.Jobs[i], err)
	}
	return b.String()
}

// Unwrap exposes the causes to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Causes
}

// ExitError is the failure of an external command that exited non-zero.
type ExitError struct {
	Code        int
	CommandLine string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with code %d: %s", e.Code, e.CommandLine)
}

// PanicError is the failure of a job whose body panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v\nstack trace:\n%s", e.Value, e.Stack)
}
