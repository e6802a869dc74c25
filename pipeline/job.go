package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/utkarsh5026/jobpool/logsink"
)

// Job is the single capability every pipeline job provides: run once and
// report a tagged Outcome. The buffer is private to this invocation and is
// flushed to the shared sink after Invoke returns.
//
// A Job that also implements fmt.Stringer has that string logged as its
// identity (a command line, a function name) on the start line.
type Job interface {
	Invoke(ctx context.Context, log *logsink.Buffer) Outcome
}

// Outcome is the tagged success/failure result of a Job invocation.
type Outcome struct {
	err error
}

// Success returns a successful Outcome.
func Success() Outcome { return Outcome{} }

// Failure returns a failed Outcome carrying err.
func Failure(err error) Outcome {
	if err == nil {
		err = constError("pipeline: job failed without an error")
	}
	return Outcome{err: err}
}

// OutcomeOf maps a nil error to Success and anything else to Failure.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return Success()
	}
	return Failure(err)
}

// Succeeded reports whether the job completed without failure.
func (o Outcome) Succeeded() bool { return o.err == nil }

// Err returns the failure, or nil on success.
func (o Outcome) Err() error { return o.err }

// Descriptor wraps a Job with its description, an optional log sink and a
// failure slot that is written at most once per run.
type Descriptor struct {
	// Description labels the job in logs and in AggregateError.
	Description string
	// Sink receives the job's log. Nil means the pipeline's sink.
	Sink *logsink.Sink
	// Job is the work itself.
	Job Job

	mu      sync.Mutex
	failure error
	ran     bool
}

// NewJob wraps job in a Descriptor.
func NewJob(description string, job Job) *Descriptor {
	return &Descriptor{Description: description, Job: job}
}

// WithSink sets the descriptor's own sink and returns the descriptor.
func (d *Descriptor) WithSink(s *logsink.Sink) *Descriptor {
	d.Sink = s
	return d
}

// Failure returns the failure recorded by the last run, or nil.
func (d *Descriptor) Failure() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failure
}

// Ran reports whether the job has been invoked and has returned in the
// current run. A job discarded by the pool never runs.
func (d *Descriptor) Ran() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ran
}

// fail records err unless a failure is already set. It reports whether err
// was recorded.
func (d *Descriptor) fail(err error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failure != nil {
		return false
	}
	d.failure = err
	return true
}

func (d *Descriptor) finish() {
	d.mu.Lock()
	d.ran = true
	d.mu.Unlock()
}

func (d *Descriptor) reset() {
	d.mu.Lock()
	d.failure = nil
	d.ran = false
	d.mu.Unlock()
}

// identity returns what the start line reports for the job.
func (d *Descriptor) identity() string {
	if s, ok := d.Job.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", d.Job)
}

// run invokes the job, capturing any failure in the descriptor, and flushes
// the job's log to its sink.
func (d *Descriptor) run(ctx context.Context, fallback *logsink.Sink, logger *zap.Logger) {
	sink := d.Sink
	if sink == nil {
		sink = fallback
	}
	buf := sink.Buffer(d.Description)

	start := time.Now()
	buf.Printf("started %s: %s", start.Format(time.RFC3339), d.identity())

	out := invoke(ctx, d.Job, buf)
	elapsed := time.Since(start)

	if out.Succeeded() {
		buf.Printf("finished %s: ok (%s)", time.Now().Format(time.RFC3339), elapsed.Round(time.Millisecond))
	} else {
		d.fail(out.Err())
		buf.Printf("finished %s: failed (%s): %v", time.Now().Format(time.RFC3339), elapsed.Round(time.Millisecond), out.Err())
		logger.Warn("job failed", zap.String("job", d.Description), zap.Error(out.Err()))
	}
	d.finish()

	if err := buf.Flush(); err != nil {
		logger.Error("flushing job log", zap.String("job", d.Description), zap.Error(err))
	}
}

// invoke calls job.Invoke, converting a panic into a failed Outcome.
func invoke(ctx context.Context, job Job, buf *logsink.Buffer) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			out = Failure(&PanicError{Value: r, Stack: stack[:n]})
		}
	}()
	return job.Invoke(ctx, buf)
}

// scatterItem is the pool state for one job. Exactly one of run or Close
// is called for every submitted item; both release pending.
type scatterItem struct {
	desc    *Descriptor
	pending *sync.WaitGroup
}

func (s *scatterItem) run(ctx context.Context, sink *logsink.Sink, logger *zap.Logger) {
	defer s.pending.Done()
	s.desc.run(ctx, sink, logger)
}

// Close runs if the pool discards the item without executing it.
func (s *scatterItem) Close() error {
	defer s.pending.Done()
	s.desc.fail(ErrDiscarded)
	return nil
}
