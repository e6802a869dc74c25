package pipeline

import (
	"context"
	"io"
	"reflect"
	"runtime"

	"github.com/utkarsh5026/jobpool/logsink"
)

// CallbackFunc is an in-process job body. It receives a typed argument and
// a writer for its log; a returned error is the job's failure.
type CallbackFunc[T any] func(ctx context.Context, arg T, log io.Writer) error

// Callback is the CallbackMethodJob variant: an in-process function called
// with a typed argument.
type Callback[T any] struct {
	Fn  CallbackFunc[T]
	Arg T
}

// NewCallback wraps fn and its argument in a Descriptor.
func NewCallback[T any](description string, fn CallbackFunc[T], arg T) *Descriptor {
	return NewJob(description, &Callback[T]{Fn: fn, Arg: arg})
}

// Invoke calls the function. Panics are turned into failures by the
// pipeline.
func (c *Callback[T]) Invoke(ctx context.Context, log *logsink.Buffer) Outcome {
	return OutcomeOf(c.Fn(ctx, c.Arg, log))
}

// String returns the fully qualified name of the callback function.
func (c *Callback[T]) String() string {
	if c.Fn == nil {
		return "<nil callback>"
	}
	if f := runtime.FuncForPC(reflect.ValueOf(c.Fn).Pointer()); f != nil {
		return f.Name()
	}
	return "<unknown callback>"
}
