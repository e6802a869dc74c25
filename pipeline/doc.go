// Package pipeline runs a list of heterogeneous jobs on a pool.Pool in
// phases and reports every failure at once.
//
// # Phases
//
//	Created → Initialize → Scatter → Reduce → Validate → Cleanup → Created
//
// Initialize checks the configuration and sizes the pool. Scatter runs every
// job, inline when there is only one. Reduce runs a sequential combining
// step over a shared argument list. Validate runs an optional check on the
// combined result. Cleanup drops all references so the pipeline can be
// initialized again. Calling a phase out of order returns ErrInvalidState.
//
// # Jobs
//
// A job is anything with Invoke(ctx, *logsink.Buffer) Outcome. Two are
// provided:
//
//   - Command runs an external executable; a non-zero exit is an *ExitError
//   - Callback[T] calls a Go function with a typed argument
//
// Each job writes a start and an end line plus its own output into a private
// buffer that is flushed to the shared sink in one piece when the job ends.
//
// # Example
//
//	p := pipeline.New(nil, pipeline.WithSink(logsink.New(os.Stdout)))
//	err := p.Run(ctx, pipeline.Config{
//	    Jobs: []*pipeline.Descriptor{
//	        pipeline.NewCommand("lint", "go", "vet", "./..."),
//	        pipeline.NewCommand("test", "go", "test", "./..."),
//	    },
//	})
//	var agg *pipeline.AggregateError
//	if errors.As(err, &agg) {
//	    for i, cause := range agg.Causes {
//	        fmt.Println(agg.Jobs[i], cause)
//	    }
//	}
package pipeline
