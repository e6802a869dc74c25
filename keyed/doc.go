// Package keyed maps a key/value collection through a function and returns
// one JobResult per key, running either on the calling goroutine or in
// batches on a pool.Pool.
//
// # Scheduling Models
//
//   - Sequential: every key runs on the caller's goroutine
//   - Parallel: keys are dealt round-robin into processors × fanout batches
//     and each batch is one pool submission
//   - Auto (default): sequential for a single item or a single-processor
//     host, parallel otherwise
//
// # Failure Isolation
//
// An error returned by the function, or a panic raised inside it, is stored
// on that key's JobResult. Processing carries on for every other key. The
// only call-level failure is the pool refusing a submission.
//
// # Ordered Input
//
//	results, err := keyed.ExecuteOrdered(ctx, ex, []string{"x", "y"},
//	    func(ctx context.Context, i int, s string) (int, error) {
//	        return len(s), nil
//	    })
//	// results[0] belongs to "x", results[1] to "y"
package keyed
