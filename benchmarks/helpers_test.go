package benchmarks

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/utkarsh5026/jobpool/keyed"
	"github.com/utkarsh5026/jobpool/pipeline"
	"github.com/utkarsh5026/jobpool/pool"
)

// cpuBoundWork simulates a CPU-intensive keyed function.
func cpuBoundWork(iterations int) keyed.Func[int, int, int] {
	return func(_ context.Context, _ int, v int) (int, error) {
		result := 0
		for i := range iterations {
			result += i * v
		}
		return result, nil
	}
}

// ioBoundWork simulates an I/O call with a fixed delay.
func ioBoundWork(delay time.Duration) keyed.Func[int, int, int] {
	return func(ctx context.Context, _ int, v int) (int, error) {
		select {
		case <-time.After(delay):
			return v * 2, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// mixedWork simulates a workload with variable processing time.
func mixedWork() keyed.Func[int, int, int] {
	return func(_ context.Context, _ int, v int) (int, error) {
		time.Sleep(time.Duration(v%10) * 100 * time.Microsecond)
		result := 0
		for i := range 1000 {
			result += i
		}
		return result + v, nil
	}
}

func makeItems(n int) map[int]int {
	items := make(map[int]int, n)
	for i := range n {
		items[i] = i
	}
	return items
}

func newBenchPool(b *testing.B, threads int) *pool.Pool {
	b.Helper()
	p, err := pool.New(pool.WithMaxThreads(threads))
	if err != nil {
		b.Fatalf("failed to create pool: %v", err)
	}
	b.Cleanup(func() { _ = p.Close() })
	return p
}

// reportThroughput adds a tasks/sec metric for taskCount tasks per op.
func reportThroughput(b *testing.B, taskCount int) {
	nsPerOp := float64(b.Elapsed().Nanoseconds()) / float64(b.N)
	b.ReportMetric(float64(taskCount)/nsPerOp*1e9, "tasks/sec")
}

func spinJobs(n, iterations int) []*pipeline.Descriptor {
	jobs := make([]*pipeline.Descriptor, n)
	for i := range jobs {
		jobs[i] = pipeline.NewCallback(fmt.Sprintf("job-%d", i), func(_ context.Context, it int, w io.Writer) error {
			sum := 0
			for j := range it {
				sum += j
			}
			_, err := fmt.Fprintln(w, sum)
			return err
		}, iterations)
	}
	return jobs
}
