package keyed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/utkarsh5026/jobpool/pool"
)

func newTestPool(t testing.TB, threads int) *pool.Pool {
	t.Helper()
	p, err := pool.New(pool.WithMaxThreads(threads))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func double(_ context.Context, _ string, v int) (int, error) {
	return v * 2, nil
}

func TestExecute_AutoScenario(t *testing.T) {
	items := map[string]int{"a": 1, "b": 2}

	t.Run("single processor runs sequentially", func(t *testing.T) {
		chk := require.New(t)
		p := newTestPool(t, 4)
		ex := NewExecutor(p, WithModel(Auto), WithProcessorCount(1))

		results, err := Execute(context.Background(), ex, items, double)
		chk.NoError(err)
		chk.Equal(uint64(0), p.Stats().Submitted)
		chk.Equal(map[string]JobResult[int, int]{
			"a": {Param: 1, Value: 2},
			"b": {Param: 2, Value: 4},
		}, results)
	})

	t.Run("multi processor runs through the pool", func(t *testing.T) {
		chk := require.New(t)
		p := newTestPool(t, 4)
		ex := NewExecutor(p, WithModel(Auto), WithProcessorCount(4))

		results, err := Execute(context.Background(), ex, items, double)
		chk.NoError(err)
		chk.NotZero(p.Stats().Submitted)
		chk.Equal(map[string]JobResult[int, int]{
			"a": {Param: 1, Value: 2},
			"b": {Param: 2, Value: 4},
		}, results)
	})

	t.Run("single processor policy can be disabled", func(t *testing.T) {
		chk := require.New(t)
		p := newTestPool(t, 2)
		ex := NewExecutor(p, WithProcessorCount(1), WithSingleProcessorSequential(false))

		_, err := Execute(context.Background(), ex, items, double)
		chk.NoError(err)
		chk.NotZero(p.Stats().Submitted)
	})
}

func TestExecute_ModelSelection(t *testing.T) {
	cases := []struct {
		name       string
		model      Model
		processors int
		items      int
		wantPool   bool
	}{
		{"auto single item", Auto, 8, 1, false},
		{"auto many items", Auto, 8, 5, true},
		{"auto single processor", Auto, 1, 5, false},
		{"sequential many items", Sequential, 8, 50, false},
		{"parallel single item", Parallel, 8, 1, true},
		{"parallel single processor", Parallel, 1, 5, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chk := require.New(t)
			p := newTestPool(t, 2)
			ex := NewExecutor(p, WithModel(tc.model), WithProcessorCount(tc.processors))

			items := make(map[string]int, tc.items)
			for i := range tc.items {
				items[fmt.Sprint(i)] = i
			}
			results, err := Execute(context.Background(), ex, items, double)
			chk.NoError(err)
			chk.Len(results, tc.items)
			chk.Equal(tc.wantPool, p.Stats().Submitted > 0)
		})
	}
}

func TestExecute_Empty(t *testing.T) {
	chk := require.New(t)
	p := newTestPool(t, 2)
	ex := NewExecutor(p, WithModel(Parallel))

	results, err := Execute(context.Background(), ex, map[string]int{}, double)
	chk.NoError(err)
	chk.NotNil(results)
	chk.Empty(results)
	chk.Equal(uint64(0), p.Stats().Submitted)

	results, err = Execute[string, int, int](context.Background(), ex, nil, double)
	chk.NoError(err)
	chk.Empty(results)
}

func TestExecute_FailureIsolation(t *testing.T) {
	boom := errors.New("boom")
	fn := func(_ context.Context, k string, v int) (int, error) {
		if k == "k13" {
			return 99, boom
		}
		return v + 1, nil
	}

	for _, model := range []Model{Sequential, Parallel} {
		t.Run(model.String(), func(t *testing.T) {
			chk := require.New(t)
			ex := NewExecutor(newTestPool(t, 4), WithModel(model), WithProcessorCount(2), WithFanout(3))

			items := make(map[string]int, 40)
			for i := range 40 {
				items[fmt.Sprintf("k%d", i)] = i
			}
			results, err := Execute(context.Background(), ex, items, fn)
			chk.NoError(err)
			chk.Len(results, 40)

			for k, r := range results {
				if k == "k13" {
					chk.ErrorIs(r.Err, boom)
					chk.False(r.Ok())
					chk.Zero(r.Value, "a failed key carries no value")
					continue
				}
				chk.True(r.Ok(), "key %s", k)
				chk.Equal(items[k]+1, r.Value)
				chk.Equal(items[k], r.Param)
			}
		})
	}
}

func TestExecute_PanicIsCaptured(t *testing.T) {
	chk := require.New(t)
	ex := NewExecutor(newTestPool(t, 2), WithModel(Parallel), WithProcessorCount(2))

	results, err := Execute(context.Background(), ex, map[int]int{1: 1, 2: 2, 3: 3},
		func(_ context.Context, k, v int) (string, error) {
			if k == 2 {
				panic("bad key")
			}
			return fmt.Sprint(v), nil
		})
	chk.NoError(err)

	var pe *PanicError
	chk.ErrorAs(results[2].Err, &pe)
	chk.Equal("bad key", pe.Value)
	chk.Contains(pe.Error(), "stack trace")
	chk.Equal("1", results[1].Value)
	chk.Equal("3", results[3].Value)
}

func TestExecute_ClosedPoolFails(t *testing.T) {
	chk := require.New(t)
	p, err := pool.New(pool.WithMaxThreads(2))
	chk.NoError(err)
	chk.NoError(p.Close())

	ex := NewExecutor(p, WithModel(Parallel))
	results, err := Execute(context.Background(), ex, map[string]int{"a": 1, "b": 2}, double)
	chk.ErrorIs(err, pool.ErrClosed)
	chk.Nil(results)
}

func TestExecute_NoPool(t *testing.T) {
	chk := require.New(t)

	seq := NewExecutor(nil, WithModel(Sequential))
	results, err := Execute(context.Background(), seq, map[string]int{"a": 1, "b": 2}, double)
	chk.NoError(err)
	chk.Len(results, 2)

	par := NewExecutor(nil, WithModel(Parallel))
	_, err = Execute(context.Background(), par, map[string]int{"a": 1, "b": 2}, double)
	chk.ErrorIs(err, ErrNoPool)
}

func TestExecute_DiscardedBatchesRelease(t *testing.T) {
	chk := require.New(t)
	p, err := pool.New(pool.WithMaxThreads(1), pool.WithJoinTimeout(10*time.Millisecond))
	chk.NoError(err)
	t.Cleanup(func() { _ = p.Close() })

	blocker := make(chan struct{})
	defer close(blocker)
	started := make(chan struct{})
	chk.NoError(p.Submit(func(any) {
		close(started)
		<-blocker
	}, nil))
	<-started

	ex := NewExecutor(p, WithModel(Parallel), WithProcessorCount(1), WithFanout(4))
	type outcome struct {
		results map[string]JobResult[int, int]
		err     error
	}
	out := make(chan outcome, 1)
	go func() {
		r, err := Execute(context.Background(), ex, map[string]int{"a": 1, "b": 2, "c": 3, "d": 4}, double)
		out <- outcome{r, err}
	}()

	require.Eventually(t, func() bool { return p.Stats().Queued == 4 }, 2*time.Second, time.Millisecond)
	chk.NoError(p.Configure(2))

	select {
	case o := <-out:
		chk.NoError(o.err)
		chk.Len(o.results, 4)
		for k, r := range o.results {
			chk.ErrorIs(r.Err, ErrDiscarded, "key %s", k)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return after its batches were discarded")
	}
}

func TestExecute_PassesContext(t *testing.T) {
	chk := require.New(t)
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "flag")

	ex := NewExecutor(newTestPool(t, 2), WithModel(Parallel), WithProcessorCount(2))
	var seen atomic.Int32
	_, err := Execute(ctx, ex, map[int]int{1: 1, 2: 2, 3: 3}, func(ctx context.Context, _, v int) (int, error) {
		if ctx.Value(ctxKey{}) == "flag" {
			seen.Add(1)
		}
		return v, nil
	})
	chk.NoError(err)
	chk.Equal(int32(3), seen.Load())
}

func TestExecuteOrdered_PreservesInputOrder(t *testing.T) {
	chk := require.New(t)
	ex := NewExecutor(newTestPool(t, 4), WithModel(Parallel), WithProcessorCount(4))

	items := make([]int, 64)
	for i := range items {
		items[i] = i
	}
	results, err := ExecuteOrdered(context.Background(), ex, items, func(_ context.Context, i, v int) (int, error) {
		// Later items finish first.
		time.Sleep(time.Duration(len(items)-i) * 50 * time.Microsecond)
		if v == 7 {
			return 0, errors.New("seven")
		}
		return v * v, nil
	})
	chk.NoError(err)
	chk.Len(results, len(items))

	for i, r := range results {
		chk.Equal(i, r.Param)
		if i == 7 {
			chk.EqualError(r.Err, "seven")
			continue
		}
		chk.Equal(i*i, r.Value)
	}
}

func TestExecuteOrdered_Empty(t *testing.T) {
	results, err := ExecuteOrdered(context.Background(), NewExecutor(nil), []string{},
		func(_ context.Context, _ int, s string) (string, error) { return s, nil })
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestPartition(t *testing.T) {
	chk := require.New(t)

	batches := partition([]int{0, 1, 2, 3, 4, 5, 6}, 3)
	chk.Equal([][]int{{0, 3, 6}, {1, 4}, {2, 5}}, batches)

	chk.Equal([][]int{{0}, {1}}, partition([]int{0, 1}, 2))
}

func TestExecutor_BatchCount(t *testing.T) {
	chk := require.New(t)
	ex := NewExecutor(nil, WithProcessorCount(2))
	chk.Equal(20, ex.batchCount(1000))
	chk.Equal(5, ex.batchCount(5))

	ex = NewExecutor(nil, WithProcessorCount(3), WithFanout(1))
	chk.Equal(3, ex.batchCount(1000))
}

// Every key gets exactly one result, and sequential and parallel execution
// agree on every outcome.
func TestExecute_Properties(t *testing.T) {
	p := newTestPool(t, 4)
	errOdd := errors.New("odd")

	rapid.Check(t, func(rt *rapid.T) {
		items := rapid.MapOf(rapid.StringN(1, 6, -1), rapid.IntRange(-1000, 1000)).Draw(rt, "items")
		processors := rapid.IntRange(1, 8).Draw(rt, "processors")
		fanout := rapid.IntRange(1, 12).Draw(rt, "fanout")

		fn := func(_ context.Context, k string, v int) (string, error) {
			if v%7 == 0 {
				panic("multiple of seven")
			}
			if v%2 != 0 {
				return "", errOdd
			}
			return fmt.Sprintf("%s=%d", k, v*3), nil
		}

		seq, err := Execute(context.Background(),
			NewExecutor(p, WithModel(Sequential)), items, fn)
		if err != nil {
			rt.Fatalf("sequential: %v", err)
		}
		par, err := Execute(context.Background(),
			NewExecutor(p, WithModel(Parallel), WithProcessorCount(processors), WithFanout(fanout)), items, fn)
		if err != nil {
			rt.Fatalf("parallel: %v", err)
		}

		if len(seq) != len(items) || len(par) != len(items) {
			rt.Fatalf("expected %d results, got sequential=%d parallel=%d", len(items), len(seq), len(par))
		}
		for k, v := range items {
			s, ok1 := seq[k]
			q, ok2 := par[k]
			if !ok1 || !ok2 {
				rt.Fatalf("key %q missing from results", k)
			}
			if s.Param != v || q.Param != v {
				rt.Fatalf("key %q: param mismatch", k)
			}
			if s.Ok() != q.Ok() || s.Value != q.Value {
				rt.Fatalf("key %q: sequential %+v, parallel %+v", k, s, q)
			}
			if !s.Ok() && s.Value != "" {
				rt.Fatalf("key %q: failed result carries a value", k)
			}
		}
	})
}
