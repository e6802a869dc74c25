package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/utkarsh5026/jobpool/internal/cpu"
	"github.com/utkarsh5026/jobpool/pool"
)

// State is the lifecycle phase a Pipeline is in.
type State int

const (
	Created State = iota
	Initialized
	Scattered
	Reduced
	Validated
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Initialized:
		return "initialized"
	case Scattered:
		return "scattered"
	case Reduced:
		return "reduced"
	case Validated:
		return "validated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ReduceFunc combines the results of the scatter phase. It runs once, on the
// calling goroutine.
type ReduceFunc func(ctx context.Context, args []string) error

// ValidateFunc checks the combined result after Reduce.
type ValidateFunc func(ctx context.Context) error

// Config is what Initialize needs to run one scatter/gather cycle.
type Config struct {
	// Jobs are scattered in parallel. At least one is required.
	Jobs []*Descriptor
	// ThreadCap is the worker count the pool is configured to. Zero means
	// one worker per logical processor.
	ThreadCap int
	// Reduce runs after Scatter when both it and ReduceArgs are set.
	Reduce ReduceFunc
	// ReduceArgs is the shared argument vector passed to Reduce.
	ReduceArgs []string
	// Validate runs after Reduce when set.
	Validate ValidateFunc
}

// Report is the result of one job after Scatter.
type Report struct {
	Description string
	Outcome     Outcome
	// Ran is false for a job the pool discarded before running it.
	Ran bool
}

// Pipeline runs a list of heterogeneous jobs through a pool in four phases:
// Initialize, Scatter, Reduce and Cleanup, with an optional Validate after
// Reduce. Each phase runs at most once per cycle and only in that order.
//
// A Pipeline is driven from one goroutine; it is not safe for concurrent
// use.
type Pipeline struct {
	pool   *pool.Pool
	owned  bool
	logger *zap.Logger
	cfg    pipelineConfig

	state  State
	failed bool
	run    Config
	last   []Report
}

// New creates a pipeline that dispatches through p. If p is nil the
// pipeline creates its own pool in Initialize and closes it in Cleanup.
func New(p *pool.Pool, opts ...Option) *Pipeline {
	cfg := createConfig(opts...)
	return &Pipeline{
		pool:   p,
		logger: cfg.logger,
		cfg:    cfg,
	}
}

// State returns the current phase.
func (p *Pipeline) State() State { return p.state }

// Initialize validates cfg and configures the pool to the thread cap. No
// job runs here.
func (p *Pipeline) Initialize(cfg Config) error {
	if err := p.expect(Created); err != nil {
		return err
	}
	if len(cfg.Jobs) == 0 {
		return ErrNoJobs
	}
	for i, d := range cfg.Jobs {
		if d == nil || d.Job == nil {
			return fmt.Errorf("%w: index %d", ErrNilJob, i)
		}
	}
	if cfg.ThreadCap < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidThreadCap, cfg.ThreadCap)
	}
	if len(cfg.ReduceArgs) > 0 && cfg.Reduce == nil {
		return ErrMissingReduce
	}

	threads := cfg.ThreadCap
	if threads == 0 {
		threads = cpu.ProcessorCount()
	}

	if p.pool == nil {
		pl, err := pool.New(pool.WithMaxThreads(threads), pool.WithLogger(p.logger))
		if err != nil {
			return err
		}
		p.pool = pl
		p.owned = true
	} else if err := p.pool.Configure(threads); err != nil {
		return fmt.Errorf("pipeline: configuring pool: %w", err)
	}

	for _, d := range cfg.Jobs {
		d.reset()
	}
	p.run = cfg
	p.run.ThreadCap = threads
	p.last = nil
	p.state = Initialized

	p.logger.Debug("pipeline initialized",
		zap.Int("jobs", len(cfg.Jobs)),
		zap.Int("threads", threads),
		zap.Bool("reduce", cfg.Reduce != nil && len(cfg.ReduceArgs) > 0),
	)
	return nil
}

// Scatter runs every job. A single job runs inline on the calling
// goroutine; more are submitted to the pool and drained. Failures are
// captured per job and reported together as one *AggregateError.
func (p *Pipeline) Scatter(ctx context.Context) error {
	if err := p.expect(Initialized); err != nil {
		return err
	}

	jobs := p.run.Jobs
	start := time.Now()

	if len(jobs) == 1 {
		jobs[0].run(ctx, p.cfg.sink, p.logger)
	} else if err := p.dispatch(ctx, jobs); err != nil {
		p.failed = true
		return err
	}

	p.last = p.snapshot()
	agg := p.collect()

	p.logger.Info("scatter finished",
		zap.Int("jobs", len(jobs)),
		zap.Int("failed", len(agg.Causes)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if len(agg.Causes) > 0 {
		p.failed = true
		return agg
	}
	p.state = Scattered
	return nil
}

// dispatch submits one pool item per job and waits until every submitted
// job has finished or been discarded, including jobs left running on
// workers abandoned by a concurrent Configure.
func (p *Pipeline) dispatch(ctx context.Context, jobs []*Descriptor) error {
	sink, logger := p.cfg.sink, p.logger
	action := func(state any) {
		state.(*scatterItem).run(ctx, sink, logger)
	}

	var pending sync.WaitGroup
	for _, d := range jobs {
		pending.Add(1)
		if err := p.pool.Submit(action, &scatterItem{desc: d, pending: &pending}); err != nil {
			pending.Done()
			p.pool.Drain()
			pending.Wait()
			return fmt.Errorf("pipeline: submitting %q: %w", d.Description, err)
		}
	}
	p.pool.Drain()
	pending.Wait()
	return nil
}

// collect builds the aggregate failure of the last scatter, in job order.
func (p *Pipeline) collect() *AggregateError {
	agg := &AggregateError{Total: len(p.run.Jobs)}
	for _, d := range p.run.Jobs {
		if err := d.Failure(); err != nil {
			agg.Causes = append(agg.Causes, err)
			agg.Jobs = append(agg.Jobs, d.Description)
		}
	}
	return agg
}

func (p *Pipeline) snapshot() []Report {
	reports := make([]Report, len(p.run.Jobs))
	for i, d := range p.run.Jobs {
		reports[i] = Report{
			Description: d.Description,
			Outcome:     OutcomeOf(d.Failure()),
			Ran:         d.Ran(),
		}
	}
	return reports
}

// Reduce runs the combining step if both it and its arguments were
// configured. Otherwise it only advances the state.
func (p *Pipeline) Reduce(ctx context.Context) error {
	if err := p.expect(Scattered); err != nil {
		return err
	}
	if p.run.Reduce != nil && len(p.run.ReduceArgs) > 0 {
		if err := p.run.Reduce(ctx, p.run.ReduceArgs); err != nil {
			p.failed = true
			return fmt.Errorf("pipeline: reduce: %w", err)
		}
		p.logger.Debug("reduce finished", zap.Strings("args", p.run.ReduceArgs))
	}
	p.state = Reduced
	return nil
}

// Validate runs the validation hook, if any.
func (p *Pipeline) Validate(ctx context.Context) error {
	if err := p.expect(Reduced); err != nil {
		return err
	}
	if p.run.Validate != nil {
		if err := p.run.Validate(ctx); err != nil {
			p.failed = true
			return fmt.Errorf("pipeline: validate: %w", err)
		}
	}
	p.state = Validated
	return nil
}

// Cleanup releases the job list, the reduce arguments and the steps, and
// returns the pipeline to Created. A pool created by the pipeline is
// closed. Reports stay available until the next Initialize.
func (p *Pipeline) Cleanup() error {
	var err error
	if p.owned {
		err = p.pool.Close()
		p.pool = nil
		p.owned = false
	}
	p.run = Config{}
	p.state = Created
	p.failed = false
	return err
}

// Run executes a full cycle: Initialize, Scatter, Reduce and Validate, then
// Cleanup regardless of where the cycle stopped.
func (p *Pipeline) Run(ctx context.Context, cfg Config) (err error) {
	if err := p.Initialize(cfg); err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, p.Cleanup())
	}()

	if err = p.Scatter(ctx); err != nil {
		return err
	}
	if err = p.Reduce(ctx); err != nil {
		return err
	}
	return p.Validate(ctx)
}

// Reports returns the per-job results of the last Scatter, in job order.
func (p *Pipeline) Reports() []Report {
	out := make([]Report, len(p.last))
	copy(out, p.last)
	return out
}

// Outcomes returns the outcome of every job of the last Scatter, in job
// order.
func (p *Pipeline) Outcomes() []Outcome {
	out := make([]Outcome, len(p.last))
	for i, r := range p.last {
		out[i] = r.Outcome
	}
	return out
}

func (p *Pipeline) expect(want State) error {
	if p.failed {
		return fmt.Errorf("%w: a previous phase failed, call Cleanup", ErrInvalidState)
	}
	if p.state != want {
		return fmt.Errorf("%w: in state %s, want %s", ErrInvalidState, p.state, want)
	}
	return nil
}
