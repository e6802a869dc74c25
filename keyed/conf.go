package keyed

import (
	"go.uber.org/zap"

	"github.com/utkarsh5026/jobpool/internal/cpu"
)

// FanoutFactor is the default number of batches created per processor in
// parallel mode.
const FanoutFactor = 10

// Model selects how an Executor schedules keys.
type Model int

const (
	// Auto runs sequentially for a single item or on a single-processor
	// host, and in parallel otherwise.
	Auto Model = iota
	// Sequential processes every key on the calling goroutine.
	Sequential
	// Parallel always dispatches batches through the pool.
	Parallel
)

func (m Model) String() string {
	switch m {
	case Auto:
		return "auto"
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// Option is a functional option for configuring an Executor.
type Option func(*executorConfig)

type executorConfig struct {
	model                     Model
	processorCount            int
	fanout                    int
	singleProcessorSequential bool
	logger                    *zap.Logger
}

// WithModel sets the scheduling model. Defaults to Auto.
func WithModel(m Model) Option {
	return func(cfg *executorConfig) {
		cfg.model = m
	}
}

// WithProcessorCount overrides the host processor count used for the Auto
// heuristic and for sizing batches. Non-positive values are ignored.
func WithProcessorCount(n int) Option {
	return func(cfg *executorConfig) {
		if n > 0 {
			cfg.processorCount = n
		}
	}
}

// WithFanout sets the number of batches per processor.
// Non-positive values are ignored. Defaults to FanoutFactor.
func WithFanout(n int) Option {
	return func(cfg *executorConfig) {
		if n > 0 {
			cfg.fanout = n
		}
	}
}

// WithSingleProcessorSequential controls whether Auto falls back to
// sequential execution on a host with one logical processor regardless of
// the item count. Enabled by default.
func WithSingleProcessorSequential(enabled bool) Option {
	return func(cfg *executorConfig) {
		cfg.singleProcessorSequential = enabled
	}
}

// WithLogger sets the logger used for dispatch diagnostics.
// A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *executorConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

func createConfig(opts ...Option) executorConfig {
	cfg := executorConfig{
		model:                     Auto,
		processorCount:            cpu.ProcessorCount(),
		fanout:                    FanoutFactor,
		singleProcessorSequential: true,
		logger:                    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
