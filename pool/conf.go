package pool

import (
	"time"

	"go.uber.org/zap"

	"github.com/utkarsh5026/jobpool/internal/cpu"
)

const (
	// DefaultJoinTimeout bounds how long a reconfiguration waits for the
	// previous workers to exit before abandoning them.
	DefaultJoinTimeout = 5 * time.Second

	// backlogLogInterval throttles the queue backlog debug line.
	backlogLogInterval = time.Second
)

// Option is a functional option for configuring a Pool.
type Option func(*poolConfig)

type poolConfig struct {
	maxThreads  int
	joinTimeout time.Duration
	pinWorkers  bool
	logger      *zap.Logger
}

// WithMaxThreads sets the number of worker goroutines.
// If not specified, defaults to the number of logical processors the
// process may run on. Values below one make New fail.
func WithMaxThreads(count int) Option {
	return func(cfg *poolConfig) {
		cfg.maxThreads = count
	}
}

// WithJoinTimeout sets how long Configure and Close wait for the previous
// workers to stop. Workers still running an action after the timeout are
// abandoned: they finish that action and exit on their own.
// A non-positive timeout waits indefinitely.
func WithJoinTimeout(d time.Duration) Option {
	return func(cfg *poolConfig) {
		cfg.joinTimeout = d
	}
}

// WithPinnedWorkers locks every worker to its own OS thread and pins that
// thread to a CPU core where the platform supports it.
func WithPinnedWorkers(pin bool) Option {
	return func(cfg *poolConfig) {
		cfg.pinWorkers = pin
	}
}

// WithLogger sets the logger used for lifecycle and backlog messages.
// A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *poolConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// DefaultMaxThreads returns the worker count used when WithMaxThreads is not
// given: the number of logical processors the process may run on.
func DefaultMaxThreads() int {
	return cpu.ProcessorCount()
}

func createConfig(opts ...Option) *poolConfig {
	cfg := &poolConfig{
		maxThreads:  DefaultMaxThreads(),
		joinTimeout: DefaultJoinTimeout,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

func (c *poolConfig) validate() error {
	if c.maxThreads < 1 {
		return invalidThreadCount(c.maxThreads)
	}
	return nil
}
