package pipeline

import (
	"go.uber.org/zap"

	"github.com/utkarsh5026/jobpool/logsink"
)

// Option is a functional option for configuring a Pipeline.
type Option func(*pipelineConfig)

type pipelineConfig struct {
	logger *zap.Logger
	sink   *logsink.Sink
}

// WithLogger sets the logger for phase diagnostics. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *pipelineConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithSink sets the shared sink that job logs are flushed into when a
// Descriptor has no sink of its own. Defaults to a sink that discards
// everything.
func WithSink(s *logsink.Sink) Option {
	return func(cfg *pipelineConfig) {
		if s != nil {
			cfg.sink = s
		}
	}
}

func createConfig(opts ...Option) pipelineConfig {
	cfg := pipelineConfig{
		logger: zap.NewNop(),
		sink:   logsink.Discard(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
