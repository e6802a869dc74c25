// Command jobrun runs the jobs listed in a YAML file in parallel, then an
// optional reduce step, and prints a summary.
//
// Usage:
//
//	jobrun -f jobs.yaml [-j threads] [-v] [-no-progress] [-timeout 10m]
//
// The exit status is 0 when every job and the reduce step succeed, 1 when
// any of them fails and 2 for usage or job file errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/utkarsh5026/jobpool/logsink"
	"github.com/utkarsh5026/jobpool/pipeline"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	file       string
	threads    int
	verbose    bool
	noProgress bool
	timeout    time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("jobrun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.file, "f", "jobs.yaml", "Job file to run")
	fs.IntVar(&opts.threads, "j", 0, "Worker threads (0 = value from the job file, then one per CPU)")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose diagnostics on stderr")
	fs.BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar")
	fs.DurationVar(&opts.timeout, "timeout", 0, "Cancel all jobs after this long (0 = no limit)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.threads < 0 {
		return options{}, fmt.Errorf("-j must not be negative, got %d", opts.threads)
	}
	return opts, nil
}

func newLogger(verbose bool, stderr io.Writer) *zap.Logger {
	level := zap.WarnLevel
	encCfg := zap.NewProductionEncoderConfig()
	if verbose {
		level = zap.DebugLevel
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(stderr), level)
	return zap.New(core)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	logger := newLogger(opts.verbose, stderr)
	defer func() { _ = logger.Sync() }()

	jf, err := loadJobFile(opts.file)
	if err != nil {
		renderError(stderr, fmt.Errorf("%s: %w", opts.file, err))
		return exitUsage
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	names, err := jf.executables()
	if err != nil {
		renderError(stderr, err)
		return exitUsage
	}
	resolved, err := resolveAll(ctx, names, nil)
	if err != nil {
		renderError(stderr, err)
		return exitUsage
	}
	logger.Debug("executables resolved", zap.Any("paths", resolved))

	sink := logsink.New(stdout)
	var bar *progressbar.ProgressBar
	if !opts.noProgress && isTerminal(stderr) {
		bar = newProgressBar(len(jf.Jobs), stderr)
	}

	cfg, err := jf.pipelineConfig(resolved, opts.threads, sink, bar)
	if err != nil {
		renderError(stderr, err)
		return exitUsage
	}

	pl := pipeline.New(nil, pipeline.WithLogger(logger), pipeline.WithSink(sink))
	start := time.Now()
	err = pl.Run(ctx, cfg)
	if bar != nil {
		_ = bar.Finish()
	}

	if reports := pl.Reports(); len(reports) > 0 {
		renderSummary(stdout, reports, time.Since(start))
	}
	if err != nil {
		renderError(stderr, err)
		return exitFailure
	}
	return exitOK
}
