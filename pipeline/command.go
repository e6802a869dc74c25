package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/utkarsh5026/jobpool/logsink"
)

// WaitDelay is the time ExecRunner waits after interrupting a command whose
// context was canceled before it kills the process.
const WaitDelay = 5 * time.Second

// Command is an external process invocation: the ExternalCommandJob
// variant. Its output (stdout and stderr) goes into the job's log buffer.
// A non-zero exit code is a failure carrying the code and the full command
// line.
type Command struct {
	// Path is the executable, resolved through PATH when it has no separator.
	Path string
	// Args are the arguments, not including the executable itself.
	Args []string
	// Dir is the working directory. Empty means the current one.
	Dir string
	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
	// Runner executes the process. Nil means ExecRunner{}.
	Runner Runner
}

// NewCommand wraps an external command in a Descriptor.
func NewCommand(description string, path string, args ...string) *Descriptor {
	return NewJob(description, &Command{Path: path, Args: args})
}

// CommandLine returns the executable and arguments as one string, quoting
// arguments that contain whitespace or quotes.
func (c *Command) CommandLine() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Path))
	for _, a := range c.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func (c *Command) String() string {
	if c.Dir == "" {
		return c.CommandLine()
	}
	return fmt.Sprintf("%s (in %s)", c.CommandLine(), c.Dir)
}

// Invoke runs the command and maps its exit status to an Outcome.
func (c *Command) Invoke(ctx context.Context, log *logsink.Buffer) Outcome {
	runner := c.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	code, err := runner.Run(ctx, *c, log, log)
	if err != nil {
		return Failure(fmt.Errorf("running %s: %w", c.CommandLine(), err))
	}
	if code != 0 {
		return Failure(&ExitError{Code: code, CommandLine: c.CommandLine()})
	}
	return Success()
}

// Runner starts an external process and waits for it. It returns the exit
// code, or an error when the process could not be run at all.
type Runner interface {
	Run(ctx context.Context, cmd Command, stdout, stderr io.Writer) (int, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command, stdout, stderr io.Writer) (int, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, cmd Command, stdout, stderr io.Writer) (int, error) {
	return f(ctx, cmd, stdout, stderr)
}

// ExecRunner runs commands with os/exec. On unix a canceled context first
// sends SIGINT and only kills the process after WaitDelay.
type ExecRunner struct {
	// WaitDelay overrides the package WaitDelay when positive.
	WaitDelay time.Duration
}

// Run executes cmd and returns its exit code. A process terminated by a
// signal reports -1.
func (r ExecRunner) Run(ctx context.Context, cmd Command, stdout, stderr io.Writer) (int, error) {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdout = stdout
	c.Stderr = stderr
	c.WaitDelay = WaitDelay
	if r.WaitDelay > 0 {
		c.WaitDelay = r.WaitDelay
	}
	setGracefulShutdown(c)

	err := c.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}

func quoteArg(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\n\"'\\") {
		return strconv.Quote(s)
	}
	return s
}
