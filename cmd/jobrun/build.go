package main

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"

	"github.com/utkarsh5026/jobpool/logsink"
	"github.com/utkarsh5026/jobpool/pipeline"
)

// executables returns the executable of every job and of the reduce step,
// in file order.
func (jf *jobFile) executables() ([]string, error) {
	names := make([]string, 0, len(jf.Jobs)+1)
	for _, j := range jf.Jobs {
		cl, err := split(j.Run, nil)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", j.Name, err)
		}
		names = append(names, cl.path)
	}
	if jf.Reduce != nil {
		cl, err := split(jf.Reduce.Run, nil)
		if err != nil {
			return nil, fmt.Errorf("reduce: %w", err)
		}
		names = append(names, cl.path)
	}
	return names, nil
}

// pipelineConfig turns the job file into a pipeline configuration. Paths
// are taken from resolved; threads overrides the file when positive.
func (jf *jobFile) pipelineConfig(resolved map[string]string, threads int, sink *logsink.Sink, bar *progressbar.ProgressBar) (pipeline.Config, error) {
	cfg := pipeline.Config{ThreadCap: jf.Threads}
	if threads > 0 {
		cfg.ThreadCap = threads
	}

	for _, j := range jf.Jobs {
		cl, err := split(j.Run, j.Args)
		if err != nil {
			return pipeline.Config{}, fmt.Errorf("job %q: %w", j.Name, err)
		}
		cmd := &pipeline.Command{
			Path: resolvedPath(resolved, cl.path),
			Args: cl.args,
			Dir:  j.Dir,
			Env:  j.Env,
		}
		var job pipeline.Job = cmd
		if bar != nil {
			job = &progressJob{Command: cmd, bar: bar}
		}
		cfg.Jobs = append(cfg.Jobs, pipeline.NewJob(j.Name, job))
	}

	if jf.Reduce != nil {
		cl, err := split(jf.Reduce.Run, jf.Reduce.Args)
		if err != nil {
			return pipeline.Config{}, fmt.Errorf("reduce: %w", err)
		}
		cfg.ReduceArgs = append([]string{resolvedPath(resolved, cl.path)}, cl.args...)
		cfg.Reduce = reduceCommand(jf.Reduce.Dir, sink)
	}
	return cfg, nil
}

func resolvedPath(resolved map[string]string, name string) string {
	if p := resolved[name]; p != "" {
		return p
	}
	return name
}

// reduceCommand runs args[0] with the remaining arguments and writes its
// output to the sink under the "reduce" label.
func reduceCommand(dir string, sink *logsink.Sink) pipeline.ReduceFunc {
	return func(ctx context.Context, args []string) error {
		cmd := &pipeline.Command{Path: args[0], Args: args[1:], Dir: dir}
		buf := sink.Buffer("reduce")
		buf.Printf("running %s", cmd)
		out := cmd.Invoke(ctx, buf)
		if err := buf.Flush(); err != nil {
			return err
		}
		return out.Err()
	}
}

// progressJob advances the progress bar once its command has finished.
type progressJob struct {
	*pipeline.Command
	bar *progressbar.ProgressBar
}

func (p *progressJob) Invoke(ctx context.Context, log *logsink.Buffer) pipeline.Outcome {
	defer func() { _ = p.bar.Add(1) }()
	return p.Command.Invoke(ctx, log)
}
