package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
)

// jobFile is the YAML document jobrun reads.
//
//	threads: 4
//	jobs:
//	  - name: vet
//	    run: go vet ./...
//	  - name: test
//	    run: go
//	    args: [test, -race, ./...]
//	    env: [CGO_ENABLED=1]
//	reduce:
//	  run: cat
//	  args: vet.log test.log
type jobFile struct {
	Threads int         `yaml:"threads"`
	Jobs    []jobSpec   `yaml:"jobs"`
	Reduce  *reduceSpec `yaml:"reduce"`
}

type jobSpec struct {
	Name string   `yaml:"name"`
	Run  string   `yaml:"run"`
	Args argList  `yaml:"args"`
	Dir  string   `yaml:"dir"`
	Env  []string `yaml:"env"`
}

type reduceSpec struct {
	Run  string  `yaml:"run"`
	Args argList `yaml:"args"`
	Dir  string  `yaml:"dir"`
}

// argList accepts either a YAML sequence or a single shell-quoted string.
type argList []string

func (a *argList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parts, err := shlex.Split(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: splitting %q: %w", value.Line, value.Value, err)
		}
		*a = parts
		return nil
	case yaml.SequenceNode:
		var parts []string
		if err := value.Decode(&parts); err != nil {
			return err
		}
		*a = parts
		return nil
	default:
		return fmt.Errorf("line %d: args must be a string or a list", value.Line)
	}
}

var (
	errNoJobs     = errors.New("job file defines no jobs")
	errMissingRun = errors.New("run is required")
)

// commandLine is an executable and its arguments after splitting.
type commandLine struct {
	path string
	args []string
}

// split turns run plus args into a command line. run may itself carry
// arguments, which come before args.
func split(run string, args []string) (commandLine, error) {
	parts, err := shlex.Split(run)
	if err != nil {
		return commandLine{}, fmt.Errorf("splitting %q: %w", run, err)
	}
	if len(parts) == 0 {
		return commandLine{}, errMissingRun
	}
	return commandLine{path: parts[0], args: append(parts[1:], args...)}, nil
}

func loadJobFile(path string) (*jobFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseJobFile(f)
}

func parseJobFile(r io.Reader) (*jobFile, error) {
	var jf jobFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&jf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errNoJobs
		}
		return nil, fmt.Errorf("parsing job file: %w", err)
	}
	if err := jf.validate(); err != nil {
		return nil, err
	}
	return &jf, nil
}

func (jf *jobFile) validate() error {
	if len(jf.Jobs) == 0 {
		return errNoJobs
	}
	if jf.Threads < 0 {
		return fmt.Errorf("threads must not be negative, got %d", jf.Threads)
	}

	seen := make(map[string]int, len(jf.Jobs))
	for i := range jf.Jobs {
		j := &jf.Jobs[i]
		if strings.TrimSpace(j.Run) == "" {
			return fmt.Errorf("job %d: %w", i+1, errMissingRun)
		}
		if j.Name == "" {
			j.Name = j.Run
		}
		if prev, ok := seen[j.Name]; ok {
			return fmt.Errorf("job %d: name %q already used by job %d", i+1, j.Name, prev)
		}
		seen[j.Name] = i + 1
		for _, kv := range j.Env {
			if !strings.Contains(kv, "=") {
				return fmt.Errorf("job %q: env entry %q is not KEY=VALUE", j.Name, kv)
			}
		}
	}

	if jf.Reduce != nil && strings.TrimSpace(jf.Reduce.Run) == "" {
		return fmt.Errorf("reduce: %w", errMissingRun)
	}
	return nil
}
