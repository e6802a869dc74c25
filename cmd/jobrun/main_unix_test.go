//go:build unix

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeJobFile(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestRun(t *testing.T) {
	t.Run("all jobs succeed", func(t *testing.T) {
		chk := require.New(t)
		dir := t.TempDir()
		path := writeJobFile(t, `
threads: 2
jobs:
  - {name: one, run: sh, args: ["-c", "echo first > one.txt"], dir: `+dir+`}
  - {name: two, run: sh, args: ["-c", "echo second > two.txt"], dir: `+dir+`}
reduce:
  run: sh
  args: ["-c", "cat one.txt two.txt > all.txt"]
  dir: `+dir+`
`)
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), []string{"-f", path}, &stdout, &stderr)
		chk.Equal(exitOK, code, stderr.String())

		all, err := os.ReadFile(filepath.Join(dir, "all.txt"))
		chk.NoError(err)
		chk.Equal("first\nsecond\n", string(all))
		chk.Contains(stdout.String(), "one: started")
		chk.Contains(stdout.String(), "2/2 jobs succeeded")
	})

	t.Run("failed job sets exit status", func(t *testing.T) {
		chk := require.New(t)
		path := writeJobFile(t, `
jobs:
  - {name: good, run: sh -c true}
  - {name: bad, run: sh, args: ["-c", "exit 4"]}
`)
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), []string{"-f", path, "-j", "2", "-no-progress"}, &stdout, &stderr)
		chk.Equal(exitFailure, code)
		chk.Contains(stdout.String(), "FAILED")
		chk.Contains(stdout.String(), "1/2 jobs failed")
	})

	t.Run("missing executable", func(t *testing.T) {
		path := writeJobFile(t, "jobs:\n  - {run: definitely-not-a-real-binary-xyz}\n")
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), []string{"-f", path}, &stdout, &stderr)
		require.Equal(t, exitUsage, code)
		require.Contains(t, stderr.String(), "definitely-not-a-real-binary-xyz")
	})

	t.Run("bad flags", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.Equal(t, exitUsage, run(context.Background(), []string{"-j", "-3"}, &stdout, &stderr))
		require.Equal(t, exitUsage, run(context.Background(), []string{"extra"}, &stdout, &stderr))
	})
}
