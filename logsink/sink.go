// Package logsink serializes job output onto a shared writer.
//
// Every job writes into its own private Buffer while it runs. When the job
// finishes, Buffer.Flush copies the whole buffer to the shared Sink in a
// single write while holding the sink's lock, so lines from jobs that finish
// at the same time never interleave.
//
//	sink := logsink.New(os.Stdout)
//	buf := sink.Buffer("compile")
//	buf.Printf("started at %s", time.Now().Format(time.RFC3339))
//	_ = buf.Flush()
//
// The package does no formatting beyond "label: text"; where the output ends
// up (console, file) is decided by the writer handed to New.
package logsink

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap/zapcore"
)

// Sink is the shared destination that job buffers flush into.
// A Sink is safe for concurrent use.
type Sink struct {
	mu  sync.Mutex
	out zapcore.WriteSyncer
}

// New returns a Sink writing to w. If w also implements Sync (an *os.File,
// for example) it is synced after every flush; sync errors are ignored.
func New(w io.Writer) *Sink {
	if w == nil {
		w = io.Discard
	}
	return &Sink{out: zapcore.AddSync(w)}
}

// Discard returns a Sink that drops everything written to it.
func Discard() *Sink {
	return New(io.Discard)
}

// Buffer returns a new job-private buffer labelled with label.
func (s *Sink) Buffer(label string) *Buffer {
	return &Buffer{label: label, sink: s}
}

// write copies p to the underlying writer as one call under the sink lock.
func (s *Sink) write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.out.Write(p); err != nil {
		return err
	}
	// Sync fails on terminals and pipes.
	_ = s.out.Sync()
	return nil
}

// Buffer accumulates the output of a single job. It is not safe for
// concurrent use by more than one goroutine, except that the io.Writer
// side may be shared by a child process's stdout and stderr pipes, which
// os/exec serializes when both point at the same writer.
type Buffer struct {
	label string
	sink  *Sink
	buf   bytes.Buffer
}

// Label returns the label the buffer prefixes its formatted lines with.
func (b *Buffer) Label() string { return b.label }

// Printf appends one "label: text" line.
func (b *Buffer) Printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if b.label != "" {
		b.buf.WriteString(b.label)
		b.buf.WriteString(": ")
	}
	b.buf.WriteString(line)
	if len(line) == 0 || line[len(line)-1] != '\n' {
		b.buf.WriteByte('\n')
	}
}

// Write appends raw bytes, typically captured process output.
func (b *Buffer) Write(p []byte) (int, error) {
	return b.buf.Write(p)
}

// Len returns the number of buffered bytes not yet flushed.
func (b *Buffer) Len() int { return b.buf.Len() }

// String returns the buffered, unflushed content.
func (b *Buffer) String() string { return b.buf.String() }

// Flush writes everything buffered so far to the sink atomically with
// respect to other buffers of the same sink, then resets the buffer.
// Flushing an empty buffer is a no-op.
func (b *Buffer) Flush() error {
	if b.buf.Len() == 0 {
		return nil
	}
	if b.sink == nil {
		b.buf.Reset()
		return nil
	}
	err := b.sink.write(b.buf.Bytes())
	b.buf.Reset()
	return err
}
