package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kbukum/mrstream/process"
)

// Worker is one stage of a pipeline: it consumes a byte stream and produces
// a byte stream.
type Worker interface {
	// Name identifies the worker in logs and errors.
	Name() string
	// Start launches the worker.
	Start(ctx context.Context) (Session, error)
}

// Session is a running worker. Callers write Stdin, close it, read Stdout to
// EOF and then call Wait.
type Session interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	// Wait blocks until the worker is done and returns its exit status. A
	// non-nil error or a non-zero status means the worker failed.
	Wait() (int, error)
}

// Diagnostics is implemented by sessions that keep the worker's diagnostic
// output. It is valid after Wait returns.
type Diagnostics interface {
	Stderr() []byte
}

// --- Subprocess workers ---

type processWorker struct {
	name string
	cmd  process.Command
}

// NewProcess returns a worker that runs cmd as a subprocess.
func NewProcess(name string, cmd process.Command) Worker {
	return &processWorker{name: name, cmd: cmd}
}

func (w *processWorker) Name() string { return w.name }

func (w *processWorker) Start(ctx context.Context) (Session, error) {
	h, err := process.Start(ctx, w.cmd)
	if err != nil {
		return nil, err
	}
	return &processSession{Handle: h}, nil
}

type processSession struct {
	*process.Handle
	stderr []byte
}

func (s *processSession) Wait() (int, error) {
	result, err := s.Handle.Wait()
	s.stderr = result.Stderr
	return result.ExitCode, err
}

func (s *processSession) Stderr() []byte { return s.stderr }

// --- In-process workers ---

// Func processes a whole stage stream in the current process.
type Func func(ctx context.Context, r io.Reader, w io.Writer) error

type funcWorker struct {
	name string
	fn   Func
}

// NewFunc returns a worker that runs fn in a goroutine connected through
// in-memory pipes. A returned error or panic gives exit status 1.
func NewFunc(name string, fn Func) Worker {
	return &funcWorker{name: name, fn: fn}
}

func (w *funcWorker) Name() string { return w.name }

func (w *funcWorker) Start(ctx context.Context) (Session, error) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	s := &funcSession{stdin: inW, stdout: outR, done: make(chan struct{})}

	go func() {
		defer close(s.done)
		err := w.run(ctx, inR, outW)
		// Writers still feeding input see io.ErrClosedPipe.
		_ = inR.Close()
		s.err = err
		_ = outW.Close()
	}()
	return s, nil
}

func (w *funcWorker) run(ctx context.Context, r io.Reader, out io.Writer) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("worker %s panicked: %v", w.name, p)
		}
	}()
	bw := bufio.NewWriterSize(out, 64*1024)
	if err := w.fn(ctx, r, bw); err != nil {
		return err
	}
	return bw.Flush()
}

type funcSession struct {
	stdin  *io.PipeWriter
	stdout *io.PipeReader
	done   chan struct{}
	err    error
}

func (s *funcSession) Stdin() io.WriteCloser { return s.stdin }
func (s *funcSession) Stdout() io.Reader     { return s.stdout }

func (s *funcSession) Wait() (int, error) {
	<-s.done
	if s.err != nil {
		return 1, s.err
	}
	return 0, nil
}

func (s *funcSession) Stderr() []byte {
	if s.err == nil {
		return nil
	}
	return []byte(s.err.Error())
}

// IsBrokenPipe reports whether err means the worker stopped reading its input.
func IsBrokenPipe(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) || isClosedPipe(err)
}
