package plantuml

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"
)

// Launcher starts one backend invocation per call.
//
// argv[0] is FlagPipe for rendering, FlagEncode or FlagDecode otherwise.
// A failure to start is returned from Exec; a failure while running is
// returned by the process's Wait.
type Launcher interface {
	Exec(ctx context.Context, argv []string) (*Process, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context, argv []string) (*Process, error)

// Exec calls f.
func (f LauncherFunc) Exec(ctx context.Context, argv []string) (*Process, error) {
	return f(ctx, argv)
}

// Process is a handle on one backend invocation.
//
// Wait reaps the invocation and may be called any number of times; Kill
// terminates it early. Both are safe for concurrent use.
type Process struct {
	stdin  *processStdin
	stdout io.ReadCloser

	wait func() error
	kill func() error

	waitOnce sync.Once
	waitErr  error
}

// NewProcess assembles a Process from its parts. wait must block until the
// invocation has ended and return its result; kill must make a pending
// wait return promptly.
func NewProcess(stdin io.WriteCloser, stdout io.ReadCloser, wait, kill func() error) *Process {
	p := &Process{
		stdout: stdout,
		wait:   wait,
		kill:   kill,
	}
	p.stdin = &processStdin{w: stdin}
	return p
}

// Stdin returns the backend's input. A failure passed to its
// CloseWithError is reported by Wait when the backend itself succeeded.
func (p *Process) Stdin() io.WriteCloser { return p.stdin }

// Stdout returns the backend's output.
func (p *Process) Stdout() io.ReadCloser { return p.stdout }

// Wait blocks until the backend has exited and returns its result.
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		err := p.wait()
		if err == nil {
			err = p.stdin.failure()
		}
		p.waitErr = err
	})
	return p.waitErr
}

// Kill terminates the backend. Killing an exited backend is not an error.
func (p *Process) Kill() error {
	if p.kill == nil {
		return nil
	}
	err := p.kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

type closeWithErrorer interface {
	CloseWithError(err error) error
}

// processStdin records why a feeder stopped writing.
type processStdin struct {
	w io.WriteCloser

	mu  sync.Mutex
	err error
}

func (s *processStdin) Write(p []byte) (int, error) { return s.w.Write(p) }

func (s *processStdin) Close() error { return s.CloseWithError(nil) }

func (s *processStdin) CloseWithError(cause error) error {
	if cause != nil && !isBrokenPipe(cause) {
		s.mu.Lock()
		if s.err == nil {
			s.err = cause
		}
		s.mu.Unlock()
	}
	err := s.w.Close()
	if isBrokenPipe(err) {
		return nil
	}
	return err
}

func (s *processStdin) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// isBrokenPipe reports errors caused by the backend closing its input
// early; the backend's own exit status is the meaningful result then.
func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
