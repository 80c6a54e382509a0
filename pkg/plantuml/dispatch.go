package plantuml

import (
	"errors"
	"io"
	"os"
	"strings"
)

// Envelope delimiters added around inline sources before rendering.
const (
	EnvelopeStart = "@startuml"
	EnvelopeEnd   = "@enduml"
)

// ErrClosed terminates an encode stream closed before its input ended.
var ErrClosed = errors.New("plantuml: streams closed before end of input")

// Wrap returns text inside the start/end envelope.
func Wrap(text string) string {
	return EnvelopeStart + "\n" + text + "\n" + EnvelopeEnd
}

// Streams is the caller's side of one pipeline invocation.
type Streams struct {
	// In receives the source when no input was given; nil otherwise.
	In io.WriteCloser

	// Out yields the rendered output, token, or decoded source.
	Out io.Reader

	wait  func() error
	close func() error
}

// Wait blocks until the invocation has finished and returns its result.
// The result is the same on every call.
func (s *Streams) Wait() error {
	if s.wait == nil {
		return nil
	}
	return s.wait()
}

// Close releases the invocation, terminating the backend if it is still
// running, and waits for it to be reaped.
func (s *Streams) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Collect reads Out to the end and waits for the invocation.
// The invocation's error takes precedence over a read error.
func (s *Streams) Collect() ([]byte, error) {
	data, readErr := io.ReadAll(s.Out)
	if err := s.Wait(); err != nil {
		return data, err
	}
	return data, readErr
}

// target is what the dispatcher wires an Input into.
type target interface {
	input() io.WriteCloser
	output() io.Reader
	// buffered reports whether writes to input never block on a reader.
	buffered() bool
}

type processTarget struct{ p *Process }

func (t processTarget) input() io.WriteCloser { return t.p.Stdin() }
func (t processTarget) output() io.Reader     { return t.p.Stdout() }
func (t processTarget) buffered() bool        { return false }

type encodeTarget struct{ s *EncodeStream }

func (t encodeTarget) input() io.WriteCloser { return t.s }
func (t encodeTarget) output() io.Reader     { return t.s }
func (t encodeTarget) buffered() bool        { return true }

// dispatch wires in into t. Inline text is wrapped in the envelope when
// envelope is set. Only an absent input leaves Streams.In open to the caller.
func dispatch(in Input, t target, envelope bool) *Streams {
	s := &Streams{Out: t.output()}

	switch in.Kind {
	case InputPath:
		path := in.Value
		go feed(t.input(), func() (io.ReadCloser, error) { return os.Open(path) })

	case InputText:
		text := in.Value
		if envelope {
			text = Wrap(text)
		}
		open := func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(text)), nil }
		if t.buffered() {
			feed(t.input(), open)
		} else {
			// A backend may fill its output pipe before draining its input.
			go feed(t.input(), open)
		}

	default:
		s.In = t.input()
	}
	return s
}

// feed copies the opened source into dst and closes dst, passing along
// any failure to open or read the source.
func feed(dst io.WriteCloser, open func() (io.ReadCloser, error)) {
	src, err := open()
	if err != nil {
		closeWithError(dst, err)
		return
	}
	defer src.Close()

	_, err = io.Copy(dst, src)
	closeWithError(dst, err)
}

func closeWithError(w io.WriteCloser, err error) {
	if c, ok := w.(closeWithErrorer); ok {
		_ = c.CloseWithError(err)
		return
	}
	_ = w.Close()
}
