package plantuml

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/matzehuels/umlstream/pkg/codec"
	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
)

// ErrFinalized is returned by writes to an EncodeStream after its input was closed.
var ErrFinalized = errors.New("plantuml: encode stream finalized")

type streamState int

const (
	stateAccepting streamState = iota
	stateFinalized
)

// EncodeStream buffers a diagram source and, once its input is closed,
// emits the source's token followed by a newline.
//
// Writes never block and never fail while accepting. Close moves the
// stream to its terminal state exactly once; Read blocks until then and
// yields either the whole token line or the terminal error, never a
// partial token. Chunk boundaries carry no meaning: only the concatenation
// of all writes, in write order, is encoded.
type EncodeStream struct {
	encode func(string) (string, error)

	mu     sync.Mutex
	state  streamState
	chunks [][]byte
	size   int

	done chan struct{}
	out  *bytes.Reader
	err  error

	// onFinalize, when set, runs once with the complete output.
	onFinalize func(out string, size int, err error)
}

// NewEncodeStream returns a stream using the PlantUML token codec.
func NewEncodeStream() *EncodeStream {
	return newEncodeStream(codec.Encode)
}

func newEncodeStream(encode func(string) (string, error)) *EncodeStream {
	if encode == nil {
		encode = codec.Encode
	}
	return &EncodeStream{
		encode: encode,
		done:   make(chan struct{}),
	}
}

// Write appends a copy of p to the buffered source.
func (s *EncodeStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateFinalized {
		return 0, ErrFinalized
	}
	s.chunks = append(s.chunks, bytes.Clone(p))
	s.size += len(p)
	return len(p), nil
}

// Close ends the input and encodes the buffered source.
// It returns the codec error, if any, which is also the stream's terminal
// read error. Closing twice returns ErrFinalized.
func (s *EncodeStream) Close() error {
	return s.CloseWithError(nil)
}

// CloseWithError ends the input. A non-nil cause skips encoding and
// becomes the terminal read error.
func (s *EncodeStream) CloseWithError(cause error) error {
	s.mu.Lock()
	if s.state == stateFinalized {
		s.mu.Unlock()
		return ErrFinalized
	}
	s.state = stateFinalized
	chunks, size := s.chunks, s.size
	s.chunks = nil
	s.mu.Unlock()

	if cause != nil {
		s.finish("", size, cause)
		return nil
	}

	token, err := s.encode(string(bytes.Join(chunks, nil)))
	if err != nil {
		err = umlerrors.Wrap(umlerrors.ErrCodeCodecFailed, err, "encode source")
		s.finish("", size, err)
		return err
	}
	s.finish(token+"\n", size, nil)
	return nil
}

func (s *EncodeStream) finish(out string, size int, err error) {
	s.err = err
	s.out = bytes.NewReader([]byte(out))
	close(s.done)
	if s.onFinalize != nil {
		s.onFinalize(out, size, err)
	}
}

// Read blocks until the stream is finalized, then reads the token line.
// Concurrent readers share one cursor, so each byte is delivered once.
func (s *EncodeStream) Read(p []byte) (int, error) {
	<-s.done
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Read(p)
}

// Finalized reports whether the input has been closed.
func (s *EncodeStream) Finalized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateFinalized
}

// wait blocks until finalization and returns the terminal error.
func (s *EncodeStream) wait() error {
	<-s.done
	return s.err
}

var (
	_ io.ReadWriteCloser = (*EncodeStream)(nil)
	_ closeWithErrorer   = (*EncodeStream)(nil)
)
