package plantuml

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/umlstream/pkg/codec"
	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
	"github.com/matzehuels/umlstream/pkg/observability"
)

// Client runs the render, encode and decode pipelines against a Launcher.
// A Client holds no per-call state and is safe for concurrent use.
type Client struct {
	launcher  Launcher
	templates Templates
	probe     PathProbe
	encode    func(string) (string, error)
	logger    *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTemplates sets the template keys available to Options.Config.
// Without it, or with nil, the client uses DefaultTemplates.
func WithTemplates(t Templates) Option {
	return func(c *Client) { c.templates = t }
}

// WithPathProbe replaces the filesystem check used to classify string inputs.
func WithPathProbe(p PathProbe) Option {
	return func(c *Client) {
		if p != nil {
			c.probe = p
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTokenEncoder replaces the token codec used by Encode.
func WithTokenEncoder(fn func(string) (string, error)) Option {
	return func(c *Client) {
		if fn != nil {
			c.encode = fn
		}
	}
}

// New returns a Client that renders with l.
func New(l Launcher, opts ...Option) *Client {
	c := &Client{
		launcher: l,
		probe:    IsPath,
		encode:   codec.Encode,
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Templates returns the template keys known to the client.
func (c *Client) Templates() Templates {
	if c.templates != nil {
		return c.templates
	}
	t, err := DefaultTemplates()
	if err != nil {
		c.logger.Warn("bundled templates unavailable", "err", err)
		return Templates{}
	}
	return t
}

// Generate renders a diagram. values are resolved by Resolve: an optional
// input string, optional Options and an optional Callback.
//
// The returned Streams owns the backend: read Out, then Wait or Close.
// A backend that fails to start is reported by the returned error only;
// any later failure is delivered once to the callback, when given, and is
// also returned by Streams.Wait.
func (c *Client) Generate(ctx context.Context, values ...any) (*Streams, error) {
	call := ResolveWith(c.probe, values...)
	argv := Compile([]string{FlagPipe}, call.Options, c.Templates())

	c.logger.Debug("generate", "input", call.Input.Kind, "format", call.Options.Format, "argv", argv)
	return c.run(ctx, argv, call.Input, true, call.Callback, pipelineEvents{
		start: func() { observability.Pipeline().OnGenerateStart(ctx, argv) },
		done: func(d time.Duration, err error) {
			observability.Pipeline().OnGenerateComplete(ctx, argv, d, err)
		},
	})
}

// Decode asks the backend to decode token and streams the source it prints.
func (c *Client) Decode(ctx context.Context, token string, cb Callback) (*Streams, error) {
	argv := []string{FlagDecode, token}
	return c.run(ctx, argv, Text(""), false, cb, pipelineEvents{
		start: func() { observability.Pipeline().OnDecodeStart(ctx, token) },
		done: func(d time.Duration, err error) {
			observability.Pipeline().OnDecodeComplete(ctx, token, d, err)
		},
	})
}

// EncodeFile asks the backend to encode the diagram in the file at path.
func (c *Client) EncodeFile(ctx context.Context, path string, cb Callback) (*Streams, error) {
	argv := []string{FlagEncode, path}
	return c.run(ctx, argv, Text(""), false, cb, pipelineEvents{
		start: func() { observability.Pipeline().OnEncodeStart(ctx) },
		done: func(_ time.Duration, err error) {
			observability.Pipeline().OnEncodeComplete(ctx, 0, err)
		},
	})
}

// Encode turns a source into its token without involving the backend.
// values are resolved as for Generate; options are accepted and ignored.
//
// Out yields the token followed by a newline once the input has ended. A
// callback, when given, receives that same output, or the codec error.
func (c *Client) Encode(ctx context.Context, values ...any) *Streams {
	call := ResolveWith(c.probe, values...)

	es := newEncodeStream(c.encode)
	observability.Pipeline().OnEncodeStart(ctx)
	es.onFinalize = func(out string, size int, err error) {
		observability.Pipeline().OnEncodeComplete(ctx, size, err)
		c.logger.Debug("encoded", "bytes", size, "err", err)
		if call.Callback != nil {
			call.Callback(out, err)
		}
	}

	s := dispatch(call.Input, encodeTarget{es}, false)
	s.wait = es.wait
	s.close = func() error {
		// Only an unfinished stream needs terminating.
		if err := es.CloseWithError(ErrClosed); err == nil {
			c.logger.Debug("encode stream closed before end of input")
		}
		return nil
	}
	return s
}

type pipelineEvents struct {
	start func()
	done  func(time.Duration, error)
}

// run starts the backend with argv and dispatches in into it.
func (c *Client) run(ctx context.Context, argv []string, in Input, envelope bool, cb Callback, ev pipelineEvents) (*Streams, error) {
	start := time.Now()
	ev.start()

	p, err := c.launcher.Exec(ctx, argv)
	if err != nil {
		if umlerrors.GetCode(err) == "" {
			err = umlerrors.Wrap(umlerrors.ErrCodeBackendUnavailable, err, "start backend")
		}
		ev.done(time.Since(start), err)
		return nil, err
	}

	s := dispatch(in, processTarget{p}, envelope)

	wait := sync.OnceValue(func() error {
		err := p.Wait()
		if err != nil && umlerrors.GetCode(err) == "" {
			err = umlerrors.Wrap(umlerrors.ErrCodeBackendFailed, err, "backend %s", argv[0])
		}
		ev.done(time.Since(start), err)
		if err != nil {
			c.logger.Debug("backend failed", "argv", argv, "err", err)
		} else {
			c.logger.Debug("backend finished", "argv", argv, "duration", time.Since(start).Round(time.Millisecond))
		}
		return err
	})
	s.wait = wait
	s.close = func() error {
		_ = p.Kill()
		_ = p.Stdout().Close()
		_ = wait()
		return nil
	}

	if cb != nil {
		go func() { cb("", wait()) }()
	}
	return s, nil
}
