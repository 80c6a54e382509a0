// Package remote is a rendering backend that delegates to a PlantUML server
// over HTTP.
//
// It implements [plantuml.Launcher] by mapping each backend invocation onto
// the server's URL scheme: a render becomes GET {base}/{png|svg|txt|utxt}/{token}.
// The encode and decode modes need no server and run in-process with the
// same codec the server uses. Style files named with -config are read
// locally and inlined after the source's start line, since the server
// cannot see local paths.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/umlstream/pkg/buildinfo"
	"github.com/matzehuels/umlstream/pkg/codec"
	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
	"github.com/matzehuels/umlstream/pkg/httputil"
	"github.com/matzehuels/umlstream/pkg/plantuml"
)

// DefaultServer is the public PlantUML server.
const DefaultServer = "https://www.plantuml.com/plantuml"

var errKilled = errors.New("remote: request killed")

// retryDelay is the first backoff between attempts.
var retryDelay = time.Second

// Launcher renders through a PlantUML server.
type Launcher struct {
	BaseURL string // server root, DefaultServer when empty
	HTTP    *http.Client
	Logger  *log.Logger

	// Attempts bounds tries per render; transient failures are retried.
	Attempts int
}

// New returns a Launcher for the server at baseURL.
func New(baseURL string, logger *log.Logger) *Launcher {
	return &Launcher{
		BaseURL:  baseURL,
		HTTP:     httputil.NewClient(0),
		Logger:   logger,
		Attempts: 3,
	}
}

// request is one parsed backend invocation.
type request struct {
	mode   string
	format string // URL segment for renders
	style  string // -config path for renders
	arg    string // path for encode, token for decode
}

// Exec starts the invocation described by argv.
func (l *Launcher) Exec(ctx context.Context, argv []string) (*plantuml.Process, error) {
	req, err := parseArgv(argv)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		defer cancel()

		out, err := l.run(ctx, req, inR)
		if err == nil {
			_, err = outW.Write(out)
		}
		outW.Close()
		runErr = err
	}()

	if l.Logger != nil {
		l.Logger.Debug("started remote invocation", "mode", req.mode, "format", req.format, "server", l.base())
	}

	wait := func() error {
		<-done
		return runErr
	}
	kill := func() error {
		cancel()
		inR.CloseWithError(errKilled)
		outR.CloseWithError(errKilled)
		return nil
	}
	return plantuml.NewProcess(inW, outR, wait, kill), nil
}

func (l *Launcher) run(ctx context.Context, req request, stdin io.Reader) ([]byte, error) {
	switch req.mode {
	case plantuml.FlagEncode:
		src, err := os.ReadFile(req.arg)
		if err != nil {
			return nil, umlerrors.Wrap(umlerrors.ErrCodeFileNotFound, err, "read diagram")
		}
		token, err := codec.Encode(string(src))
		if err != nil {
			return nil, umlerrors.Wrap(umlerrors.ErrCodeCodecFailed, err, "encode %s", req.arg)
		}
		return []byte(token + "\n"), nil

	case plantuml.FlagDecode:
		src, err := codec.Decode(strings.TrimPrefix(req.arg, "~1"))
		if err != nil {
			return nil, umlerrors.Wrap(umlerrors.ErrCodeInvalidToken, err, "decode token")
		}
		return []byte(src + "\n"), nil
	}

	src, err := io.ReadAll(stdin)
	if err != nil {
		return nil, err
	}
	if req.style != "" {
		style, err := os.ReadFile(req.style)
		if err != nil {
			return nil, umlerrors.Wrap(umlerrors.ErrCodeInvalidConfig, err, "read style file")
		}
		src = Inline(src, style)
	}
	token, err := codec.Encode(string(src))
	if err != nil {
		return nil, umlerrors.Wrap(umlerrors.ErrCodeCodecFailed, err, "encode source")
	}
	return l.fetch(ctx, req.format, token)
}

// fetch downloads the rendering of token, retrying transient failures.
func (l *Launcher) fetch(ctx context.Context, format, token string) ([]byte, error) {
	url := strings.TrimRight(l.base(), "/") + "/" + format + "/" + token
	client := l.HTTP
	if client == nil {
		client = httputil.NewClient(0)
	}

	var body []byte
	err := httputil.Retry(ctx, max(l.Attempts, 1), retryDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", buildinfo.UserAgent())
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &httputil.RetryableError{Err: err}
		}
		defer resp.Body.Close()

		if err := httputil.CheckStatus(resp); err != nil {
			return err
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})

	switch {
	case err == nil:
		return body, nil
	case ctx.Err() != nil:
		return nil, umlerrors.Wrap(umlerrors.ErrCodeTimeout, ctx.Err(), "remote render")
	}
	var se *httputil.StatusError
	if errors.As(err, &se) && se.Code < 500 && se.Code != http.StatusTooManyRequests {
		// The server answers diagram errors with a 4xx status.
		return nil, umlerrors.Wrap(umlerrors.ErrCodeBackendFailed, err, "render %s", format)
	}
	return nil, umlerrors.Wrap(umlerrors.ErrCodeBackendUnavailable, err, "plantuml server")
}

func (l *Launcher) base() string {
	if l.BaseURL == "" {
		return DefaultServer
	}
	return l.BaseURL
}

// parseArgv maps a backend argument vector onto a request.
func parseArgv(argv []string) (request, error) {
	if len(argv) == 0 {
		return request{}, umlerrors.New(umlerrors.ErrCodeUnsupported, "remote backend needs a mode")
	}

	req := request{mode: argv[0]}
	switch req.mode {
	case plantuml.FlagEncode, plantuml.FlagDecode:
		if len(argv) < 2 {
			return request{}, umlerrors.New(umlerrors.ErrCodeInvalidInput, "%s needs an argument", req.mode)
		}
		req.arg = argv[1]
		return req, nil
	case plantuml.FlagPipe:
	default:
		return request{}, umlerrors.New(umlerrors.ErrCodeUnsupported, "remote backend does not support mode %q", req.mode)
	}

	req.format = "png"
	for i := 1; i < len(argv); i++ {
		switch argv[i] {
		case plantuml.FlagSVG:
			req.format = "svg"
		case plantuml.FlagASCII:
			req.format = "txt"
		case plantuml.FlagUnicode:
			req.format = "utxt"
		case plantuml.FlagConfig:
			if i+1 < len(argv) {
				i++
				req.style = argv[i]
			}
		}
	}
	return req, nil
}

// Inline inserts style right after the first @start line of src, or in
// front of src when it has none.
func Inline(src, style []byte) []byte {
	style = bytes.TrimRight(style, "\n")
	if len(style) == 0 {
		return src
	}

	lines := bytes.SplitAfter(src, []byte("\n"))
	var out bytes.Buffer
	inserted := false
	for _, line := range lines {
		out.Write(line)
		if !inserted && bytes.HasPrefix(bytes.TrimSpace(line), []byte("@start")) {
			if !bytes.HasSuffix(line, []byte("\n")) {
				out.WriteByte('\n')
			}
			out.Write(style)
			out.WriteByte('\n')
			inserted = true
		}
	}
	if !inserted {
		return []byte(fmt.Sprintf("%s\n%s", style, src))
	}
	return out.Bytes()
}

var _ plantuml.Launcher = (*Launcher)(nil)
