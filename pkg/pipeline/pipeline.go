// Package pipeline renders diagrams by token with caching.
//
// The CLI and the HTTP server both render through a [Runner], so a diagram
// is spawned on the backend once per (token, format, config) and served
// from the cache afterwards.
//
// # Usage
//
//	client := plantuml.New(&plantuml.ExecLauncher{Jar: jar})
//	runner := pipeline.NewRunner(client, cache, nil, logger)
//	res, err := runner.Render(ctx, pipeline.Request{
//	    Source: "Alice -> Bob: hello",
//	    Format: plantuml.FormatSVG,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("out.svg", res.Data, 0o644)
//
// A request carries either the diagram source or its token. Sources are
// encoded into tokens in-process; tokens are decoded in-process too, so
// only the render itself reaches the backend.
package pipeline

import (
	"strings"
	"time"

	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
	"github.com/matzehuels/umlstream/pkg/plantuml"
)

// DefaultTimeout bounds a single backend render.
const DefaultTimeout = 30 * time.Second

// Request describes one render. Exactly one of Source and Token is set.
type Request struct {
	Source  string          `json:"source,omitempty"`
	Token   string          `json:"token,omitempty"`
	Format  plantuml.Format `json:"format,omitempty"`
	Config  string          `json:"config,omitempty"`
	Refresh bool            `json:"refresh,omitempty"` // skip the cache lookup
}

// Validate checks the request and normalizes its format.
func (r *Request) Validate() error {
	switch {
	case r.Source != "" && r.Token != "":
		return umlerrors.New(umlerrors.ErrCodeInvalidInput, "source and token are mutually exclusive")
	case r.Source != "":
		if err := umlerrors.ValidateSource(r.Source); err != nil {
			return err
		}
	case r.Token != "":
		r.Token = strings.TrimSpace(r.Token)
		if err := umlerrors.ValidateToken(r.Token); err != nil {
			return err
		}
	default:
		return umlerrors.New(umlerrors.ErrCodeInvalidInput, "source or token is required")
	}

	if r.Format == "" {
		r.Format = plantuml.DefaultFormat
	}
	if !r.Format.Valid() {
		return umlerrors.New(umlerrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: png, svg, ascii, unicode)", r.Format)
	}
	return nil
}

// Result is the outcome of a render.
type Result struct {
	// Token identifies the diagram; it can be used in a render URL.
	Token string

	// Data is the rendered output.
	Data []byte

	// ContentType is the MIME type of Data.
	ContentType string

	// CacheHit reports whether Data came from the cache.
	CacheHit bool

	// Duration is the wall time of the render, cache lookups included.
	Duration time.Duration
}

// ensureEnvelope wraps a bare source, as decoded from a token, in the
// start/end envelope the backend needs.
func ensureEnvelope(src string) string {
	if strings.HasPrefix(strings.TrimSpace(src), "@start") {
		return src
	}
	return plantuml.Wrap(src)
}
