package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/umlstream/pkg/cache"
	"github.com/matzehuels/umlstream/pkg/codec"
	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
	"github.com/matzehuels/umlstream/pkg/plantuml"
)

// echoBackend answers every render with its argv and the source it read.
type echoBackend struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (b *echoBackend) Exec(ctx context.Context, argv []string) (*plantuml.Process, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		src, _ := io.ReadAll(inR)
		io.WriteString(outW, strings.Join(argv, " ")+"|"+string(src))
		outW.Close()
	}()
	wait := func() error {
		<-done
		return b.fail
	}
	return plantuml.NewProcess(inW, outR, wait, nil), nil
}

func (b *echoBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func newTestRunner(t *testing.T, backend *echoBackend) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := log.NewWithOptions(io.Discard, log.Options{})
	return NewRunner(plantuml.New(backend), c, nil, logger)
}

func TestRenderCaches(t *testing.T) {
	backend := &echoBackend{}
	r := newTestRunner(t, backend)
	ctx := context.Background()
	req := Request{Source: "@startuml\nA -> B\n@enduml", Format: plantuml.FormatSVG}

	first, err := r.Render(ctx, req)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if first.CacheHit {
		t.Error("first render should miss")
	}
	if string(first.Data) != "-pipe -svg|@startuml\nA -> B\n@enduml" {
		t.Errorf("data = %q", first.Data)
	}
	if first.ContentType != "image/svg+xml" {
		t.Errorf("content type = %q", first.ContentType)
	}

	second, err := r.Render(ctx, req)
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}
	if !second.CacheHit {
		t.Error("second render should hit the cache")
	}
	if !bytes.Equal(first.Data, second.Data) || first.Token != second.Token {
		t.Error("cached result differs")
	}
	if backend.count() != 1 {
		t.Errorf("backend called %d times, want 1", backend.count())
	}

	// Refresh bypasses the lookup.
	req.Refresh = true
	if res, _ := r.Render(ctx, req); res.CacheHit {
		t.Error("refresh should not hit the cache")
	}
	if backend.count() != 2 {
		t.Errorf("backend called %d times, want 2", backend.count())
	}
}

func TestRenderOptionsChangeKey(t *testing.T) {
	backend := &echoBackend{}
	r := newTestRunner(t, backend)
	ctx := context.Background()

	r.Render(ctx, Request{Source: "A -> B", Format: plantuml.FormatSVG})
	r.Render(ctx, Request{Source: "A -> B", Format: plantuml.FormatPNG})
	r.Render(ctx, Request{Source: "A -> B", Format: plantuml.FormatSVG, Config: "classic"})

	if backend.count() != 3 {
		t.Errorf("backend called %d times, want one render per option set", backend.count())
	}
}

func TestRenderByToken(t *testing.T) {
	backend := &echoBackend{}
	r := newTestRunner(t, backend)
	token, _ := codec.Encode("A -> B")

	res, err := r.Render(context.Background(), Request{Token: token, Format: plantuml.FormatASCII})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Token != token {
		t.Errorf("token = %q, want %q", res.Token, token)
	}
	// A bare decoded source gets the envelope.
	if string(res.Data) != "-pipe -ttxt|@startuml\nA -> B\n@enduml" {
		t.Errorf("data = %q", res.Data)
	}

	// Rendering the same diagram by source hits the token's entry.
	res, err = r.Render(context.Background(), Request{Source: "A -> B", Format: plantuml.FormatASCII})
	if err != nil {
		t.Fatalf("Render by source: %v", err)
	}
	if !res.CacheHit {
		t.Error("source and token requests for one diagram should share an entry")
	}
}

func TestRenderBackendFailureNotCached(t *testing.T) {
	backend := &echoBackend{fail: &umlerrors.ExitError{Code: 1, Stderr: "Syntax Error?"}}
	r := newTestRunner(t, backend)
	ctx := context.Background()
	req := Request{Source: "A ->", Format: plantuml.FormatPNG}

	_, err := r.Render(ctx, req)
	var ee *umlerrors.ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want ExitError", err)
	}

	backend.fail = nil
	res, err := r.Render(ctx, req)
	if err != nil {
		t.Fatalf("Render after fix: %v", err)
	}
	if res.CacheHit {
		t.Error("failed render must not be cached")
	}
}

func TestRequestValidate(t *testing.T) {
	token, _ := codec.Encode("A -> B")

	tests := []struct {
		name string
		req  Request
		code umlerrors.Code
	}{
		{"empty", Request{}, umlerrors.ErrCodeInvalidInput},
		{"both", Request{Source: "A", Token: token}, umlerrors.ErrCodeInvalidInput},
		{"blank source", Request{Source: "   "}, umlerrors.ErrCodeInvalidInput},
		{"bad token", Request{Token: "not a token!"}, umlerrors.ErrCodeInvalidToken},
		{"bad format", Request{Source: "A", Format: "gif"}, umlerrors.ErrCodeInvalidFormat},
		{"ok source", Request{Source: "A -> B"}, ""},
		{"ok token", Request{Token: " " + token + "\n"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.code == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				if tt.req.Format != plantuml.FormatPNG {
					t.Errorf("format default = %q", tt.req.Format)
				}
				return
			}
			if got := umlerrors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	r := newTestRunner(t, &echoBackend{})
	ctx := context.Background()

	token, err := r.Encode(ctx, "Bob -> Alice: hi")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want, _ := codec.Encode("Bob -> Alice: hi")
	if token != want {
		t.Errorf("token = %q, want %q", token, want)
	}

	src, err := r.Decode(ctx, "~1"+token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if src != "Bob -> Alice: hi" {
		t.Errorf("source = %q", src)
	}

	if _, err := r.Decode(ctx, "zzzz"); !umlerrors.Is(err, umlerrors.ErrCodeInvalidToken) {
		t.Errorf("Decode(garbage) = %v, want INVALID_TOKEN", err)
	}
	if _, err := r.Encode(ctx, ""); !umlerrors.Is(err, umlerrors.ErrCodeInvalidInput) {
		t.Errorf("Encode(empty) = %v, want INVALID_INPUT", err)
	}
}

func TestEnsureEnvelope(t *testing.T) {
	if got := ensureEnvelope("A -> B"); got != "@startuml\nA -> B\n@enduml" {
		t.Errorf("bare source = %q", got)
	}
	dot := "@startdot\ndigraph { a }\n@enddot"
	if got := ensureEnvelope(dot); got != dot {
		t.Errorf("enveloped source changed: %q", got)
	}
}
