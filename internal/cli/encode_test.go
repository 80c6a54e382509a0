package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/umlstream/pkg/codec"
	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
)

func mustEncode(t *testing.T, src string) string {
	t.Helper()
	token, err := codec.Encode(src)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestEncodeCommand(t *testing.T) {
	const src = "@startuml\nBob -> Alice : hello\n@enduml"

	t.Run("stdin", func(t *testing.T) {
		backend := &echoBackend{}
		c, _ := newTestCLI(t, backend)
		out, err := execute(t, c, src, "encode")
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if want := mustEncode(t, src) + "\n"; out != want {
			t.Errorf("output = %q, want %q", out, want)
		}
		if backend.count() != 0 {
			t.Error("encode should not start the backend")
		}
	})

	t.Run("inline argument", func(t *testing.T) {
		c, _ := newTestCLI(t, &echoBackend{})
		out, err := execute(t, c, "", "encode", "Bob -> Alice")
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if want := mustEncode(t, "Bob -> Alice") + "\n"; out != want {
			t.Errorf("output = %q, want %q", out, want)
		}
	})

	t.Run("file argument", func(t *testing.T) {
		c, dir := newTestCLI(t, &echoBackend{})
		path := writeSource(t, dir, "a.puml", src)
		out, err := execute(t, c, "", "encode", path)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if want := mustEncode(t, src) + "\n"; out != want {
			t.Errorf("output = %q, want %q", out, want)
		}
	})
}

func TestEncodeFileCommand(t *testing.T) {
	c, dir := newTestCLI(t, &echoBackend{})
	path := writeSource(t, dir, "a.puml", "A -> B")

	out, err := execute(t, c, "", "encode-file", path)
	if err != nil {
		t.Fatalf("encode-file: %v", err)
	}
	if want := "-encodeurl " + path + "|"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	_, err = execute(t, c, "", "encode-file", filepath.Join(dir, "missing.puml"))
	if !umlerrors.Is(err, umlerrors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestDecodeCommand(t *testing.T) {
	const src = "@startuml\nA -> B\n@enduml"
	token := mustEncode(t, src)

	t.Run("backend", func(t *testing.T) {
		c, _ := newTestCLI(t, &echoBackend{})
		out, err := execute(t, c, "", "decode", token)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if want := "-decodeurl " + token + "|"; out != want {
			t.Errorf("output = %q, want %q", out, want)
		}
	})

	t.Run("local", func(t *testing.T) {
		backend := &echoBackend{}
		c, _ := newTestCLI(t, backend)
		out, err := execute(t, c, "", "decode", "--local", "~1"+token)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if strings.TrimSpace(out) != src {
			t.Errorf("output = %q, want %q", out, src)
		}
		if backend.count() != 0 {
			t.Error("local decode should not start the backend")
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		c, _ := newTestCLI(t, &echoBackend{})
		_, err := execute(t, c, "", "decode", "not a token!")
		if !umlerrors.Is(err, umlerrors.ErrCodeInvalidToken) {
			t.Errorf("err = %v, want INVALID_TOKEN", err)
		}
	})
}
