package codec

import (
	"errors"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"single edge", "A -> B"},
		{"multi-line", "@startuml\nAlice -> Bob: hello\nBob --> Alice: ok\n@enduml"},
		{"special characters", "A -> B : \"quoted\" & <tag> %percent 100%"},
		{"unicode", "Ünïcödé -> 日本語 : ✓"},
		{"one byte", "a"},
		{"two bytes", "ab"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := Encode(tt.text)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			got, err := Decode(token)
			if err != nil {
				t.Fatalf("Decode(%q) error: %v", token, err)
			}
			if got != tt.text {
				t.Errorf("round trip = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestEncodeAlphabet(t *testing.T) {
	token, err := Encode(strings.Repeat("Alice -> Bob: message\n", 20))
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if len(token)%4 != 0 {
		t.Errorf("token length %d is not a multiple of 4", len(token))
	}
	for _, r := range token {
		if !strings.ContainsRune(Alphabet, r) {
			t.Fatalf("token contains %q outside the alphabet", r)
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	a, _ := Encode("A -> B")
	b, _ := Encode("A -> B")
	if a != b {
		t.Errorf("Encode not deterministic: %q vs %q", a, b)
	}
}

func TestEncodeInvalidUTF8(t *testing.T) {
	_, err := Encode(string([]byte{0xff, 0xfe, 'a'}))
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("Encode(invalid) error = %v, want ErrInvalidUTF8", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(""); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("Decode(\"\") error = %v, want ErrEmptyToken", err)
	}
	if _, err := Decode("!!!!"); err == nil {
		t.Error("Decode with symbols outside the alphabet should fail")
	}
	if _, err := Decode("zzzzzzzz"); err == nil {
		t.Error("Decode of a non-deflate payload should fail")
	}
}

func TestDecodeTrimsNewline(t *testing.T) {
	token, _ := Encode("A -> B")
	got, err := Decode(token + "\n")
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got != "A -> B" {
		t.Errorf("Decode() = %q", got)
	}
}
