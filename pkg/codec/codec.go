// Package codec converts PlantUML source text to and from the compact
// URL-safe token used by PlantUML servers and the -encodeurl/-decodeurl
// backend modes.
//
// A token is the raw DEFLATE stream of the UTF-8 source, written with
// PlantUML's 64-symbol alphabet (0-9, A-Z, a-z, '-', '_'). Every group of
// three bytes becomes four symbols; a trailing partial group is padded with
// zero bits and still emits four symbols, matching the reference encoder.
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/flate"
)

// Alphabet is PlantUML's token alphabet in symbol order.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

var encoding = base64.NewEncoding(Alphabet).WithPadding(base64.NoPadding)

// ErrInvalidUTF8 is returned by Encode when the source is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("source is not valid UTF-8")

// ErrEmptyToken is returned by Decode for an empty token.
var ErrEmptyToken = errors.New("empty token")

// Encode compresses text and returns its token.
func Encode(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", ErrInvalidUTF8
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("deflate: %w", err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return "", fmt.Errorf("deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("deflate: %w", err)
	}

	raw := buf.Bytes()
	token := encoding.EncodeToString(raw)
	switch len(raw) % 3 {
	case 1:
		token += "00"
	case 2:
		token += "0"
	}
	return token, nil
}

// Decode reverses Encode.
func Decode(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyToken
	}
	// A lone trailing symbol carries fewer than 8 bits.
	if len(token)%4 == 1 {
		token = token[:len(token)-1]
	}

	raw, err := encoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}

	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("inflate: %w", err)
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}
