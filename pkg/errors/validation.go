package errors

import (
	"strings"
	"unicode"
)

// MaxTokenLength bounds tokens accepted from untrusted callers.
const MaxTokenLength = 64 * 1024

// MaxSourceLength bounds diagram sources accepted from untrusted callers.
// The encode stream buffers its whole input, so the server caps it here.
const MaxSourceLength = 1 << 20

const tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

// ValidateToken checks that a token only uses the PlantUML alphabet.
// A leading '~1' marker (used by some servers for the deflate variant) is accepted.
func ValidateToken(token string) error {
	if token == "" {
		return New(ErrCodeInvalidToken, "token cannot be empty")
	}
	if len(token) > MaxTokenLength {
		return New(ErrCodeInvalidToken, "token too long (max %d characters)", MaxTokenLength)
	}

	body := strings.TrimPrefix(token, "~1")
	for i, r := range body {
		if !strings.ContainsRune(tokenAlphabet, r) {
			return New(ErrCodeInvalidToken, "token contains invalid character %q at offset %d", r, i)
		}
	}
	return nil
}

// ValidateSource checks a diagram source received from an untrusted caller.
func ValidateSource(src string) error {
	if strings.TrimSpace(src) == "" {
		return New(ErrCodeInvalidInput, "diagram source cannot be empty")
	}
	if len(src) > MaxSourceLength {
		return New(ErrCodeInvalidInput, "diagram source too large (max %d bytes)", MaxSourceLength)
	}
	if strings.ContainsRune(src, '\x00') {
		return New(ErrCodeInvalidInput, "diagram source contains a null byte")
	}
	return nil
}

// ValidateConfigPath validates a style configuration path supplied over the network.
// Only bare template keys are allowed; paths would let callers read arbitrary files.
func ValidateConfigPath(config string) error {
	if config == "" {
		return nil
	}
	for _, r := range config {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "config contains invalid control characters")
		}
	}
	if strings.ContainsAny(config, `/\`) || strings.Contains(config, "..") {
		return New(ErrCodeInvalidConfig, "config must be a template name, got %q", config)
	}
	return nil
}
