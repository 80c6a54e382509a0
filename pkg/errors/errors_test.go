package errors

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{New(ErrCodeInvalidToken, "token too long: %d bytes", 70000), "INVALID_TOKEN: token too long: 70000 bytes"},
		{Wrap(ErrCodeBackendFailed, io.ErrUnexpectedEOF, "render %s", "svg"), "BACKEND_FAILED: render svg: unexpected EOF"},
		{&ExitError{Code: 200, Stderr: "Syntax Error?"}, "backend exited with status 200: Syntax Error?"},
		{&ExitError{Code: 1}, "backend exited with status 1"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(ErrCodeBackendFailed, cause, "render failed")
	if !errors.Is(err, cause) || errors.Unwrap(err) != cause {
		t.Error("Wrap should expose its cause")
	}

	inner := &exec.ExitError{}
	var ee *exec.ExitError
	if !errors.As(Wrap(ErrCodeBackendFailed, &ExitError{Code: 1, Err: inner}, "x"), &ee) || ee != inner {
		t.Error("errors.As should reach the *exec.ExitError")
	}
}

func TestIsAndGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
	}{
		{"coded", New(ErrCodeInvalidToken, "x"), ErrCodeInvalidToken},
		{"outer code wins", Wrap(ErrCodeBackendFailed, New(ErrCodeInvalidInput, "inner"), "outer"), ErrCodeBackendFailed},
		{"behind fmt wrapping", fmt.Errorf("a.puml: %w", New(ErrCodeFileNotFound, "x")), ErrCodeFileNotFound},
		{"plain", errors.New("plain"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.code {
				t.Errorf("GetCode() = %q, want %q", got, tt.code)
			}
			if tt.code != "" && !Is(tt.err, tt.code) {
				t.Errorf("Is(%s) = false", tt.code)
			}
			if Is(tt.err, ErrCodeCodecFailed) {
				t.Error("Is(CODEC_FAILED) = true")
			}
		})
	}
	if Is(errors.New("plain"), "") {
		t.Error(`Is(err, "") should be false`)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{New(ErrCodeInvalidInput, "friendly message"), "friendly message"},
		{errors.New("plain error"), "plain error"},
		{Wrap(ErrCodeBackendFailed, errors.New("exit status 1"), "render failed"), "render failed: exit status 1"},
		{Wrap(ErrCodeTimeout, New(ErrCodeBackendFailed, "killed"), "render"), "render: killed"},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage() = %q, want %q", got, tt.want)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrCodeInvalidToken, "bad"), http.StatusBadRequest},
		{New(ErrCodeCodecFailed, "inflate"), http.StatusBadRequest},
		{New(ErrCodeNotFound, "gif"), http.StatusNotFound},
		{New(ErrCodeRateLimited, "slow down"), http.StatusTooManyRequests},
		{New(ErrCodeTimeout, "slow"), http.StatusGatewayTimeout},
		{New(ErrCodeBackendUnavailable, "no java"), http.StatusServiceUnavailable},
		{New(ErrCodeBackendFailed, "crashed"), http.StatusBadGateway},
		{Wrap(ErrCodeBackendFailed, &ExitError{Code: 200}, "render"), http.StatusUnprocessableEntity},
		{New(ErrCodeUnsupported, "ascii"), http.StatusNotImplemented},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{New(ErrCodeInvalidFormat, "gif"), ExitUsage},
		{fmt.Errorf("a.puml: %w", New(ErrCodeFileNotFound, "x")), ExitUsage},
		{New(ErrCodeBackendFailed, "crashed"), ExitFailure},
		{errors.New("plain"), ExitFailure},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestEveryCodeIsMapped(t *testing.T) {
	all := []Code{
		ErrCodeInvalidInput, ErrCodeInvalidFormat, ErrCodeInvalidToken, ErrCodeInvalidPath,
		ErrCodeInvalidConfig, ErrCodeNotFound, ErrCodeFileNotFound, ErrCodeBackendUnavailable,
		ErrCodeBackendFailed, ErrCodeTimeout, ErrCodeRateLimited, ErrCodeCodecFailed,
		ErrCodeInternal, ErrCodeUnsupported,
	}
	for _, c := range all {
		if _, ok := codes[c]; !ok {
			t.Errorf("code %s has no status mapping", c)
		}
	}
}
