// Package errors defines the coded errors shared by the client library,
// the CLI and the HTTP server.
//
// Every failure that crosses a package boundary carries a [Code]. The CLI
// turns the code into a process exit status with [ExitCode]; the server
// turns it into a response status with [HTTPStatus]:
//
//	err := errors.New(errors.ErrCodeInvalidToken, "token too long: %d bytes", n)
//	errors.HTTPStatus(err) // 400
//	errors.ExitCode(err)   // 2
//
// Codes set close to the failure are kept by outer layers; they only
// wrap errors that have none yet.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable failure class.
type Code string

const (
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidToken  Code = "INVALID_TOKEN"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// ErrCodeBackendUnavailable: the backend could not be started or reached.
	ErrCodeBackendUnavailable Code = "BACKEND_UNAVAILABLE"
	// ErrCodeBackendFailed: the backend ran and reported failure.
	ErrCodeBackendFailed Code = "BACKEND_FAILED"
	ErrCodeTimeout       Code = "TIMEOUT"
	ErrCodeRateLimited   Code = "RATE_LIMITED"

	ErrCodeCodecFailed Code = "CODEC_FAILED"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Exit statuses used by the CLI.
const (
	ExitFailure  = 1
	ExitUsage    = 2
	ExitCanceled = 130
)

type codeInfo struct {
	status int // HTTP status
	exit   int // process exit status
}

var codes = map[Code]codeInfo{
	ErrCodeInvalidInput:       {http.StatusBadRequest, ExitUsage},
	ErrCodeInvalidFormat:      {http.StatusBadRequest, ExitUsage},
	ErrCodeInvalidToken:       {http.StatusBadRequest, ExitUsage},
	ErrCodeInvalidPath:        {http.StatusBadRequest, ExitUsage},
	ErrCodeInvalidConfig:      {http.StatusBadRequest, ExitUsage},
	ErrCodeCodecFailed:        {http.StatusBadRequest, ExitFailure},
	ErrCodeNotFound:           {http.StatusNotFound, ExitUsage},
	ErrCodeFileNotFound:       {http.StatusNotFound, ExitUsage},
	ErrCodeRateLimited:        {http.StatusTooManyRequests, ExitFailure},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, ExitFailure},
	ErrCodeBackendUnavailable: {http.StatusServiceUnavailable, ExitFailure},
	ErrCodeBackendFailed:      {http.StatusBadGateway, ExitFailure},
	ErrCodeUnsupported:        {http.StatusNotImplemented, ExitFailure},
	ErrCodeInternal:           {http.StatusInternalServerError, ExitFailure},
}

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error with a formatted message around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// GetCode returns the code of the outermost *Error in err's chain, or ""
// when there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	return code != "" && GetCode(err) == code
}

// UserMessage renders err for people: coded errors drop their code
// prefix, at every level of the chain.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + UserMessage(e.Cause)
}

// HTTPStatus maps err to a response status. A backend that ran and
// rejected the diagram (an *ExitError under BACKEND_FAILED) is 422, since
// the diagram is at fault; uncoded errors are 500.
func HTTPStatus(err error) int {
	code := GetCode(err)
	if code == ErrCodeBackendFailed {
		var exit *ExitError
		if errors.As(err, &exit) {
			return http.StatusUnprocessableEntity
		}
	}
	if info, ok := codes[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// ExitCode maps err to a CLI exit status: ExitUsage for bad input,
// ExitFailure for everything else, 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if info, ok := codes[GetCode(err)]; ok {
		return info.exit
	}
	return ExitFailure
}

// ExitError reports a backend process that exited with a non-zero status.
type ExitError struct {
	Code   int    // process exit status
	Stderr string // trailing diagnostics, possibly truncated
	Err    error  // underlying *exec.ExitError
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("backend exited with status %d", e.Code)
	}
	return fmt.Sprintf("backend exited with status %d: %s", e.Code, e.Stderr)
}

func (e *ExitError) Unwrap() error { return e.Err }
