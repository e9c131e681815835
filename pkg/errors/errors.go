// Package errors provides structured error types shared by the CLI, the
// editor and the HTTP API.
//
// Every error carries a machine-readable [Code] so the HTTP layer can map it
// to a status and the CLI can print a short message without the prefix.
//
// # Error Codes
//
// Codes follow a prefix convention:
//   - INVALID_*: the input was rejected
//   - *_NOT_FOUND: a project or file does not exist
//   - NETWORK_ERROR, TIMEOUT, RATE_LIMITED: an enrichment endpoint failed
//   - INTERNAL_ERROR: anything else
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidEdge, "edge %s: self-loop", key)
//	if errors.Is(err, errors.ErrCodeInvalidEdge) {
//	    // reject the request
//	}
//
//	err = errors.Wrap(errors.ErrCodeStorage, origErr, "save project %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Input validation
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidDocument  Code = "INVALID_DOCUMENT"
	ErrCodeInvalidNode      Code = "INVALID_NODE"
	ErrCodeInvalidEdge      Code = "INVALID_EDGE"
	ErrCodeInvalidAlgorithm Code = "INVALID_ALGORITHM"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeInvalidPath      Code = "INVALID_PATH"
	ErrCodeTooLarge         Code = "TOO_LARGE"

	// Lookups
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeProjectNotFound Code = "PROJECT_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"

	// Enrichment transport
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Internal
	ErrCodeStorage     Code = "STORAGE_ERROR"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err has the given error code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from err, or "" if err is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix. Other errors are
// returned as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// RateLimitedError is returned when an enrichment endpoint answers 429.
type RateLimitedError struct {
	RetryAfter int // seconds
	Message    string
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns [ErrCodeRateLimited].
func (e *RateLimitedError) Code() Code { return ErrCodeRateLimited }
