// Package chaterrors provides structured error classification for the CLI:
// local failures (configuration, storage, input) and remote completion
// failures are distinguishable by type without string matching.
package chaterrors

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// ErrorType categorizes an error for programmatic handling.
type ErrorType int8

const (
	// Local error types, surfaced before any service call.

	// ErrorTypeConfiguration represents unusable configuration (unresolvable
	// config directory, missing credential, invalid setting).
	ErrorTypeConfiguration ErrorType = iota
	// ErrorTypeUnknownModel represents a model name outside the allow-list.
	ErrorTypeUnknownModel
	// ErrorTypeStorageNotFound represents a missing conversation document.
	// Callers treat this as "start fresh", not as a failure.
	ErrorTypeStorageNotFound
	// ErrorTypeStorageCorrupt represents a conversation document that exists
	// but cannot be decoded. Always fatal.
	ErrorTypeStorageCorrupt
	// ErrorTypeEmptyInput represents an empty prompt after all acquisition paths.
	ErrorTypeEmptyInput

	// Service error types, classified from provider responses. Sends are
	// never retried; classification exists for reporting only.

	// ErrorTypeAuth represents authentication failures (401/403, bad API key).
	ErrorTypeAuth
	// ErrorTypeRateLimit represents rate limiting (429, quota exceeded).
	ErrorTypeRateLimit
	// ErrorTypeNetwork represents connection-level failures (refused, reset, DNS).
	ErrorTypeNetwork
	// ErrorTypeTimeout represents deadline or cancellation failures.
	ErrorTypeTimeout
	// ErrorTypeBadRequest represents malformed requests (too long, policy).
	ErrorTypeBadRequest
	// ErrorTypeInternal represents provider-side failures (5xx).
	ErrorTypeInternal
	// ErrorTypeUnknown is the default for unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeConfiguration:
		return "configuration"
	case ErrorTypeUnknownModel:
		return "unknown_model"
	case ErrorTypeStorageNotFound:
		return "not_found"
	case ErrorTypeStorageCorrupt:
		return "corrupt"
	case ErrorTypeEmptyInput:
		return "empty_input"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeBadRequest:
		return "bad_request"
	case ErrorTypeInternal:
		return "internal"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error is a classified error with an optional cause and HTTP status.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface. The text is what the user sees;
// the classification stays programmatic via TypeOf and Is.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error (status %d)", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if an error is of a specific type.
func Is(err error, errorType ErrorType) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown if not classified.
func TypeOf(err error) ErrorType {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ErrorTypeUnknown
}

// IsNotFound reports whether err is a missing-document storage error.
func IsNotFound(err error) bool {
	return Is(err, ErrorTypeStorageNotFound)
}

// IsServiceError reports whether err was classified from a completion call.
func IsServiceError(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeAuth, ErrorTypeRateLimit, ErrorTypeNetwork,
		ErrorTypeTimeout, ErrorTypeBadRequest, ErrorTypeInternal:
		return true
	default:
		return false
	}
}

// NewError creates a new classified error.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorf creates a new classified error with a formatted message.
func NewErrorf(errorType ErrorType, format string, args ...any) *Error {
	return &Error{
		Type:    errorType,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewErrorWithStatus creates a new classified error with an HTTP status.
func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewErrorWithCause creates a new classified error wrapping another error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{
		Type:    errorType,
		Err:     cause,
		Message: message,
	}
}

// SanitizePrompt creates a safe representation of a prompt for logging.
// Large prompts are reduced to first/last portions plus a content hash.
func SanitizePrompt(prompt string, maxChars int) string {
	if len(prompt) <= maxChars {
		return prompt
	}

	halfMax := maxChars / 2
	if halfMax < 100 {
		halfMax = 100
	}

	first := prompt[:halfMax]
	last := prompt[len(prompt)-halfMax:]

	hash := sha256.Sum256([]byte(prompt))
	hashStr := fmt.Sprintf("%x", hash)[:16]

	return fmt.Sprintf("%s...[%d chars, hash:%s]...%s",
		first, len(prompt), hashStr, last)
}
