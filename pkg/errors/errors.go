package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies failures across the fetcher, gallery, and proxy
type ErrorType string

const (
	// ErrorTypeClientInput covers oversized bodies, malformed JSON, invalid
	// UUIDs, and payloads that are not recognizable images
	ErrorTypeClientInput ErrorType = "client_input"
	// ErrorTypeBackendUnavailable means the generation backend could not be
	// reached at all (connection refused, DNS failure, timeout)
	ErrorTypeBackendUnavailable ErrorType = "backend_unavailable"
	// ErrorTypeBackendRejected means the backend answered with an error status
	ErrorTypeBackendRejected ErrorType = "backend_rejected"
	// ErrorTypeStorage covers unexpected filesystem failures in the gallery
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeNetwork covers transient network failures while scraping
	ErrorTypeNetwork  ErrorType = "network"
	ErrorTypeNotFound ErrorType = "not_found"
	ErrorTypeParsing  ErrorType = "parsing"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// Error represents a classified error with an optional HTTP status code
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a classified error
func New(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// WithCode creates a classified error carrying an explicit status code
func WithCode(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Code: code}
}

// TypeOf returns the classification of err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given classification
func Is(err error, t ErrorType) bool {
	return TypeOf(err) == t
}

// HTTPStatus maps an error to the status code the HTTP front should return.
// Client mistakes are 400 unless the error carries its own code (413 for
// size caps), unreachable backends are 502, and anything unexpected is 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		if e.Code != 0 {
			return e.Code
		}
		switch e.Type {
		case ErrorTypeClientInput:
			return http.StatusBadRequest
		case ErrorTypeBackendUnavailable, ErrorTypeBackendRejected:
			return http.StatusBadGateway
		case ErrorTypeNotFound:
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeBackendUnavailable:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 400, 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500
	}
}
