package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for conditions that carry no additional structure.
var (
	// ErrInvalidCredentials is returned when request signing cannot proceed,
	// either because no credentials are configured or the secret is malformed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCircuitOpen is returned when the circuit breaker rejects a request.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
)

// ValidationError reports a missing or malformed request field. It is raised
// before any I/O happens: a request that fails validation never reaches the
// network. Field holds the external (wire) name of the offending field.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the named field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// APIError represents a rejection from the exchange: the request was well
// formed and signed, but the server refused it. Message carries the error
// description from the response body when one was present, otherwise the raw
// body.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// NewAPIError creates an APIError with the given HTTP status and message.
func NewAPIError(statusCode int, message string) *APIError {
	return &APIError{StatusCode: statusCode, Message: message}
}

// TransportError wraps a network-level failure: DNS, connection refused,
// timeout, or context cancellation. The underlying cause is available via
// errors.Unwrap.
type TransportError struct {
	Cause error `json:"-"`
}

// Error implements the error interface for TransportError.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// NewTransportError wraps cause in a TransportError.
func NewTransportError(cause error) *TransportError {
	return &TransportError{Cause: cause}
}

// IsValidationError returns true if the error is a field validation failure.
// Validation errors are caller-fixable and never involve the network.
func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsAPIError returns true if the error is a rejection from the exchange.
func IsAPIError(err error) bool {
	var e *APIError
	return errors.As(err, &e)
}

// IsTransportError returns true if the error is a network-level failure.
func IsTransportError(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

// IsCancelled returns true if the error stems from context cancellation or an
// expired deadline, including when wrapped in a TransportError.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsRateLimitError returns true if the exchange throttled the request.
// Rate limit errors should be retried by the caller after a delay.
func IsRateLimitError(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.StatusCode == http.StatusTooManyRequests
}

// IsAuthenticationError returns true if the error indicates bad or rejected
// credentials. Authentication errors are not retryable.
func IsAuthenticationError(err error) bool {
	if errors.Is(err, ErrInvalidCredentials) {
		return true
	}
	var e *APIError
	return errors.As(err, &e) &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// IsNotFoundError returns true if the requested resource does not exist,
// e.g. a report ID the exchange has already purged.
func IsNotFoundError(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}
