package client

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError wraps transport failures and timeouts. The request may or may
// not have reached the server.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError is a 4xx response other than 401/403. Message is the
// server's "error" field and is meant to be shown to the user.
type ValidationError struct {
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("request rejected (%d): %s", e.StatusCode, e.Message)
}

// AuthError is a 401 (missing or expired token) or 403 (role mismatch).
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("not authorized (%d): %s", e.StatusCode, e.Message)
}

// Unauthenticated reports whether the caller must sign in again.
func (e *AuthError) Unauthenticated() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// ServerError is any 5xx response.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether repeating the same request could succeed:
// transport failures and 5xx responses.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	var srvErr *ServerError
	return errors.As(err, &netErr) || errors.As(err, &srvErr)
}

// IsConflict reports a 409, e.g. another terminal already moved the order.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func hasStatus(err error, code int) bool {
	var v *ValidationError
	return errors.As(err, &v) && v.StatusCode == code
}

func errorFor(status int, message string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{StatusCode: status, Message: message}
	case status >= http.StatusInternalServerError:
		return &ServerError{StatusCode: status, Message: message}
	default:
		return &ValidationError{StatusCode: status, Message: message}
	}
}
