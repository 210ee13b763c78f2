package clients

import (
	"errors"
	"fmt"
	"net/http"
)

// TimeoutError indicates the inference call exceeded its hard deadline
type TimeoutError struct {
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("inference call timed out: %v", e.Cause)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// TransportError indicates the inference call failed before receiving a response
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("inference transport error: %v", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ServiceError indicates the inference service returned a non-success status
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("inference service error (status %d): %s", e.StatusCode, e.Message)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}

// IsServiceError checks if an error is a service error, returning its status code
func IsServiceError(err error) (int, bool) {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.StatusCode, true
	}
	return 0, false
}

// IsRetryableError checks if an error indicates a condition worth retrying
func IsRetryableError(err error) bool {
	if status, ok := IsServiceError(err); ok {
		return status >= 500 || status == http.StatusTooManyRequests
	}

	var transportErr *TransportError
	return IsTimeout(err) || errors.As(err, &transportErr)
}
