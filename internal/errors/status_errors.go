package errors

import (
	"fmt"
	"net/http"
)

// StatusError represents a non-2xx response from a hosting API
type StatusError struct {
	Op      string // Operation that failed
	Kind    Kind   // Classification of the failure
	Message string // Error message
	Status  int    // HTTP status code (if applicable)
	Err     error  // Underlying error
}

func (e *StatusError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// ErrorKind implements kinded
func (e *StatusError) ErrorKind() Kind {
	return e.Kind
}

// NewStatusError creates a new StatusError with an HTTP status
func NewStatusError(kind Kind, op string, status int, message string) *StatusError {
	return &StatusError{
		Op:      op,
		Kind:    kind,
		Status:  status,
		Message: message,
	}
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var se *StatusError
	if As(err, &se) {
		return se.Status
	}
	return 0
}

// IsNotFound checks if the error indicates a resource was not found
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
